package file

import (
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Document is the root of a tree file.
type Document struct {
	Contributions []Contribution `json:"contributions" yaml:"contributions" mapstructure:"contributions"`
}

// Contribution declares states to attach under Parent.
// Fields mirror registry.Descriptor; an empty Parent means the root.
type Contribution struct {
	Name               string      `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Parent             string      `json:"parent,omitempty" yaml:"parent,omitempty" mapstructure:"parent"`
	Priority           int         `json:"priority,omitempty" yaml:"priority,omitempty" mapstructure:"priority"`
	SkipInVerification bool        `json:"skip_in_verification,omitempty" yaml:"skip_in_verification,omitempty" mapstructure:"skip_in_verification"`
	States             []StateSpec `json:"states" yaml:"states" mapstructure:"states"`
}

// StateSpec is one declared state and its subtree.
type StateSpec struct {
	ID       string      `json:"id" yaml:"id" mapstructure:"id"`
	Children []StateSpec `json:"children,omitempty" yaml:"children,omitempty" mapstructure:"children"`
}

// Export describes the assembled tree of m as a single contribution under the
// root. Loading the result rebuilds the same structure (without hooks).
// Each id is emitted once.
func Export(m ports.Inspector) Document {
	// Child links can loop back to an ancestor when a duplicate id was dropped.
	seen := map[string]bool{domain.RootStateID: true}
	var build func(id string) StateSpec
	build = func(id string) StateSpec {
		spec := StateSpec{ID: id}
		for _, child := range m.StateInfo(id).Children {
			if seen[child] {
				continue
			}
			seen[child] = true
			spec.Children = append(spec.Children, build(child))
		}
		return spec
	}

	root := build(domain.RootStateID)
	return Document{
		Contributions: []Contribution{{
			Name:   "export",
			Parent: domain.RootStateID,
			States: root.Children,
		}},
	}
}
