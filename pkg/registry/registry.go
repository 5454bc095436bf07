package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
)

// ApplyFunc attaches zero or more subtrees under parent.
type ApplyFunc func(parent *dsl.Node) error

// Descriptor is one contribution to the state tree.
type Descriptor struct {
	// Name identifies the contribution in reports. Optional.
	Name string
	// Parent is the id of the node the contribution attaches under.
	Parent string
	// Priority orders ready contributions within a wave (ascending).
	Priority int
	// SkipInVerification excludes the contribution when resolving in verification mode.
	SkipInVerification bool
	// Apply builds the subtree.
	Apply ApplyFunc
}

// Option configures a Descriptor.
type Option func(*Descriptor)

// WithPriority sets the priority. Lower values run first within a wave.
func WithPriority(p int) Option {
	return func(d *Descriptor) {
		d.Priority = p
	}
}

// WithName labels the contribution.
func WithName(name string) Option {
	return func(d *Descriptor) {
		d.Name = name
	}
}

// SkipInVerification excludes the contribution in verification mode.
func SkipInVerification() Option {
	return func(d *Descriptor) {
		d.SkipInVerification = true
	}
}

// Under creates a descriptor that attaches under parent.
// An empty parent means the root.
func Under(parent string, apply ApplyFunc, opts ...Option) Descriptor {
	if parent == "" {
		parent = domain.RootStateID
	}
	d := Descriptor{Parent: parent, Apply: apply}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// label is used in reports.
func (d Descriptor) label() string {
	if d.Name != "" {
		return d.Name
	}
	return "under " + d.Parent
}

// Registry collects contributions until the machine is assembled.
type Registry struct {
	mu          sync.RWMutex
	descriptors []Descriptor
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds contributions in order. Registration order breaks priority ties.
func (r *Registry) Register(descriptors ...Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range descriptors {
		if d.Parent == "" {
			d.Parent = domain.RootStateID
		}
		r.descriptors = append(r.descriptors, d)
	}
}

// Len returns the number of registered contributions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// Descriptors returns a copy of the registered contributions.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Resolve builds the builder tree in waves.
//
// Each wave applies, by ascending priority, every remaining contribution whose
// parent already exists; contributions whose parent is created during a wave
// wait for the next one. When a wave finds nothing ready, the leftovers are
// reported as one unresolved dependency error and the partial tree is returned.
func (r *Registry) Resolve(verification bool) (*dsl.Node, []error) {
	type entry struct {
		seq int
		d   Descriptor
	}

	r.mu.RLock()
	remaining := make([]entry, 0, len(r.descriptors))
	for i, d := range r.descriptors {
		if verification && d.SkipInVerification {
			continue
		}
		remaining = append(remaining, entry{seq: i, d: d})
	}
	r.mu.RUnlock()

	root := dsl.NewRoot()
	var errs []error

	for len(remaining) > 0 {
		var ready, waiting []entry
		for _, e := range remaining {
			if root.Find(e.d.Parent) != nil {
				ready = append(ready, e)
			} else {
				waiting = append(waiting, e)
			}
		}
		if len(ready) == 0 {
			break
		}

		sort.SliceStable(ready, func(i, j int) bool {
			if ready[i].d.Priority != ready[j].d.Priority {
				return ready[i].d.Priority < ready[j].d.Priority
			}
			return ready[i].seq < ready[j].seq
		})

		for _, e := range ready {
			target := root.Find(e.d.Parent)
			if e.d.Apply == nil {
				continue
			}
			if err := e.d.Apply(target); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w: %w", e.d.label(), domain.ErrApplyFailed, err))
			}
		}

		remaining = waiting
	}

	if len(remaining) > 0 {
		parents := make([]string, 0, len(remaining))
		for _, e := range remaining {
			parents = append(parents, e.d.Parent)
		}
		errs = append(errs, &domain.UnresolvedDependencyError{Parents: parents})
	}

	return root, errs
}
