package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Snapshot collects the info of every state of m in assembly order.
func Snapshot(m ports.Inspector) []domain.StateInfo {
	ids := m.AllStates()
	out := make([]domain.StateInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.StateInfo(id))
	}
	return out
}

// TreeOptions tunes RenderTree.
type TreeOptions struct {
	// Current marks the current state (and its ancestors) when set.
	Current string
	// Highlight decorates the current state's label; nil leaves it plain.
	Highlight func(string) string
}

// RenderTree draws the tree rooted at the root state with box-drawing guides:
//
//	root
//	├── menu
//	│   └── options
//	└── game
//
// The current state is suffixed with " *" and its ancestors with " ·".
func RenderTree(states []domain.StateInfo, opts TreeOptions) string {
	byID := make(map[string]domain.StateInfo, len(states))
	for _, s := range states {
		byID[s.Name] = s
	}
	root, ok := byID[domain.RootStateID]
	if !ok {
		return ""
	}

	active := make(map[string]bool)
	for _, id := range Ancestors(byID, opts.Current) {
		active[id] = true
	}

	label := func(id string) string {
		switch {
		case id == opts.Current:
			l := id + " *"
			if opts.Highlight != nil {
				l = opts.Highlight(l)
			}
			return l
		case active[id]:
			return id + " ·"
		default:
			return id
		}
	}

	var sb strings.Builder
	sb.WriteString(label(root.Name))
	sb.WriteString("\n")

	seen := map[string]bool{root.Name: true}
	var walk func(id, prefix string)
	walk = func(id, prefix string) {
		children := byID[id].Children
		for i, child := range children {
			if seen[child] {
				continue
			}
			seen[child] = true

			branch, next := "├── ", "│   "
			if i == len(children)-1 {
				branch, next = "└── ", "    "
			}
			fmt.Fprintf(&sb, "%s%s%s\n", prefix, branch, label(child))
			walk(child, prefix+next)
		}
	}
	walk(root.Name, "")

	return sb.String()
}

// RenderMarkdown renders the tree as a nested markdown list, the current
// state in bold. Suitable for glamour.
func RenderMarkdown(title string, states []domain.StateInfo, current string) string {
	byID := make(map[string]domain.StateInfo, len(states))
	for _, s := range states {
		byID[s.Name] = s
	}

	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", title)
	}
	if _, ok := byID[domain.RootStateID]; !ok {
		sb.WriteString("_empty tree_\n")
		return sb.String()
	}

	seen := make(map[string]bool)
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if seen[id] {
			return
		}
		seen[id] = true

		s := byID[id]
		name := "`" + id + "`"
		if id == current {
			name = "**" + name + "** (current)"
		}
		if s.IsAsync {
			name += " _async_"
		}
		fmt.Fprintf(&sb, "%s- %s\n", strings.Repeat("  ", depth), name)
		for _, child := range s.Children {
			walk(child, depth+1)
		}
	}
	walk(domain.RootStateID, 0)

	fmt.Fprintf(&sb, "\n%d states", len(states))
	if current != "" {
		fmt.Fprintf(&sb, ", current: `%s`", current)
	}
	sb.WriteString("\n")
	return sb.String()
}
