package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces a Mermaid flowchart of the state tree, one edge per
// parent/child link. It applies semantic styling:
// - Root: ((Circle))
// - Async (has suspendable hooks): [[Subroutine]]
// - Composite (has children): ([Stadium])
// - Leaf: [Rectangle]
// With an overlay, the current state and its ancestors are highlighted.
func GenerateMermaid(states []domain.StateInfo, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	byID := make(map[string]domain.StateInfo, len(states))
	for _, s := range states {
		byID[s.Name] = s
	}

	for _, s := range states {
		safeID := sanitizeMermaidID(s.Name)

		opener, closer := "[", "]"
		switch {
		case s.Name == domain.RootStateID:
			opener, closer = "((", "))"
		case s.IsAsync:
			opener, closer = "[[", "]]"
		case len(s.Children) > 0:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, s.Name, closer)
	}

	for _, s := range states {
		for _, child := range s.Children {
			fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeMermaidID(s.Name), sanitizeMermaidID(child))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef active fill:#fff9c4,stroke:#fbc02d,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		styled := make(map[string]bool)
		if overlay.CurrentState != "" {
			if _, ok := byID[overlay.CurrentState]; ok {
				styled[overlay.CurrentState] = true
				fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentState))
			}
			for _, id := range Ancestors(byID, overlay.CurrentState) {
				styled[id] = true
				fmt.Fprintf(&sb, "    class %s active;\n", sanitizeMermaidID(id))
			}
		}

		for _, id := range overlay.VisitedStates {
			if _, ok := byID[id]; !ok || styled[id] {
				continue
			}
			styled[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(id))
		}
	}

	return sb.String()
}

// Ancestors returns the proper ancestors of id, nearest first.
func Ancestors(byID map[string]domain.StateInfo, id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	for p := byID[id].Parent; p != "" && !seen[p]; p = byID[p].Parent {
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// "end" is a Mermaid keyword.
	if strings.EqualFold(s, "end") {
		s = "state_" + s
	}
	return s
}
