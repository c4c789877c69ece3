package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/script"
)

// GraphOverlay contains user state to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []int
	CurrentNode  *int
}

// GenerateMermaid produces a Mermaid flowchart of the script.
// Shapes:
// - Root: ((Circle))
// - Terminal (id <= 0): [[Subroutine]]
// - Listening for free text: [/Parallelogram/]
// - Default: [Rectangle]
// Button edges are solid and labelled with the button text; free-text edges
// are dotted.
func GenerateMermaid(s *domain.Script, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range script.SortedIDs(s) {
		node := s.Nodes[id]
		safeID := mermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == domain.RootNodeID:
			opener, closer = "((", "))"
		case domain.IsTerminal(id):
			opener, closer = "[[", "]]"
		case node.Listens():
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%d: %s\"%s\n", safeID, opener, id, caption(node), closer)

		tokens := make([]string, 0, len(node.Actions))
		for tok := range node.Actions {
			tokens = append(tokens, tok)
		}
		sort.Strings(tokens)
		for _, tok := range tokens {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, escape(s.Label(tok)), mermaidID(node.Actions[tok]))
		}
		if node.Listen != nil {
			fmt.Fprintf(&sb, "    %s -. \"⌨ text\" .-> %s\n", safeID, mermaidID(*node.Listen))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[int]bool)
		for _, id := range overlay.VisitedNodes {
			if seen[id] || !s.Has(id) {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", mermaidID(id))
		}
		if overlay.CurrentNode != nil && s.Has(*overlay.CurrentNode) {
			fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(*overlay.CurrentNode))
		}
	}

	return sb.String()
}

// mermaidID maps node ids to identifiers Mermaid accepts: 1 -> n1, -2 -> n_2.
func mermaidID(id int) string {
	if id < 0 {
		return fmt.Sprintf("n_%d", -id)
	}
	return fmt.Sprintf("n%d", id)
}

func caption(n *domain.Node) string {
	if n.Content.Kind == domain.ContentFunc {
		return "ƒ " + n.Content.Func
	}
	line, _, _ := strings.Cut(n.Content.Literal, "\n")
	line = strings.NewReplacer("**", "", "__", "").Replace(line)
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > 40 {
		line = string(r[:40]) + "…"
	}
	return escape(line)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
