package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/script"
)

// Report is the result of crawling a script from the root node.
type Report struct {
	Reachable   []int
	Unreachable []int
}

// Crawl walks every edge a user can take from the root node: actions, listen
// targets, and the escalation node offered by the fallback keyboard.
func Crawl(s *domain.Script, escalationNode int) Report {
	visited := make(map[int]bool)
	queue := []int{domain.RootNodeID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		n, ok := s.Node(current)
		if !ok {
			continue
		}
		visited[current] = true

		var next []int
		for _, target := range n.Actions {
			next = append(next, target)
		}
		if n.Listen != nil {
			next = append(next, *n.Listen)
		}
		next = append(next, escalationNode)
		for _, target := range next {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var r Report
	for _, id := range script.SortedIDs(s) {
		if visited[id] {
			r.Reachable = append(r.Reachable, id)
		} else {
			r.Unreachable = append(r.Unreachable, id)
		}
	}
	return r
}

// ValidateGraph runs the structural checks of the script and then reports
// nodes no user can reach.
func ValidateGraph(s *domain.Script, funcs script.FuncResolver, escalationNode int) error {
	if err := script.Validate(s, funcs); err != nil {
		return err
	}
	if !s.Has(escalationNode) {
		return fmt.Errorf("escalation node %d: %w", escalationNode, &domain.UnknownNodeError{NodeID: escalationNode})
	}
	if !domain.IsTerminal(escalationNode) {
		return fmt.Errorf("escalation node %d: %w", escalationNode, domain.ErrNotTerminal)
	}

	r := Crawl(s, escalationNode)
	if len(r.Unreachable) > 0 {
		ids := make([]string, len(r.Unreachable))
		sort.Ints(r.Unreachable)
		for i, id := range r.Unreachable {
			ids[i] = fmt.Sprint(id)
		}
		return fmt.Errorf("found %d unreachable nodes: %s", len(ids), strings.Join(ids, ", "))
	}
	return nil
}
