package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
)

// FuncResolver reports whether a text function name is known.
type FuncResolver interface {
	Has(name string) bool
}

// ValidationError aggregates every invariant violation found in a script.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d script errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Unwrap exposes the individual errors to errors.Is/As.
func (e *ValidationError) Unwrap() []error {
	return e.Errors
}

// Validate enforces the script invariants:
//   - the root node exists;
//   - every action and listen target names an existing node;
//   - terminal nodes carry no question slot;
//   - function content references a registered function;
//   - every rendered choice token is actionable.
func Validate(s *domain.Script, funcs FuncResolver) error {
	var errs []error

	if !s.Has(domain.RootNodeID) {
		errs = append(errs, &domain.UnknownNodeError{NodeID: domain.RootNodeID})
	}

	for _, id := range SortedIDs(s) {
		n := s.Nodes[id]

		tokens := make([]string, 0, len(n.Actions))
		for tok := range n.Actions {
			tokens = append(tokens, tok)
		}
		sort.Strings(tokens)
		for _, tok := range tokens {
			if target := n.Actions[tok]; !s.Has(target) {
				errs = append(errs, &domain.DanglingTargetError{NodeID: id, Token: tok, Target: target})
			}
			if domain.IsTerminal(id) && !domain.IsNavigationToken(tok) {
				errs = append(errs, fmt.Errorf("node %d: terminal nodes only accept sentinel tokens, got %q", id, tok))
			}
		}

		if domain.IsTerminal(id) && n.QuestionID != 0 {
			errs = append(errs, fmt.Errorf("node %d: terminal nodes record ancillary answers only, got question_id %d", id, n.QuestionID))
		}

		if n.Listen != nil && !s.Has(*n.Listen) {
			errs = append(errs, &domain.DanglingTargetError{NodeID: id, Token: "listen", Target: *n.Listen})
		}

		if n.Content.Kind == domain.ContentFunc && funcs != nil && !funcs.Has(n.Content.Func) {
			errs = append(errs, fmt.Errorf("node %d: unknown text function %q", id, n.Content.Func))
		}

		for _, row := range n.Choices {
			for _, tok := range row {
				if _, ok := n.Actions[tok]; ok || domain.IsNavigationToken(tok) {
					continue
				}
				errs = append(errs, fmt.Errorf("node %d: choice %q has no action", id, tok))
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// SortedIDs returns the node ids in ascending order.
func SortedIDs(s *domain.Script) []int {
	ids := make([]int, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
