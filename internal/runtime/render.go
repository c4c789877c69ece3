package runtime

import (
	"fmt"

	"github.com/aretw0/intake/pkg/domain"
)

// renderAt builds a decision that displays node id for user.
func (e *Engine) renderAt(user *domain.User, id int) (*domain.Decision, error) {
	text, choices, err := e.Render(user, id)
	if err != nil {
		return nil, err
	}
	return &domain.Decision{
		RenderNodeID: id,
		Text:         text,
		Choices:      choices,
	}, nil
}

// Render produces the content of node id for user without deciding a turn.
func (e *Engine) Render(user *domain.User, id int) (string, [][]domain.Choice, error) {
	node, ok := e.script.Node(id)
	if !ok {
		return "", nil, &domain.UnknownNodeError{NodeID: id}
	}
	text, err := e.texts.Render(node.Content, user)
	if err != nil {
		return "", nil, fmt.Errorf("render node %d: %w", id, err)
	}
	return text, e.script.ResolveChoices(node.Choices), nil
}

// fallback is the soft redirect for unexpected input. It never mutates.
func (e *Engine) fallback(user *domain.User, current *domain.Node) (*domain.Decision, error) {
	return &domain.Decision{
		RenderNodeID: current.ID,
		Text:         e.script.Fallback.Text,
		Choices:      e.script.ResolveChoices(e.script.Fallback.Choices),
		NextProgress: user.Progress,
		Fallback:     true,
	}, nil
}
