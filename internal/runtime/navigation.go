package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
)

// choice handles a button press at current.
func (e *Engine) choice(ctx context.Context, user *domain.User, current *domain.Node, token string) (*domain.Decision, error) {
	switch {
	case token == domain.TokenBackToSurvey:
		return e.redisplay(user, current)
	case domain.IsEscalationToken(token):
		return e.escalate(user, current, token)
	case domain.IsBackToken(token):
		return e.back(ctx, user, current)
	}

	target, ok := current.Target(token)
	if !ok || domain.IsTerminal(current.ID) {
		return e.fallback(user, current)
	}

	d, err := e.move(user, current, token, target)
	if err != nil {
		return nil, err
	}
	if current.QuestionID > 0 {
		d.Answer = &domain.AnswerDraft{QuestionID: current.QuestionID, Text: token}
		d.MutateAnchor = true
	}
	return d, nil
}

// freeText handles a typed message at current.
func (e *Engine) freeText(user *domain.User, current *domain.Node, text string) (*domain.Decision, error) {
	if !current.Listens() {
		return e.fallback(user, current)
	}
	clean, err := SanitizeInput(text, e.maxInput)
	if err != nil {
		e.logger.Warn("Rejected free text", "user_id", user.ID, "node", current.ID, "err", err)
		return e.fallback(user, current)
	}
	if strings.TrimSpace(clean) == "" {
		return e.fallback(user, current)
	}

	d, err := e.move(user, current, "listen", *current.Listen)
	if err != nil {
		return nil, err
	}
	d.Answer = &domain.AnswerDraft{QuestionID: current.QuestionID, Text: clean}
	d.MutateAnchor = true

	if domain.IsTerminal(current.ID) {
		d.Notify = &domain.Notification{Kind: domain.NotifyQuestion, UserID: user.ID, Payload: clean}
	}
	return d, nil
}

// move renders target as the next position. Reaching the completion node
// from elsewhere notifies the operator.
func (e *Engine) move(user *domain.User, current *domain.Node, token string, target int) (*domain.Decision, error) {
	if !e.script.Has(target) {
		return nil, &domain.DanglingTargetError{NodeID: current.ID, Token: token, Target: target}
	}
	d, err := e.renderAt(user, target)
	if err != nil {
		return nil, err
	}
	d.NextProgress = target
	d.MutateAnchor = target != current.ID
	if target == domain.CompletionNodeID && current.ID != domain.CompletionNodeID {
		d.Notify = &domain.Notification{Kind: domain.NotifyCompletion, UserID: user.ID}
	}
	return d, nil
}

// escalate hands the user to staff. The node's terminal target for the
// pressed token wins, then the other escalation alias, then the configured
// escalation node.
func (e *Engine) escalate(user *domain.User, current *domain.Node, token string) (*domain.Decision, error) {
	alias := domain.TokenGoToManager
	if token == domain.TokenGoToManager {
		alias = domain.TokenNoGoToManager
	}

	target := e.escalationNode
	for _, tok := range []string{token, alias} {
		if id, ok := current.Target(tok); ok && domain.IsTerminal(id) && e.script.Has(id) {
			target = id
			break
		}
	}
	if !e.script.Has(target) {
		return nil, &domain.UnknownNodeError{NodeID: target}
	}
	if !domain.IsTerminal(target) {
		return nil, fmt.Errorf("escalation node %d: %w", target, domain.ErrNotTerminal)
	}

	d, err := e.renderAt(user, target)
	if err != nil {
		return nil, err
	}
	d.NextProgress = target
	d.MutateAnchor = true
	d.Notify = &domain.Notification{Kind: domain.NotifyEscalation, UserID: user.ID}
	return d, nil
}

// back prefers the node's explicit edge and falls back to the legacy policy.
func (e *Engine) back(ctx context.Context, user *domain.User, current *domain.Node) (*domain.Decision, error) {
	target, ok := current.BackTarget()
	if !ok {
		var err error
		target, ok, err = e.legacyBack(ctx, user, current)
		if err != nil {
			return nil, err
		}
	}
	if !ok || !e.script.Has(target) {
		return e.fallback(user, current)
	}

	d, err := e.renderAt(user, target)
	if err != nil {
		return nil, err
	}
	d.NextProgress = target
	d.MutateAnchor = target != current.ID
	return d, nil
}

func (e *Engine) legacyBack(ctx context.Context, user *domain.User, current *domain.Node) (int, bool, error) {
	switch e.backPolicy {
	case BackDecrement:
		return current.ID - 1, true, nil
	case BackLastAnswer:
		if e.answers == nil {
			return 0, false, nil
		}
		last, err := e.answers.LastAnswer(ctx, user.ID)
		if errors.Is(err, domain.ErrNoAnswers) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("back via last answer: %w", err)
		}
		return last.QuestionID, true, nil
	default:
		return 0, false, nil
	}
}

// redisplay renders the current node again without moving.
func (e *Engine) redisplay(user *domain.User, current *domain.Node) (*domain.Decision, error) {
	d, err := e.renderAt(user, current.ID)
	if err != nil {
		return nil, err
	}
	d.NextProgress = current.ID
	return d, nil
}
