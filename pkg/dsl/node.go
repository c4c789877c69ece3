package dsl

import "github.com/aretw0/intake/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node domain.Node
}

// Text sets a literal content for the node.
func (n *NodeBuilder) Text(content string) *NodeBuilder {
	n.node.Content = domain.Literal(content)
	return n
}

// Func sets the node content to a registered text function.
func (n *NodeBuilder) Func(name string) *NodeBuilder {
	n.node.Content = domain.Func(name)
	return n
}

// Row appends one row of choice tokens.
func (n *NodeBuilder) Row(tokens ...string) *NodeBuilder {
	n.node.Choices = append(n.node.Choices, tokens)
	return n
}

// On maps an input token to a target node.
func (n *NodeBuilder) On(token string, target int) *NodeBuilder {
	n.node.Actions[token] = target
	return n
}

// Choice adds a single-button row and its action in one call.
func (n *NodeBuilder) Choice(token string, target int) *NodeBuilder {
	return n.Row(token).On(token, target)
}

// Slot sets the question slot recorded by answers given at this node.
func (n *NodeBuilder) Slot(questionID int) *NodeBuilder {
	n.node.QuestionID = questionID
	return n
}

// Listen makes the node accept free text and move the user to target.
func (n *NodeBuilder) Listen(target int) *NodeBuilder {
	n.node.Listen = domain.Ptr(target)
	return n
}

// Build returns a copy of the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	out := n.node
	if len(out.Actions) == 0 {
		out.Actions = nil
	} else {
		out.Actions = make(map[string]int, len(n.node.Actions))
		for k, v := range n.node.Actions {
			out.Actions[k] = v
		}
	}
	if out.Listen != nil {
		out.Listen = domain.Ptr(*out.Listen)
	}
	return out
}
