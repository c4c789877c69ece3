package domain

// ContentKind tags the variant held by Content.
type ContentKind string

const (
	// ContentLiteral is static text.
	ContentLiteral ContentKind = "literal"
	// ContentFunc names a pure text function resolved through the registry.
	ContentFunc ContentKind = "func"
)

// Content is the display text of a node: either a literal or the name of a
// registered text function. Callables are never stored in the script.
type Content struct {
	Kind    ContentKind `json:"kind" yaml:"kind"`
	Literal string      `json:"literal,omitempty" yaml:"literal,omitempty"`
	Func    string      `json:"func,omitempty" yaml:"func,omitempty"`
}

// Literal builds a static content value.
func Literal(text string) Content {
	return Content{Kind: ContentLiteral, Literal: text}
}

// Func builds a content value resolved by name at render time.
func Func(name string) Content {
	return Content{Kind: ContentFunc, Func: name}
}

// Node represents one step of the questionnaire graph.
type Node struct {
	ID      int     `json:"id" yaml:"id"`
	Content Content `json:"content" yaml:"content"`

	// Choices holds rows of choice tokens. Labels live in Script.Labels.
	Choices [][]string `json:"choices,omitempty" yaml:"choices,omitempty"`

	// Actions maps an input token to the target node id.
	Actions map[string]int `json:"actions,omitempty" yaml:"actions,omitempty"`

	// QuestionID is the logical question slot answered here (0 = ancillary).
	QuestionID int `json:"question_id,omitempty" yaml:"question_id,omitempty"`

	// Listen, when set, accepts free text and moves the user to *Listen.
	Listen *int `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// Target returns the action target for token.
func (n *Node) Target(token string) (int, bool) {
	if n.Actions == nil {
		return 0, false
	}
	id, ok := n.Actions[token]
	return id, ok
}

// BackTarget returns the graph-directed back edge, checking both aliases.
func (n *Node) BackTarget() (int, bool) {
	if id, ok := n.Target(TokenBack); ok {
		return id, true
	}
	return n.Target(TokenGoBack)
}

// Listens reports whether the node accepts free text.
func (n *Node) Listens() bool {
	return n.Listen != nil
}

// Choice is a rendered option: the token sent back and its display label.
type Choice struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

// Script is the static, validated questionnaire graph.
type Script struct {
	Name   string
	Nodes  map[int]*Node
	Labels map[string]string

	// Fallback is rendered on unexpected input.
	Fallback Fallback
}

// Fallback is the soft redirect offered when input does not match the node.
type Fallback struct {
	Text    string     `json:"text" yaml:"text"`
	Choices [][]string `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// Node returns the node for id.
func (s *Script) Node(id int) (*Node, bool) {
	n, ok := s.Nodes[id]
	return n, ok
}

// Has reports whether id is a node of the script.
func (s *Script) Has(id int) bool {
	_, ok := s.Nodes[id]
	return ok
}

// Label resolves the display text of token, falling back to the token itself.
func (s *Script) Label(token string) string {
	if l, ok := s.Labels[token]; ok && l != "" {
		return l
	}
	return token
}

// ResolveChoices turns rows of tokens into rows of labeled choices.
func (s *Script) ResolveChoices(rows [][]string) [][]Choice {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]Choice, 0, len(rows))
	for _, row := range rows {
		r := make([]Choice, 0, len(row))
		for _, tok := range row {
			r = append(r, Choice{Token: tok, Label: s.Label(tok)})
		}
		out = append(out, r)
	}
	return out
}
