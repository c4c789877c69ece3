package dsl

import (
	"fmt"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/script"
)

// Builder manages the script construction.
type Builder struct {
	name     string
	nodes    map[int]*NodeBuilder
	labels   map[string]string
	fallback domain.Fallback
}

// New creates a new script builder.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		nodes:  make(map[int]*NodeBuilder),
		labels: make(map[string]string),
	}
}

// Add creates a new node in the script.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id int) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:      id,
			Actions: make(map[string]int),
		},
	}
	b.nodes[id] = nb
	return nb
}

// Label sets the display text of a choice token.
func (b *Builder) Label(token, label string) *Builder {
	b.labels[token] = label
	return b
}

// Fallback sets the redirect offered on unexpected input.
func (b *Builder) Fallback(text string, rows ...[]string) *Builder {
	b.fallback = domain.Fallback{Text: text, Choices: rows}
	return b
}

// Build assembles the script and validates it. funcs may be nil, in which
// case function content is not checked against a registry.
func (b *Builder) Build(funcs script.FuncResolver) (*domain.Script, error) {
	s := &domain.Script{
		Name:     b.name,
		Nodes:    make(map[int]*domain.Node, len(b.nodes)),
		Labels:   make(map[string]string, len(b.labels)),
		Fallback: b.fallback,
	}
	for tok, l := range b.labels {
		s.Labels[tok] = l
	}
	for id, nb := range b.nodes {
		n := nb.Build()
		s.Nodes[id] = &n
	}

	if err := script.Validate(s, funcs); err != nil {
		return nil, fmt.Errorf("failed to build script %q: %w", b.name, err)
	}
	return s, nil
}
