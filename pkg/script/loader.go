// Package script loads and validates questionnaire scripts.
//
// Scripts are YAML documents listing numbered nodes. Node text is either a
// literal (`text`) or the name of a registered text function (`func`).
package script

import (
	_ "embed"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultScript []byte

// document is the top-level YAML layout.
type document struct {
	Name     string            `yaml:"name"`
	Labels   map[string]string `yaml:"labels"`
	Fallback domain.Fallback   `yaml:"fallback"`
	Nodes    []map[string]any  `yaml:"nodes"`
}

// nodeSpec mirrors one YAML node. It uses "mapstructure" tags so loosely
// typed YAML values (quoted ids, "yes" keys) decode predictably.
type nodeSpec struct {
	ID         *int           `mapstructure:"id"`
	Text       string         `mapstructure:"text"`
	Func       string         `mapstructure:"func"`
	Choices    [][]string     `mapstructure:"choices"`
	Actions    map[string]int `mapstructure:"actions"`
	QuestionID int            `mapstructure:"question_id"`
	Listen     *int           `mapstructure:"listen"`
}

// Default returns the embedded residence-permit script.
func Default() (*domain.Script, error) {
	return Parse(defaultScript)
}

// Load reads a script from path. An empty path loads the embedded default.
func Load(path string) (*domain.Script, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes a YAML script. It checks the document shape only; call
// Validate to enforce graph invariants.
func Parse(data []byte) (*domain.Script, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}

	s := &domain.Script{
		Name:     doc.Name,
		Nodes:    make(map[int]*domain.Node, len(doc.Nodes)),
		Labels:   doc.Labels,
		Fallback: doc.Fallback,
	}
	if s.Labels == nil {
		s.Labels = map[string]string{}
	}

	for i, raw := range doc.Nodes {
		node, err := decodeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("node #%d: %w", i+1, err)
		}
		if _, dup := s.Nodes[node.ID]; dup {
			return nil, fmt.Errorf("node #%d: duplicate id %d", i+1, node.ID)
		}
		s.Nodes[node.ID] = node
	}

	return s, nil
}

func decodeNode(raw map[string]any) (*domain.Node, error) {
	var spec nodeSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &spec,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}

	if spec.ID == nil {
		return nil, fmt.Errorf("missing id")
	}
	if spec.Text != "" && spec.Func != "" {
		return nil, fmt.Errorf("node %d: text and func are mutually exclusive", *spec.ID)
	}

	content := domain.Literal(spec.Text)
	if spec.Func != "" {
		content = domain.Func(spec.Func)
	}

	return &domain.Node{
		ID:         *spec.ID,
		Content:    content,
		Choices:    spec.Choices,
		Actions:    spec.Actions,
		QuestionID: spec.QuestionID,
		Listen:     spec.Listen,
	}, nil
}
