// Package yamlcodec registers YAML support for prompt documents. Import it for its side
// effect:
//
//	import _ "github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt/yamlcodec"
//
// Without it, Builder.ToYAML and prompt.FromYAML fail with prompt.ErrCodecUnavailable.
package yamlcodec

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

// ErrNotMapping is returned when the YAML root is not a mapping.
var ErrNotMapping = errors.New("YAML does not represent a mapping")

func init() {
	prompt.RegisterCodec(prompt.FormatYAML, Codec{})
}

// Codec encodes documents with gopkg.in/yaml.v3, keeping section order.
type Codec struct{}

type yamlDocument struct {
	Meta     map[string]any `yaml:"meta"`
	Order    []string       `yaml:"order"`
	Sections *yaml.Node     `yaml:"sections"`
}

// Encode writes doc as YAML with two-space indentation. pretty has no effect.
func (Codec) Encode(doc prompt.Document, pretty bool) ([]byte, error) {
	sections := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range doc.Sections.Keys() {
		data, _ := doc.Sections.Get(key)
		val := &yaml.Node{}
		if err := val.Encode(data); err != nil {
			return nil, fmt.Errorf("encode section %q: %w", key, err)
		}
		if data.IncludeIf == nil {
			setNull(val, "include_if")
		}
		sections.Content = append(sections.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			val,
		)
	}

	meta := doc.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	order := doc.Order
	if order == nil {
		order = []string{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yamlDocument{Meta: meta, Order: order, Sections: sections}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses YAML into a document. Empty input is an empty document.
func (Codec) Decode(data []byte) (prompt.Document, error) {
	doc := prompt.Document{Sections: prompt.NewSections()}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return prompt.Document{}, err
	}
	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return doc, nil
		}
		node = node.Content[0]
	}
	if node.Kind == 0 || isNull(node) {
		return doc, nil
	}
	if node.Kind != yaml.MappingNode {
		return prompt.Document{}, ErrNotMapping
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		switch key {
		case "meta":
			if err := val.Decode(&doc.Meta); err != nil {
				return prompt.Document{}, fmt.Errorf("meta: %w", err)
			}
		case "order":
			if err := val.Decode(&doc.Order); err != nil {
				return prompt.Document{}, fmt.Errorf("order: %w", err)
			}
		case "sections":
			if err := decodeSections(val, &doc.Sections); err != nil {
				return prompt.Document{}, err
			}
		}
	}
	return doc, nil
}

func decodeSections(node *yaml.Node, out *prompt.Sections) error {
	if isNull(node) {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("sections: expected a mapping, got %s", kindName(node.Kind))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var data prompt.SectionData
		if err := node.Content[i+1].Decode(&data); err != nil {
			return fmt.Errorf("section %q: %w", key, err)
		}
		out.Set(key, data)
	}
	return nil
}

// setNull rewrites a mapping value to null; yaml.v3 encodes nil maps as {}.
func setNull(mapping *yaml.Node, key string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		}
	}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.MappingNode:
		return "mapping"
	}
	return "document"
}
