// Package schema describes the prompt document interchange form as JSON Schema and
// validates JSON or YAML documents against it before they are decoded.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
	_ "github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt/yamlcodec"
)

// ErrInvalid is returned when a document cannot be parsed or does not match the
// interchange schema.
var ErrInvalid = errors.New("document does not match schema")

const resourceName = "prompt-document.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Reflect builds the interchange schema from prompt.Document. Sections is an ordered
// map with no exported fields, so it is mapped by hand to an object of section schemas.
func Reflect() *invopop.Schema {
	section := reflector(nil).Reflect(&prompt.SectionData{})
	section.Version = ""
	section.Description = "A named unit of prompt content."

	sectionsType := reflect.TypeOf(prompt.Sections{})
	r := reflector(func(t reflect.Type) *invopop.Schema {
		if t != sectionsType {
			return nil
		}
		return &invopop.Schema{
			Type:                 "object",
			Description:          "Sections keyed by name, in insertion order.",
			AdditionalProperties: section,
		}
	})

	s := r.Reflect(&prompt.Document{})
	s.Title = "Prompt document"
	s.Description = "Plain-data form of a prompt builder."
	return s
}

func reflector(mapper func(reflect.Type) *invopop.Schema) *invopop.Reflector {
	return &invopop.Reflector{
		Anonymous:                  true,
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper:                     mapper,
	}
}

// Interchange returns the interchange schema as indented JSON.
func Interchange() ([]byte, error) {
	return json.MarshalIndent(Reflect(), "", "  ")
}

func compile() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := Interchange()
		if err != nil {
			compileErr = fmt.Errorf("failed to reflect interchange schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("failed to load interchange schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(resourceName)
		if compileErr != nil {
			compileErr = fmt.Errorf("failed to compile interchange schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// Validate checks data, encoded as format, against the interchange schema.
// Header sizes are not range-checked; out-of-range values are clamped on load.
func Validate(data []byte, format prompt.Format) error {
	doc, err := normalize(data, format)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	s, err := compile()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// normalize decodes data into the generic JSON value model the validator expects.
// YAML goes through a JSON round trip so that numbers and maps match JSON decoding.
func normalize(data []byte, format prompt.Format) (any, error) {
	var doc any
	switch format {
	case prompt.FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return doc, nil
	case prompt.FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		if doc == nil {
			return map[string]any{}, nil
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("yaml is not representable as json: %w", err)
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", prompt.ErrCodecUnavailable, format)
}

// Load validates data and decodes it into a builder.
func Load(data []byte, format prompt.Format, opts ...prompt.Option) (*prompt.Builder, error) {
	if err := Validate(data, format); err != nil {
		return nil, err
	}
	doc, err := prompt.Decode(format, data)
	if err != nil {
		return nil, err
	}
	return prompt.FromDocument(doc, opts...), nil
}

// DetectFormat picks a format from a file extension. Anything that is not YAML is
// treated as JSON.
func DetectFormat(path string) prompt.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return prompt.FormatYAML
	}
	return prompt.FormatJSON
}
