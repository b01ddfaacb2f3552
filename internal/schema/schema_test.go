package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

func sampleBuilder() *prompt.Builder {
	return prompt.New().
		Set("role", "You are a data analyst.", prompt.Title("Role")).
		Set("objective", []string{"Find patterns", "Be concise"}, prompt.Title("Objective"), prompt.HeaderSize(2), prompt.Ordered()).
		Set("admin", "Raw data allowed.", prompt.MaxChars(100), prompt.IncludeIf(prompt.Conditions{"user.role": []any{"admin"}}))
}

func TestInterchange(t *testing.T) {
	raw, err := Interchange()
	if err != nil {
		t.Fatalf("Interchange() error = %v", err)
	}

	var s map[string]any
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	props, ok := s["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties, got %v", s)
	}
	for _, key := range []string{"meta", "order", "sections"} {
		if _, ok := props[key]; !ok {
			t.Errorf("expected property %q", key)
		}
	}

	sections, _ := props["sections"].(map[string]any)
	section, ok := sections["additionalProperties"].(map[string]any)
	if !ok {
		t.Fatalf("expected sections to map names to section schemas, got %v", sections)
	}
	sectionProps, _ := section["properties"].(map[string]any)
	for _, key := range []string{"name", "content", "max_chars", "title", "include_if", "header_size"} {
		if _, ok := sectionProps[key]; !ok {
			t.Errorf("expected section property %q", key)
		}
	}
}

func TestValidate(t *testing.T) {
	jsonDoc, err := sampleBuilder().ToJSON(true)
	if err != nil {
		t.Fatal(err)
	}
	yamlDoc, err := sampleBuilder().ToYAML()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		data    string
		format  prompt.Format
		wantErr bool
	}{
		{"builder json", jsonDoc, prompt.FormatJSON, false},
		{"builder yaml", yamlDoc, prompt.FormatYAML, false},
		{"minimal json", `{"sections": {"a": {"content": "x"}}}`, prompt.FormatJSON, false},
		{"empty yaml", "", prompt.FormatYAML, false},
		{"null optionals", `{"meta": null, "order": null, "sections": {"a": {"title": null, "max_chars": null, "include_if": null}}}`, prompt.FormatJSON, false},
		{"header size out of range is clamped later", `{"sections": {"a": {"content": "x", "header_size": 9}}}`, prompt.FormatJSON, false},
		{"content of wrong type", `{"sections": {"a": {"content": 5}}}`, prompt.FormatJSON, true},
		{"title of wrong type", "sections:\n  a:\n    title: [x]\n", prompt.FormatYAML, true},
		{"sections as list", `{"sections": ["a"]}`, prompt.FormatJSON, true},
		{"root is a list", "- a\n- b\n", prompt.FormatYAML, true},
		{"unknown top-level key", `{"sectons": {}}`, prompt.FormatJSON, true},
		{"bad syntax", `{"sections":`, prompt.FormatJSON, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.data), tt.format)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected valid document, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	src := `
order: [objective, role]
sections:
  role:
    content: You are a data analyst.
    title: Role
  objective:
    content: "1. Find patterns\n2. Be concise"
    title: Objective
    header_size: 2
`
	b, err := Load([]byte(src), prompt.FormatYAML)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := "## Objective\n1. Find patterns\n2. Be concise\n\n# Role\nYou are a data analyst."
	if got := b.Compile(); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}

	if _, err := Load([]byte(`{"sections": {"a": {"content": 1}}}`), prompt.FormatJSON); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]prompt.Format{
		"prompt.yaml":      prompt.FormatYAML,
		"dir/prompt.YML":   prompt.FormatYAML,
		"prompt.json":      prompt.FormatJSON,
		"prompt":           prompt.FormatJSON,
		"archive.yaml.bak": prompt.FormatJSON,
	}
	for path, want := range tests {
		if got := DetectFormat(path); got != want {
			t.Errorf("%s: expected %s, got %s", path, want, got)
		}
	}
}

func TestValidate_UnknownFormat(t *testing.T) {
	err := Validate([]byte("x"), prompt.Format("toml"))
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "toml") {
		t.Errorf("expected ErrInvalid naming the format, got %v", err)
	}
}
