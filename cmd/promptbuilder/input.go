package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/schema"
	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// loadDocument validates and decodes a document file. Stdin is read as JSON unless it
// fails to parse, in which case YAML is tried.
func loadDocument(path string) (*prompt.Builder, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	format := schema.DetectFormat(path)
	if path == "-" && !json.Valid(data) {
		format = prompt.FormatYAML
	}
	b, err := schema.Load(data, format, prompt.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// loadContext reads a JSON or YAML mapping used as the compile context.
func loadContext(path string) (prompt.Context, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	// YAML is a superset of JSON, so one decoder serves both
	var ctx map[string]any
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("context %s: %w", path, err)
	}
	if ctx == nil {
		ctx = map[string]any{}
	}
	return prompt.Context(ctx), nil
}

// applySets assigns each path=value pair into ctx. Values are parsed as YAML scalars
// or flow collections, so "3" is a number, "true" a bool and "[a, b]" a list.
func applySets(ctx prompt.Context, sets []string) error {
	for _, s := range sets {
		path, raw, ok := strings.Cut(s, "=")
		path = strings.TrimSpace(path)
		if !ok || path == "" {
			return fmt.Errorf("invalid --set %q (want path=value)", s)
		}
		if err := setPath(ctx, path, parseValue(raw)); err != nil {
			return fmt.Errorf("invalid --set %q: %w", s, err)
		}
	}
	return nil
}

func parseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}

// setPath writes value at a dotted path, creating intermediate maps.
func setPath(ctx prompt.Context, path string, value any) error {
	segments := strings.Split(path, ".")
	cur := map[string]any(ctx)
	for i, seg := range segments[:len(segments)-1] {
		if seg == "" {
			return fmt.Errorf("empty path segment")
		}
		next, ok := cur[seg]
		if !ok || next == nil {
			m := map[string]any{}
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not a mapping", strings.Join(segments[:i+1], "."))
		}
		cur = m
	}
	last := segments[len(segments)-1]
	if last == "" {
		return fmt.Errorf("empty path segment")
	}
	cur[last] = value
	return nil
}
