package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"admin", "admin"},
		{"3", 3},
		{"2.5", 2.5},
		{"true", true},
		{"[a, b]", []any{"a", "b"}},
		{"", ""},
		{"a: b: c", "a: b: c"},
	}
	for _, tt := range tests {
		got := parseValue(tt.raw)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%q: expected %#v, got %#v", tt.raw, tt.want, got)
		}
	}
}

func TestApplySets(t *testing.T) {
	t.Run("nested paths create maps", func(t *testing.T) {
		ctx := prompt.Context{"user": map[string]any{"name": "Ana"}}
		if err := applySets(ctx, []string{"user.role=admin", "locale=pt-BR", "limits.max=3"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := prompt.Context{
			"user":   map[string]any{"name": "Ana", "role": "admin"},
			"locale": "pt-BR",
			"limits": map[string]any{"max": 3},
		}
		if !reflect.DeepEqual(ctx, want) {
			t.Errorf("expected %v, got %v", want, ctx)
		}
	})

	t.Run("value may contain equals", func(t *testing.T) {
		ctx := prompt.Context{}
		if err := applySets(ctx, []string{"expr=a=b"}); err != nil {
			t.Fatal(err)
		}
		if ctx["expr"] != "a=b" {
			t.Errorf("expected a=b, got %v", ctx["expr"])
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, s := range []string{"novalue", "=x", "a..b=1", "a.=1"} {
			if err := applySets(prompt.Context{}, []string{s}); err == nil {
				t.Errorf("expected error for %q", s)
			}
		}
	})

	t.Run("scalar in the way", func(t *testing.T) {
		ctx := prompt.Context{"user": "Ana"}
		if err := applySets(ctx, []string{"user.name=Bia"}); err == nil {
			t.Error("expected error when a path segment is not a mapping")
		}
	})
}

func TestBuildContext(t *testing.T) {
	t.Run("nothing given is absent", func(t *testing.T) {
		ctx, err := buildContext("", nil)
		if err != nil {
			t.Fatal(err)
		}
		if ctx != nil {
			t.Errorf("expected nil context, got %v", ctx)
		}
	})

	t.Run("sets override file values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ctx.yaml")
		if err := os.WriteFile(path, []byte("role: analyst\nuser:\n  name: Ana\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		ctx, err := buildContext(path, []string{"role=admin"})
		if err != nil {
			t.Fatal(err)
		}
		if ctx["role"] != "admin" {
			t.Errorf("expected admin, got %v", ctx["role"])
		}
		if v, _ := prompt.Lookup("user.name", ctx); v != "Ana" {
			t.Errorf("expected Ana, got %v", v)
		}
	})

	t.Run("json context file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ctx.json")
		if err := os.WriteFile(path, []byte(`{"items": [1, 2]}`), 0o644); err != nil {
			t.Fatal(err)
		}
		ctx, err := buildContext(path, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(ctx["items"], []any{1, 2}) {
			t.Errorf("expected [1 2], got %#v", ctx["items"])
		}
	})

	t.Run("empty file is an empty context", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ctx.yaml")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		ctx, err := buildContext(path, nil)
		if err != nil {
			t.Fatal(err)
		}
		if ctx == nil || len(ctx) != 0 {
			t.Errorf("expected empty non-nil context, got %#v", ctx)
		}
	})

	t.Run("list root is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ctx.yaml")
		if err := os.WriteFile(path, []byte("- a\n- b\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := buildContext(path, nil); err == nil {
			t.Error("expected error for a non-mapping context")
		}
	})
}
