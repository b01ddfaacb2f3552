package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

const testDocument = `
meta:
  description: greeting
order: [intro, rules]
sections:
  intro:
    content: "Hello {{ user.name }}"
    title: Greeting
    header_size: 2
  rules:
    content: "- be brief"
    include_if:
      mode: strict
`

// execute runs the CLI with a fresh home directory and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := executeContext(context.Background(), &buf, append([]string{"--home", t.TempDir()}, args...)...)
	return buf.String(), err
}

// executeContext runs the CLI with every flag back at its default, so earlier runs in
// the same process do not leak values into this one.
func executeContext(ctx context.Context, out io.Writer, args ...string) error {
	resetFlags(rootCmd)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	return rootCmd.ExecuteContext(ctx)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// syncBuffer is a bytes.Buffer safe for a command writing in the background.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompileCommand(t *testing.T) {
	doc := writeFile(t, "prompt.yaml", testDocument)
	ctx := writeFile(t, "ctx.yaml", "user:\n  name: Ana\n")

	out, err := execute(t, "compile", doc, "--context", ctx, "--set", "mode=strict", "--joiner", `\n--\n`)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	want := "## Greeting\nHello Ana\n--\n- be brief\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestConvertCommand(t *testing.T) {
	doc := writeFile(t, "prompt.yaml", testDocument)

	out, err := execute(t, "convert", doc, "--to", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if strings.Index(out, `"intro"`) > strings.Index(out, `"rules"`) {
		t.Errorf("expected section order to be kept, got:\n%s", out)
	}

	b, err := prompt.FromJSON(out)
	if err != nil {
		t.Fatalf("converted output does not decode: %v", err)
	}
	got := b.Compile(prompt.WithContext(prompt.Context{"user": map[string]any{"name": "Ana"}}))
	if got != "## Greeting\nHello Ana" {
		t.Errorf("expected gated section to be skipped, got %q", got)
	}
}

func TestConvertCommand_UnknownTarget(t *testing.T) {
	doc := writeFile(t, "prompt.yaml", testDocument)
	if _, err := execute(t, "convert", doc, "--to", "toml"); err == nil {
		t.Error("expected error for unknown target format")
	}
}

func TestCompileCommand_InvalidDocument(t *testing.T) {
	doc := writeFile(t, "bad.json", `{"sections": []}`)
	if _, err := execute(t, "compile", doc); err == nil {
		t.Error("expected schema error for a list of sections")
	}
}

func TestLibraryCommands(t *testing.T) {
	homeDir := t.TempDir()
	run := func(args ...string) string {
		t.Helper()
		var buf bytes.Buffer
		if err := executeContext(context.Background(), &buf, append([]string{"--home", homeDir, "-o", "json"}, args...)...); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, buf.String())
		}
		return buf.String()
	}

	out := run("library", "save", "greeting", writeFile(t, "prompt.yaml", testDocument), "--note", "first")
	if !strings.Contains(out, `"key": "greeting"`) || !strings.Contains(out, `"description": "greeting"`) {
		t.Errorf("expected saved document with meta description, got:\n%s", out)
	}

	out = run("library", "list")
	if !strings.Contains(out, `"key": "greeting"`) || !strings.Contains(out, `"key": "analysis.system"`) {
		t.Errorf("expected stored and embedded keys, got:\n%s", out)
	}

	out = run("library", "versions", "greeting")
	if strings.Count(out, `"note": "first"`) != 1 {
		t.Errorf("expected one version, got:\n%s", out)
	}

	out = run("library", "get", "greeting")
	if _, err := prompt.FromJSON(out); err != nil {
		t.Errorf("expected a JSON document, got error %v:\n%s", err, out)
	}

	out = run("library", "sync")
	if !strings.Contains(out, `"written"`) {
		t.Errorf("expected sync counts, got:\n%s", out)
	}

	run("library", "rm", "greeting")
	if _, err := os.Stat(filepath.Join(homeDir, "library.db")); err != nil {
		t.Errorf("expected library database in home: %v", err)
	}
}

func TestInitCommand(t *testing.T) {
	homeDir := t.TempDir()
	args := []string{"--home", homeDir, "init"}

	if err := executeContext(context.Background(), io.Discard, args...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(homeDir, "config.yaml")); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	if err := executeContext(context.Background(), io.Discard, args...); err == nil {
		t.Error("expected error when config already exists")
	}
	if err := executeContext(context.Background(), io.Discard, append(args, "--force")...); err != nil {
		t.Errorf("expected --force to overwrite, got %v", err)
	}
}

func TestCompileCommand_FlagsDoNotLeak(t *testing.T) {
	doc := writeFile(t, "prompt.yaml", testDocument)

	out, err := execute(t, "compile", doc, "--set", "mode=strict", "--set", "user.name=Ana", "--joiner", " | ")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if out != "## Greeting\nHello Ana | - be brief\n" {
		t.Errorf("unexpected first output %q", out)
	}

	// Without flags there is no context: gated sections drop and tokens stay
	out, err = execute(t, "compile", doc)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if out != "## Greeting\nHello {{ user.name }}\n" {
		t.Errorf("expected defaults on the second run, got %q", out)
	}
}

func TestWatchCommand_ConfigReload(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "compile:\n  joiner: \" <A> \"\n")
	doc := writeFile(t, "prompt.yaml", "sections:\n  one:\n    content: first\n  two:\n    content: second\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- executeContext(ctx, out, "--home", t.TempDir(), "--config", cfg, "watch", doc)
	}()

	waitFor(t, func() bool { return strings.Contains(out.String(), "first <A> second") }, "initial render")

	if err := os.WriteFile(cfg, []byte("compile:\n  joiner: \" <B> \"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return strings.Contains(out.String(), "first <B> second") }, "render with the reloaded joiner")

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "-o", "yaml", "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"version: dev", "commit: unknown", "go: go"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}
