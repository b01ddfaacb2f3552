package library

import (
	"sort"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/store"
	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

// ExtractVariables returns the macro paths referenced in text, sorted.
// For example, "Hi {{ user.name }}, {{ count }} items" returns ["count", "user.name"].
func ExtractVariables(text string) []string {
	return prompt.ExtractVariables(text)
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	return store.HashBody(text)
}

// BuilderVariables returns every context path a builder reads: macro paths in section
// titles and content, plus inclusion condition paths.
func BuilderVariables(b *prompt.Builder) []string {
	seen := make(map[string]bool)
	add := func(path string) {
		seen[path] = true
	}
	for _, name := range b.Names() {
		sec, _ := b.Get(name)
		for _, v := range ExtractVariables(sec.Title + "\n" + sec.Content) {
			add(v)
		}
		for path := range sec.IncludeIf {
			add(path)
		}
	}

	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}
