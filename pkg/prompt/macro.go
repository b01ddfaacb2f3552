package prompt

import (
	"regexp"
	"sort"
	"strings"
)

// macroPattern matches either a literal block {{{ ... }}} (group 1, may span lines) or a
// variable token {{ path }} (group 2). Alternation is leftmost-first, so a literal block
// wins over a token starting at the same position.
var macroPattern = regexp.MustCompile(`(?s)\{\{\{(.*?)\}\}\}|\{\{\s*([^{}]+?)\s*\}\}`)

// Substitute replaces {{ path }} tokens in text with values from ctx. Tokens whose path
// does not resolve are left exactly as written. The content of {{{ ... }}} blocks is
// emitted verbatim without its delimiters and is never evaluated. A nil ctx returns
// text unchanged.
func Substitute(text string, ctx Context) string {
	if ctx == nil || text == "" || !strings.Contains(text, "{{") {
		return text
	}

	matches := macroPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var out strings.Builder
	out.Grow(len(text))
	last := 0
	for _, m := range matches {
		out.WriteString(text[last:m[0]])
		last = m[1]

		if m[2] >= 0 {
			out.WriteString(text[m[2]:m[3]])
			continue
		}

		token := text[m[0]:m[1]]
		path := strings.TrimSpace(text[m[4]:m[5]])
		val, ok := Lookup(path, ctx)
		if !ok || val == nil {
			out.WriteString(token)
			continue
		}
		out.WriteString(stringify(val))
	}
	out.WriteString(text[last:])
	return out.String()
}

// ExtractVariables returns the distinct token paths referenced in text, sorted.
// Tokens inside literal blocks are not variables and are skipped.
func ExtractVariables(text string) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, m := range macroPattern.FindAllStringSubmatch(text, -1) {
		if m[2] == "" {
			continue
		}
		path := strings.TrimSpace(m[2])
		if !seen[path] {
			seen[path] = true
			vars = append(vars, path)
		}
	}
	sort.Strings(vars)
	return vars
}
