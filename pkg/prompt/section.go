package prompt

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinHeaderSize and MaxHeaderSize bound Markdown header depth. Out-of-range
	// sizes are clamped, never rejected.
	MinHeaderSize = 1
	MaxHeaderSize = 6

	// Ellipsis is appended to content cut by MaxChars.
	Ellipsis = "…"
)

// markdownHeader matches a title that is already a Markdown header, e.g. "## Role".
var markdownHeader = regexp.MustCompile(`^#+\s`)

// Section is a named unit of prompt content.
type Section struct {
	Name    string
	Content string
	// MaxChars caps Content in runes; 0 means no cap.
	MaxChars int
	// Title is rendered as a Markdown header. A title that is already a header
	// ("# Role") is used as is and HeaderSize is ignored.
	Title      string
	HeaderSize int
	IncludeIf  Conditions
}

// SectionOption configures a section built from a payload.
type SectionOption func(*sectionConfig)

type sectionConfig struct {
	title      string
	headerSize int
	maxChars   int
	ordered    bool
	includeIf  Conditions
}

// Title sets the section header text.
func Title(title string) SectionOption {
	return func(c *sectionConfig) { c.title = title }
}

// HeaderSize sets the Markdown header depth (clamped to 1..6).
func HeaderSize(n int) SectionOption {
	return func(c *sectionConfig) { c.headerSize = n }
}

// MaxChars caps the section content.
func MaxChars(n int) SectionOption {
	return func(c *sectionConfig) { c.maxChars = n }
}

// Ordered numbers list payloads instead of bulleting them.
func Ordered() SectionOption {
	return func(c *sectionConfig) { c.ordered = true }
}

// IncludeIf gates the section on compile-time context values.
func IncludeIf(conds Conditions) SectionOption {
	return func(c *sectionConfig) { c.includeIf = conds }
}

func newSectionConfig(opts []SectionOption) sectionConfig {
	cfg := sectionConfig{headerSize: MinHeaderSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewSection renders payload into a section using the same rules as Builder.Set.
// The payload may be a Payload or any value accepted by FromValue.
func NewSection(name string, payload any, opts ...SectionOption) *Section {
	cfg := newSectionConfig(opts)
	return &Section{
		Name:       name,
		Content:    truncate(Render(FromValue(payload), cfg.ordered), cfg.maxChars),
		MaxChars:   cfg.maxChars,
		Title:      cfg.title,
		HeaderSize: ClampHeaderSize(cfg.headerSize),
		IncludeIf:  cfg.includeIf,
	}
}

// ClampHeaderSize forces n into 1..6; zero and negative sizes become 1.
func ClampHeaderSize(n int) int {
	if n < MinHeaderSize {
		return MinHeaderSize
	}
	if n > MaxHeaderSize {
		return MaxHeaderSize
	}
	return n
}

// truncate cuts s to max runes, trims trailing space and appends the ellipsis.
// Applying it twice gives the same result as applying it once.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:max]), isSpace) + Ellipsis
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// Header returns the header line for the section, or "" when it has no title.
func (s *Section) Header(ctx Context) string {
	if s.Title == "" {
		return ""
	}
	text := Substitute(s.Title, ctx)
	if markdownHeader.MatchString(strings.TrimLeft(text, " \t")) {
		return text
	}
	level := ClampHeaderSize(s.HeaderSize)
	return strings.TrimSpace(strings.Repeat("#", level) + " " + text)
}

// Render produces the section text for ctx: the header line followed by the body, the
// body alone when there is no title, or "" when the body is empty. Header-only output is
// the compiler's decision, not the section's.
func (s *Section) Render(ctx Context) string {
	body := truncate(s.Content, s.MaxChars)
	body = Substitute(body, ctx)
	if body == "" {
		return ""
	}
	if header := s.Header(ctx); header != "" {
		return header + "\n" + body
	}
	return body
}

// Clone returns a deep copy of the section.
func (s *Section) Clone() *Section {
	c := *s
	c.IncludeIf = s.IncludeIf.Clone()
	return &c
}
