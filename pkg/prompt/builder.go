package prompt

import (
	"fmt"
	"log/slog"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultJoiner separates compiled sections.
const DefaultJoiner = "\n\n"

// Builder owns an ordered collection of sections and compiles them into one document.
// A Builder is not safe for concurrent use; give each goroutine its own.
type Builder struct {
	sections *orderedmap.OrderedMap[string, *Section]
	order    []string
	meta     map[string]any
	logger   *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used to report skipped sections. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates an empty Builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		sections: orderedmap.New[string, *Section](),
		meta:     make(map[string]any),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Set renders payload into a section and stores it under name, replacing any section of
// the same name in place.
func (b *Builder) Set(name string, payload any, opts ...SectionOption) *Builder {
	b.put(NewSection(name, payload, opts...))
	return b
}

// Append renders payload and adds it on a new line after the existing content of name,
// keeping the section's title, cap, conditions and header size. If name does not exist
// it behaves like Set.
func (b *Builder) Append(name string, payload any, opts ...SectionOption) *Builder {
	existing, ok := b.sections.Get(name)
	if !ok {
		return b.Set(name, payload, opts...)
	}
	cfg := newSectionConfig(opts)
	added := Render(FromValue(payload), cfg.ordered)
	next := existing.Clone()
	next.Content = truncate(existing.Content+"\n"+added, existing.MaxChars)
	b.put(next)
	return b
}

// AddOption configures AddSection and AddSections.
type AddOption func(*addConfig)

type addConfig struct {
	replace bool
	shared  bool
}

// Replace controls whether an existing section of the same name may be overwritten.
// The default is true.
func Replace(replace bool) AddOption {
	return func(c *addConfig) { c.replace = replace }
}

// Shared stores the caller's *Section as is instead of a deep copy. The caller must
// not mutate it while the builder is in use.
func Shared() AddOption {
	return func(c *addConfig) { c.shared = true }
}

func newAddConfig(opts []AddOption) addConfig {
	cfg := addConfig{replace: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// AddSection inserts a prebuilt section. With Replace(false) an existing name is an
// ErrSectionExists error and the builder is left untouched.
func (b *Builder) AddSection(sec *Section, opts ...AddOption) error {
	return b.AddSections([]*Section{sec}, opts...)
}

// AddSections inserts sections in order. Conflicts are checked before anything is
// inserted, so an error leaves the builder unchanged.
func (b *Builder) AddSections(secs []*Section, opts ...AddOption) error {
	cfg := newAddConfig(opts)
	if !cfg.replace {
		seen := make(map[string]bool, len(secs))
		for _, sec := range secs {
			if _, exists := b.sections.Get(sec.Name); exists || seen[sec.Name] {
				return fmt.Errorf("%w: %q (use Replace(true) to overwrite)", ErrSectionExists, sec.Name)
			}
			seen[sec.Name] = true
		}
	}
	for _, sec := range secs {
		if !cfg.shared {
			sec = sec.Clone()
		}
		b.put(sec)
	}
	return nil
}

func (b *Builder) put(sec *Section) {
	if _, existed := b.sections.Set(sec.Name, sec); !existed && !b.inOrder(sec.Name) {
		b.order = append(b.order, sec.Name)
	}
}

func (b *Builder) inOrder(name string) bool {
	for _, n := range b.order {
		if n == name {
			return true
		}
	}
	return false
}

// SetOrder sets the render order. Unknown names are dropped and sections not listed
// keep their insertion order after the listed ones.
func (b *Builder) SetOrder(names ...string) *Builder {
	seen := make(map[string]bool, b.sections.Len())
	order := make([]string, 0, b.sections.Len())
	for _, n := range names {
		if _, ok := b.sections.Get(n); ok && !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}
	for pair := b.sections.Oldest(); pair != nil; pair = pair.Next() {
		if !seen[pair.Key] {
			order = append(order, pair.Key)
		}
	}
	b.order = order
	return b
}

// Remove deletes a section. Removing a missing name is a no-op.
func (b *Builder) Remove(name string) *Builder {
	b.sections.Delete(name)
	order := b.order[:0]
	for _, n := range b.order {
		if n != name {
			order = append(order, n)
		}
	}
	b.order = order
	return b
}

// Get returns the section stored under name.
func (b *Builder) Get(name string) (*Section, bool) {
	return b.sections.Get(name)
}

// Len returns the number of sections.
func (b *Builder) Len() int {
	return b.sections.Len()
}

// Names returns section names in insertion order.
func (b *Builder) Names() []string {
	names := make([]string, 0, b.sections.Len())
	for pair := b.sections.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Order returns a copy of the explicit order list, which may hold stale names.
func (b *Builder) Order() []string {
	return append([]string(nil), b.order...)
}

// EffectiveOrder returns the names compile will visit: the explicit order first,
// skipping stale and repeated names, then any remaining sections in insertion order.
func (b *Builder) EffectiveOrder() []string {
	seen := make(map[string]bool, b.sections.Len())
	names := make([]string, 0, b.sections.Len())
	for _, n := range b.order {
		if _, ok := b.sections.Get(n); ok && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for pair := b.sections.Oldest(); pair != nil; pair = pair.Next() {
		if !seen[pair.Key] {
			names = append(names, pair.Key)
		}
	}
	return names
}

// Meta returns the builder's free-form metadata. It is never rendered.
func (b *Builder) Meta() map[string]any {
	return b.meta
}

// SetMeta stores a metadata value.
func (b *Builder) SetMeta(key string, value any) *Builder {
	b.meta[key] = value
	return b
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

type compileConfig struct {
	ctx          Context
	joiner       string
	includeEmpty bool
}

// WithContext supplies macro values and the data inclusion conditions are checked
// against. Without it, conditional sections are skipped and macros stay as written.
func WithContext(ctx Context) CompileOption {
	return func(c *compileConfig) { c.ctx = ctx }
}

// WithJoiner sets the separator between sections. The default is DefaultJoiner.
func WithJoiner(joiner string) CompileOption {
	return func(c *compileConfig) { c.joiner = joiner }
}

// WithIncludeEmpty emits the header line of titled sections whose body is empty.
func WithIncludeEmpty(include bool) CompileOption {
	return func(c *compileConfig) { c.includeEmpty = include }
}

// Compile renders every eligible section in effective order and joins the results.
// It never fails: missing variables and paths degrade to unchanged text.
func (b *Builder) Compile(opts ...CompileOption) string {
	cfg := compileConfig{joiner: DefaultJoiner}
	for _, opt := range opts {
		opt(&cfg)
	}

	var parts []string
	for _, name := range b.EffectiveOrder() {
		sec, _ := b.sections.Get(name)
		if len(sec.IncludeIf) > 0 && !sec.IncludeIf.Match(cfg.ctx) {
			b.logger.Debug("section skipped by include_if", "section", name, "has_context", cfg.ctx != nil)
			continue
		}

		if rendered := sec.Render(cfg.ctx); rendered != "" {
			parts = append(parts, rendered)
			continue
		}
		if cfg.includeEmpty {
			if header := sec.Header(cfg.ctx); header != "" {
				parts = append(parts, header)
				continue
			}
		}
		b.logger.Debug("section skipped as empty", "section", name)
	}
	return strings.Join(parts, cfg.joiner)
}
