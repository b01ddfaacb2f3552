package config

import (
	"strconv"
	"strings"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/home"
	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

// Config holds promptbuilder configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Compile CompileCfg `mapstructure:"compile" yaml:"compile"`
	Store   StoreCfg   `mapstructure:"store" yaml:"store"`
	Log     LogCfg     `mapstructure:"log" yaml:"log"`
	Output  string     `mapstructure:"output" yaml:"output"` // "json" or "yaml"
}

// CompileCfg sets compile defaults used when flags are not given.
type CompileCfg struct {
	Joiner       string `mapstructure:"joiner" yaml:"joiner"` // Escape sequences like \n are honoured
	IncludeEmpty bool   `mapstructure:"include_empty" yaml:"include_empty"`
}

// StoreCfg locates the document library database.
type StoreCfg struct {
	// Path to the SQLite file (supports ${ENV_VAR}); empty means {home}/library.db
	Path string `mapstructure:"path" yaml:"path"`
}

// LogCfg configures the process logger.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Compile: CompileCfg{
			Joiner: prompt.DefaultJoiner,
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
		Output: "json",
	}
}

// CompileOptions turns the compile defaults into builder options.
func (c *Config) CompileOptions() []prompt.CompileOption {
	return []prompt.CompileOption{
		prompt.WithJoiner(UnescapeJoiner(c.Compile.Joiner)),
		prompt.WithIncludeEmpty(c.Compile.IncludeEmpty),
	}
}

// StorePath returns the database path with ${ENV_VAR} references expanded, falling back
// to the library file inside the home directory.
func (c *Config) StorePath(h *home.Dir) string {
	if p := ResolveEnvVars(c.Store.Path); p != "" {
		return p
	}
	return h.LibraryPath()
}

// UnescapeJoiner interprets Go escape sequences in s, so that a plain YAML value of
// `\n---\n` means newline, dashes, newline. Values that do not parse are used as is.
func UnescapeJoiner(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	u, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return s
	}
	return u
}
