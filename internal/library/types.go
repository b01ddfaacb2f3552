// Package library resolves named prompt documents from two sources: documents saved in
// the store, which act as overrides, and embedded defaults shipped with the binary.
//
// Resolution order for a key:
//  1. Stored document (user override or a synced copy of the default)
//  2. Embedded default (JSON or YAML files under defaults/)
//
// SyncAll copies embedded defaults into the store so they can be listed, versioned and
// edited like any other stored document.
package library

import (
	"errors"

	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

// ErrUnknownKey is returned when a key is neither stored nor embedded.
var ErrUnknownKey = errors.New("prompt document not found")

// EmbeddedDocument is a prompt document loaded from an embedded file.
type EmbeddedDocument struct {
	Key         string        // Hierarchical key: analysis.system
	Description string        // From meta.description, if present
	Source      string        // File contents as shipped
	Format      prompt.Format // Encoding of Source
	Variables   []string      // Context paths referenced by macros and conditions
	Hash        string        // SHA256 of the canonical JSON form, for change detection
}

// Resolved is the result of resolving a key.
type Resolved struct {
	Key     string
	Builder *prompt.Builder
	// IsOverride is true when the stored document differs from the embedded default,
	// or when there is no embedded default at all.
	IsOverride bool
	Hash       string
	Variables  []string
}
