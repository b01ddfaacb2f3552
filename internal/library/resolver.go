package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/schema"
	"github.com/matheus-szfig/LLMPromptBuilder/internal/store"
	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

// SyncNote marks versions written by SyncAll. A stored document whose latest version
// carries another note was edited by a user and is left alone.
const SyncNote = "synced from embedded default"

// Resolver resolves prompt documents with stored overrides.
// Resolution order: stored document > embedded default
type Resolver struct {
	store    *store.DocumentStore
	embedded map[string]EmbeddedDocument
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a resolver. store may be nil, in which case only embedded
// defaults resolve.
func NewResolver(store *store.DocumentStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:    store,
		embedded: make(map[string]EmbeddedDocument),
		logger:   logger,
	}
}

// Register validates and registers an embedded document.
func (r *Resolver) Register(doc EmbeddedDocument) error {
	if err := store.ValidateKey(doc.Key); err != nil {
		return err
	}
	b, err := schema.Load([]byte(doc.Source), doc.Format)
	if err != nil {
		return fmt.Errorf("embedded document %s: %w", doc.Key, err)
	}
	canonical, err := b.ToJSON(true)
	if err != nil {
		return fmt.Errorf("embedded document %s: %w", doc.Key, err)
	}

	doc.Hash = HashText(canonical)
	if doc.Variables == nil {
		doc.Variables = BuilderVariables(b)
	}
	if doc.Description == "" {
		if d, ok := b.Meta()["description"].(string); ok {
			doc.Description = d
		}
	}

	r.mu.Lock()
	r.embedded[doc.Key] = doc
	r.mu.Unlock()

	r.logger.Debug("registered embedded document", "key", doc.Key, "vars", doc.Variables)
	return nil
}

// RegisterFS registers every .json, .yaml and .yml file under root in fsys. The key is
// the path below root without its extension, with slashes turned into dots:
// root/analysis/system.yaml becomes analysis.system.
func (r *Resolver) RegisterFS(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := path.Ext(p)
		switch ext {
		case ".json", ".yaml", ".yml":
		default:
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		key := strings.ReplaceAll(strings.TrimSuffix(rel, ext), "/", ".")
		return r.Register(EmbeddedDocument{
			Key:    key,
			Source: string(data),
			Format: schema.DetectFormat(p),
		})
	})
}

// Resolve returns the stored document for key if there is one, otherwise the embedded
// default. Store failures are logged and fall through to the default.
func (r *Resolver) Resolve(ctx context.Context, key string) (*Resolved, error) {
	r.mu.RLock()
	embedded, hasEmbedded := r.embedded[key]
	r.mu.RUnlock()

	if r.store != nil {
		doc, err := r.store.Get(ctx, key)
		switch {
		case err == nil:
			b, err := prompt.FromJSON(doc.Body, prompt.WithLogger(r.logger))
			if err != nil {
				r.logger.Warn("stored document is unreadable, using default", "key", key, "error", err)
				break
			}
			return &Resolved{
				Key:        key,
				Builder:    b,
				IsOverride: !hasEmbedded || doc.Hash != embedded.Hash,
				Hash:       doc.Hash,
				Variables:  BuilderVariables(b),
			}, nil
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidKey):
		default:
			r.logger.Warn("failed to check stored document", "key", key, "error", err)
		}
	}

	if !hasEmbedded {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	b, err := schema.Load([]byte(embedded.Source), embedded.Format, prompt.WithLogger(r.logger))
	if err != nil {
		return nil, fmt.Errorf("embedded document %s: %w", key, err)
	}
	return &Resolved{
		Key:       key,
		Builder:   b,
		Hash:      embedded.Hash,
		Variables: embedded.Variables,
	}, nil
}

// GetEmbedded returns the embedded default for a key, ignoring the store.
func (r *Resolver) GetEmbedded(key string) (EmbeddedDocument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.embedded[key]
	return d, ok
}

// AllEmbedded returns all registered embedded documents sorted by key.
func (r *Resolver) AllEmbedded() []EmbeddedDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedDocument, 0, len(r.embedded))
	for _, d := range r.embedded {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// SyncResult counts what SyncAll did.
type SyncResult struct {
	Written   int `json:"written" yaml:"written"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Kept      int `json:"kept" yaml:"kept"`
}

// SyncAll writes embedded defaults into the store when they are absent, or when the
// stored copy came from an earlier sync and the default has since changed. Stored
// documents last written by a user are kept.
func (r *Resolver) SyncAll(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	if r.store == nil {
		return res, fmt.Errorf("store not configured")
	}

	for _, d := range r.AllEmbedded() {
		write, err := r.needsSync(ctx, d)
		if err != nil {
			return res, fmt.Errorf("failed to sync document %s: %w", d.Key, err)
		}
		switch write {
		case syncSkip:
			res.Unchanged++
			continue
		case syncKeep:
			r.logger.Info("keeping stored override", "key", d.Key)
			res.Kept++
			continue
		}

		b, err := schema.Load([]byte(d.Source), d.Format)
		if err != nil {
			return res, fmt.Errorf("failed to sync document %s: %w", d.Key, err)
		}
		if _, err := r.store.Save(ctx, d.Key, b, store.SaveOptions{Description: d.Description, Note: SyncNote}); err != nil {
			return res, fmt.Errorf("failed to sync document %s: %w", d.Key, err)
		}
		res.Written++
	}

	r.logger.Info("synced embedded documents to store",
		"written", res.Written, "unchanged", res.Unchanged, "kept", res.Kept)
	return res, nil
}

type syncAction int

const (
	syncWrite syncAction = iota
	syncSkip
	syncKeep
)

func (r *Resolver) needsSync(ctx context.Context, d EmbeddedDocument) (syncAction, error) {
	doc, err := r.store.Get(ctx, d.Key)
	if errors.Is(err, store.ErrNotFound) {
		return syncWrite, nil
	}
	if err != nil {
		return 0, err
	}
	if doc.Hash == d.Hash {
		return syncSkip, nil
	}

	versions, err := r.store.Versions(ctx, d.Key)
	if err != nil {
		return 0, err
	}
	if n := len(versions); n > 0 && versions[n-1].Note == SyncNote {
		return syncWrite, nil
	}
	return syncKeep, nil
}
