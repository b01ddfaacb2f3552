package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/db"
	"github.com/matheus-szfig/LLMPromptBuilder/internal/library"
	"github.com/matheus-szfig/LLMPromptBuilder/internal/output"
	"github.com/matheus-szfig/LLMPromptBuilder/internal/store"
	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

// libraryHandle bundles the open database with the store and resolver over it.
type libraryHandle struct {
	db       *sqlx.DB
	store    *store.DocumentStore
	resolver *library.Resolver
}

func (l *libraryHandle) Close() error {
	return l.db.Close()
}

// openLibrary opens and migrates the library database and registers the embedded
// defaults.
func openLibrary() (*libraryHandle, error) {
	path := configManager.Get().StorePath(homeDirectory)
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Debug("opened library", "path", path)

	st := store.NewDocumentStore(conn, logger)
	r := library.NewResolver(st, logger)
	if err := r.RegisterDefaults(); err != nil {
		conn.Close()
		return nil, err
	}
	return &libraryHandle{db: conn, store: st, resolver: r}, nil
}

// LibraryEntry is one row of "library list".
type LibraryEntry struct {
	Key         string   `json:"key" yaml:"key"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Embedded    bool     `json:"embedded" yaml:"embedded"`
	Stored      bool     `json:"stored" yaml:"stored"`
	Override    bool     `json:"override" yaml:"override"`
	Hash        string   `json:"hash" yaml:"hash"`
	Variables   []string `json:"variables,omitempty" yaml:"variables,omitempty"`
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage named prompt documents",
	Long: `The library holds named prompt documents in a SQLite database
(default: ~/.promptbuilder/library.db).

A key resolves to the stored document if there is one, otherwise to the default
shipped with the binary. Saving a document under a default's key overrides it.

Examples:
  promptbuilder library list
  promptbuilder library get analysis.system -o yaml
  promptbuilder library save analysis.system my-analysis.yaml
  promptbuilder library versions analysis.system
  promptbuilder library sync`,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored and embedded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		ctx := cmd.Context()
		entries := map[string]*LibraryEntry{}
		var keys []string
		for _, d := range lib.resolver.AllEmbedded() {
			entries[d.Key] = &LibraryEntry{Key: d.Key, Description: d.Description, Embedded: true}
			keys = append(keys, d.Key)
		}
		stored, err := lib.store.List(ctx)
		if err != nil {
			return err
		}
		for _, doc := range stored {
			e, ok := entries[doc.Key]
			if !ok {
				e = &LibraryEntry{Key: doc.Key}
				entries[doc.Key] = e
				keys = append(keys, doc.Key)
			}
			e.Stored = true
			if doc.Description != "" {
				e.Description = doc.Description
			}
		}

		result := make([]LibraryEntry, 0, len(keys))
		sort.Strings(keys)
		for _, key := range keys {
			res, err := lib.resolver.Resolve(ctx, key)
			if err != nil {
				return err
			}
			e := entries[key]
			e.Override = res.IsOverride
			e.Hash = res.Hash
			e.Variables = res.Variables
			result = append(result, *e)
		}
		return output.Fprint(cmd.OutOrStdout(), result)
	},
}

var libraryGetOut bool

var libraryGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print a document in the output format",
	Long: `Print the resolved document for KEY as JSON or YAML (see --output).
With --out the document is also written to the exports directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		res, err := lib.resolver.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		format := prompt.Format(output.GetFormat())
		data, err := prompt.Encode(format, res.Builder.Document(), true)
		if err != nil {
			return err
		}
		body := strings.TrimRight(string(data), "\n")
		fmt.Fprintln(cmd.OutOrStdout(), body)

		if libraryGetOut {
			if err := homeDirectory.EnsureExists(); err != nil {
				return err
			}
			path := filepath.Join(homeDirectory.ExportsDir(), res.Key+"."+string(format))
			if err := os.WriteFile(path, []byte(body+"\n"), 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			logger.Info("exported document", "key", res.Key, "path", path)
		}
		return nil
	},
}

var (
	librarySaveDescription string
	librarySaveNote        string
)

var librarySaveCmd = &cobra.Command{
	Use:   "save KEY FILE",
	Short: "Store a document under KEY",
	Long: `Validate FILE and store it under KEY. A new version is recorded only when the
content changes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadDocument(args[1])
		if err != nil {
			return err
		}

		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		desc := librarySaveDescription
		if desc == "" {
			if d, ok := b.Meta()["description"].(string); ok {
				desc = d
			}
		}
		doc, err := lib.store.Save(cmd.Context(), args[0], b, store.SaveOptions{
			Description: desc,
			Note:        librarySaveNote,
		})
		if err != nil {
			return err
		}
		return output.Fprint(cmd.OutOrStdout(), doc)
	},
}

var libraryRmCmd = &cobra.Command{
	Use:   "rm KEY",
	Short: "Delete a stored document and its versions",
	Long: `Delete the stored document for KEY with its history. If KEY has an embedded
default, it resolves to the default again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		if err := lib.store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Info("deleted document", "key", args[0])
		return nil
	},
}

var libraryVersionsCmd = &cobra.Command{
	Use:   "versions KEY",
	Short: "List the stored versions of a document, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		versions, err := lib.store.Versions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output.Fprint(cmd.OutOrStdout(), versions)
	},
}

var librarySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy embedded defaults into the library",
	Long: `Write the embedded default documents into the library. Documents already
synced are refreshed when the default changes; documents you edited are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		res, err := lib.resolver.SyncAll(cmd.Context())
		if err != nil {
			return err
		}
		return output.Fprint(cmd.OutOrStdout(), res)
	},
}

func init() {
	libraryGetCmd.Flags().BoolVar(&libraryGetOut, "out", false, "Also write the document to the exports directory")
	librarySaveCmd.Flags().StringVar(&librarySaveDescription, "description", "", "Description (default: meta.description)")
	librarySaveCmd.Flags().StringVar(&librarySaveNote, "note", "", "Note recorded with the new version")

	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryGetCmd)
	libraryCmd.AddCommand(librarySaveCmd)
	libraryCmd.AddCommand(libraryRmCmd)
	libraryCmd.AddCommand(libraryVersionsCmd)
	libraryCmd.AddCommand(librarySyncCmd)

	rootCmd.AddCommand(libraryCmd)
}
