package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/config"
)

var watchContextFile string

// watchDebounce collapses the burst of events editors emit for one save.
const watchDebounce = 100 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Recompile a document whenever it or its context changes",
	Long: `Compile FILE, then compile it again each time FILE or the --context file is
saved. Changes to compile settings in the config file also trigger a recompile.
Errors are logged and watching continues. Stop with Ctrl+C.

Example:
  promptbuilder watch prompt.yaml --context ctx.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		paths := []string{file}
		if watchContextFile != "" {
			paths = append(paths, watchContextFile)
		}

		render := func() {
			b, err := loadDocument(file)
			if err != nil {
				logger.Warn("compile failed", "file", file, "error", err)
				return
			}
			opts, err := compileOptions(cmd, watchContextFile, nil)
			if err != nil {
				logger.Warn("compile failed", "file", file, "error", err)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", separator(file), b.Compile(opts...))
		}

		// compileOptions reads the current config on every render
		reload := make(chan struct{}, 1)
		if configManager.ConfigFile() != "" {
			configManager.OnChange(func(*config.Config) {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
			configManager.WatchConfig()
		}

		err := watchFiles(cmd.Context(), paths, watchDebounce, reload, render)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func separator(file string) string {
	return fmt.Sprintf("----- %s @ %s -----", filepath.Base(file), time.Now().Format(time.TimeOnly))
}

// watchFiles calls fn once, then again after each change to any of paths or a signal on
// reload, until ctx is done. Parent directories are watched so that editors replacing
// the file on save are still seen. fn always runs on the calling goroutine.
func watchFiles(ctx context.Context, paths []string, debounce time.Duration, reload <-chan struct{}, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	targets := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	fn()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !targets[abs] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("file changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case <-reload:
			logger.Debug("config changed")
			timer.Reset(debounce)
		case <-timer.C:
			fn()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchContextFile, "context", "", "JSON or YAML file with variables")

	rootCmd.AddCommand(watchCmd)
}
