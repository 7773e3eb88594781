package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"fortio.org/log"
	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 300 * time.Millisecond

var skippedDirs = map[string]bool{
	".git":         true,
	"buck-out":     true,
	"build":        true,
	"node_modules": true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
}

// watchedExtensions are the file types that can change the amalgamation:
// sources, headers, schema files, and the manifest itself.
var watchedExtensions = map[string]bool{
	".c":    true,
	".cc":   true,
	".cpp":  true,
	".h":    true,
	".hpp":  true,
	".fbs":  true,
	".toml": true,
}

func watchAndRebuild(ctx context.Context, root string, rebuild func() (string, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, root); err != nil {
		return err
	}

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevantChange(event) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceInterval, func() {
				outPath, err := rebuild()
				if err != nil {
					log.Errf("rebuild failed: %v", err)
					return
				}
				log.Infof("rewrote %s", outPath)
			})

			if event.Has(fsnotify.Create) {
				addIfDirectory(watcher, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errf("watcher error: %v", err)
		}
	}
}

func isRelevantChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return watchedExtensions[filepath.Ext(event.Name)]
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

func addIfDirectory(watcher *fsnotify.Watcher, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		_ = addWatchDirs(watcher, path)
	}
}
