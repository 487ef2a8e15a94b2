// Package watch monitors the uploads inbox directory and hands newly
// dropped files to the organization engine for ingestion.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// IngestFunc is called once per settled file. path is absolute.
type IngestFunc func(path string)

// settleWindow debounces write bursts for a file still being copied in.
const settleWindow = 500 * time.Millisecond

// Watch runs an fsnotify watcher on the inbox directory until ctx is
// cancelled. A file is handed to ingest only after its write events have
// settled, so partially copied files are not picked up. Ingested files are
// removed from the inbox.
func Watch(ctx context.Context, inbox string, logger *slog.Logger, ingest IngestFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(inbox); err != nil {
		return err
	}

	logger.Info("inbox watcher started", slog.String("path", inbox))

	// One pending timer per file, re-armed on every write.
	pending := make(map[string]*time.Timer)
	settled := make(chan string, 64)

	arm := func(path string) {
		if t, ok := pending[path]; ok {
			t.Reset(settleWindow)
			return
		}
		pending[path] = time.AfterFunc(settleWindow, func() {
			select {
			case settled <- path:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			logger.Info("inbox watcher stopped")
			return nil

		case path := <-settled:
			delete(pending, path)
			info, statErr := os.Stat(path)
			if statErr != nil || info.IsDir() {
				continue
			}
			ingest(path)
			if rmErr := os.Remove(path); rmErr != nil {
				logger.Warn("inbox cleanup failed",
					slog.String("path", path), slog.String("error", rmErr.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}
			arm(ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
