// Package watch re-runs analysis when the watched source tree changes.
// Each pass is diffed against the previous in-memory snapshot so the log
// shows classification drift as it happens.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"dddlens/internal/baseline"
	"dddlens/internal/engine"
	"dddlens/internal/frontend"
)

// Watcher drives rescan-on-change over a source root.
type Watcher struct {
	root      string
	eng       *engine.Engine
	extractor *frontend.GoExtractor
	debounce  time.Duration
	log       *zap.Logger

	// OnReport, if set, receives every compiled report. Used by tests and
	// by callers that want to render instead of log.
	OnReport func(changes []baseline.ChangeRecord)
}

// New creates a watcher. debounce <= 0 defaults to 500ms.
func New(root string, eng *engine.Engine, extractor *frontend.GoExtractor, debounce time.Duration, log *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{root: root, eng: eng, extractor: extractor, debounce: debounce, log: log}
}

// Run blocks until the context is cancelled, rescanning on file events.
// The first pass establishes the in-memory baseline.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := addRecursive(fw, w.root); err != nil {
		return err
	}

	prev, err := w.scan(ctx, nil)
	if err != nil {
		return err
	}
	w.log.Info("watch baseline established", zap.String("root", w.root), zap.Int("symbols", len(prev.Records)))

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			// New directories need watching too.
			if ev.Op.Has(fsnotify.Create) {
				_ = addRecursive(fw, ev.Name)
			}
			timer = resetDebounce(timer, w.debounce)
			timerC = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-timerC:
			timer = nil
			timerC = nil
			next, err := w.scan(ctx, prev)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.log.Warn("rescan failed", zap.Error(err))
				continue
			}
			prev = next
		}
	}
}

// scan runs one analysis pass, diffing against prev when present.
func (w *Watcher) scan(ctx context.Context, prev *baseline.Artifact) (*baseline.Artifact, error) {
	units, err := w.extractor.Walk(w.root)
	if err != nil {
		return nil, err
	}
	opts := engine.Options{}
	if prev != nil {
		opts.Baseline = prev
	}
	res, err := w.eng.Run(ctx, units, opts)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		for _, ch := range res.Report.Changes {
			w.log.Info("symbol changed",
				zap.String("symbol", string(ch.SymbolID)),
				zap.String("change", string(ch.Change)))
		}
		if w.OnReport != nil {
			w.OnReport(res.Report.Changes)
		}
	}
	return res.Snapshot, nil
}

// resetDebounce arms or re-arms the debounce timer. A timer that fired
// without its tick being consumed is drained first, so a stale tick cannot
// trigger a redundant rescan.
func resetDebounce(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
	return timer
}

// relevant filters events down to Go source mutations.
func relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	// Directory events matter for watch registration; source events must
	// be Go files.
	return !strings.Contains(name, ".") || strings.HasSuffix(name, ".go")
}

// addRecursive registers a directory tree with the watcher.
func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if werr := fw.Add(p); werr != nil {
			return nil
		}
		return nil
	})
}
