// Package inbox watches a directory and hands each new image to a processor once
// writes to it have settled.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"image-sizer-go/internal/utils"
)

// DefaultDebounce is how long a file must stay quiet before it is processed.
const DefaultDebounce = 300 * time.Millisecond

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// IsImage reports whether path has an extension the decoder understands.
func IsImage(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return imageExts[strings.ToLower(filepath.Ext(base))]
}

// Processor handles one settled file. Errors are logged and do not stop the watcher.
type Processor func(ctx context.Context, path string) error

type Options struct {
	Dir      string
	Debounce time.Duration
	// ScanExisting queues images already present when Run starts.
	ScanExisting bool
	Process      Processor
	Logger       *utils.Logger
}

type Watcher struct {
	dir      string
	debounce time.Duration
	scan     bool
	process  Processor
	logger   *utils.Logger

	watcher *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
}

func New(opts Options) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, errors.New("watch directory cannot be empty")
	}
	if opts.Process == nil {
		return nil, errors.New("processor cannot be nil")
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory: %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.DefaultLogger
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		scan:     opts.ScanExisting,
		process:  opts.Process,
		logger:   logger,
		watcher:  watcher,
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string, 64),
	}, nil
}

func (w *Watcher) Dir() string {
	return w.dir
}

// Run blocks until ctx is cancelled. Files are processed one at a time in the
// order they settle.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		_ = w.watcher.Close()
		return fmt.Errorf("failed to add directory to watcher: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer w.stopTimers()
		return w.watchLoop(gctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case path := <-w.ready:
				w.handle(gctx, path)
			}
		}
	})

	if w.scan {
		if err := w.queueExisting(gctx); err != nil {
			w.logger.WarnTag("CLI", "initial scan of %s failed: %v", w.dir, err)
		}
	}

	err := g.Wait()
	_ = w.watcher.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !IsImage(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.settle(ctx, event.Name)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.forget(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnTag("CLI", "watcher error: %v", err)
		}
	}
}

// settle (re)arms the quiet-period timer for path.
func (w *Watcher) settle(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) queueExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && IsImage(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		select {
		case w.ready <- filepath.Join(w.dir, name):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (w *Watcher) handle(ctx context.Context, path string) {
	// the file may have been moved away while settling
	if _, err := os.Stat(path); err != nil {
		w.logger.DebugTag("CLI", "skip %s: %v", path, err)
		return
	}
	start := time.Now()
	if err := w.process(ctx, path); err != nil {
		w.logger.ErrorTag("CLI", "process %s failed: %v", filepath.Base(path), err)
		return
	}
	w.logger.InfoTag("CLI", "processed %s in %s", filepath.Base(path), time.Since(start).Round(time.Millisecond))
}
