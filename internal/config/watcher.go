package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/pkg/types"
)

// ReloadFunc receives the merged configuration after a source file changed.
type ReloadFunc func(cfg *types.Config, changed string)

// Watcher reloads configuration when one of the files returned by
// Sources is written, created, or removed.
type Watcher struct {
	watcher   *fsnotify.Watcher
	directory string
	sources   map[string]bool
	onReload  ReloadFunc
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	mu        sync.Mutex
}

// NewWatcher creates a watcher over the config sources for directory.
// Parent directories are watched rather than the files themselves so
// that files created after startup and editor rename-saves are seen.
func NewWatcher(directory string, onReload ReloadFunc) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	sources := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, path := range Sources(directory) {
		sources[path] = true
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, err
		}
		dirs[dir] = true
	}

	logging.Debug().Int("dirs", len(dirs)).Str("directory", directory).Msg("config watcher initialized")

	return &Watcher{
		watcher:   w,
		directory: directory,
		sources:   sources,
		onReload:  onReload,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || !w.sources[name] {
				continue
			}
			w.reload(name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload(changed string) {
	cfg, err := Load(w.directory)
	if err != nil {
		// Keep the previous config until the file parses again.
		logging.Warn().Err(err).Str("file", changed).Msg("config reload failed")
		return
	}
	logging.Info().Str("file", changed).Int("providers", len(cfg.Provider)).Msg("config reloaded")
	if w.onReload != nil {
		w.onReload(cfg, changed)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}
