package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/lixenwraith/ecshttp/core"
)

// Watcher reloads the configuration file whenever it changes on disk and
// hands every valid result to onChange
// Invalid files are logged and skipped; the previous configuration stays in effect
type Watcher struct {
	path     string
	onChange func(*Config)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	stopped chan struct{}
}

// NewWatcher creates a watcher service for the configuration file at path
func NewWatcher(path string, onChange func(*Config)) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
	}
}

// Name implements service.Service
func (w *Watcher) Name() string { return "config-watcher" }

// Dependencies implements service.Service
func (w *Watcher) Dependencies() []string { return nil }

// Init implements service.Service
func (w *Watcher) Init(args ...any) error {
	if w.onChange == nil {
		return fmt.Errorf("config watcher for %s has no change handler", w.path)
	}
	return nil
}

// Start watches the directory containing the file
// Editors that save through rename replace the inode, so the file itself is not watched
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = fw
	w.done = make(chan struct{})
	w.stopped = make(chan struct{})

	done, stopped := w.done, w.stopped
	core.Go(func() {
		defer close(stopped)
		w.handler(fw, done)
	})
	return nil
}

// Stop closes the watcher and waits for the handler goroutine, idempotent
func (w *Watcher) Stop() error {
	w.mu.Lock()
	fw, done, stopped := w.watcher, w.done, w.stopped
	w.watcher = nil
	w.mu.Unlock()

	if fw == nil {
		return nil
	}

	close(done)
	err := fw.Close()
	<-stopped
	return err
}

func (w *Watcher) handler(fw *fsnotify.Watcher, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return

		case e, ok := <-fw.Events:
			if !ok {
				return
			}

			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				log.WithFields(log.Fields{
					"file":      e.Name,
					"operation": e.Op.String(),
				}).Debug("Ignoring fsnotify event")
				continue
			}

			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("fsnotify errored")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.WithField("file", w.path).WithError(err).Warn("Ignoring invalid configuration change")
		return
	}

	log.WithField("file", w.path).Info("Configuration reloaded")
	w.onChange(cfg)
}
