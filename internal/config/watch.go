package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/vane-rt/vane/internal/actorcore"
	"github.com/vane-rt/vane/internal/manager"
	"github.com/vane-rt/vane/internal/rtlog"
)

// Watcher reloads a Manager's config file on write events and delivers the
// resulting placement update to the Manager's own actor (SPEC_FULL.md
// §3.3), adapted from the teacher's FSNotifyWatcher
// (internal/runtime/vfs/watch_fsnotify.go).
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string
	mgr  *manager.Manager
	log  rtlog.Logger
	done chan struct{}
}

// Watch starts watching path and delivers ConfigChanged to mgr on every
// write or create event, until Close is called.
func Watch(path string, mgr *manager.Manager, log rtlog.Logger) (*Watcher, error) {
	if log == nil {
		log = rtlog.Discard
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, path: path, mgr: mgr, log: log, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config watcher: failed to reload %s: %v", w.path, err)
		return
	}
	update := cfg.PlacementUpdate()
	actorcore.DispatchAsync(w.mgr.SelfRef(), actorcore.NewMessage(manager.ConfigChanged, update))
}

// Close stops the watcher and releases its OS-level file watch.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
