package modules

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kestrel-engine/kestrel/engine/core"
)

// ReloadRequest reports that a fresh image for a watched module appeared on
// disk. The application consumes requests at a frame boundary.
type ReloadRequest struct {
	Module string
	Path   string
}

type watchedModule struct {
	name   string
	prefix string
}

// Watcher observes the directories of module images and requests a reload
// whenever a rebuilt image lands. Rebuilds are matched by base-name prefix so
// versioned images (sandbox_1724.so next to sandbox.so) trigger as well.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	requests chan ReloadRequest
	done     chan struct{}

	mu       sync.Mutex
	modules  []watchedModule
	isClosed bool
}

func NewWatcher() (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsnotify: fsWatch,
		requests: make(chan ReloadRequest, 8),
		done:     make(chan struct{}),
	}
	go w.start()
	return w, nil
}

// Watch registers the module image at path. The containing directory is
// watched, not the file, so images replaced by rename are seen too.
func (w *Watcher) Watch(module, path string) error {
	w.mu.Lock()
	if w.isClosed {
		w.mu.Unlock()
		return errors.New("module watcher already closed")
	}
	base := filepath.Base(path)
	w.modules = append(w.modules, watchedModule{
		name:   module,
		prefix: strings.TrimSuffix(base, filepath.Ext(base)),
	})
	w.mu.Unlock()
	return w.fsnotify.Add(filepath.Dir(path))
}

// Requests is drained by the application between frames.
func (w *Watcher) Requests() <-chan ReloadRequest {
	return w.requests
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return nil
	}
	w.isClosed = true
	close(w.done)
	return w.fsnotify.Close()
}

func (w *Watcher) start() {
	for {
		select {
		case <-w.done:
			return
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			module, matched := w.match(e.Name)
			if !matched {
				continue
			}
			core.LogDebug("module image '%s' changed on disk (%s)", module, e.Name)
			w.publish(ReloadRequest{Module: module, Path: e.Name})
		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("module watcher: %s", err)
		}
	}
}

// publish queues a reload request, evicting the oldest pending one when the
// queue is full. The newest rebuilt image always wins, the same way resize
// notifications coalesce to the latest size.
func (w *Watcher) publish(req ReloadRequest) {
	for {
		select {
		case w.requests <- req:
			return
		default:
		}
		select {
		case <-w.requests:
		default:
		}
	}
}

func (w *Watcher) match(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".so") {
		return "", false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range w.modules {
		if strings.HasPrefix(base, m.prefix) {
			return m.name, true
		}
	}
	return "", false
}
