/**
 * Signature Directory Watcher.
 *
 * Watches the signature directory for changes and hot-reloads the engine's
 * compiled set, debounced so a burst of saves from an editor triggers one
 * reload rather than several.
 */

package signature

import (
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads an Engine whenever its signature directory changes.
type Watcher struct {
	dir           string
	engine        *Engine
	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	lastEvent     time.Time
	stop          chan struct{}
}

// NewWatcher creates a directory watcher bound to engine. Call Start to
// begin watching.
func NewWatcher(dir string, engine *Engine) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:           dir,
		engine:        engine,
		watcher:       fsw,
		debounceDelay: 300 * time.Millisecond,
		stop:          make(chan struct{}),
	}, nil
}

// Start begins watching dir in the background. Reload failures are logged
// and leave the previously loaded signature set in place.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop ends the watch loop and releases the underlying inotify/kqueue handle.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			now := time.Now()
			if now.Sub(w.lastEvent) < w.debounceDelay {
				continue
			}
			w.lastEvent = now
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("signature watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	sigs, errs := LoadDirectory(w.dir)
	for _, e := range errs {
		log.Printf("signature reload: %v", e)
	}
	w.engine.Replace(sigs)
	log.Printf("signatures reloaded: %d loaded, %d errors", len(sigs), len(errs))
}

// ReloadSignatures performs a one-shot synchronous reload, for the
// reload_signatures command surface operation (no watcher required).
func ReloadSignatures(dir string, engine *Engine) []error {
	sigs, errs := LoadDirectory(dir)
	engine.Replace(sigs)
	return errs
}
