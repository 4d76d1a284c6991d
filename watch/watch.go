// Package watch tells subscribers when anything below the recordings root
// changed, so open pages can offer a refresh.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces bursts of filesystem events (a copy of a large
// recording emits many writes) into one notification.
const DefaultDebounce = 300 * time.Millisecond

type Watcher struct {
	root     string
	debounce time.Duration
	log      zerolog.Logger
	fsw      *fsnotify.Watcher

	mu     sync.Mutex
	subs   map[int]chan struct{}
	nextID int

	done chan struct{}
	wg   sync.WaitGroup
}

// New starts watching root and every non-hidden directory below it.
func New(root string, debounce time.Duration, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		log:      logger.With().Str("component", "watch").Logger(),
		fsw:      fsw,
		subs:     make(map[int]chan struct{}),
		done:     make(chan struct{}),
	}

	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, err
	}
	for _, dir := range collectDirectories(root) {
		if err := fsw.Add(dir); err != nil {
			w.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch directory")
		}
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// collectDirectories lists every directory below root, skipping hidden ones
// and anything that cannot be read.
func collectDirectories(root string) []string {
	var dirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs
}

// Subscribe returns a channel that receives one value per batch of
// changes, and a function that cancels the subscription. Notifications
// are dropped for subscribers that have not consumed the previous one.
func (w *Watcher) Subscribe() (<-chan struct{}, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan struct{}, 1)
	w.subs[id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Has(fsnotify.Create) {
				w.addIfDir(event.Name)
			}
			w.log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("change")
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watcher error")

		case <-timer.C:
			w.notify()
		}
	}
}

// addIfDir starts watching a directory created after startup, along with
// any directories already inside it.
func (w *Watcher) addIfDir(path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return
	}
	for _, dir := range append([]string{path}, collectDirectories(path)...) {
		if err := w.fsw.Add(dir); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
			w.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch new directory")
		}
	}
}

func (w *Watcher) notify() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ch := range w.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
