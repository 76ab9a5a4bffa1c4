package collector

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/byzantron-research/aibyz-dataset/async"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// reloadDebounceInterval collapses the burst of fsnotify events an editor
// save produces into a single reload.
const reloadDebounceInterval = 500 * time.Millisecond

// Tracker maintains the tracked-validator allowlist: one validator ID per
// line, '#' comments allowed. An empty or absent file tracks everything.
type Tracker struct {
	path string

	mu  sync.RWMutex
	ids []string
}

// NewTracker loads the allowlist file. An empty path yields a tracker that
// tracks everything and never watches.
func NewTracker(path string) (*Tracker, error) {
	t := &Tracker{path: path}
	if path == "" {
		return t, nil
	}
	if err := t.reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Tracked returns the current allowlist. Nil means no filtering.
func (t *Tracker) Tracked() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids
}

func (t *Tracker) reload() error {
	raw, err := os.ReadFile(t.path) // #nosec G304 -- operator-supplied path.
	if err != nil {
		return errors.Wrapf(err, "could not read tracked validators file %s", t.path)
	}
	ids := make([]string, 0)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	t.mu.Lock()
	t.ids = ids
	t.mu.Unlock()
	log.WithField("tracked", len(ids)).Info("Loaded tracked validators")
	return nil
}

// Watch reloads the allowlist whenever the file changes, debouncing the
// event storm editors produce. The watch is established before Watch
// returns; the background loops run until the context is canceled.
func (t *Tracker) Watch(ctx context.Context) error {
	if t.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "could not initialize file watcher")
	}
	if err := watcher.Add(t.path); err != nil {
		if cerr := watcher.Close(); cerr != nil {
			log.WithError(cerr).Debug("Could not close file watcher")
		}
		return errors.Wrapf(err, "could not watch %s", t.path)
	}

	events := make(chan interface{})
	go func() {
		defer close(events)
		defer func() {
			if err := watcher.Close(); err != nil {
				log.WithError(err).Debug("Could not close file watcher")
			}
		}()
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Error("File watcher error")
			case <-ctx.Done():
				return
			}
		}
	}()
	go async.Debounce(ctx, reloadDebounceInterval, events, func(interface{}) {
		if err := t.reload(); err != nil {
			log.WithError(err).Error("Could not reload tracked validators")
		}
	})
	return nil
}
