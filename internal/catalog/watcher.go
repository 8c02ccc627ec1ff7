package catalog

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"folio/internal/models"
)

const debounce = 200 * time.Millisecond

// Reload is a freshly parsed catalog, or the error that prevented parsing.
type Reload struct {
	Entries []models.CatalogEntry
	Err     error
}

// Watcher reloads a catalog file when it changes on disk. Editors often write
// in several steps, so events are debounced before the file is parsed.
type Watcher struct {
	Path    string
	Reloads <-chan Reload

	reloads chan Reload
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the catalog file at path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	ch := make(chan Reload, 4)
	return &Watcher{
		Path:    abs,
		Reloads: ch,
		reloads: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start watches the file's directory, so atomic replace-by-rename is seen too.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Reloads channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.reloads)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var pendingSince time.Time
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pendingSince = time.Now()
			}

		case <-ticker.C:
			if pendingSince.IsZero() || time.Since(pendingSince) < debounce {
				continue
			}
			pendingSince = time.Time{}
			w.emit()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("Catalog watcher error")
		}
	}
}

func (w *Watcher) emit() {
	entries, err := Load(w.Path)
	if err != nil {
		log.WithError(err).WithField("path", w.Path).Warn("Ignoring invalid catalog edit")
	} else {
		log.WithFields(log.Fields{"path": w.Path, "projects": len(entries)}).Info("Catalog reloaded")
	}
	select {
	case w.reloads <- Reload{Entries: entries, Err: err}:
	default:
		// Drop the oldest unread reload; the newest parse is what matters.
		select {
		case <-w.reloads:
		default:
		}
		w.reloads <- Reload{Entries: entries, Err: err}
	}
}
