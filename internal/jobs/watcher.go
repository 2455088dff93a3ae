package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const defaultDebounce = 2 * time.Second

// DirLister lists the directories to watch. source.FSSource satisfies it.
type DirLister interface {
	Dirs() ([]string, error)
}

// Watcher runs a Job after filesystem changes settle.
type Watcher struct {
	dirs     DirLister
	job      Job
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher watches every directory dirs reports. Directories created later
// are added as they appear.
func NewWatcher(dirs DirLister, job Job, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{dirs: dirs, job: job, debounce: debounce, watcher: fw}
	if err := w.addAll(); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Start blocks until ctx is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	logrus.WithField("dirs", len(w.watcher.WatchList())).Info("watching skills directory")

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addAll(); err != nil {
						logrus.WithError(err).Warn("failed to watch new directory")
					}
				}
			}
			logrus.WithFields(logrus.Fields{"path": event.Name, "op": event.Op.String()}).Debug("skills changed")
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("watcher error")
		case <-timer.C:
			if err := w.job.Run(ctx); err != nil {
				logrus.WithError(err).WithField("job", w.job.Name()).Error("change-triggered job failed")
			}
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) addAll() error {
	dirs, err := w.dirs.Dirs()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	return nil
}

// relevant ignores chmod noise and hidden files such as editor swap files.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}
