package configure

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"src.cmk.sh/pkg/errutil"
)

// Changes arriving within this interval after the first one are coalesced
// into one re-run.
const settleDelay = 100 * time.Millisecond

// watcher waits for changes to a set of files. It watches the directories
// containing them, since editors often replace files instead of writing
// them in place.
type watcher struct {
	w     *fsnotify.Watcher
	files map[string]bool
	dirs  map[string]bool
}

func newWatcher() (*watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &watcher{w, map[string]bool{}, map[string]bool{}}, nil
}

func (w *watcher) Close() error { return w.w.Close() }

// Reset replaces the set of watched files.
func (w *watcher) Reset(files []string) error {
	var errs []error
	for dir := range w.dirs {
		if err := w.w.Remove(dir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errutil.Multi(errs...); err != nil {
		logger.Println("cannot stop watching:", err)
	}
	w.files = make(map[string]bool, len(files))
	w.dirs = make(map[string]bool)
	for _, file := range files {
		file = filepath.Clean(file)
		w.files[file] = true
		dir := filepath.Dir(file)
		if w.dirs[dir] {
			continue
		}
		if err := w.w.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	return nil
}

// Wait blocks until a watched file changes, and returns true; or until a
// value arrives on stop or the watcher is closed, and returns false.
func (w *watcher) Wait(stop <-chan os.Signal) bool {
	var settle <-chan time.Time
	for {
		select {
		case <-stop:
			return false
		case <-settle:
			return true
		case event, ok := <-w.w.Events:
			if !ok {
				return false
			}
			if !w.files[filepath.Clean(event.Name)] || event.Op == fsnotify.Chmod {
				continue
			}
			logger.Println("list file changed:", event)
			if settle == nil {
				settle = time.After(settleDelay)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return false
			}
			logger.Println("watch error:", err)
		}
	}
}
