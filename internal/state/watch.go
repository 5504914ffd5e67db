package state

import (
	"github.com/fsnotify/fsnotify"
)

// WatchTaskFile watches taskFilePath on disk and invokes onChange for
// each write or create event, whoever makes it — an operator editing the
// task spec between iterations, or the agent writing it during one. This
// is a supplement beyond the strictly in-band tool.write hook of §4.5: the
// dashboard-refresh case the teacher's own fsnotify dependency exists
// to serve. The returned stop func closes the underlying watcher; it is
// always safe to call, and safe to call more than once.
func WatchTaskFile(taskFilePath string, onChange func()) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(taskFilePath); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 && onChange != nil {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	stopped := false
	return func() error {
		if stopped {
			return nil
		}
		stopped = true
		close(done)
		return watcher.Close()
	}, nil
}
