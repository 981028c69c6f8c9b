package imagesource

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reports writes to the currently selected local file. The
// parent directory is watched so files replaced by rename are still seen.
type FileWatcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	dir     string
	target  string
	changes chan string
	done    chan struct{}
}

func NewFileWatcher() (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		changes: make(chan string, 1),
		done:    make(chan struct{}),
	}
	go fw.loop()
	return fw, nil
}

// Changes delivers the path of the watched file after it changes.
// Bursts of events are coalesced.
func (fw *FileWatcher) Changes() <-chan string {
	return fw.changes
}

// Watch switches the watch to path; an empty path stops watching
func (fw *FileWatcher) Watch(path string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	var dir, target string
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		dir, target = filepath.Dir(abs), abs
	}

	if fw.dir != "" && fw.dir != dir {
		if err := fw.watcher.Remove(fw.dir); err != nil {
			log.Printf("Failed to stop watching %s: %v", fw.dir, err)
		}
		fw.dir = ""
	}
	fw.target = target

	if dir != "" && fw.dir != dir {
		if err := fw.watcher.Add(dir); err != nil {
			fw.target = ""
			return fmt.Errorf("failed to watch file: %w", err)
		}
		fw.dir = dir
	}
	return nil
}

func (fw *FileWatcher) Close() error {
	close(fw.done)
	return fw.watcher.Close()
}

func (fw *FileWatcher) loop() {
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	fw.mu.Lock()
	target := fw.target
	fw.mu.Unlock()

	if target == "" || filepath.Clean(event.Name) != target {
		return
	}

	select {
	case fw.changes <- target:
	default:
	}
}
