package resources

import (
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 500 * time.Millisecond

// watchDir calls callback once a burst of changes in directory settles.
// Closing done stops both goroutines and the watcher.
func watchDir(directory string, callback func(), done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	err = watcher.Add(directory)
	if err != nil {
		watcher.Close()
		return err
	}

	reload := make(chan struct{}, 1)
	go scheduleReload(reload, callback, done)
	go handleWatcher(watcher, reload, done)
	return nil
}

func handleWatcher(watcher *fsnotify.Watcher, reload chan<- struct{}, done <-chan struct{}) {
	defer watcher.Close()
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("resource watcher error: %v\n", err)
		}
	}
}

func scheduleReload(reload <-chan struct{}, callback func(), done <-chan struct{}) {
	var timer *time.Timer = nil
	var c <-chan time.Time = nil
	for {
		select {
		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return

		case <-reload:
			if timer != nil {
				timer.Reset(reloadDelay)
			} else {
				timer = time.NewTimer(reloadDelay)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			callback()
		}
	}
}
