package source

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch calls fn with the path of every image file created or rewritten in dir
// once it has been quiet for settle. It blocks until ctx is done.
func Watch(ctx context.Context, dir string, settle time.Duration, fn func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Dur("settle", settle).Msg("watching for images")

	tick := time.NewTicker(max(settle/4, 10*time.Millisecond))
	defer tick.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, event.Name)
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0 && IsImage(event.Name):
				pending[event.Name] = time.Now().Add(settle)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Msgf("error in watcher: %s", watchErr)
		case now := <-tick.C:
			var ready []string
			for path, due := range pending {
				if !now.Before(due) {
					ready = append(ready, path)
					delete(pending, path)
				}
			}
			slices.Sort(ready)
			for _, path := range ready {
				log.Debug().Str("path", path).Msg("new image")
				fn(path)
			}
		}
	}
}
