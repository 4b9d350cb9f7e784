package engine

import (
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watcher invalidates the environment cache when template files change.
type watcher struct {
	fs     *fsnotify.Watcher
	env    *Environment
	logger *zap.Logger
	done   chan struct{}
	once   sync.Once
}

func newWatcher(env *Environment, dirs []string, logger *zap.Logger) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "engine: create fsnotify watcher")
	}

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			return fsw.Add(path)
		})
		if err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "engine: watch %s", dir)
		}
	}

	w := &watcher{
		fs:     fsw,
		env:    env,
		logger: logger,
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// new subdirectories need their own watch
				_ = w.addIfDir(event.Name)
			}
			w.logger.Debug("template source changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()),
			)
			w.env.Invalidate()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("template watcher error", zap.Error(err))
		}
	}
}

func (w *watcher) addIfDir(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return w.fs.Add(p)
	})
}

func (w *watcher) close() error {
	var err error
	w.once.Do(func() {
		err = w.fs.Close()
		<-w.done
	})
	return err
}
