package main

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchOrigins archives files as they land in the category origin
// directories, instead of waiting for the next batch pass. Runs until the
// stop channel closes; per-file errors are logged and watching continues.
func watchOrigins(cfg *Config, mgr *ArchiveManager, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	byDir := make(map[string]Category)
	for _, cat := range cfg.Categories {
		if err := watcher.Add(cat.OriginDir); err != nil {
			logger.Warnw("cannot watch origin dir", "dir", cat.OriginDir, "err", err)
			continue
		}
		byDir[filepath.Clean(cat.OriginDir)] = cat
		logger.Infow("watching origin dir", "dir", cat.OriginDir, "category", cat.Name)
	}
	if len(byDir) == 0 {
		return nil
	}

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			cat, ok := byDir[filepath.Dir(event.Name)]
			if !ok {
				continue
			}
			logger.Debugw("origin event", "op", event.Op.String(), "file", event.Name)
			mgr.ExpandFileSpec(cat.OriginDir, filepath.Base(event.Name), cat.Name)
			if err := mgr.Process(cat.Name); err != nil {
				logger.Warnw("archive failed", "file", event.Name, "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("watch error", "err", err)
		}
	}
}
