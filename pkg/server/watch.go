package server

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads every connected session whenever the page file is written,
// created or renamed. The watch stops when ctx is done.
//
// The page's directory is watched rather than the file itself so editors
// that save by renaming a temporary file are still seen.
func (s *Server) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	page, err := filepath.Abs(s.config.Page)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("watch: %w", err)
	}
	if err := w.Add(filepath.Dir(page)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(page), err)
	}

	go func() {
		defer func() {
			_ = w.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != filepath.Base(page) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				s.logger.Info("page changed", "page", s.config.Page, "op", ev.Op.String())
				s.Broadcast(Message{Type: TypeReload})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watch error", "error", err)
			}
		}
	}()
	return nil
}
