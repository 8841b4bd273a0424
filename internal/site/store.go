package site

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store serves the current page copy and reloads it when its file changes.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	content *Content
	version uint64
}

// NewStore loads copy from path, or the embedded default when path is empty.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		logger: logger.With(slog.String("component", "content")),
	}
	if path == "" {
		s.content = Default()
		return s, nil
	}
	c, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load content %s: %w", path, err)
	}
	s.content = c
	return s, nil
}

// Content returns the current copy. Callers must not modify it.
func (s *Store) Content() *Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// Version increases on every successful reload.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Reload rereads the file. Invalid copy is rejected and the previous
// version stays in place.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	c, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.content = c
	s.version++
	s.mu.Unlock()
	return nil
}

// Watch reloads the copy whenever its file is written or replaced, until ctx
// is done. The parent directory is watched so editors that swap files in
// place are picked up.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("content watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("content reload rejected", slog.Any("error", err))
				continue
			}
			s.logger.Info("content reloaded", slog.Uint64("version", s.Version()))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("content watcher", slog.Any("error", err))
		}
	}
}
