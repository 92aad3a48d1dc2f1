// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package config

import (
	"log/slog"
	"os"
	"sync"
	"time"

	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// Store is a read-mostly cached view of the on-disk configuration, keyed
// on file mtime. Writers swap a new Config in atomically.
type Store struct {
	path string

	mu     sync.RWMutex
	cfg    *Config
	mtime  time.Time
	loaded bool
}

// NewStore creates a Store for the given path (canonical location when
// empty). The file is not read until the first Current call.
func NewStore(path string) *Store {
	if path == "" {
		path = Path()
	}
	return &Store{path: path}
}

// Path returns the config file path this store watches.
func (s *Store) Path() string {
	return s.path
}

// Current returns the cached configuration, re-reading the file when its
// mtime changed since the last load.
func (s *Store) Current() (*Config, error) {
	mtime := s.statMtime()

	s.mu.RLock()
	if s.loaded && mtime.Equal(s.mtime) {
		cfg := s.cfg
		s.mu.RUnlock()
		return cfg, nil
	}
	s.mu.RUnlock()

	return s.Reload()
}

// Reload unconditionally re-reads the file and swaps the cache.
func (s *Store) Reload() (*Config, error) {
	cfg, err := Load(s.path)
	if err != nil {
		return nil, err
	}

	mtime := s.statMtime()

	s.mu.Lock()
	s.cfg = cfg
	s.mtime = mtime
	s.loaded = true
	s.mu.Unlock()

	return cfg, nil
}

// IsActive reports the state gate without surfacing load errors; an
// unreadable config is treated as dormant.
func (s *Store) IsActive() bool {
	cfg, err := s.Current()
	if err != nil {
		slog.Warn("config unreadable, treating state as dormant", "path", s.path, "error", err)
		return false
	}
	return cfg.IsActive()
}

// Demote flips the state to dormant and persists the change. Used on
// explicit deactivation and on categorical infrastructure failure.
func (s *Store) Demote(reason string) error {
	cfg, err := s.Current()
	if err != nil {
		return err
	}
	if cfg.State == StateDormant {
		return nil
	}

	next := *cfg
	next.State = StateDormant
	if err := next.Save(s.path); err != nil {
		return runeerr.Wrapf(err, runeerr.CodeConfigSaveWriteFailure, "persisting demotion")
	}

	slog.Warn("pipelines demoted to dormant", "reason", reason)

	mtime := s.statMtime()

	s.mu.Lock()
	s.cfg = &next
	s.mtime = mtime
	s.mu.Unlock()

	return nil
}

func (s *Store) statMtime() time.Time {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
