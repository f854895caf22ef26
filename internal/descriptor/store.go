// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

// Store persists DeviceDescriptor values as one YAML file per device_id
// under dir, named by device_id. Reloading the directory reproduces the
// runtime state exactly.
type Store struct {
	dir     string
	log     zerolog.Logger
	watcher *fsnotify.Watcher
}

// NewStore creates the storage directory if needed and returns a Store
// rooted at it.
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create descriptor store dir %s: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) path(deviceID string) string {
	return filepath.Join(s.dir, deviceID+".yaml")
}

// Save writes d to disk, named by its device_id. Deterministic key
// ordering comes from yaml.v2's struct-field encoding.
func (s *Store) Save(d *DeviceDescriptor) error {
	contents, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("could not marshal descriptor %s: %w", d.DeviceID, err)
	}
	tmp := s.path(d.DeviceID) + ".tmp"
	if err := os.WriteFile(tmp, contents, 0o644); err != nil {
		return fmt.Errorf("could not write descriptor %s: %w", d.DeviceID, err)
	}
	return os.Rename(tmp, s.path(d.DeviceID))
}

// Load reads every *.yaml file in the store directory into a fresh Model.
func (s *Store) Load() (*Model, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("could not read descriptor store dir %s: %w", s.dir, err)
	}

	m := NewModel()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		full := filepath.Join(s.dir, e.Name())
		contents, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("could not read descriptor file %s: %w", full, err)
		}
		var d DeviceDescriptor
		if err := yaml.Unmarshal(contents, &d); err != nil {
			return nil, fmt.Errorf("could not parse descriptor file %s: %w", full, err)
		}
		if err := m.Add(&d); err != nil {
			return nil, fmt.Errorf("descriptor file %s failed validation: %w", full, err)
		}
	}
	return m, nil
}

// Watch starts an fsnotify watch on the store directory and invokes
// onChange with the reloaded Model whenever a descriptor file is written,
// renamed, or removed — supporting hot-loaded descriptors dropped into
// storage_dir without a restart.
func (s *Store) Watch(onChange func(*Model)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not start descriptor store watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return fmt.Errorf("could not watch descriptor store dir %s: %w", s.dir, err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, ".yaml") {
					continue
				}
				m, err := s.Load()
				if err != nil {
					s.log.Error().Err(err).Msg("descriptor store reload failed after filesystem event")
					continue
				}
				onChange(m)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Error().Err(err).Msg("descriptor store watcher error")
			}
		}
	}()
	return nil
}

// Close stops the filesystem watch, if one was started.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
