// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"fmt"
	"sync"
)

// Model holds and validates DeviceDescriptor instances in memory, and
// provides lookup by device_id and by (manufacturer, model).
// It is a constructed component — there is no package-level registry.
type Model struct {
	mu       sync.RWMutex
	byID     map[string]*DeviceDescriptor
	byVendor map[string]*DeviceDescriptor // "manufacturer|model" -> descriptor
}

// NewModel returns an empty, ready-to-use descriptor model.
func NewModel() *Model {
	return &Model{
		byID:     make(map[string]*DeviceDescriptor),
		byVendor: make(map[string]*DeviceDescriptor),
	}
}

// Add validates d and inserts it, replacing any earlier descriptor with
// the same device_id.
func (m *Model) Add(d *DeviceDescriptor) error {
	if err := Validate(d); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[d.DeviceID] = d
	m.byVendor[vendorKey(d.Manufacturer, d.Model)] = d
	return nil
}

// ByDeviceID returns the descriptor with the given id, if present.
func (m *Model) ByDeviceID(id string) (*DeviceDescriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byID[id]
	return d, ok
}

// ByVendorModel returns the descriptor for a (manufacturer, model) pair.
func (m *Model) ByVendorModel(manufacturer, model string) (*DeviceDescriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byVendor[vendorKey(manufacturer, model)]
	return d, ok
}

// All returns a snapshot slice of every descriptor currently held.
func (m *Model) All() []*DeviceDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*DeviceDescriptor, 0, len(m.byID))
	for _, d := range m.byID {
		out = append(out, d)
	}
	return out
}

func vendorKey(manufacturer, model string) string {
	return fmt.Sprintf("%s|%s", manufacturer, model)
}
