// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package progress implements the process-wide progress map: an in-memory,
// read-through cache of each chain's (cursor, head) pair. It must always be
// rebuildable from the cursor store — it is never treated as authoritative.
package progress

import (
	"sync"
	"time"
)

// Entry is one chain's in-memory progress snapshot.
type Entry struct {
	Cursor        uint64
	Head          uint64
	HeadFetchedAt time.Time
}

// entryState is an Entry behind its own lock: each chain gets its own mutex
// rather than one global lock shared by every chain.
type entryState struct {
	mu    sync.RWMutex
	entry Entry
}

// Map is the concurrent chainId -> Entry table. The zero value is not usable;
// construct with New.
type Map struct {
	mu      sync.RWMutex
	entries map[uint32]*entryState
}

// New returns an empty progress map.
func New() *Map {
	return &Map{entries: make(map[uint32]*entryState)}
}

func (m *Map) stateFor(chainID uint32, create bool) *entryState {
	m.mu.RLock()
	s, ok := m.entries[chainID]
	m.mu.RUnlock()
	if ok || !create {
		return s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.entries[chainID]; ok {
		return s
	}
	s = &entryState{}
	m.entries[chainID] = s
	return s
}

// CursorSnapshot is one (slug, lastBlock) pair as read from the cursor store.
type CursorSnapshot struct {
	ChainID   uint32
	LastBlock uint64
}

// LoadFrom populates the map from a cursor-store snapshot: cursor = head =
// lastBlock for every chain present, as required at startup before any
// lookup or ingestion cycle runs.
func (m *Map) LoadFrom(snapshot []CursorSnapshot, now time.Time) {
	for _, s := range snapshot {
		st := m.stateFor(s.ChainID, true)
		st.mu.Lock()
		st.entry = Entry{Cursor: s.LastBlock, Head: s.LastBlock, HeadFetchedAt: now}
		st.mu.Unlock()
	}
}

// Read returns the current (cursor, head) for a chain. The second return
// value is false if the chain has never been published (e.g. ingestion
// hasn't completed a first cycle and no cursor was persisted at startup).
// Cheap: a single RLock on the chain's own entry.
func (m *Map) Read(chainID uint32) (Entry, bool) {
	st := m.stateFor(chainID, false)
	if st == nil {
		return Entry{}, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.entry, true
}

// UpdateCursor monotonically advances chainID's cursor; a lower value is ignored.
func (m *Map) UpdateCursor(chainID uint32, newCursor uint64) {
	st := m.stateFor(chainID, true)
	st.mu.Lock()
	defer st.mu.Unlock()
	if newCursor > st.entry.Cursor {
		st.entry.Cursor = newCursor
	}
}

// UpdateHead monotonically advances chainID's head; at always overwrites the
// fetch timestamp regardless of whether head itself changed.
func (m *Map) UpdateHead(chainID uint32, newHead uint64, at time.Time) {
	st := m.stateFor(chainID, true)
	st.mu.Lock()
	defer st.mu.Unlock()
	if newHead > st.entry.Head {
		st.entry.Head = newHead
	}
	st.entry.HeadFetchedAt = at
}

// Len reports how many chains currently have an entry. Used by the
// supervisor/API to decide NotReady before the first cycle completes and
// before any cursor snapshot was restored.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
