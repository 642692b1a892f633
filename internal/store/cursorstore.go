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

package store

import (
	"encoding/binary"

	badger "github.com/dgraph-io/badger/v4"

	"kizami/internal/errs"
)

// Cursor is a chain's last-ingested block number and when it was recorded.
type Cursor struct {
	LastBlock     int64
	UpdatedAtSecs int64
}

// SlugCursor pairs a cursor with the slug it belongs to, for Snapshot.
type SlugCursor struct {
	Slug string
	Cursor
}

// CursorStore is the persistent slug -> (last_block, updated_at_secs)
// mapping. It does not itself enforce monotonicity — that is the ingestion
// engine's responsibility.
type CursorStore interface {
	Get(slug string) (Cursor, bool, error)
	Put(slug string, lastBlock, updatedAtSecs int64) error
	Snapshot() ([]SlugCursor, error)
	Close() error
}

// BadgerCursorStore is the default CursorStore backend: a dedicated Badger
// database directory holding one 16-byte big-endian value per slug.
type BadgerCursorStore struct {
	db *badger.DB
}

// OpenBadgerCursorStore opens (creating if absent) the cursors keyspace at dir.
func OpenBadgerCursorStore(dir string) (*BadgerCursorStore, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.New(errs.Fatal, "store.OpenBadgerCursorStore", err)
	}
	return &BadgerCursorStore{db: db}, nil
}

func (s *BadgerCursorStore) Close() error { return s.db.Close() }

func encodeCursorValue(lastBlock, updatedAtSecs int64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(lastBlock))
	binary.BigEndian.PutUint64(buf[8:16], uint64(updatedAtSecs))
	return buf
}

func decodeCursorValue(buf []byte) (Cursor, bool) {
	if len(buf) != 16 {
		return Cursor{}, false
	}
	return Cursor{
		LastBlock:     int64(binary.BigEndian.Uint64(buf[0:8])),
		UpdatedAtSecs: int64(binary.BigEndian.Uint64(buf[8:16])),
	}, true
}

// Get returns the cursor for slug, or ok=false if it has never been ingested.
func (s *BadgerCursorStore) Get(slug string) (Cursor, bool, error) {
	var (
		cursor Cursor
		found  bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(slug))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		c, ok := decodeCursorValue(val)
		if !ok {
			return nil
		}
		cursor, found = c, true
		return nil
	})
	if err != nil {
		return Cursor{}, false, errs.New(errs.Storage, "store.CursorStore.Get", err)
	}
	return cursor, found, nil
}

// Put unconditionally writes the cursor for slug.
func (s *BadgerCursorStore) Put(slug string, lastBlock, updatedAtSecs int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(slug), encodeCursorValue(lastBlock, updatedAtSecs))
	})
	if err != nil {
		return errs.New(errs.Storage, "store.CursorStore.Put", err)
	}
	return nil
}

// Snapshot lists every persisted (slug, last_block) pair, used at startup to
// rehydrate the progress map.
func (s *BadgerCursorStore) Snapshot() ([]SlugCursor, error) {
	var out []SlugCursor
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			slug := string(item.KeyCopy(nil))
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			c, ok := decodeCursorValue(val)
			if !ok {
				continue
			}
			out = append(out, SlugCursor{Slug: slug, Cursor: c})
		}
		return nil
	})
	if err != nil {
		return nil, errs.New(errs.Storage, "store.CursorStore.Snapshot", err)
	}
	return out, nil
}
