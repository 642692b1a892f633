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
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"kizami/internal/errs"
)

// Record is one (chain_id, number, timestamp) triple to persist.
type Record struct {
	ChainID   uint32
	Number    uint64
	Timestamp uint64
}

// Block is a looked-up (number, timestamp) pair.
type Block struct {
	Number    uint64
	Timestamp uint64
}

// Direction selects which side of the timestamp to search.
type Direction int

const (
	Before Direction = iota
	After
)

// BlockStore is the ordered persistent keyspace of (chain_id, timestamp,
// number) records. It wraps a dedicated Badger (LSM-tree) database
// directory, kept separate from the cursor store's own directory so the
// two can be backed up, compacted, or rebuilt independently.
type BlockStore struct {
	db *badger.DB
}

// OpenBlockStore opens (creating if absent) the blocks keyspace at dir.
func OpenBlockStore(dir string) (*BlockStore, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.New(errs.Fatal, "store.OpenBlockStore", err)
	}
	return &BlockStore{db: db}, nil
}

// Close flushes and closes the underlying database.
func (s *BlockStore) Close() error {
	return s.db.Close()
}

// PutBatch writes every record's key with an empty value. Re-inserting an existing (chain_id, number) key is a no-op: Badger simply
// overwrites with the same empty value, so duplicate keys within or across
// calls collapse to the same final state, making re-ingestion of a range
// safe to repeat after a crash.
//
// A badger.WriteBatch is used instead of one large transaction so large
// batches never risk the single-transaction size limit that a plain
// db.Update would hit. The write is therefore not atomic: a WriteBatch may
// commit in several transactions, so a call that fails can leave part of
// its records written.
func (s *BlockStore) PutBatch(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, r := range records {
		key := encodeKey(r.ChainID, r.Timestamp, r.Number)
		if err := wb.Set(key, nil); err != nil {
			return errs.New(errs.Storage, "store.PutBatch", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return errs.New(errs.Storage, "store.PutBatch", err)
	}
	return nil
}

// Find performs exactly one bounded range scan and returns the matching
// block, or ok=false if none satisfies the query.
func (s *BlockStore) Find(chainID uint32, timestamp uint64, direction Direction, inclusive bool) (Block, bool, error) {
	var (
		seek    []byte
		reverse bool
		skip    bool // true when the bound collapses to "no block can match"
	)

	switch {
	case direction == Before && inclusive:
		seek = encodeKey(chainID, timestamp, maxUint64)
		reverse = true
	case direction == Before && !inclusive:
		if timestamp == 0 {
			skip = true
		} else {
			// [C‖0‖0, C‖T‖0) is identical to seeking the largest key in
			// [C‖0‖0, C‖(T-1)‖MAX] because no key can fall strictly between
			// (C, T-1, MAX) and (C, T, 0) in the ordered keyspace.
			seek = encodeKey(chainID, timestamp-1, maxUint64)
			reverse = true
		}
	case direction == After && inclusive:
		seek = encodeKey(chainID, timestamp, 0)
	case direction == After && !inclusive:
		if timestamp == maxUint64 {
			skip = true
		} else {
			seek = encodeKey(chainID, timestamp+1, 0)
		}
	default:
		return Block{}, false, fmt.Errorf("store.Find: unknown direction %v", direction)
	}

	if skip {
		return Block{}, false, nil
	}

	var (
		found  Block
		has    bool
		outErr error
	)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = reverse
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(seek)
		if !it.Valid() {
			return nil
		}
		key := it.Item().KeyCopy(nil)
		cID, ts, num, ok := decodeKey(key)
		if !ok {
			return fmt.Errorf("store.Find: corrupt key length %d", len(key))
		}
		if cID != chainID {
			// Landed in a neighboring chain's range: no match for this chain.
			return nil
		}
		found = Block{Number: num, Timestamp: ts}
		has = true
		return nil
	})
	if err != nil {
		outErr = errs.New(errs.Storage, "store.Find", err)
	}
	return found, has, outErr
}
