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

package lookup

import (
	"testing"
	"time"

	"kizami/internal/chain"
	"kizami/internal/errs"
	"kizami/internal/progress"
	"kizami/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.BlockStore, *progress.Map) {
	t.Helper()
	blocks, err := store.OpenBlockStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBlockStore: %v", err)
	}
	t.Cleanup(func() { _ = blocks.Close() })

	registry := chain.New([]chain.Descriptor{{ChainID: 1, Slug: "ethereum-mainnet", Name: "Ethereum Mainnet"}})
	prog := progress.New()
	return New(registry, blocks, prog), blocks, prog
}

func TestFind_UnknownChainIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Find(999, 1000, store.Before, true)
	if errs.KindOf(err) != errs.NotFound {
		t.Fatalf("Find on unknown chain: kind=%v, want NotFound", errs.KindOf(err))
	}
}

func TestFind_EmptyProgressMapIsNotReady(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Find(1, 1000, store.Before, true)
	if errs.KindOf(err) != errs.NotReady {
		t.Fatalf("Find with no progress entries loaded at all: kind=%v, want NotReady", errs.KindOf(err))
	}
}

func TestFind_RegisteredChainWithNoBlocksYetIsNotFound(t *testing.T) {
	svc, _, prog := newTestService(t)
	// Simulates supervisor startup: every registered chain gets seeded with a
	// zero cursor even before its first ingestion cycle completes.
	prog.LoadFrom([]progress.CursorSnapshot{{ChainID: 1, LastBlock: 0}}, time.Now())

	_, err := svc.Find(1, 1000, store.Before, true)
	if errs.KindOf(err) != errs.NotFound {
		t.Fatalf("Find on a seeded-but-empty chain: kind=%v, want NotFound", errs.KindOf(err))
	}
}

func TestFind_ReturnsBlockAndCurrentProgress(t *testing.T) {
	svc, blocks, prog := newTestService(t)
	if err := blocks.PutBatch([]store.Record{{ChainID: 1, Number: 100, Timestamp: 5000}}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}
	now := time.Now()
	prog.LoadFrom([]progress.CursorSnapshot{{ChainID: 1, LastBlock: 100}}, now)

	result, err := svc.Find(1, 5000, store.Before, true)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if result.Number != 100 || result.Cursor != 100 || result.Head != 100 {
		t.Fatalf("Find result = %+v, want number=100 cursor=100 head=100", result)
	}
}

func TestIndexingStatus_ReportsReadyPerChain(t *testing.T) {
	blocks, err := store.OpenBlockStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBlockStore: %v", err)
	}
	defer blocks.Close()

	registry := chain.New([]chain.Descriptor{
		{ChainID: 1, Slug: "ethereum-mainnet", Name: "Ethereum Mainnet"},
		{ChainID: 10, Slug: "optimism-mainnet", Name: "OP Mainnet"},
	})
	prog := progress.New()
	prog.LoadFrom([]progress.CursorSnapshot{{ChainID: 1, LastBlock: 42}}, time.Now())

	svc := New(registry, blocks, prog)
	statuses := svc.IndexingStatus()
	if len(statuses) != 2 {
		t.Fatalf("IndexingStatus returned %d entries, want 2", len(statuses))
	}
	for _, st := range statuses {
		switch st.ChainID {
		case 1:
			if !st.Ready || st.Cursor != 42 {
				t.Fatalf("chain 1 status = %+v, want Ready=true Cursor=42", st)
			}
		case 10:
			if st.Ready {
				t.Fatalf("chain 10 status = %+v, want Ready=false", st)
			}
		}
	}
}
