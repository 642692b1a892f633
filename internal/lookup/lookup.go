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

// Package lookup answers block-by-timestamp queries: one chain-registry
// check, one BlockStore.Find scan, and one progress-map read.
package lookup

import (
	"time"

	"kizami/internal/chain"
	"kizami/internal/errs"
	"kizami/internal/progress"
	"kizami/internal/store"
)

// Result is the outcome of a successful lookup.
type Result struct {
	ChainID       uint32
	Number        uint64
	Timestamp     uint64
	Cursor        uint64
	Head          uint64
	HeadFetchedAt time.Time
}

// Service answers lookups against a fixed chain registry, a block store, and
// the live progress map.
type Service struct {
	registry *chain.Registry
	blocks   *store.BlockStore
	progress *progress.Map
}

// New builds a Service over the given dependencies.
func New(registry *chain.Registry, blocks *store.BlockStore, prog *progress.Map) *Service {
	return &Service{registry: registry, blocks: blocks, progress: prog}
}

// Find resolves the nearest block before/after timestamp on chainID.
func (s *Service) Find(chainID uint32, timestamp uint64, direction store.Direction, inclusive bool) (Result, error) {
	if _, ok := s.registry.Get(chainID); !ok {
		return Result{}, errs.New(errs.NotFound, "lookup.Find", errUnknownChain(chainID))
	}

	if s.progress.Len() == 0 {
		return Result{}, errs.New(errs.NotReady, "lookup.Find", errNotReady(chainID))
	}
	entry, _ := s.progress.Read(chainID)

	block, found, err := s.blocks.Find(chainID, timestamp, direction, inclusive)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{}, errs.New(errs.NotFound, "lookup.Find", errNoMatch(chainID, timestamp))
	}

	return Result{
		ChainID:       chainID,
		Number:        block.Number,
		Timestamp:     block.Timestamp,
		Cursor:        entry.Cursor,
		Head:          entry.Head,
		HeadFetchedAt: entry.HeadFetchedAt,
	}, nil
}

// Status reports the (cursor, head) pair the API exposes for one chain.
type Status struct {
	ChainID       uint32
	Slug          string
	Name          string
	Cursor        uint64
	Head          uint64
	HeadFetchedAt time.Time
	Ready         bool
}

// IndexingStatus reports every registered chain's ingestion progress.
func (s *Service) IndexingStatus() []Status {
	descriptors := s.registry.List()
	out := make([]Status, 0, len(descriptors))
	for _, d := range descriptors {
		entry, ok := s.progress.Read(d.ChainID)
		out = append(out, Status{
			ChainID:       d.ChainID,
			Slug:          d.Slug,
			Name:          d.Name,
			Cursor:        entry.Cursor,
			Head:          entry.Head,
			HeadFetchedAt: entry.HeadFetchedAt,
			Ready:         ok,
		})
	}
	return out
}
