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

// Package ingest implements the per-chain ingestion loop: warm cursor ->
// probe head -> compute gap -> batch window -> stream -> persist -> publish
// -> sleep. The loop/stopChan/sync.WaitGroup shutdown idiom and the
// final-safe-point cancellation discipline follow the rate limiter worker
// loop this codebase was built from.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kizami/internal/errs"
	"kizami/internal/logging"
	"kizami/internal/progress"
	"kizami/internal/sqd"
	"kizami/internal/store"
	"kizami/internal/telemetry"
)

// batchCap bounds how many blocks one ingestion cycle fetches and persists.
const batchCap = 50_000

// State names the ingestion task's state machine.
type State int

const (
	Idle State = iota
	Probing
	Streaming
	Persisting
	Publishing
	Stopped
)

func (s State) String() string {
	switch s {
	case Probing:
		return "probing"
	case Streaming:
		return "streaming"
	case Persisting:
		return "persisting"
	case Publishing:
		return "publishing"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Head is the subset of sqd.Client this engine needs, so tests can supply a fake.
type Head interface {
	Head(ctx context.Context, slug string) (uint64, error)
	Stream(ctx context.Context, slug string, from, to uint64, fn func(sqd.Block) error) error
}

// Engine runs one chain's ingestion cycle on a ticker.
type Engine struct {
	chainID  uint32
	slug     string
	blocks   *store.BlockStore
	cursors  store.CursorStore
	progress *progress.Map
	client   Head
	interval time.Duration
	log      *logging.Logger

	mu          sync.Mutex
	state       State
	knownHead   uint64
	haveHead    bool
	stopCh      chan struct{}
	stopped     bool
	wg          sync.WaitGroup
	cycleCount  uint64
}

// New builds an Engine for one chain. The engine takes no starting cursor:
// each cycle warms its cursor from the already-hydrated progress map, never
// from the store directly.
func New(chainID uint32, slug string, blocks *store.BlockStore, cursors store.CursorStore, prog *progress.Map, client Head, interval time.Duration, log *logging.Logger) *Engine {
	return &Engine{
		chainID:  chainID,
		slug:     slug,
		blocks:   blocks,
		cursors:  cursors,
		progress: prog,
		client:   client,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the ticker-driven loop in its own goroutine.
func (e *Engine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run()
	}()
}

// Stop signals the loop to exit at its next safe suspension point and waits
// for it. Safe to call once; a second call is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()
	close(e.stopCh)
	e.wg.Wait()
}

// State returns the task's current state (for diagnostics/tests).
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) run() {
	e.setState(Idle)
	for {
		cycleStart := time.Now()
		e.runCycle()

		sleep := e.interval - time.Since(cycleStart)
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-time.After(sleep):
		case <-e.stopCh:
			e.setState(Stopped)
			return
		}
	}
}

// runCycle executes one full Idle->Probing->Streaming->Persisting->
// Publishing->Idle pass, absorbing Upstream/Storage errors locally so a
// single bad cycle never takes down the loop.
func (e *Engine) runCycle() {
	e.cycleCount++
	cycle := e.cycleCount

	entry, _ := e.progress.Read(e.chainID)
	cursor := entry.Cursor

	e.setState(Probing)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-e.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	head, err := e.client.Head(ctx, e.slug)
	if err != nil {
		telemetry.IngestUpstreamErrors.WithLabelValues(e.slug).Inc()
		e.log.Warn("ingest cycle absorbed upstream error %s", logging.Fields(
			"chain_id", e.chainID, "cycle", cycle, "kind", errs.KindOf(err), "detail", err))
		if !e.haveHead {
			e.setState(Idle)
			return
		}
		head = e.knownHead
	} else {
		e.knownHead = head
		e.haveHead = true
	}
	telemetry.IngestHead.WithLabelValues(e.slug).Set(float64(head))

	if head <= cursor {
		telemetry.IngestGap.WithLabelValues(e.slug).Set(0)
		e.setState(Idle)
		return
	}
	gap := head - cursor
	telemetry.IngestGap.WithLabelValues(e.slug).Set(float64(gap))

	from := cursor + 1
	to := cursor + batchCap
	if to > head {
		to = head
	}

	e.setState(Streaming)
	buffer := make([]store.Record, 0, to-from+1)
	streamErr := e.client.Stream(ctx, e.slug, from, to, func(b sqd.Block) error {
		select {
		case <-e.stopCh:
			return fmt.Errorf("ingest: cancelled mid-stream")
		default:
		}
		buffer = append(buffer, store.Record{ChainID: e.chainID, Number: b.Number, Timestamp: b.Timestamp})
		return nil
	})
	if streamErr != nil {
		telemetry.IngestUpstreamErrors.WithLabelValues(e.slug).Inc()
		e.log.Warn("ingest cycle discarded partial batch %s", logging.Fields(
			"chain_id", e.chainID, "cycle", cycle, "kind", errs.KindOf(streamErr), "detail", streamErr))
		e.setState(Idle)
		return
	}

	e.setState(Persisting)
	if err := e.blocks.PutBatch(buffer); err != nil {
		telemetry.IngestStorageErrors.WithLabelValues(e.slug).Inc()
		e.log.Error("ingest cycle failed to persist batch %s", logging.Fields(
			"chain_id", e.chainID, "cycle", cycle, "kind", errs.KindOf(err), "detail", err))
		e.setState(Idle)
		return
	}
	telemetry.IngestBatchSize.WithLabelValues(e.slug).Observe(float64(len(buffer)))

	now := time.Now()
	if err := e.cursors.Put(e.slug, int64(to), now.Unix()); err != nil {
		// Progress-first invariant: blocks are durable; only the cursor write
		// failed. The next cycle re-reads the old cursor and re-ingests the
		// same range — safe because PutBatch is idempotent.
		telemetry.IngestStorageErrors.WithLabelValues(e.slug).Inc()
		e.log.Error("ingest cycle persisted blocks but failed to advance cursor %s", logging.Fields(
			"chain_id", e.chainID, "cycle", cycle, "kind", errs.KindOf(err), "detail", err))
		e.setState(Idle)
		return
	}

	e.setState(Publishing)
	e.progress.UpdateCursor(e.chainID, to)
	e.progress.UpdateHead(e.chainID, head, now)
	telemetry.IngestCyclesTotal.WithLabelValues(e.slug).Inc()

	e.setState(Idle)
}
