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

// Package supervisor sequences kizami's startup (open stores, hydrate
// progress, spawn one ingestion engine per chain, start the HTTP server) and
// shutdown (stop engines, close stores).
package supervisor

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"kizami/internal/api"
	"kizami/internal/chain"
	"kizami/internal/config"
	"kizami/internal/ingest"
	"kizami/internal/logging"
	"kizami/internal/lookup"
	"kizami/internal/progress"
	"kizami/internal/sqd"
	"kizami/internal/store"
	"kizami/internal/telemetry"
)

// shutdownGrace bounds how long Stop waits for in-flight ingestion cycles to
// reach a safe suspension point before returning anyway.
const shutdownGrace = 30 * time.Second

// Supervisor owns every long-lived component's lifecycle.
type Supervisor struct {
	cfg      config.Config
	log      *logging.Logger
	registry *chain.Registry
	blocks   *store.BlockStore
	cursors  store.CursorStore
	progress *progress.Map
	client   *sqd.Client
	engines  []*ingest.Engine
	api      *api.Server
	metrics  *http.Server
}

// New opens every store, hydrates the progress map from the cursor store,
// and builds one ingestion engine per registered chain. The HTTP server is
// constructed but not yet started.
func New(cfg config.Config, log *logging.Logger) (*Supervisor, error) {
	registry := chain.NewDefault()

	blocks, err := store.OpenBlockStore(cfg.DataDir + "/blocks")
	if err != nil {
		return nil, err
	}

	cursors, err := store.BuildCursorStore(cfg.CursorStoreBackend, store.CursorStoreOptions{
		DataDir:   cfg.DataDir,
		RedisAddr: cfg.RedisAddr,
	})
	if err != nil {
		_ = blocks.Close()
		return nil, err
	}

	prog := progress.New()
	snapshot, err := cursors.Snapshot()
	if err != nil {
		_ = blocks.Close()
		_ = cursors.Close()
		return nil, err
	}
	slugToID := make(map[string]uint32, len(registry.List()))
	for _, d := range registry.List() {
		slugToID[d.Slug] = d.ChainID
	}
	lastBlockByChain := make(map[uint32]uint64, len(slugToID))
	for _, sc := range snapshot {
		chainID, ok := slugToID[sc.Slug]
		if !ok {
			continue
		}
		lastBlockByChain[chainID] = uint64(sc.LastBlock)
	}
	// Every registered chain gets a progress entry up front, defaulting to
	// cursor 0 when nothing was persisted yet, so an absent cursor reads as
	// "nothing indexed so far" rather than "ingestion never started".
	cursorSnapshots := make([]progress.CursorSnapshot, 0, len(registry.List()))
	for _, d := range registry.List() {
		cursorSnapshots = append(cursorSnapshots, progress.CursorSnapshot{
			ChainID:   d.ChainID,
			LastBlock: lastBlockByChain[d.ChainID],
		})
	}
	prog.LoadFrom(cursorSnapshots, time.Now())

	client, err := sqd.NewClient(cfg.SQDPortalURLs)
	if err != nil {
		_ = blocks.Close()
		_ = cursors.Close()
		return nil, err
	}

	var engines []*ingest.Engine
	for _, d := range registry.List() {
		engines = append(engines, ingest.New(d.ChainID, d.Slug, blocks, cursors, prog, client, cfg.IngestInterval, log))
	}

	lookupSvc := lookup.New(registry, blocks, prog)
	apiServer := api.NewServer(registry, lookupSvc, log)

	return &Supervisor{
		cfg:      cfg,
		log:      log,
		registry: registry,
		blocks:   blocks,
		cursors:  cursors,
		progress: prog,
		client:   client,
		engines:  engines,
		api:      apiServer,
	}, nil
}

// Run starts every ingestion engine, the optional dedicated metrics
// listener, and blocks serving the HTTP API on cfg.Port until ctx is
// cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	for _, e := range s.engines {
		e.Start()
	}
	if s.cfg.MetricsAddr != "" {
		s.metrics = telemetry.StartMetricsEndpoint(s.cfg.MetricsAddr)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.api.ListenAndServe(":" + strconv.Itoa(s.cfg.Port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.Stop()
		return nil
	}
}

// Stop halts every ingestion engine (each exits at its next safe suspension
// point) and closes the underlying stores.
func (s *Supervisor) Stop() {
	done := make(chan struct{})
	go func() {
		for _, e := range s.engines {
			e.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.log.Warn("shutdown grace period elapsed with ingestion engines still stopping")
	}

	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.metrics.Shutdown(ctx)
		cancel()
	}

	if err := s.blocks.Close(); err != nil {
		s.log.Error("error closing block store: %v", err)
	}
	if err := s.cursors.Close(); err != nil {
		s.log.Error("error closing cursor store: %v", err)
	}
}
