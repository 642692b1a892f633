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

// Package telemetry registers the Prometheus metrics emitted by ingestion
// and lookup, and can optionally serve them on a dedicated listener.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// IngestGap is the current (head - cursor) block gap, per chain slug.
	IngestGap = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kizami_ingest_gap_blocks",
		Help: "Blocks between the current cursor and the last probed head",
	}, []string{"chain"})

	// IngestHead is the last probed head height, per chain slug.
	IngestHead = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kizami_ingest_head_block",
		Help: "Last probed upstream head block number",
	}, []string{"chain"})

	// IngestCyclesTotal counts completed (non-empty) ingestion cycles.
	IngestCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kizami_ingest_cycles_total",
		Help: "Total ingestion cycles that persisted at least one block",
	}, []string{"chain"})

	// IngestBatchSize observes how many blocks a single cycle fetched.
	IngestBatchSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kizami_ingest_batch_size",
		Help:    "Number of blocks persisted per ingestion cycle",
		Buckets: []float64{1, 10, 100, 1_000, 5_000, 10_000, 25_000, 50_000},
	}, []string{"chain"})

	// IngestUpstreamErrors counts SQD Portal head/stream failures absorbed by a cycle.
	IngestUpstreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kizami_ingest_upstream_errors_total",
		Help: "Total upstream (SQD Portal) errors absorbed during ingestion",
	}, []string{"chain"})

	// IngestStorageErrors counts block-store or cursor-store write failures.
	IngestStorageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kizami_ingest_storage_errors_total",
		Help: "Total storage errors absorbed during ingestion",
	}, []string{"chain"})

	// LookupRequestsTotal counts lookup requests by chain, direction, and outcome.
	LookupRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kizami_lookup_requests_total",
		Help: "Total block-by-timestamp lookup requests",
	}, []string{"chain", "direction", "outcome"})

	// LookupLatency observes end-to-end lookup handler latency.
	LookupLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kizami_lookup_latency_seconds",
		Help:    "Lookup request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"chain"})
)

func init() {
	prometheus.MustRegister(
		IngestGap, IngestHead, IngestCyclesTotal, IngestBatchSize,
		IngestUpstreamErrors, IngestStorageErrors,
		LookupRequestsTotal, LookupLatency,
	)
}

// StartMetricsEndpoint serves /metrics on addr in the background, on a
// listener separate from the main API port. The main API mux serves /metrics
// as well, whether or not this listener is started.
func StartMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
	return server
}
