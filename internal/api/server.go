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

// Package api implements the public-facing HTTP server for kizami: chain
// listing, block-by-timestamp lookups, indexing status, and health/metrics.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kizami/internal/chain"
	"kizami/internal/errs"
	"kizami/internal/logging"
	"kizami/internal/lookup"
	"kizami/internal/store"
	"kizami/internal/telemetry"
)

// Server handles kizami's public HTTP surface.
type Server struct {
	registry *chain.Registry
	lookup   *lookup.Service
	log      *logging.Logger
}

// NewServer builds a Server over the given registry and lookup service.
func NewServer(registry *chain.Registry, lookupSvc *lookup.Service, log *logging.Logger) *Server {
	return &Server{registry: registry, lookup: lookupSvc, log: log}
}

// RegisterRoutes mounts every handler on mux using Go 1.22+ method+pattern routing.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", promhttp.Handler().ServeHTTP)
	mux.HandleFunc("GET /v1/chains", s.handleListChains)
	mux.HandleFunc("GET /v1/chains/{chainId}", s.handleGetChain)
	mux.HandleFunc("GET /v1/chains/{chainId}/block/before/{timestamp}", s.handleBlockQuery(store.Before))
	mux.HandleFunc("GET /v1/chains/{chainId}/block/after/{timestamp}", s.handleBlockQuery(store.After))
	mux.HandleFunc("GET /v1/indexing-status", s.handleIndexingStatus)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.log.Info("kizami API server listening on %s", addr)
	return httpServer.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chainResponse struct {
	ChainID uint32 `json:"chainId"`
	Slug    string `json:"slug"`
	Name    string `json:"name"`
}

func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	descriptors := s.registry.List()
	out := make([]chainResponse, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, chainResponse{ChainID: d.ChainID, Slug: d.Slug, Name: d.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	chainID, err := parseChainID(r)
	if err != nil {
		writeError(w, errs.New(errs.BadInput, "api.handleGetChain", err))
		return
	}
	d, ok := s.registry.Get(chainID)
	if !ok {
		writeError(w, errs.New(errs.NotFound, "api.handleGetChain", errUnknownChain(chainID)))
		return
	}
	writeJSON(w, http.StatusOK, chainResponse{ChainID: d.ChainID, Slug: d.Slug, Name: d.Name})
}

type blockResponse struct {
	ChainID       uint32    `json:"chainId"`
	Number        uint64    `json:"number"`
	Timestamp     uint64    `json:"timestamp"`
	IndexedUpTo   uint64    `json:"indexedUpTo"`
	Head          uint64    `json:"head"`
	HeadFetchedAt time.Time `json:"headFetchedAt"`
}

func (s *Server) handleBlockQuery(direction store.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		chainID, err := parseChainID(r)
		if err != nil {
			writeError(w, errs.New(errs.BadInput, "api.handleBlockQuery", err))
			return
		}
		timestamp, err := strconv.ParseUint(r.PathValue("timestamp"), 10, 64)
		if err != nil {
			writeError(w, errs.New(errs.BadInput, "api.handleBlockQuery", err))
			return
		}
		inclusive := r.URL.Query().Get("inclusive") != "false"

		result, err := s.lookup.Find(chainID, timestamp, direction, inclusive)
		label := directionLabel(direction)
		if err != nil {
			telemetry.LookupRequestsTotal.WithLabelValues(chainLabel(chainID), label, errs.KindOf(err).String()).Inc()
			telemetry.LookupLatency.WithLabelValues(chainLabel(chainID)).Observe(time.Since(start).Seconds())
			writeError(w, err)
			return
		}
		telemetry.LookupRequestsTotal.WithLabelValues(chainLabel(chainID), label, "ok").Inc()
		telemetry.LookupLatency.WithLabelValues(chainLabel(chainID)).Observe(time.Since(start).Seconds())

		writeJSON(w, http.StatusOK, blockResponse{
			ChainID:       result.ChainID,
			Number:        result.Number,
			Timestamp:     result.Timestamp,
			IndexedUpTo:   result.Cursor,
			Head:          result.Head,
			HeadFetchedAt: result.HeadFetchedAt,
		})
	}
}

type statusResponse struct {
	ChainID       uint32    `json:"chainId"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	IndexedUpTo   uint64    `json:"indexedUpTo"`
	Head          uint64    `json:"head"`
	HeadFetchedAt time.Time `json:"headFetchedAt"`
	Ready         bool      `json:"ready"`
}

func (s *Server) handleIndexingStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.lookup.IndexingStatus()
	out := make([]statusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, statusResponse{
			ChainID: st.ChainID, Slug: st.Slug, Name: st.Name,
			IndexedUpTo: st.Cursor, Head: st.Head, HeadFetchedAt: st.HeadFetchedAt, Ready: st.Ready,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseChainID(r *http.Request) (uint32, error) {
	n, err := strconv.ParseUint(r.PathValue("chainId"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func directionLabel(d store.Direction) string {
	if d == store.After {
		return "after"
	}
	return "before"
}

func chainLabel(chainID uint32) string {
	return strconv.FormatUint(uint64(chainID), 10)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	writeJSON(w, kind.HTTPStatus(), errorResponse{Error: err.Error()})
}
