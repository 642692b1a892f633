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

// Package sqd implements the client for SQD Portal's finalized-block feed:
// a head probe and a streaming NDJSON block-range fetch.
package sqd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"kizami/internal/errs"
)

const (
	headTimeout   = 60 * time.Second
	streamTimeout = 300 * time.Second

	// maxLineSize bounds a single NDJSON line; well above any realistic
	// {number, timestamp, ...} record but still well short of unbounded.
	maxLineSize = 1 << 20
)

// Block is one (number, timestamp) pair read off the NDJSON stream.
type Block struct {
	Number    uint64
	Timestamp uint64
}

// wireBlock is the subset of fields kizami reads off each NDJSON line.
// encoding/json ignores any other fields the vendor includes.
type wireBlock struct {
	Number    uint64 `json:"number"`
	Timestamp uint64 `json:"timestamp"`
}

// Client talks to one or more SQD Portal mirrors.
type Client struct {
	httpClient *http.Client
	mirrors    []string
	router     *rendezvous.Rendezvous
}

// NewClient builds a Client over the given portal base URLs. When more than
// one mirror is configured, each chain slug is consistently routed to one
// mirror via rendezvous hashing, so a mirror going away only
// reshuffles the slugs it was serving. With a single URL this always
// resolves to that URL.
func NewClient(mirrors []string) (*Client, error) {
	if len(mirrors) == 0 {
		return nil, fmt.Errorf("sqd.NewClient: at least one portal URL is required")
	}
	trimmed := make([]string, len(mirrors))
	for i, m := range mirrors {
		trimmed[i] = strings.TrimRight(m, "/")
	}
	return &Client{
		httpClient: &http.Client{},
		mirrors:    trimmed,
		router:     rendezvous.New(trimmed, hashMirror),
	}, nil
}

func hashMirror(s string) uint64 {
	return xxhash.Sum64String(s)
}

// mirrorFor picks the mirror a given chain slug is routed to.
func (c *Client) mirrorFor(slug string) string {
	if len(c.mirrors) == 1 {
		return c.mirrors[0]
	}
	return c.router.Get(slug)
}

// Head fetches the current finalized block height for slug.
func (c *Client) Head(ctx context.Context, slug string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, headTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/head", c.mirrorFor(slug), slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errs.New(errs.Upstream, "sqd.Head", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errs.New(errs.Upstream, "sqd.Head", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, errs.New(errs.Upstream, "sqd.Head", fmt.Errorf("upstream returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLineSize))
	if err != nil {
		return 0, errs.New(errs.Upstream, "sqd.Head", err)
	}

	height, err := parseHead(body)
	if err != nil {
		return 0, errs.New(errs.Upstream, "sqd.Head", err)
	}
	return height, nil
}

// parseHead accepts either a bare decimal integer or a JSON object with a
// "number" field, the two plausible shapes a head endpoint might return.
func parseHead(body []byte) (uint64, error) {
	trimmed := bytes.TrimSpace(body)
	if n, err := strconv.ParseUint(string(trimmed), 10, 64); err == nil {
		return n, nil
	}
	var obj struct {
		Number uint64 `json:"number"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return 0, fmt.Errorf("malformed head response: %w", err)
	}
	return obj.Number, nil
}

// streamRequest is the JSON body kizami sends to select a block-number range
// and request the number/timestamp fields.
type streamRequest struct {
	FromBlock uint64       `json:"fromBlock"`
	ToBlock   uint64       `json:"toBlock"`
	Fields    streamFields `json:"fields"`
}

type streamFields struct {
	Block blockFields `json:"block"`
}

type blockFields struct {
	Number    bool `json:"number"`
	Timestamp bool `json:"timestamp"`
}

// Stream opens the NDJSON finalized-block feed for [from, to] and invokes fn
// once per decoded line. Parsing is strictly line-by-line via bufio.Scanner
// over the live response body — the batch can be up to 50,000 records and
// must never require buffering the whole response.
//
// fn returning an error stops the stream and is propagated unwrapped so
// ingestion can distinguish "my own error" from an Upstream failure.
func (c *Client) Stream(ctx context.Context, slug string, from, to uint64, fn func(Block) error) error {
	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	reqBody, err := json.Marshal(streamRequest{
		FromBlock: from,
		ToBlock:   to,
		Fields:    streamFields{Block: blockFields{Number: true, Timestamp: true}},
	})
	if err != nil {
		return errs.New(errs.Upstream, "sqd.Stream", err)
	}

	url := fmt.Sprintf("%s/%s/stream", c.mirrorFor(slug), slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return errs.New(errs.Upstream, "sqd.Stream", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.New(errs.Upstream, "sqd.Stream", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.New(errs.Upstream, "sqd.Stream", fmt.Errorf("upstream returned status %d", resp.StatusCode))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return errs.New(errs.Upstream, "sqd.Stream", ctx.Err())
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var wb wireBlock
		if err := json.Unmarshal(line, &wb); err != nil {
			return errs.New(errs.Upstream, "sqd.Stream", fmt.Errorf("malformed NDJSON line: %w", err))
		}
		if err := fn(Block{Number: wb.Number, Timestamp: wb.Timestamp}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errs.New(errs.Upstream, "sqd.Stream", err)
	}
	return nil
}
