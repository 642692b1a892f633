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

package sqd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHead_ParsesBareIntegerBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "12345\n")
	}))
	defer srv.Close()

	client, err := NewClient([]string{srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	head, err := client.Head(context.Background(), "ethereum-mainnet")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != 12345 {
		t.Fatalf("Head = %d, want 12345", head)
	}
}

func TestHead_ParsesJSONObjectBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number": 99999}`)
	}))
	defer srv.Close()

	client, err := NewClient([]string{srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	head, err := client.Head(context.Background(), "ethereum-mainnet")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != 99999 {
		t.Fatalf("Head = %d, want 99999", head)
	}
}

func TestHead_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient([]string{srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Head(context.Background(), "ethereum-mainnet"); err == nil {
		t.Fatalf("expected Head to fail on a 500 response")
	}
}

func TestStream_DecodesEachNDJSONLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"number": 1, "timestamp": 10, "extra": "ignored"}`)
		fmt.Fprintln(w, `{"number": 2, "timestamp": 20}`)
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, `{"number": 3, "timestamp": 30}`)
	}))
	defer srv.Close()

	client, err := NewClient([]string{srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	var got []Block
	err = client.Stream(context.Background(), "ethereum-mainnet", 1, 3, func(b Block) error {
		got = append(got, b)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(got) != 3 || got[0].Number != 1 || got[2].Timestamp != 30 {
		t.Fatalf("decoded blocks = %+v", got)
	}
}

func TestStream_StopsOnCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"number": 1, "timestamp": 10}`)
		fmt.Fprintln(w, `{"number": 2, "timestamp": 20}`)
	}))
	defer srv.Close()

	client, err := NewClient([]string{srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	boom := fmt.Errorf("boom")
	callCount := 0
	err = client.Stream(context.Background(), "ethereum-mainnet", 1, 2, func(b Block) error {
		callCount++
		return boom
	})
	if err != boom {
		t.Fatalf("Stream returned %v, want the callback's own error", err)
	}
	if callCount != 1 {
		t.Fatalf("callback invoked %d times, want exactly 1", callCount)
	}
}

func TestMirrorFor_RoutesConsistently(t *testing.T) {
	client, err := NewClient([]string{"https://a.example", "https://b.example", "https://c.example"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	first := client.mirrorFor("ethereum-mainnet")
	for i := 0; i < 10; i++ {
		if got := client.mirrorFor("ethereum-mainnet"); got != first {
			t.Fatalf("mirrorFor is not deterministic for a fixed slug: got %q, want %q", got, first)
		}
	}
}
