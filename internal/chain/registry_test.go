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

package chain

import "testing"

func TestNewDefault_ListIsSortedByChainID(t *testing.T) {
	r := NewDefault()
	list := r.List()
	if len(list) == 0 {
		t.Fatalf("expected a non-empty default registry")
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].ChainID >= list[i].ChainID {
			t.Fatalf("List() not sorted at index %d: %d >= %d", i, list[i-1].ChainID, list[i].ChainID)
		}
	}
}

func TestGet_KnownAndUnknownChain(t *testing.T) {
	r := NewDefault()
	d, ok := r.Get(1)
	if !ok || d.Slug != "ethereum-mainnet" {
		t.Fatalf("Get(1) = %+v, ok=%v; want ethereum-mainnet", d, ok)
	}
	if _, ok := r.Get(999999); ok {
		t.Fatalf("Get should report ok=false for an unregistered chain id")
	}
}

func TestList_ReturnsACopy(t *testing.T) {
	r := NewDefault()
	list := r.List()
	list[0].Name = "mutated"
	fresh := r.List()
	if fresh[0].Name == "mutated" {
		t.Fatalf("List() should return a defensive copy, mutation leaked into the registry")
	}
}
