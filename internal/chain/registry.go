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

// Package chain holds the frozen chain registry: chainId -> (slug, name).
// Pure in-memory data, no I/O.
package chain

import "sort"

// Descriptor describes one supported chain.
type Descriptor struct {
	ChainID uint32 `json:"chainId"`
	Slug    string `json:"slug"`
	Name    string `json:"name"`
}

// Registry is a frozen chainId -> Descriptor table.
type Registry struct {
	byID map[uint32]Descriptor
	list []Descriptor
}

// defaultChains is the built-in, representative multi-chain table kizami
// ships with. A real deployment could load this from a file instead; the
// registry's contents are static configuration, not this package's concern.
var defaultChains = []Descriptor{
	{ChainID: 1, Slug: "ethereum-mainnet", Name: "Ethereum Mainnet"},
	{ChainID: 10, Slug: "optimism-mainnet", Name: "OP Mainnet"},
	{ChainID: 56, Slug: "binance-mainnet", Name: "BNB Smart Chain"},
	{ChainID: 137, Slug: "polygon-mainnet", Name: "Polygon PoS"},
	{ChainID: 8453, Slug: "base-mainnet", Name: "Base"},
	{ChainID: 42161, Slug: "arbitrum-one", Name: "Arbitrum One"},
}

// New builds a Registry from an explicit descriptor list.
func New(descriptors []Descriptor) *Registry {
	r := &Registry{
		byID: make(map[uint32]Descriptor, len(descriptors)),
		list: make([]Descriptor, len(descriptors)),
	}
	copy(r.list, descriptors)
	sort.Slice(r.list, func(i, j int) bool { return r.list[i].ChainID < r.list[j].ChainID })
	for _, d := range r.list {
		r.byID[d.ChainID] = d
	}
	return r
}

// NewDefault builds a Registry from kizami's built-in chain table.
func NewDefault() *Registry {
	return New(defaultChains)
}

// List returns every registered chain, sorted by chainId.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.list))
	copy(out, r.list)
	return out
}

// Get looks up a chain by id.
func (r *Registry) Get(chainID uint32) (Descriptor, bool) {
	d, ok := r.byID[chainID]
	return d, ok
}
