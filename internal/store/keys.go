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

// Package store implements the block keyspace and cursor keyspace: an
// ordered, big-endian-encoded key layout that lets four asymmetric range
// queries resolve to a single bounded scan.
package store

import "encoding/binary"

// keyLen is chain_id(4) + timestamp(8) + number(8), all big-endian.
const keyLen = 4 + 8 + 8

// encodeKey builds the 20-byte block key. Big-endian encoding makes
// lexicographic byte order equal numeric (chainID, timestamp, number) order.
func encodeKey(chainID uint32, timestamp, number uint64) []byte {
	buf := make([]byte, keyLen)
	binary.BigEndian.PutUint32(buf[0:4], chainID)
	binary.BigEndian.PutUint64(buf[4:12], timestamp)
	binary.BigEndian.PutUint64(buf[12:20], number)
	return buf
}

// decodeKey reverses encodeKey. The caller must pass exactly keyLen bytes.
func decodeKey(key []byte) (chainID uint32, timestamp, number uint64, ok bool) {
	if len(key) != keyLen {
		return 0, 0, 0, false
	}
	chainID = binary.BigEndian.Uint32(key[0:4])
	timestamp = binary.BigEndian.Uint64(key[4:12])
	number = binary.BigEndian.Uint64(key[12:20])
	return chainID, timestamp, number, true
}

const maxUint64 = ^uint64(0)
