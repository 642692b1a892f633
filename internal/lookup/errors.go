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

package lookup

import "fmt"

func errUnknownChain(chainID uint32) error {
	return fmt.Errorf("chain %d is not registered", chainID)
}

func errNotReady(chainID uint32) error {
	return fmt.Errorf("chain %d has not completed its first ingestion cycle", chainID)
}

func errNoMatch(chainID uint32, timestamp uint64) error {
	return fmt.Errorf("no block satisfies the query for chain %d at timestamp %d", chainID, timestamp)
}
