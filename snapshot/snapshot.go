// Copyright 2025 Blink Labs Software
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

// Package snapshot records voting weight as checkpointed history so that
// weight can be queried at any past height
package snapshot

import (
	"errors"

	"github.com/blinklabs-io/gavel/database"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidHeight      = errors.New("height is in the future")
	ErrHistoryImmutable   = errors.New("weight history below the current height is immutable")
	ErrInsufficientWeight = errors.New("insufficient weight")
	ErrWeightOverflow     = errors.New("weight overflow")
)

const WeightChangedEventType = "snapshot.weight_changed"

// WeightChangedEvent is published when the weight of an account changes
type WeightChangedEvent struct {
	Account  common.Address `json:"account"`
	Height   uint64         `json:"height"`
	Previous uint64         `json:"previous"`
	Current  uint64         `json:"current"`
}

// WeightSource answers historical weight queries. Implementations return
// ErrInvalidHeight for heights above the current height. The transaction
// may be nil
type WeightSource interface {
	WeightAt(account common.Address, height uint64, txn *database.Txn) (uint64, error)
	TotalWeightAt(height uint64, txn *database.Txn) (uint64, error)
}
