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

package snapshot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/event"
	"github.com/ethereum/go-ethereum/common"
)

type StoreConfig struct {
	Logger   *slog.Logger
	DB       *database.Database
	EventBus *event.EventBus
}

// Store is a WeightSource persisted in the metadata database. Writes are
// only accepted at the current tip height
type Store struct {
	config StoreConfig
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.DB == nil {
		return nil, errors.New("snapshot store: database is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Store{
		config: cfg,
	}
	return s, nil
}

// currentHeight returns the tip height, or 0 before the first block
func (s *Store) currentHeight(txn *database.Txn) (uint64, error) {
	tip, _, err := s.config.DB.GetTip(txn)
	if err != nil {
		return 0, err
	}
	return tip.Height, nil
}

// WeightAt returns the weight of account at height
func (s *Store) WeightAt(
	account common.Address,
	height uint64,
	txn *database.Txn,
) (uint64, error) {
	var ret uint64
	err := s.config.DB.View(txn, func(txn *database.Txn) error {
		current, err := s.currentHeight(txn)
		if err != nil {
			return err
		}
		if height > current {
			return fmt.Errorf("%w: %d > %d", ErrInvalidHeight, height, current)
		}
		checkpoint, err := s.config.DB.GetWeightCheckpoint(account.Bytes(), height, txn)
		if err != nil {
			return err
		}
		if checkpoint != nil {
			ret = uint64(checkpoint.Weight)
		}
		return nil
	})
	return ret, err
}

// TotalWeightAt returns the total weight in existence at height
func (s *Store) TotalWeightAt(height uint64, txn *database.Txn) (uint64, error) {
	var ret uint64
	err := s.config.DB.View(txn, func(txn *database.Txn) error {
		current, err := s.currentHeight(txn)
		if err != nil {
			return err
		}
		if height > current {
			return fmt.Errorf("%w: %d > %d", ErrInvalidHeight, height, current)
		}
		checkpoint, err := s.config.DB.GetSupplyCheckpoint(height, txn)
		if err != nil {
			return err
		}
		if checkpoint != nil {
			ret = uint64(checkpoint.Total)
		}
		return nil
	})
	return ret, err
}

// History returns every checkpoint of an account, oldest first
func (s *Store) History(account common.Address, txn *database.Txn) ([]Checkpoint, error) {
	rows, err := s.config.DB.GetWeightHistory(account.Bytes(), txn)
	if err != nil {
		return nil, err
	}
	ret := make([]Checkpoint, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, Checkpoint{Height: row.Height, Value: uint64(row.Weight)})
	}
	return ret, nil
}

// Mint creates weight for an account at height
func (s *Store) Mint(
	to common.Address,
	amount uint64,
	height uint64,
	txn *database.Txn,
) error {
	return s.Transfer(common.Address{}, to, amount, height, txn)
}

// Burn destroys weight of an account at height
func (s *Store) Burn(
	from common.Address,
	amount uint64,
	height uint64,
	txn *database.Txn,
) error {
	return s.Transfer(from, common.Address{}, amount, height, txn)
}

// Transfer moves weight between accounts at height, which must be the tip
// height. The zero address on either side mints or burns
func (s *Store) Transfer(
	from, to common.Address,
	amount uint64,
	height uint64,
	txn *database.Txn,
) error {
	return s.config.DB.Update(txn, func(txn *database.Txn) error {
		current, err := s.currentHeight(txn)
		if err != nil {
			return err
		}
		if height > current {
			return fmt.Errorf("%w: %d > %d", ErrInvalidHeight, height, current)
		}
		if height < current {
			return fmt.Errorf("%w: %d < %d", ErrHistoryImmutable, height, current)
		}
		if from == to || amount == 0 {
			return nil
		}
		zero := common.Address{}
		var changes []WeightChangedEvent
		if from != zero {
			prev, err := s.latestWeight(from, txn)
			if err != nil {
				return err
			}
			if prev < amount {
				return fmt.Errorf(
					"%w: %s has %d, needs %d",
					ErrInsufficientWeight,
					from.Hex(),
					prev,
					amount,
				)
			}
			changes = append(changes, WeightChangedEvent{
				Account:  from,
				Height:   height,
				Previous: prev,
				Current:  prev - amount,
			})
		}
		if to != zero {
			prev, err := s.latestWeight(to, txn)
			if err != nil {
				return err
			}
			next, carry := bits.Add64(prev, amount, 0)
			if carry != 0 {
				return ErrWeightOverflow
			}
			changes = append(changes, WeightChangedEvent{
				Account:  to,
				Height:   height,
				Previous: prev,
				Current:  next,
			})
		}
		if from == zero || to == zero {
			if err := s.adjustSupply(from == zero, amount, height, txn); err != nil {
				return err
			}
		}
		for _, change := range changes {
			err := s.config.DB.SetWeightCheckpoint(
				&models.WeightCheckpoint{
					Account: change.Account.Bytes(),
					Height:  change.Height,
					Weight:  types.Uint64(change.Current),
				},
				txn,
			)
			if err != nil {
				return err
			}
		}
		if s.config.EventBus != nil {
			txn.OnCommit(func() {
				for _, change := range changes {
					s.config.EventBus.Publish(
						WeightChangedEventType,
						event.NewEvent(WeightChangedEventType, change),
					)
				}
			})
		}
		s.config.Logger.Debug(
			"weight transferred",
			"component", "snapshot",
			"from", from.Hex(),
			"to", to.Hex(),
			"amount", amount,
			"height", height,
		)
		return nil
	})
}

func (s *Store) latestWeight(account common.Address, txn *database.Txn) (uint64, error) {
	checkpoint, err := s.config.DB.GetLatestWeightCheckpoint(account.Bytes(), txn)
	if err != nil {
		return 0, err
	}
	if checkpoint == nil {
		return 0, nil
	}
	return uint64(checkpoint.Weight), nil
}

func (s *Store) adjustSupply(mint bool, amount uint64, height uint64, txn *database.Txn) error {
	var total uint64
	checkpoint, err := s.config.DB.GetLatestSupplyCheckpoint(txn)
	if err != nil {
		return err
	}
	if checkpoint != nil {
		total = uint64(checkpoint.Total)
	}
	if mint {
		var carry uint64
		total, carry = bits.Add64(total, amount, 0)
		if carry != 0 {
			return ErrWeightOverflow
		}
	} else {
		if total < amount {
			return ErrInsufficientWeight
		}
		total -= amount
	}
	return s.config.DB.SetSupplyCheckpoint(
		&models.SupplyCheckpoint{
			Height: height,
			Total:  types.Uint64(total),
		},
		txn,
	)
}
