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

package quorum

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/snapshot"
)

const DefaultDenominator = 100

type FractionConfig struct {
	Logger   *slog.Logger
	DB       *database.Database
	EventBus *event.EventBus
	// Supply provides the historical total weight
	Supply snapshot.WeightSource
	// Numerator is used until the first checkpoint is written
	Numerator   uint64
	Denominator uint64
}

// Fraction is a Policy requiring a fraction of the total weight at the
// snapshot height. The numerator is checkpointed so that updates only apply
// to snapshots taken after them
type Fraction struct {
	config FractionConfig
}

func NewFraction(cfg FractionConfig) (*Fraction, error) {
	if cfg.DB == nil {
		return nil, errors.New("quorum fraction: database is required")
	}
	if cfg.Supply == nil {
		return nil, errors.New("quorum fraction: weight source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Denominator == 0 {
		cfg.Denominator = DefaultDenominator
	}
	if cfg.Numerator > cfg.Denominator {
		return nil, fmt.Errorf(
			"%w: %d/%d",
			ErrInvalidQuorumFraction,
			cfg.Numerator,
			cfg.Denominator,
		)
	}
	f := &Fraction{
		config: cfg,
	}
	return f, nil
}

// Denominator returns the fixed denominator
func (f *Fraction) Denominator() uint64 {
	return f.config.Denominator
}

// Init records the configured numerator at height 0 unless a numerator
// history already exists
func (f *Fraction) Init(txn *database.Txn) error {
	return f.config.DB.Update(txn, func(txn *database.Txn) error {
		latest, err := f.config.DB.GetLatestQuorumCheckpoint(txn)
		if err != nil {
			return err
		}
		if latest != nil {
			return nil
		}
		err = f.config.DB.SetQuorumCheckpoint(
			&models.QuorumCheckpoint{
				Height:    0,
				Numerator: f.config.Numerator,
			},
			txn,
		)
		if err != nil {
			return err
		}
		if f.config.EventBus != nil {
			evt := NumeratorUpdatedEvent{
				NewNumerator: f.config.Numerator,
				Denominator:  f.config.Denominator,
			}
			txn.OnCommit(func() {
				f.config.EventBus.Publish(
					NumeratorUpdatedEventType,
					event.NewEvent(NumeratorUpdatedEventType, evt),
				)
			})
		}
		return nil
	})
}

// NumeratorAt returns the numerator in effect at height
func (f *Fraction) NumeratorAt(height uint64, txn *database.Txn) (uint64, error) {
	checkpoint, err := f.config.DB.GetQuorumCheckpoint(height, txn)
	if err != nil {
		return 0, err
	}
	if checkpoint == nil {
		return f.config.Numerator, nil
	}
	return checkpoint.Numerator, nil
}

// LatestNumerator returns the most recently set numerator
func (f *Fraction) LatestNumerator(txn *database.Txn) (uint64, error) {
	checkpoint, err := f.config.DB.GetLatestQuorumCheckpoint(txn)
	if err != nil {
		return 0, err
	}
	if checkpoint == nil {
		return f.config.Numerator, nil
	}
	return checkpoint.Numerator, nil
}

// UpdateNumerator sets the numerator from height onward
func (f *Fraction) UpdateNumerator(
	numerator uint64,
	height uint64,
	txn *database.Txn,
) error {
	if numerator > f.config.Denominator {
		return fmt.Errorf(
			"%w: %d/%d",
			ErrInvalidQuorumFraction,
			numerator,
			f.config.Denominator,
		)
	}
	return f.config.DB.Update(txn, func(txn *database.Txn) error {
		latest, err := f.config.DB.GetLatestQuorumCheckpoint(txn)
		if err != nil {
			return err
		}
		old := f.config.Numerator
		if latest != nil {
			if height < latest.Height {
				return fmt.Errorf(
					"%w: %d < %d",
					ErrHistoryImmutable,
					height,
					latest.Height,
				)
			}
			old = latest.Numerator
		}
		err = f.config.DB.SetQuorumCheckpoint(
			&models.QuorumCheckpoint{
				Height:    height,
				Numerator: numerator,
			},
			txn,
		)
		if err != nil {
			return err
		}
		evt := NumeratorUpdatedEvent{
			Height:       height,
			OldNumerator: old,
			NewNumerator: numerator,
			Denominator:  f.config.Denominator,
		}
		if f.config.EventBus != nil {
			txn.OnCommit(func() {
				f.config.EventBus.Publish(
					NumeratorUpdatedEventType,
					event.NewEvent(NumeratorUpdatedEventType, evt),
				)
			})
		}
		f.config.Logger.Info(
			fmt.Sprintf(
				"quorum numerator updated to %d/%d at height %d",
				numerator,
				f.config.Denominator,
				height,
			),
			"component", "quorum",
		)
		return nil
	})
}

// QuorumAt returns totalWeightAt(height) * numeratorAt(height) / denominator,
// rounded down
func (f *Fraction) QuorumAt(height uint64, txn *database.Txn) (uint64, error) {
	total, err := f.config.Supply.TotalWeightAt(height, txn)
	if err != nil {
		return 0, err
	}
	numerator, err := f.NumeratorAt(height, txn)
	if err != nil {
		return 0, err
	}
	return mulDiv(total, numerator, f.config.Denominator), nil
}

// mulDiv computes a*b/d without intermediate overflow. b must not exceed d
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	quo, _ := bits.Div64(hi, lo, d)
	return quo
}
