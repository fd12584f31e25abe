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
	"math/bits"
	"sync"

	"github.com/blinklabs-io/gavel/database"
	"github.com/ethereum/go-ethereum/common"
)

// Memory is a WeightSource kept entirely in memory. Writes are not
// transactional, so it suits weight sources that are populated ahead of
// time and only read by governance
type Memory struct {
	accounts map[common.Address]*Trace
	total    Trace
	height   uint64
	mutex    sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[common.Address]*Trace),
	}
}

// Advance moves the current height forward. Moving backward is a no-op
func (m *Memory) Advance(height uint64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if height > m.height {
		m.height = height
	}
}

// Height returns the current height
func (m *Memory) Height() uint64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.height
}

// Transfer moves weight between accounts at height, which becomes the
// current height. The zero address on either side mints or burns
func (m *Memory) Transfer(from, to common.Address, amount uint64, height uint64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if height < m.height {
		return ErrHistoryImmutable
	}
	m.height = height
	zero := common.Address{}
	if from == to || amount == 0 {
		return nil
	}
	// Validate both sides before writing anything
	var fromWeight, toWeight uint64
	if from != zero {
		fromWeight = m.trace(from).UpperLookup(height)
		if fromWeight < amount {
			return ErrInsufficientWeight
		}
	} else {
		if _, carry := bits.Add64(m.total.UpperLookup(height), amount, 0); carry != 0 {
			return ErrWeightOverflow
		}
	}
	if to != zero {
		var carry uint64
		toWeight, carry = bits.Add64(m.trace(to).UpperLookup(height), amount, 0)
		if carry != 0 {
			return ErrWeightOverflow
		}
	}
	if from != zero {
		if err := m.trace(from).Push(height, fromWeight-amount); err != nil {
			return err
		}
	} else {
		if err := m.total.Push(height, m.total.UpperLookup(height)+amount); err != nil {
			return err
		}
	}
	if to != zero {
		if err := m.trace(to).Push(height, toWeight); err != nil {
			return err
		}
	} else {
		if err := m.total.Push(height, m.total.UpperLookup(height)-amount); err != nil {
			return err
		}
	}
	return nil
}

// Mint creates weight for an account at height
func (m *Memory) Mint(to common.Address, amount uint64, height uint64) error {
	return m.Transfer(common.Address{}, to, amount, height)
}

// Burn destroys weight of an account at height
func (m *Memory) Burn(from common.Address, amount uint64, height uint64) error {
	return m.Transfer(from, common.Address{}, amount, height)
}

func (m *Memory) trace(account common.Address) *Trace {
	t, ok := m.accounts[account]
	if !ok {
		t = &Trace{}
		m.accounts[account] = t
	}
	return t
}

// WeightAt returns the weight of an account at height. The transaction is ignored
func (m *Memory) WeightAt(account common.Address, height uint64, _ *database.Txn) (uint64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if height > m.height {
		return 0, ErrInvalidHeight
	}
	t, ok := m.accounts[account]
	if !ok {
		return 0, nil
	}
	return t.UpperLookup(height), nil
}

// TotalWeightAt returns the total weight at height. The transaction is ignored
func (m *Memory) TotalWeightAt(height uint64, _ *database.Txn) (uint64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if height > m.height {
		return 0, ErrInvalidHeight
	}
	return m.total.UpperLookup(height), nil
}
