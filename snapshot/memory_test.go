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

package snapshot_test

import (
	"testing"

	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func TestMemoryWeightHistory(t *testing.T) {
	m := snapshot.NewMemory()
	require.NoError(t, m.Mint(alice, 100, 1))
	require.NoError(t, m.Transfer(alice, bob, 40, 5))
	require.NoError(t, m.Burn(bob, 10, 8))

	weight, err := m.WeightAt(alice, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), weight)
	weight, err = m.WeightAt(alice, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), weight)
	weight, err = m.WeightAt(bob, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), weight)
	weight, err = m.WeightAt(bob, 8, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), weight)

	total, err := m.TotalWeightAt(0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
	total, err = m.TotalWeightAt(7, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), total)
	total, err = m.TotalWeightAt(8, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), total)
}

func TestMemoryFutureHeight(t *testing.T) {
	m := snapshot.NewMemory()
	require.NoError(t, m.Mint(alice, 1, 3))
	_, err := m.WeightAt(alice, 4, nil)
	assert.ErrorIs(t, err, snapshot.ErrInvalidHeight)
	_, err = m.TotalWeightAt(4, nil)
	assert.ErrorIs(t, err, snapshot.ErrInvalidHeight)
	m.Advance(10)
	m.Advance(2)
	assert.Equal(t, uint64(10), m.Height())
	weight, err := m.WeightAt(alice, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), weight)
}

func TestMemoryRejectsInvalidWrites(t *testing.T) {
	m := snapshot.NewMemory()
	require.NoError(t, m.Mint(alice, 10, 5))
	assert.ErrorIs(t, m.Transfer(alice, bob, 11, 5), snapshot.ErrInsufficientWeight)
	assert.ErrorIs(t, m.Mint(bob, 1, 4), snapshot.ErrHistoryImmutable)
	// Failed writes leave no trace
	weight, err := m.WeightAt(bob, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), weight)
}
