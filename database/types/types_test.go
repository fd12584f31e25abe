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

package types_test

import (
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/blinklabs-io/gavel/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesScanValue(t *testing.T) {
	testDefs := []struct {
		origValue     any
		expectedValue any
	}{
		{
			origValue: func(v types.Uint64) *types.Uint64 { return &v }(
				types.Uint64(123),
			),
			expectedValue: "123",
		},
		{
			origValue: func(v types.Uint64) *types.Uint64 { return &v }(
				types.Uint64(18446744073709551615),
			),
			expectedValue: "18446744073709551615",
		},
	}
	for _, testDef := range testDefs {
		tmpValuer, ok := testDef.origValue.(driver.Valuer)
		require.True(t, ok, "test original value does not implement driver.Valuer")
		valueOut, err := tmpValuer.Value()
		require.NoError(t, err)
		assert.Equal(t, testDef.expectedValue, valueOut)
		tmpScanner, ok := testDef.origValue.(sql.Scanner)
		require.True(t, ok, "test original value does not implement sql.Scanner")
		require.NoError(t, tmpScanner.Scan(valueOut))
	}
}

func TestUint64ScanRejectsNonString(t *testing.T) {
	var u types.Uint64
	assert.Error(t, u.Scan(int64(5)))
	assert.Error(t, u.Scan("not-a-number"))
}

func TestBundleKeys(t *testing.T) {
	id := []byte{0xaa, 0xbb}
	assert.Equal(
		t,
		[]byte{'g', 'p', 0xaa, 0xbb, 0, 0, 0, 2},
		types.ProposalBundleKey(id, 2),
	)
	assert.Equal(
		t,
		[]byte{'g', 'o', 0xaa, 0xbb},
		types.OperationBundleKey(id),
	)
}

func TestCommitMarkerBytes(t *testing.T) {
	marker := types.CommitMarker{Sequence: 42, Timestamp: 1700000000123}
	parsed, err := types.ParseCommitMarker(marker.Bytes())
	require.NoError(t, err)
	assert.Equal(t, marker, parsed)
	assert.Equal(t, "#42@1700000000123", marker.String())
	_, err = types.ParseCommitMarker([]byte{1, 2, 3})
	assert.Error(t, err)
}
