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

package badger_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/gavel/database/plugin/blob/badger"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *badger.BlobStoreBadger {
	t.Helper()
	store, err := badger.New(
		badger.WithPromRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

func TestSetGetCommit(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k1"), []byte("v1")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := store.Get(txn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	_, err = store.Get(txn, []byte("missing"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k1"), []byte("v1")))
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err := store.Get(txn, []byte("k1"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	assert.ErrorIs(
		t,
		store.Set(txn, []byte("k"), []byte("v")),
		types.ErrReadOnlyTxn,
	)
	assert.ErrorIs(t, store.Delete(txn, []byte("k")), types.ErrReadOnlyTxn)
}

func TestFinishedTxnRejected(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, txn.Commit())
	assert.Error(t, store.Set(txn, []byte("k"), []byte("v")))
	_, err := store.Get(nil, []byte("k"))
	assert.ErrorIs(t, err, types.ErrNilTxn)
}

func TestCommitMarker(t *testing.T) {
	store := newTestStore(t)
	marker, err := store.GetCommitMarker()
	require.NoError(t, err)
	assert.Equal(t, types.CommitMarker{}, marker)
	txn := store.NewTransaction(true)
	want := types.CommitMarker{Sequence: 7, Timestamp: 1700000000123}
	require.NoError(t, store.SetCommitMarker(want, txn))
	require.NoError(t, txn.Commit())
	marker, err = store.GetCommitMarker()
	require.NoError(t, err)
	assert.Equal(t, want, marker)
	assert.ErrorIs(t, store.SetCommitMarker(want, nil), types.ErrNilTxn)
}

func TestPersistentStoreWithGc(t *testing.T) {
	dataDir := t.TempDir()
	store, err := badger.New(
		badger.WithDataDir(dataDir),
		badger.WithCacheSize(1<<20),
		badger.WithGcInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("bundle"), []byte("payload")))
	require.NoError(t, txn.Commit())
	// Let at least one GC pass run
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, store.Close())

	store, err = badger.New(badger.WithDataDir(dataDir), badger.WithGcInterval(0))
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := store.Get(txn, []byte("bundle"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), val)
}
