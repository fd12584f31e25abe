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

package mysql_test

import (
	"os"
	"testing"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/plugin/metadata/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresURL(t *testing.T) {
	store, err := mysql.New("", nil, nil)
	assert.Nil(t, store)
	assert.ErrorIs(t, err, mysql.ErrMissingURL)
}

func TestParseURL(t *testing.T) {
	cfg, err := mysql.ParseURL("mysql://gavel:secret@db/governance?tls=skip-verify")
	require.NoError(t, err)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "governance", cfg.DBName)
	assert.Equal(t, "gavel", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "skip-verify", cfg.Params["tls"])

	cfg, err = mysql.ParseURL("mysql://gavel@db:3307/governance")
	require.NoError(t, err)
	assert.Equal(t, "db:3307", cfg.Addr)
	assert.Empty(t, cfg.Passwd)

	testDefs := []string{
		"postgres://gavel@db/governance",
		"mysql://gavel@db",
		"mysql:///governance",
	}
	for _, rawURL := range testDefs {
		_, err := mysql.ParseURL(rawURL)
		assert.ErrorIs(t, err, mysql.ErrInvalidURL, rawURL)
	}
}

// Runs against a live server when GAVEL_TEST_MYSQL_URL is set
func TestMysqlTipRoundTrip(t *testing.T) {
	rawURL := os.Getenv("GAVEL_TEST_MYSQL_URL")
	if rawURL == "" {
		t.Skip("GAVEL_TEST_MYSQL_URL not set")
	}
	store, err := mysql.New(rawURL, nil, nil)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	txn := store.Transaction()
	require.NoError(t, store.SetTip(&models.Tip{Height: 7, Timestamp: 70}, txn))
	require.NoError(t, txn.Rollback())
	txn = store.Transaction()
	require.NoError(t, store.SetTip(&models.Tip{Height: 9, Timestamp: 90}, txn))
	require.NoError(t, txn.Commit())
	tip, err := store.GetTip(nil)
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, uint64(9), tip.Height)
}
