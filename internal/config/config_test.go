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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gavel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
governor:
  votingDelay: 5
  votingPeriod: 100
  quorumNumerator: 10
  snapshotPolicy: voting_start
  counting: quadratic
timelock:
  enabled: true
  minDelay: 120
  proposers:
    - "0x00000000000000000000000000000000000060a1"
genesis:
  timestamp: 1000
  allocations:
    - account: "0x00000000000000000000000000000000000a11ce"
      amount: 100
journal: file:///tmp/gavel.jsonl
apiPort: 9000
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	expected := DefaultConfig()
	expected.Governor.VotingDelay = 5
	expected.Governor.VotingPeriod = 100
	expected.Governor.QuorumNumerator = 10
	expected.Governor.SnapshotPolicy = SnapshotPolicyVotingStart
	expected.Governor.Counting = "quadratic"
	expected.Timelock.Enabled = true
	expected.Timelock.MinDelay = 120
	expected.Timelock.Proposers = []string{"0x00000000000000000000000000000000000060a1"}
	expected.Genesis = GenesisConfig{
		Timestamp: 1000,
		Allocations: []AllocationConfig{
			{Account: "0x00000000000000000000000000000000000a11ce", Amount: 100},
		},
	}
	expected.Journal = "file:///tmp/gavel.jsonl"
	expected.ApiPort = 9000
	assert.Equal(t, expected, cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "governor:\n  votingPeriod: 100\n")
	t.Setenv("GAVEL_GOVERNOR_VOTING_PERIOD", "200")
	t.Setenv("GAVEL_TIMELOCK_ENABLED", "true")
	t.Setenv("GAVEL_API_PORT", "9100")
	t.Setenv("GAVEL_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("GAVEL_METADATA_DSN", "postgres://gavel@db/gavel")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), cfg.Governor.VotingPeriod)
	assert.True(t, cfg.Timelock.Enabled)
	assert.Equal(t, uint(9100), cfg.ApiPort)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeoutDuration())
	assert.Equal(t, "postgres://gavel@db/gavel", cfg.MetadataDsn)
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "numerator above denominator", content: "governor:\n  quorumNumerator: 101\n"},
		{name: "zero denominator", content: "governor:\n  quorumDenominator: 0\n"},
		{name: "snapshot policy", content: "governor:\n  snapshotPolicy: latest\n"},
		{name: "canceler", content: "governor:\n  canceler: bob\n"},
		{name: "proposer", content: "timelock:\n  proposers: [nobody]\n"},
		{name: "shutdown timeout", content: "shutdownTimeout: soon\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
	_, err := LoadConfig(writeConfig(t, "governor: [\n"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIsEncrypted(t *testing.T) {
	encrypted, err := IsEncrypted([]byte("governor:\n  votingDelay: 1\nsops:\n  version: 3.11.0\n"))
	require.NoError(t, err)
	assert.True(t, encrypted)
	encrypted, err = IsEncrypted([]byte("governor:\n  votingDelay: 1\n"))
	require.NoError(t, err)
	assert.False(t, encrypted)
}

func TestEncryptRequiresKeys(t *testing.T) {
	t.Setenv("GAVEL_GCP_KMS_RESOURCE_ID", "")
	t.Setenv("GAVEL_AWS_KMS_KEY_ARNS", "")
	_, err := Encrypt([]byte("governor:\n  votingDelay: 1\n"))
	assert.Error(t, err)
	_, err = Encrypt([]byte("sops:\n  version: 3.11.0\n"))
	assert.ErrorIs(t, err, ErrAlreadyEncrypted)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
