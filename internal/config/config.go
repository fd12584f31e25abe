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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "gavel.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultGovernorAddress = "0x00000000000000000000000000000000000060a1"
	DefaultTimelockAddress = "0x000000000000000000000000000000000000f1e1"
)

const (
	SnapshotPolicyCreation    = "creation"
	SnapshotPolicyVotingStart = "voting_start"
)

var ErrInvalidConfig = errors.New("invalid config")

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type GovernorConfig struct {
	Address           string `yaml:"address"           split_words:"true"`
	VotingDelay       uint64 `yaml:"votingDelay"       split_words:"true"`
	VotingPeriod      uint64 `yaml:"votingPeriod"      split_words:"true"`
	ProposalThreshold uint64 `yaml:"proposalThreshold" split_words:"true"`
	QuorumNumerator   uint64 `yaml:"quorumNumerator"   split_words:"true"`
	QuorumDenominator uint64 `yaml:"quorumDenominator" split_words:"true"`
	SnapshotPolicy    string `yaml:"snapshotPolicy"    split_words:"true"`
	Counting          string `yaml:"counting"`
	// GracePeriod in heights after voting ends before a succeeded proposal expires
	GracePeriod uint64 `yaml:"gracePeriod" split_words:"true"`
	Canceler    string `yaml:"canceler"`
}

type TimelockConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Address     string   `yaml:"address"`
	MinDelay    uint64   `yaml:"minDelay"    split_words:"true"`
	GracePeriod uint64   `yaml:"gracePeriod" split_words:"true"`
	Admin       string   `yaml:"admin"`
	Proposers   []string `yaml:"proposers"`
	Executors   []string `yaml:"executors"`
	Cancellers  []string `yaml:"cancellers"`
}

type AllocationConfig struct {
	Account string `yaml:"account"`
	Amount  uint64 `yaml:"amount"`
}

type GenesisConfig struct {
	Timestamp   uint64             `yaml:"timestamp"`
	Allocations []AllocationConfig `yaml:"allocations" ignored:"true"`
}

type Config struct {
	Governor               GovernorConfig `yaml:"governor"`
	Timelock               TimelockConfig `yaml:"timelock"`
	Genesis                GenesisConfig  `yaml:"genesis"`
	DatabasePath           string         `yaml:"databasePath"           split_words:"true"`
	MetadataDsn            string         `yaml:"metadataDsn"            split_words:"true"`
	BindAddr               string         `yaml:"bindAddr"               split_words:"true"`
	ApiPort                uint           `yaml:"apiPort"                split_words:"true"`
	MetricsPort            uint           `yaml:"metricsPort"            split_words:"true"`
	Journal                string         `yaml:"journal"`
	JournalCredentialsFile string         `yaml:"journalCredentialsFile" split_words:"true"`
	Tracing                bool           `yaml:"tracing"`
	TracingStdout          bool           `yaml:"tracingStdout"          split_words:"true"`
	ShutdownTimeout        string         `yaml:"shutdownTimeout"        split_words:"true"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Governor: GovernorConfig{
			Address:           DefaultGovernorAddress,
			VotingDelay:       1,
			VotingPeriod:      50,
			QuorumNumerator:   4,
			QuorumDenominator: 100,
			SnapshotPolicy:    SnapshotPolicyCreation,
			Counting:          "simple",
		},
		Timelock: TimelockConfig{
			Address:   DefaultTimelockAddress,
			MinDelay:  3600,
			Executors: []string{"0x0000000000000000000000000000000000000000"},
		},
		DatabasePath:    ".gavel",
		BindAddr:        "0.0.0.0",
		ApiPort:         8080,
		MetricsPort:     12799,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

var globalConfig = DefaultConfig()

// LoadConfig reads the config file, decrypting it first when it carries
// sops metadata, and overlays environment variables prefixed with GAVEL.
// Without an explicit file ~/.gavel/gavel.yaml and /etc/gavel/gavel.yaml
// are tried in order
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".gavel", "gavel.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/gavel/gavel.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		encrypted, err := IsEncrypted(buf)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if encrypted {
			buf, err = Decrypt(buf)
			if err != nil {
				return nil, fmt.Errorf("error decrypting config file: %w", err)
			}
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("gavel", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks value ranges and address formats
func (c *Config) Validate() error {
	if c.Governor.QuorumDenominator == 0 {
		return fmt.Errorf("%w: quorumDenominator must be positive", ErrInvalidConfig)
	}
	if c.Governor.QuorumNumerator > c.Governor.QuorumDenominator {
		return fmt.Errorf(
			"%w: quorumNumerator %d exceeds quorumDenominator %d",
			ErrInvalidConfig,
			c.Governor.QuorumNumerator,
			c.Governor.QuorumDenominator,
		)
	}
	switch c.Governor.SnapshotPolicy {
	case SnapshotPolicyCreation, SnapshotPolicyVotingStart, "":
	default:
		return fmt.Errorf(
			"%w: snapshotPolicy %q (must be %q or %q)",
			ErrInvalidConfig,
			c.Governor.SnapshotPolicy,
			SnapshotPolicyCreation,
			SnapshotPolicyVotingStart,
		)
	}
	addrs := map[string]string{
		"governor.address":  c.Governor.Address,
		"governor.canceler": c.Governor.Canceler,
		"timelock.admin":    c.Timelock.Admin,
	}
	if c.Timelock.Enabled {
		addrs["timelock.address"] = c.Timelock.Address
	}
	for name, value := range addrs {
		if value != "" && !common.IsHexAddress(value) {
			return fmt.Errorf("%w: %s %q is not an address", ErrInvalidConfig, name, value)
		}
	}
	for name, values := range map[string][]string{
		"timelock.proposers":  c.Timelock.Proposers,
		"timelock.executors":  c.Timelock.Executors,
		"timelock.cancellers": c.Timelock.Cancellers,
	} {
		for _, value := range values {
			if !common.IsHexAddress(value) {
				return fmt.Errorf("%w: %s entry %q is not an address", ErrInvalidConfig, name, value)
			}
		}
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("%w: shutdownTimeout: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultShutdownTimeout)
	}
	return d
}

// Addresses parses a list of hex addresses checked by Validate
func Addresses(values []string) []common.Address {
	ret := make([]common.Address, 0, len(values))
	for _, value := range values {
		ret = append(ret, common.HexToAddress(value))
	}
	return ret
}
