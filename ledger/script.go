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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script is a genesis followed by blocks, as used for replays and fixtures
type Script struct {
	Genesis Genesis `yaml:"genesis"`
	Blocks  []Block `yaml:"blocks"`
}

// BlockResult holds the receipts of one applied script block
type BlockResult struct {
	Block    Block
	Receipts []Receipt
}

// ParseScript decodes a YAML script
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	for idx, block := range script.Blocks {
		for txIdx, tx := range block.Transactions {
			if tx.Kind == "" {
				return nil, fmt.Errorf(
					"%w: block %d transaction %d has no kind",
					ErrInvalidTransaction,
					idx,
					txIdx,
				)
			}
		}
	}
	return &script, nil
}

// LoadScript reads and decodes a YAML script file
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

// RunScript applies the genesis, unless the ledger is already initialized,
// and then every block
func (ls *LedgerState) RunScript(ctx context.Context, script *Script) ([]BlockResult, error) {
	if err := ls.ApplyGenesis(ctx, script.Genesis); err != nil &&
		!errors.Is(err, ErrAlreadyInitialized) {
		return nil, err
	}
	ret := make([]BlockResult, 0, len(script.Blocks))
	for _, block := range script.Blocks {
		if err := ctx.Err(); err != nil {
			return ret, err
		}
		receipts, err := ls.ApplyBlock(ctx, block)
		if err != nil {
			return ret, fmt.Errorf("block %d: %w", block.Height, err)
		}
		ret = append(ret, BlockResult{Block: block, Receipts: receipts})
	}
	return ret, nil
}
