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

package timelock

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role identifies a permission as a 32-byte value
type Role common.Hash

var (
	AdminRole     = Role{}
	ProposerRole  = Role(crypto.Keccak256Hash([]byte("PROPOSER_ROLE")))
	ExecutorRole  = Role(crypto.Keccak256Hash([]byte("EXECUTOR_ROLE")))
	CancellerRole = Role(crypto.Keccak256Hash([]byte("CANCELLER_ROLE")))
)

// Anyone granted ExecutorRole opens execution to every caller
var Anyone = common.Address{}

var roleNames = map[Role]string{
	AdminRole:     "admin",
	ProposerRole:  "proposer",
	ExecutorRole:  "executor",
	CancellerRole: "canceller",
}

func (r Role) Bytes() []byte {
	return common.Hash(r).Bytes()
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return common.Hash(r).Hex()
}

// ParseRole accepts a well-known role name or a 32-byte hex value
func ParseRole(value string) (Role, error) {
	for role, name := range roleNames {
		if name == value {
			return role, nil
		}
	}
	b, err := decodeHash(value)
	if err != nil {
		return Role{}, fmt.Errorf("invalid role %q: %w", value, err)
	}
	return Role(b), nil
}

func decodeHash(value string) (common.Hash, error) {
	raw := common.FromHex(value)
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(raw))
	}
	return common.BytesToHash(raw), nil
}

// RoleGrant is a role held by an account
type RoleGrant struct {
	Role    Role           `json:"role"`
	Account common.Address `json:"account"`
}

func (r Role) MarshalText() ([]byte, error) {
	return common.Hash(r).MarshalText()
}

func (r *Role) UnmarshalText(input []byte) error {
	parsed, err := ParseRole(string(input))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
