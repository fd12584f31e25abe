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

package action

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func mustType(t string) abi.Type {
	ret, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("invalid ABI type %q: %s", t, err))
	}
	return ret
}

var (
	addressSliceType = mustType("address[]")
	uint256SliceType = mustType("uint256[]")
	bytesSliceType   = mustType("bytes[]")
	bytes32Type      = mustType("bytes32")

	proposalArgs = abi.Arguments{
		{Type: addressSliceType},
		{Type: uint256SliceType},
		{Type: bytesSliceType},
		{Type: bytes32Type},
	}
	operationArgs = abi.Arguments{
		{Type: addressSliceType},
		{Type: uint256SliceType},
		{Type: bytesSliceType},
		{Type: bytes32Type},
		{Type: bytes32Type},
	}
)

// DescriptionHash returns the keccak256 hash of a proposal description
func DescriptionHash(description string) common.Hash {
	return crypto.Keccak256Hash([]byte(description))
}

// ProposalID computes
// keccak256(abi.encode(targets, values, payloads, descriptionHash)), so the
// same bundle and description always produce the same ID
func ProposalID(bundle Bundle, descriptionHash common.Hash) (common.Hash, error) {
	packed, err := proposalArgs.Pack(
		bundle.Targets(),
		bundle.Values(),
		bundle.Payloads(),
		[32]byte(descriptionHash),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode proposal: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// OperationID computes
// keccak256(abi.encode(targets, values, payloads, predecessor, salt))
func OperationID(bundle Bundle, predecessor common.Hash, salt common.Hash) (common.Hash, error) {
	packed, err := operationArgs.Pack(
		bundle.Targets(),
		bundle.Values(),
		bundle.Payloads(),
		[32]byte(predecessor),
		[32]byte(salt),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode operation: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}
