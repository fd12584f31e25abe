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

package types

import (
	"encoding/binary"
	"slices"
)

const (
	ProposalBundleKeyPrefix  = "gp"
	OperationBundleKeyPrefix = "go"
)

func uint32ToBytes(input uint32) []byte {
	ret := make([]byte, 4)
	binary.BigEndian.PutUint32(ret, input)
	return ret
}

// ProposalBundleKey returns the blob key holding the action bundle of a
// proposal revision
func ProposalBundleKey(proposalID []byte, revision uint32) []byte {
	return slices.Concat(
		[]byte(ProposalBundleKeyPrefix),
		proposalID,
		uint32ToBytes(revision),
	)
}

// OperationBundleKey returns the blob key holding the action bundle of a
// timelock operation
func OperationBundleKey(operationID []byte) []byte {
	return slices.Concat([]byte(OperationBundleKeyPrefix), operationID)
}
