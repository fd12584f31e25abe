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

// Package action defines action bundles and their canonical identifiers
package action

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrEmptyActionSet = errors.New("empty action set")
	ErrShortPayload   = errors.New("payload shorter than a method selector")
)

// Action is a single call: a target address, a value and an opaque payload
type Action struct {
	Target  common.Address `json:"target"`
	Value   uint64         `json:"value"`
	Payload hexutil.Bytes  `json:"payload"`
}

func (a Action) String() string {
	return fmt.Sprintf("%s value=%d payload=%s", a.Target.Hex(), a.Value, a.Payload)
}

// Selector returns the first four bytes of the payload
func (a Action) Selector() ([4]byte, error) {
	var ret [4]byte
	if len(a.Payload) < 4 {
		return ret, ErrShortPayload
	}
	copy(ret[:], a.Payload[:4])
	return ret, nil
}

// Bundle is an ordered list of actions executed atomically
type Bundle []Action

// Validate checks that the bundle can be proposed or scheduled
func (b Bundle) Validate() error {
	if len(b) == 0 {
		return ErrEmptyActionSet
	}
	return nil
}

// Targets returns the target of each action in order
func (b Bundle) Targets() []common.Address {
	ret := make([]common.Address, len(b))
	for i, a := range b {
		ret[i] = a.Target
	}
	return ret
}

// Values returns the value of each action in order
func (b Bundle) Values() []*big.Int {
	ret := make([]*big.Int, len(b))
	for i, a := range b {
		ret[i] = new(big.Int).SetUint64(a.Value)
	}
	return ret
}

// Payloads returns the payload of each action in order
func (b Bundle) Payloads() [][]byte {
	ret := make([][]byte, len(b))
	for i, a := range b {
		ret[i] = []byte(a.Payload)
	}
	return ret
}
