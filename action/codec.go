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

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

type actionRecord struct {
	_       struct{} `cbor:",toarray"`
	Target  []byte
	Value   uint64
	Payload []byte
}

// MarshalCBOR encodes the bundle as an array of [target, value, payload]
func (b Bundle) MarshalCBOR() ([]byte, error) {
	records := make([]actionRecord, len(b))
	for i, a := range b {
		records[i] = actionRecord{
			Target:  a.Target.Bytes(),
			Value:   a.Value,
			Payload: []byte(a.Payload),
		}
	}
	return cbor.Marshal(records)
}

// UnmarshalCBOR decodes a bundle produced by MarshalCBOR
func (b *Bundle) UnmarshalCBOR(data []byte) error {
	var records []actionRecord
	if err := cbor.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to decode bundle: %w", err)
	}
	ret := make(Bundle, len(records))
	for i, r := range records {
		if len(r.Target) != common.AddressLength {
			return fmt.Errorf(
				"failed to decode bundle: action %d target has length %d",
				i,
				len(r.Target),
			)
		}
		ret[i] = Action{
			Target:  common.BytesToAddress(r.Target),
			Value:   r.Value,
			Payload: r.Payload,
		}
	}
	*b = ret
	return nil
}

// DecodeBundle decodes CBOR bundle data
func DecodeBundle(data []byte) (Bundle, error) {
	var ret Bundle
	if err := ret.UnmarshalCBOR(data); err != nil {
		return nil, err
	}
	return ret, nil
}
