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

// OperationState is the lifecycle position of a timelock operation
type OperationState uint8

const (
	OperationUnset OperationState = iota
	OperationWaiting
	OperationReady
	OperationDone
	OperationExpired
)

func (s OperationState) String() string {
	switch s {
	case OperationUnset:
		return "Unset"
	case OperationWaiting:
		return "Waiting"
	case OperationReady:
		return "Ready"
	case OperationDone:
		return "Done"
	case OperationExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

func (s OperationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
