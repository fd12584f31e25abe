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
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrUnknownMethod = errors.New("unknown method")

// MustParseABI parses a JSON ABI definition and panics on error. It is
// meant for package-level ABI variables
func MustParseABI(definition string) abi.ABI {
	ret, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI definition: %s", err))
	}
	return ret
}

// EncodeCall packs a method selector and arguments into a payload
func EncodeCall(contract abi.ABI, method string, args ...any) ([]byte, error) {
	if _, ok := contract.Methods[method]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	return contract.Pack(method, args...)
}

// DecodeCall resolves the method addressed by a payload and unpacks its
// arguments
func DecodeCall(contract abi.ABI, payload []byte) (*abi.Method, []any, error) {
	if len(payload) < 4 {
		return nil, nil, ErrShortPayload
	}
	method, err := contract.MethodById(payload[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %x", ErrUnknownMethod, payload[:4])
	}
	args, err := method.Inputs.Unpack(payload[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s arguments: %w", method.Name, err)
	}
	return method, args, nil
}

// EncodeCallStrings packs a call whose arguments are given as strings, as
// they appear in scripts and API requests. Supported argument types are
// uintN, address, bool, bytes32, bytes and string
func EncodeCallStrings(contract abi.ABI, method string, args []string) ([]byte, error) {
	m, ok := contract.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if len(args) != len(m.Inputs) {
		return nil, fmt.Errorf(
			"%s expects %d arguments, got %d",
			method,
			len(m.Inputs),
			len(args),
		)
	}
	values := make([]any, len(args))
	for i, input := range m.Inputs {
		v, err := parseArg(input.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("%s argument %q: %w", method, input.Name, err)
		}
		values[i] = v
	}
	return contract.Pack(method, values...)
}

func parseArg(t abi.Type, raw string) (any, error) {
	switch t.T {
	case abi.UintTy:
		v, ok := new(big.Int).SetString(raw, 0)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("invalid unsigned integer %q", raw)
		}
		if v.BitLen() > t.Size {
			return nil, fmt.Errorf("%q overflows uint%d", raw, t.Size)
		}
		// The packer wants the native Go type for small sizes
		switch t.Size {
		case 8:
			return uint8(v.Uint64()), nil
		case 16:
			return uint16(v.Uint64()), nil
		case 32:
			return uint32(v.Uint64()), nil
		case 64:
			return v.Uint64(), nil
		}
		return v, nil
	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		return common.HexToAddress(raw), nil
	case abi.BoolTy:
		switch raw {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid bool %q", raw)
	case abi.FixedBytesTy:
		if t.Size != 32 {
			return nil, fmt.Errorf("unsupported type %s", t.String())
		}
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, err
		}
		if len(b) != 32 {
			return nil, fmt.Errorf("expected 32 bytes, got %d", len(b))
		}
		return [32]byte(b), nil
	case abi.BytesTy:
		return hexutil.Decode(raw)
	case abi.StringTy:
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", t.String())
	}
}
