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

package action_test

import (
	"math/big"
	"testing"

	"github.com/blinklabs-io/gavel/action"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testABI = action.MustParseABI(`[
	{"type":"function","name":"setValue","inputs":[{"name":"v","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"grant","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]}
]`)

func testBundle() action.Bundle {
	return action.Bundle{
		{
			Target:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Value:   0,
			Payload: []byte{0xde, 0xad, 0xbe, 0xef},
		},
		{
			Target:  common.HexToAddress("0x2222222222222222222222222222222222222222"),
			Value:   5,
			Payload: []byte{0x01},
		},
	}
}

func TestValidateEmpty(t *testing.T) {
	assert.ErrorIs(t, action.Bundle{}.Validate(), action.ErrEmptyActionSet)
	assert.NoError(t, testBundle().Validate())
}

func TestProposalIDDeterministic(t *testing.T) {
	descHash := action.DescriptionHash("proposal #1")
	id1, err := action.ProposalID(testBundle(), descHash)
	require.NoError(t, err)
	id2, err := action.ProposalID(testBundle(), descHash)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	// Any change in content changes the ID
	other := testBundle()
	other[1].Value = 6
	id3, err := action.ProposalID(other, descHash)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
	id4, err := action.ProposalID(testBundle(), action.DescriptionHash("proposal #2"))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id4)
}

func TestDescriptionHashIsKeccak(t *testing.T) {
	// keccak256("") is a well-known constant
	assert.Equal(
		t,
		common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		action.DescriptionHash(""),
	)
}

func TestOperationIDDependsOnPredecessorAndSalt(t *testing.T) {
	bundle := testBundle()
	base, err := action.OperationID(bundle, common.Hash{}, common.Hash{})
	require.NoError(t, err)
	withSalt, err := action.OperationID(bundle, common.Hash{}, common.Hash{0x01})
	require.NoError(t, err)
	withPred, err := action.OperationID(bundle, common.Hash{0x01}, common.Hash{})
	require.NoError(t, err)
	assert.NotEqual(t, base, withSalt)
	assert.NotEqual(t, base, withPred)
	assert.NotEqual(t, withSalt, withPred)
}

func TestBundleCBORRoundTrip(t *testing.T) {
	bundle := testBundle()
	data, err := bundle.MarshalCBOR()
	require.NoError(t, err)
	decoded, err := action.DecodeBundle(data)
	require.NoError(t, err)
	assert.Equal(t, bundle, decoded)

	_, err = action.DecodeBundle([]byte{0xff})
	assert.Error(t, err)
}

func TestEncodeDecodeCall(t *testing.T) {
	payload, err := action.EncodeCall(testABI, "setValue", big.NewInt(42))
	require.NoError(t, err)
	method, args, err := action.DecodeCall(testABI, payload)
	require.NoError(t, err)
	assert.Equal(t, "setValue", method.Name)
	require.Len(t, args, 1)
	assert.Equal(t, big.NewInt(42), args[0])

	_, _, err = action.DecodeCall(testABI, []byte{0x00, 0x01, 0x02, 0x03})
	assert.ErrorIs(t, err, action.ErrUnknownMethod)
	_, _, err = action.DecodeCall(testABI, []byte{0x00})
	assert.ErrorIs(t, err, action.ErrShortPayload)
	_, err = action.EncodeCall(testABI, "missing")
	assert.ErrorIs(t, err, action.ErrUnknownMethod)
}

func TestEncodeCallStrings(t *testing.T) {
	payload, err := action.EncodeCallStrings(testABI, "setValue", []string{"42"})
	require.NoError(t, err)
	expected, err := action.EncodeCall(testABI, "setValue", big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, expected, payload)

	payload, err = action.EncodeCallStrings(testABI, "grant", []string{
		"0x0000000000000000000000000000000000000000000000000000000000000000",
		"0x3333333333333333333333333333333333333333",
	})
	require.NoError(t, err)
	_, args, err := action.DecodeCall(testABI, payload)
	require.NoError(t, err)
	assert.Equal(
		t,
		common.HexToAddress("0x3333333333333333333333333333333333333333"),
		args[1],
	)

	testDefs := []struct {
		method string
		args   []string
	}{
		{method: "setValue", args: []string{"-1"}},
		{method: "setValue", args: []string{"abc"}},
		{method: "setValue", args: []string{}},
		{method: "grant", args: []string{"0x00", "0x3333333333333333333333333333333333333333"}},
		{method: "grant", args: []string{
			"0x0000000000000000000000000000000000000000000000000000000000000000",
			"not-an-address",
		}},
	}
	for _, testDef := range testDefs {
		_, err := action.EncodeCallStrings(testABI, testDef.method, testDef.args)
		assert.Error(t, err, "%s %v", testDef.method, testDef.args)
	}
}
