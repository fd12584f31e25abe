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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/gavel/counting"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	knownID   = common.HexToHash("0x01")
	knownOpID = common.HexToHash("0x02")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

// mockBackend implements Backend for testing
type mockBackend struct {
	tip       types.Point
	proposals []governor.Proposal
	ballots   []governor.Ballot
	weights   map[common.Address]uint64
	blocks    []ledger.Block
	tipErr    error
}

func (m *mockBackend) Tip() (types.Point, error) {
	if m.tipErr != nil {
		return types.Point{}, m.tipErr
	}
	return m.tip, nil
}

func (m *mockBackend) Resolve(ref string) (common.Hash, error) {
	switch ref {
	case "known":
		return knownID, nil
	case "op":
		return knownOpID, nil
	}
	if len(ref) == 66 {
		return common.HexToHash(ref), nil
	}
	if len(ref) > 2 && ref[:2] == "0x" {
		return common.Hash{}, fmt.Errorf("%w: invalid id %q", ledger.ErrInvalidTransaction, ref)
	}
	return common.Hash{}, fmt.Errorf("%w: %q", ledger.ErrUnknownLabel, ref)
}

func (m *mockBackend) Proposal(id common.Hash) (*governor.Proposal, error) {
	for idx := range m.proposals {
		if m.proposals[idx].ID == id {
			return &m.proposals[idx], nil
		}
	}
	return nil, governor.ErrUnknownProposal
}

func (m *mockBackend) Proposals() ([]governor.Proposal, error) {
	return m.proposals, nil
}

func (m *mockBackend) Ballots(id common.Hash) ([]governor.Ballot, error) {
	if id != knownID {
		return nil, governor.ErrUnknownProposal
	}
	return m.ballots, nil
}

func (m *mockBackend) WeightAt(account common.Address, height uint64) (uint64, error) {
	if height > m.tip.Height {
		return 0, snapshot.ErrInvalidHeight
	}
	return m.weights[account], nil
}

func (m *mockBackend) Operation(id common.Hash) (*timelock.Operation, timelock.OperationState, error) {
	if id != knownOpID {
		return nil, timelock.OperationUnset, timelock.ErrUnknownOperation
	}
	return &timelock.Operation{ID: id, Delay: 60, ReadyTimestamp: 1100}, timelock.OperationWaiting, nil
}

func (m *mockBackend) ApplyBlock(_ context.Context, block ledger.Block) ([]ledger.Receipt, error) {
	if block.Height <= m.tip.Height {
		return nil, ledger.ErrInvalidBlock
	}
	m.blocks = append(m.blocks, block)
	m.tip = block.Point()
	receipts := make([]ledger.Receipt, len(block.Transactions))
	for idx, tx := range block.Transactions {
		receipts[idx] = ledger.Receipt{Index: idx, Kind: tx.Kind}
	}
	return receipts, nil
}

func newTestServer() (*Server, *mockBackend) {
	backend := &mockBackend{
		tip: types.Point{Height: 10, Timestamp: 1120},
		proposals: []governor.Proposal{
			{ID: knownID, Description: "first", State: governor.StateActive},
			{ID: common.HexToHash("0x03"), Description: "second", State: governor.StateDefeated},
			{ID: common.HexToHash("0x04"), Description: "third", State: governor.StateActive},
		},
		ballots: []governor.Ballot{
			{Voter: alice, Support: counting.For, Weight: 100},
		},
		weights: map[common.Address]uint64{alice: 100},
	}
	return New(Config{ListenAddress: "127.0.0.1:0"}, backend), backend
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatusMapping(t *testing.T) {
	s, _ := newTestServer()
	testCases := []struct {
		name   string
		path   string
		status int
	}{
		{name: "tip", path: "/api/v1/tip", status: http.StatusOK},
		{name: "proposal by label", path: "/api/v1/proposals/known", status: http.StatusOK},
		{name: "proposal by id", path: "/api/v1/proposals/" + knownID.Hex(), status: http.StatusOK},
		{name: "unknown label", path: "/api/v1/proposals/nope", status: http.StatusNotFound},
		{name: "unknown proposal", path: "/api/v1/proposals/" + common.HexToHash("0x99").Hex(), status: http.StatusNotFound},
		{name: "malformed id", path: "/api/v1/proposals/0x1234", status: http.StatusBadRequest},
		{name: "votes", path: "/api/v1/proposals/known/votes", status: http.StatusOK},
		{name: "bad state filter", path: "/api/v1/proposals?state=Limbo", status: http.StatusBadRequest},
		{name: "bad pagination", path: "/api/v1/proposals?count=x", status: http.StatusBadRequest},
		{name: "weight", path: "/api/v1/accounts/" + alice.Hex() + "/weight", status: http.StatusOK},
		{name: "bad account", path: "/api/v1/accounts/alice/weight", status: http.StatusBadRequest},
		{name: "bad height", path: "/api/v1/accounts/" + alice.Hex() + "/weight?height=-1", status: http.StatusBadRequest},
		{name: "future height", path: "/api/v1/accounts/" + alice.Hex() + "/weight?height=11", status: http.StatusBadRequest},
		{name: "operation", path: "/api/v1/operations/op", status: http.StatusOK},
		{name: "unknown operation", path: "/api/v1/operations/" + common.HexToHash("0x98").Hex(), status: http.StatusNotFound},
		{name: "health", path: "/health", status: http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodGet, tc.path, nil)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestInternalErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	backend := &mockBackend{tipErr: errors.New("disk on fire")}
	s := New(Config{
		ListenAddress: "127.0.0.1:0",
		Logger:        slog.New(slog.NewJSONHandler(&buf, nil)),
	}, backend)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/tip", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] != "request failed" {
			continue
		}
		found = true
		assert.Equal(t, "api", entry["component"])
		assert.Equal(t, "/api/v1/tip", entry["path"])
		assert.Equal(t, "disk on fire", entry["error"])
		assert.Equal(t, 1, strings.Count(line, `"component"`))
	}
	assert.True(t, found, buf.String())
}

func TestProposalsPagination(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/v1/proposals?count=2&order=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-Pagination-Count-Total"))
	assert.Equal(t, "2", rec.Header().Get("X-Pagination-Page-Total"))
	var proposals []governor.Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proposals))
	require.Len(t, proposals, 2)
	assert.Equal(t, "third", proposals[0].Description)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/proposals?page=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = doRequest(t, s, http.MethodGet, "/api/v1/proposals?state=active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proposals))
	assert.Len(t, proposals, 2)
}

func TestResponseBodies(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/v1/accounts/"+alice.Hex()+"/weight?height=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var weight weightResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &weight))
	assert.Equal(t, weightResponse{Account: alice, Height: 3, Weight: 100}, weight)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/proposals/known/votes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"support":"for"`)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/operations/op", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var op map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &op))
	assert.Equal(t, "Waiting", op["state"])
	assert.InDelta(t, 1100, op["readyTimestamp"], 0)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/proposals/nope", nil)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestSubmitBlock(t *testing.T) {
	s, backend := newTestServer()
	body, err := json.Marshal(ledger.Block{
		Height:    11,
		Timestamp: 1132,
		Transactions: []ledger.Transaction{
			{Kind: ledger.TxVote, Sender: alice.Hex(), Proposal: "known", Support: "for"},
		},
	})
	require.NoError(t, err)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/blocks", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp blockResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(11), resp.Point.Height)
	require.Len(t, resp.Receipts, 1)
	assert.Equal(t, ledger.TxVote, resp.Receipts[0].Kind)
	assert.Len(t, backend.blocks, 1)

	// Same height again
	rec = doRequest(t, s, http.MethodPost, "/api/v1/blocks", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/blocks", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartStop(t *testing.T) {
	s, _ := newTestServer()
	require.NoError(t, s.Start(t.Context()))
	s.mu.Lock()
	assert.NotNil(t, s.httpServer)
	s.mu.Unlock()
	assert.Error(t, s.Start(t.Context()))
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	s.mu.Lock()
	assert.Nil(t, s.httpServer)
	s.mu.Unlock()
	require.NoError(t, s.Stop(stopCtx))
}
