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
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

var ErrInvalidParameter = errors.New("invalid parameter")

type weightResponse struct {
	Account common.Address `json:"account"`
	Height  uint64         `json:"height"`
	Weight  uint64         `json:"weight"`
}

type operationResponse struct {
	*timelock.Operation
	State timelock.OperationState `json:"state"`
}

type blockResponse struct {
	Point    types.Point      `json:"point"`
	Receipts []ledger.Receipt `json:"receipts"`
}

// statusFor maps an error to the HTTP status it is reported with
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnknownLabel),
		errors.Is(err, governor.ErrUnknownProposal),
		errors.Is(err, timelock.ErrUnknownOperation),
		errors.Is(err, governor.ErrNoTimelock):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidBlock),
		errors.Is(err, ledger.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidParameter),
		errors.Is(err, ErrInvalidPaginationParameters),
		errors.Is(err, ledger.ErrInvalidTransaction),
		errors.Is(err, snapshot.ErrInvalidHeight):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"is_healthy": true})
}

func (s *Server) handleTip(c *gin.Context) {
	tip, err := s.backend.Tip()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tip)
}

func (s *Server) handleProposals(c *gin.Context) {
	params, err := ParsePagination(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	proposals, err := s.backend.Proposals()
	if err != nil {
		s.fail(c, err)
		return
	}
	if stateParam := c.Query("state"); stateParam != "" {
		state, err := governor.ParseState(stateParam)
		if err != nil {
			s.fail(c, fmt.Errorf("%w: %w", ErrInvalidParameter, err))
			return
		}
		filtered := make([]governor.Proposal, 0, len(proposals))
		for _, p := range proposals {
			if p.State == state {
				filtered = append(filtered, p)
			}
		}
		proposals = filtered
	}
	c.JSON(http.StatusOK, paginate(c, proposals, params))
}

func (s *Server) proposalID(c *gin.Context) (common.Hash, bool) {
	id, err := s.backend.Resolve(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return common.Hash{}, false
	}
	return id, true
}

func (s *Server) handleProposal(c *gin.Context) {
	id, ok := s.proposalID(c)
	if !ok {
		return
	}
	proposal, err := s.backend.Proposal(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (s *Server) handleVotes(c *gin.Context) {
	params, err := ParsePagination(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	id, ok := s.proposalID(c)
	if !ok {
		return
	}
	ballots, err := s.backend.Ballots(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(c, ballots, params))
}

func (s *Server) handleWeight(c *gin.Context) {
	account := c.Param("account")
	if !common.IsHexAddress(account) {
		s.fail(c, fmt.Errorf("%w: account %q", ErrInvalidParameter, account))
		return
	}
	var height uint64
	if heightParam := c.Query("height"); heightParam != "" {
		var err error
		height, err = strconv.ParseUint(heightParam, 10, 64)
		if err != nil {
			s.fail(c, fmt.Errorf("%w: height %q", ErrInvalidParameter, heightParam))
			return
		}
	} else {
		tip, err := s.backend.Tip()
		if err != nil {
			s.fail(c, err)
			return
		}
		height = tip.Height
	}
	addr := common.HexToAddress(account)
	weight, err := s.backend.WeightAt(addr, height)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, weightResponse{Account: addr, Height: height, Weight: weight})
}

func (s *Server) handleOperation(c *gin.Context) {
	id, err := s.backend.Resolve(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	op, state, err := s.backend.Operation(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, operationResponse{Operation: op, State: state})
}

func (s *Server) handleSubmitBlock(c *gin.Context) {
	var block ledger.Block
	if err := c.ShouldBindJSON(&block); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", ErrInvalidParameter, err))
		return
	}
	receipts, err := s.backend.ApplyBlock(c.Request.Context(), block)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, blockResponse{Point: block.Point(), Receipts: receipts})
}
