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

package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/executor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	targetA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	targetB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	caller  = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

func TestRouterExecutesInOrder(t *testing.T) {
	router := executor.NewRouter()
	var seen []common.Address
	record := executor.HandlerFunc(func(_ context.Context, call executor.Call) error {
		assert.Equal(t, caller, call.Caller)
		assert.Equal(t, uint64(7), call.Point.Height)
		seen = append(seen, call.Action.Target)
		return nil
	})
	router.Register(targetA, record)
	router.Register(targetB, record)
	err := router.Execute(
		context.Background(),
		nil,
		caller,
		action.Bundle{{Target: targetB}, {Target: targetA}, {Target: targetB}},
		types.Point{Height: 7},
	)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{targetB, targetA, targetB}, seen)
	assert.Len(t, router.Targets(), 2)
}

func TestRouterStopsAtFirstFailure(t *testing.T) {
	router := executor.NewRouter()
	errBoom := errors.New("boom")
	calls := 0
	router.Register(targetA, executor.HandlerFunc(func(context.Context, executor.Call) error {
		calls++
		return nil
	}))
	router.Register(targetB, executor.HandlerFunc(func(context.Context, executor.Call) error {
		return errBoom
	}))
	err := router.Execute(
		context.Background(),
		nil,
		caller,
		action.Bundle{{Target: targetA}, {Target: targetB}, {Target: targetA}},
		types.Point{},
	)
	require.ErrorIs(t, err, executor.ErrActionReverted)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestRouterUnknownTarget(t *testing.T) {
	router := executor.NewRouter()
	router.Register(targetA, executor.HandlerFunc(func(context.Context, executor.Call) error {
		return nil
	}))
	router.Unregister(targetA)
	err := router.Execute(
		context.Background(),
		nil,
		caller,
		action.Bundle{{Target: targetA}},
		types.Point{},
	)
	require.ErrorIs(t, err, executor.ErrActionReverted)
	assert.ErrorIs(t, err, executor.ErrNoHandler)
}

func TestRouterHonorsCanceledContext(t *testing.T) {
	router := executor.NewRouter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := router.Execute(ctx, nil, caller, action.Bundle{{Target: targetA}}, types.Point{})
	assert.ErrorIs(t, err, context.Canceled)
}
