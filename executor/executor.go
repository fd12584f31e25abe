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

// Package executor dispatches actions to the in-ledger targets that handle
// them. Handlers write through the caller's database transaction, so a
// failing bundle leaves no trace once that transaction rolls back
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrActionReverted = errors.New("action reverted")
	ErrNoHandler      = errors.New("no handler for target")
)

// Call is a single action invocation
type Call struct {
	// Caller is the account the action executes as
	Caller common.Address
	Action action.Action
	Point  types.Point
	Txn    *database.Txn
}

// Handler executes actions addressed to one target
type Handler interface {
	Handle(ctx context.Context, call Call) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, call Call) error

func (f HandlerFunc) Handle(ctx context.Context, call Call) error {
	return f(ctx, call)
}

// Executor runs action bundles
type Executor interface {
	Execute(
		ctx context.Context,
		txn *database.Txn,
		caller common.Address,
		bundle action.Bundle,
		point types.Point,
	) error
}

// Router is an Executor that routes each action to the Handler registered
// for its target address
type Router struct {
	handlers map[common.Address]Handler
	mutex    sync.RWMutex
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[common.Address]Handler),
	}
}

// Register sets the handler for a target, replacing any existing one
func (r *Router) Register(target common.Address, handler Handler) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.handlers[target] = handler
}

// Unregister removes the handler for a target
func (r *Router) Unregister(target common.Address) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.handlers, target)
}

// Targets returns the addresses that have a registered handler
func (r *Router) Targets() []common.Address {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	ret := make([]common.Address, 0, len(r.handlers))
	for addr := range r.handlers {
		ret = append(ret, addr)
	}
	return ret
}

// Execute runs the actions in order and stops at the first failure, which is
// returned wrapped in ErrActionReverted. The caller must roll back txn on
// error for the bundle to be all-or-nothing
func (r *Router) Execute(
	ctx context.Context,
	txn *database.Txn,
	caller common.Address,
	bundle action.Bundle,
	point types.Point,
) error {
	for idx, a := range bundle {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.mutex.RLock()
		handler, ok := r.handlers[a.Target]
		r.mutex.RUnlock()
		if !ok {
			return fmt.Errorf(
				"%w: action %d: %w: %s",
				ErrActionReverted,
				idx,
				ErrNoHandler,
				a.Target.Hex(),
			)
		}
		call := Call{
			Caller: caller,
			Action: a,
			Point:  point,
			Txn:    txn,
		}
		if err := handler.Handle(ctx, call); err != nil {
			return fmt.Errorf("%w: action %d: %w", ErrActionReverted, idx, err)
		}
	}
	return nil
}
