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

import "errors"

var (
	ErrUnauthorized           = errors.New("caller is missing role")
	ErrDelayTooShort          = errors.New("delay is below the minimum delay")
	ErrOperationExists        = errors.New("operation already scheduled")
	ErrUnknownOperation       = errors.New("unknown operation")
	ErrNotReady               = errors.New("operation is not ready")
	ErrOperationExpired       = errors.New("operation grace period has passed")
	ErrPredecessorNotExecuted = errors.New("predecessor operation has not been executed")
	ErrAlreadyExecuted        = errors.New("operation already executed")
	ErrBadConfirmation        = errors.New("accounts can only renounce roles for themselves")
)
