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

package types

import (
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// Point identifies a position in the ledger by block height and the
// block's timestamp in seconds
type Point struct {
	Height    uint64 `json:"height"    yaml:"height"`
	Timestamp uint64 `json:"timestamp" yaml:"timestamp"`
}

func (p Point) String() string {
	return fmt.Sprintf("%d@%d", p.Height, p.Timestamp)
}

// CommitMarker is written to both stores by every read-write commit. The
// stores disagree on it only when a commit stopped between them
type CommitMarker struct {
	Sequence  uint64
	Timestamp int64
}

const commitMarkerSize = 16

func (m CommitMarker) Bytes() []byte {
	ret := make([]byte, commitMarkerSize)
	binary.BigEndian.PutUint64(ret[:8], m.Sequence)
	binary.BigEndian.PutUint64(ret[8:], uint64(m.Timestamp)) //nolint:gosec
	return ret
}

func (m CommitMarker) String() string {
	return fmt.Sprintf("#%d@%d", m.Sequence, m.Timestamp)
}

// ParseCommitMarker decodes the output of CommitMarker.Bytes
func ParseCommitMarker(data []byte) (CommitMarker, error) {
	if len(data) != commitMarkerSize {
		return CommitMarker{}, fmt.Errorf(
			"invalid commit marker length: %d",
			len(data),
		)
	}
	return CommitMarker{
		Sequence:  binary.BigEndian.Uint64(data[:8]),
		Timestamp: int64(binary.BigEndian.Uint64(data[8:])), //nolint:gosec
	}, nil
}

//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(val any) error {
	v, ok := val.(string)
	if !ok {
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmpUint, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64(tmpUint)
	return nil
}

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// ErrBlobStoreUnavailable is returned when blob store cannot be accessed
var ErrBlobStoreUnavailable = errors.New("blob store unavailable")

// ErrReadOnlyTxn is returned when a write is attempted through a read-only transaction
var ErrReadOnlyTxn = errors.New("read-only transaction")

// Txn is a simple transaction handle for commit/rollback only.
// Database layer (Txn) coordinates metadata and blob operations separately.
type Txn interface {
	Commit() error
	Rollback() error
}
