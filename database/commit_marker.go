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

package database

import (
	"fmt"
	"time"

	"github.com/blinklabs-io/gavel/database/types"
)

// CommitMarkerError reports stores left at different commits
type CommitMarkerError struct {
	Metadata types.CommitMarker
	Blob     types.CommitMarker
}

func (e CommitMarkerError) Error() string {
	return fmt.Sprintf(
		"commit marker mismatch: %s (metadata) != %s (blob)",
		e.Metadata,
		e.Blob,
	)
}

func (d *Database) checkCommitMarker() error {
	metadataMarker, err := d.Metadata().GetCommitMarker()
	if err != nil {
		return fmt.Errorf("failed to get metadata commit marker: %w", err)
	}
	blobMarker, err := d.Blob().GetCommitMarker()
	if err != nil {
		return fmt.Errorf("failed to get blob commit marker: %w", err)
	}
	// Nothing committed yet
	if metadataMarker.Sequence == 0 && blobMarker.Sequence == 0 {
		return nil
	}
	if metadataMarker != blobMarker {
		return CommitMarkerError{
			Metadata: metadataMarker,
			Blob:     blobMarker,
		}
	}
	d.commitSequence.Store(metadataMarker.Sequence)
	return nil
}

// CommitSequence returns the number of read-write commits written to both stores
func (d *Database) CommitSequence() uint64 {
	return d.commitSequence.Load()
}

// writeCommitMarker records the next commit marker in both stores of txn
func (d *Database) writeCommitMarker(txn *Txn) (types.CommitMarker, error) {
	marker := types.CommitMarker{
		Sequence:  d.commitSequence.Load() + 1,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := d.Metadata().SetCommitMarker(marker, txn.Metadata()); err != nil {
		return marker, err
	}
	if err := d.Blob().SetCommitMarker(marker, txn.Blob()); err != nil {
		return marker, err
	}
	return marker, nil
}
