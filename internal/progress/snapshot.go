package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

// Stage denotes what produced a Snapshot.
type Stage string

// Supported progress stages.
const (
	StageRecord Stage = "RECORD"
	StageDone   Stage = "DONE"
)

// Snapshot is an immutable view of the run counters after one record.
type Snapshot struct {
	// RunID identifies the run using the 16-byte UUID form.
	RunID [16]byte
	// Seq is the number of records folded into Counters.
	Seq int64
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage is StageRecord while pulling and StageDone for the final tally.
	Stage Stage
	// Counters is a copy of the running tallies.
	Counters cafe.Counters
	// Chunks is the number of output files written; set on StageDone only.
	Chunks int
}

// Validate performs coarse validation on Snapshot payloads.
func (s Snapshot) Validate() error {
	if s.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if s.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch s.Stage {
	case StageRecord, StageDone:
	default:
		return fmt.Errorf("unknown stage %q", s.Stage)
	}
	if s.Seq < 0 {
		return errors.New("seq must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (s Snapshot) RunUUID() uuid.UUID {
	return uuid.UUID(s.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Snapshot form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// NewRunID returns a fresh random run identifier.
func NewRunID() [16]byte {
	return UUIDToBytes(uuid.New())
}
