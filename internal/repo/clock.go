package repo

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies millisecond timestamps for createdAt/updatedAt.
// Implemented by SystemClock (production) and testutil.MillisClock (tests).
type Clock interface {
	NowMillis() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// NowMillis returns milliseconds since the Unix epoch.
func (SystemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// IDGenerator supplies record IDs.
// Implemented by UUIDv7Generator (production) and testutil.SequenceIDs (tests).
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator generates time-sortable UUIDv7 IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
