// Package uuid wraps github.com/google/uuid to produce the job directory
// identifiers r3 uses.
package uuid

import (
	"github.com/google/uuid"
)

// NewString returns a new UUIDv4 string, used as a job id. Job ids must be
// version 4 (random), not time-ordered, so that enumerating jobs() in
// directory order carries no information about commit order.
func NewString() string {
	return uuid.New().String()
}

// IsWellFormed reports whether s parses as a UUID, the test storage.JobIDs
// uses to decide whether a jobs/ entry is a committed job or stray data (spec.md 3.1: "names outside that shape are ignored").
func IsWellFormed(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
