package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hmiyata/battrack/internal/domain/models"
)

// ErrEmptyBatch rejects mutations that name no serials at all.
var ErrEmptyBatch = errors.New("no serials in batch")

// BlockedSerial names one offending serial and the status it is stuck in.
type BlockedSerial struct {
	Serial string        `json:"serial"`
	Status models.Status `json:"status"`
}

// TransitionError reports every serial that blocks a bulk mutation: each
// one is either absent from the ledger or sitting in a status the mutation
// does not accept. When it is returned, zero rows were written.
type TransitionError struct {
	Op       string
	Blocked  []BlockedSerial
	NotFound []string
}

func (e *TransitionError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.NotFound) > 0 {
		parts = append(parts, "not in inventory: "+strings.Join(e.NotFound, ", "))
	}
	if len(e.Blocked) > 0 {
		blocked := make([]string, 0, len(e.Blocked))
		for _, b := range e.Blocked {
			blocked = append(blocked, fmt.Sprintf("%s(%s)", b.Serial, b.Status))
		}
		parts = append(parts, "wrong status: "+strings.Join(blocked, ", "))
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, strings.Join(parts, "; "))
}

// Offending lists every serial named by the error, blocked ones first.
func (e *TransitionError) Offending() []string {
	out := make([]string, 0, len(e.Blocked)+len(e.NotFound))
	for _, b := range e.Blocked {
		out = append(out, b.Serial)
	}
	return append(out, e.NotFound...)
}

// CurrentStatuses maps each offending serial to its current status, with
// "not_found" standing in for serials absent from the ledger.
func (e *TransitionError) CurrentStatuses() map[string]string {
	out := make(map[string]string, len(e.Blocked)+len(e.NotFound))
	for _, b := range e.Blocked {
		out[b.Serial] = string(b.Status)
	}
	for _, serial := range e.NotFound {
		out[serial] = "not_found"
	}
	return out
}
