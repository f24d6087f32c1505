package quality

import (
	"fmt"
	"time"
)

// Change lifecycle statuses.
const (
	StatusProposed = "proposed"
	StatusApplied  = "applied"
	StatusRejected = "rejected"
	StatusStale    = "stale"
	StatusNotFound = "not_found"
	StatusFailed   = "failed"
)

// ProposedChange is one suggested single-field edit. CurrentValue is the
// stored value at analysis time and doubles as the optimistic guard when
// the change is applied.
type ProposedChange struct {
	ChangeID      string `json:"changeId"`
	ResourceType  string `json:"resourceType"`
	ResourceID    int64  `json:"resourceId"`
	Field         string `json:"field"`
	CurrentValue  any    `json:"currentValue"`
	ProposedValue any    `json:"proposedValue"`
	ChangeType    string `json:"changeType"`
	ChangeReason  string `json:"changeReason,omitempty"`
	Status        string `json:"status"`
}

// AppliedChange is a proposed change after the apply or reject pass,
// carrying the outcome status and, for applied changes, the timestamp.
type AppliedChange struct {
	ProposedChange
	Error     string     `json:"error,omitempty"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
}

// ApplyOptions carry request-scoped context into ApplyChanges.
type ApplyOptions struct {
	ActorID string
}

// ApplyResult reports the outcome of an apply batch.
type ApplyResult struct {
	AppliedCount int             `json:"appliedCount"`
	FailedCount  int             `json:"failedCount"`
	Changes      []AppliedChange `json:"changes"`
}

// changeID derives a stable identifier for a proposal. It incorporates
// the row version (updated_at epoch, 0 when the table has none) so any
// write to the row invalidates ids minted before it.
func changeID(resourceType string, id int64, field, changeType string, row map[string]any) string {
	return fmt.Sprintf("%s:%d:%s:%s:%d", resourceType, id, field, changeType, rowVersion(row))
}

func rowVersion(row map[string]any) int64 {
	if ts, ok := row["updated_at"].(time.Time); ok {
		return ts.Unix()
	}
	return 0
}
