package statement

import "time"

// ApproveSubmission transitions a submission to approved, guarded by the
// statuses a reviewer is allowed to act on. RETURNING * lets the caller
// distinguish "already reviewed" from a real update.
func ApproveSubmission(id int64, reviewerID string, at time.Time) Statement {
	return Statement{
		SQL: `UPDATE submissions SET status = 'approved', reviewed_by = $1, reviewed_at = $2
WHERE id = $3 AND status IN ('pending', 'needs_review') RETURNING *`,
		Args: []any{reviewerID, at, id},
	}
}

// RejectSubmission transitions a pending submission to rejected with the
// reviewer's reason. Only pending submissions can be rejected outright.
func RejectSubmission(id int64, reviewerID, reason string, at time.Time) Statement {
	return Statement{
		SQL: `UPDATE submissions SET status = 'rejected', reviewed_by = $1, reviewed_at = $2, review_reason = $3
WHERE id = $4 AND status = 'pending' RETURNING *`,
		Args: []any{reviewerID, at, reason, id},
	}
}
