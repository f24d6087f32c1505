package quality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forkful/backoffice/internal/audit"
	"github.com/forkful/backoffice/internal/resource"
	"github.com/forkful/backoffice/internal/statement"
)

// ApproveSubmission validates a submission's payload as its target type,
// then atomically creates the resource and transitions the submission to
// approved. Either step failing rolls back both. A submission that is no
// longer awaiting review returns (nil, nil) and nothing is created.
func (s *Service) ApproveSubmission(ctx context.Context, submissionID int64, itemType string, itemData map[string]any, reviewerID string) (resource.Row, error) {
	d, err := s.reg.Descriptor(itemType)
	if err != nil {
		return nil, err
	}

	validation, err := s.ValidateBulkData(ctx, d.Type, []map[string]any{itemData})
	if err != nil {
		return nil, err
	}
	if len(validation.Invalid) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(validation.Invalid[0].Errors, "; "))
	}
	cleaned := validation.Valid[0]

	createStmt, err := statement.Create(d, cleaned)
	if err != nil {
		return nil, err
	}

	tx, err := s.mgr.DB().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("approve submission %d: %w", submissionID, err)
	}
	defer tx.Rollback(ctx)

	created, err := resource.QueryOne(ctx, tx, createStmt)
	if err != nil {
		return nil, fmt.Errorf("create %s from submission %d: %w", d.Type, submissionID, err)
	}
	if created == nil {
		return nil, fmt.Errorf("%w: %s", resource.ErrInsertReturnedNoRow, d.Type)
	}

	transition := statement.ApproveSubmission(submissionID, reviewerID, s.now().UTC())
	updated, err := resource.QueryOne(ctx, tx, transition)
	if err != nil {
		return nil, fmt.Errorf("transition submission %d: %w", submissionID, err)
	}
	if updated == nil {
		// Already reviewed or gone; the deferred rollback discards the create.
		return nil, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit submission %d: %w", submissionID, err)
	}

	slog.Info("submission approved",
		"submission_id", submissionID,
		"item_type", d.Type,
		"created_id", resource.RowID(created),
	)
	s.audit(ctx, audit.Entry{
		Action:       audit.ActionSubmissionApproved,
		ResourceType: d.Type,
		ResourceID:   submissionID,
		ActorID:      reviewerID,
		Detail:       map[string]any{"created_id": resource.RowID(created)},
		RowsAffected: 1,
	})
	return created, nil
}

// RejectSubmission marks a pending submission rejected with the
// reviewer's reason. A submission that is not pending returns (nil, nil).
func (s *Service) RejectSubmission(ctx context.Context, submissionID int64, reason, reviewerID string) (resource.Row, error) {
	stmt := statement.RejectSubmission(submissionID, reviewerID, reason, s.now().UTC())
	row, err := resource.QueryOne(ctx, s.mgr.DB(), stmt)
	if err != nil {
		return nil, fmt.Errorf("reject submission %d: %w", submissionID, err)
	}
	if row == nil {
		return nil, nil
	}

	s.audit(ctx, audit.Entry{
		Action:       audit.ActionSubmissionRejected,
		ResourceType: "submissions",
		ResourceID:   submissionID,
		ActorID:      reviewerID,
		Detail:       map[string]any{"reason": reason},
		RowsAffected: 1,
	})
	return row, nil
}
