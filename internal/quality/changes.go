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

// ApplyChanges applies approved changes inside one transaction, one
// savepoint per change. Before writing, each change re-fetches its row
// and compares the live field value against the recorded current value;
// a mismatch captures ErrStaleChange and leaves the field alone. Commit
// policy matches bulk add: any success commits, all-fail rolls back.
func (s *Service) ApplyChanges(ctx context.Context, resourceType string, changes []ProposedChange, opts ApplyOptions) (*ApplyResult, error) {
	d, err := s.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{Changes: []AppliedChange{}}
	if len(changes) == 0 {
		return result, nil
	}

	tx, err := s.mgr.DB().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply changes for %s: %w", d.Type, err)
	}
	defer tx.Rollback(ctx)

	for i, ch := range changes {
		outcome := AppliedChange{ProposedChange: ch}

		if ch.ResourceType != "" && !strings.EqualFold(ch.ResourceType, d.Type) {
			outcome.Status = StatusFailed
			outcome.Error = fmt.Sprintf("change targets %s, not %s", ch.ResourceType, d.Type)
			result.FailedCount++
			result.Changes = append(result.Changes, outcome)
			continue
		}

		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return nil, fmt.Errorf("create savepoint: %w", err)
		}

		row, err := resource.QueryOne(ctx, tx, statement.GetByID(d, ch.ResourceID))
		if err != nil {
			_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint)
			outcome.Status = StatusFailed
			outcome.Error = err.Error()
			result.FailedCount++
			result.Changes = append(result.Changes, outcome)
			continue
		}
		if row == nil {
			_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint)
			outcome.Status = StatusNotFound
			outcome.Error = ErrResourceNotFound.Error()
			result.FailedCount++
			result.Changes = append(result.Changes, outcome)
			continue
		}
		if !valuesEqual(row[ch.Field], ch.CurrentValue) {
			_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint)
			outcome.Status = StatusStale
			outcome.Error = ErrStaleChange.Error()
			result.FailedCount++
			result.Changes = append(result.Changes, outcome)
			continue
		}

		stmt, err := statement.Update(d, ch.ResourceID, map[string]any{ch.Field: coerceProposed(ch.Field, ch.ProposedValue)})
		if err == nil {
			var updated resource.Row
			updated, err = resource.QueryOne(ctx, tx, stmt)
			if err == nil && updated == nil {
				err = ErrResourceNotFound
			}
		}
		if err != nil {
			_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint)
			outcome.Status = StatusFailed
			outcome.Error = err.Error()
			result.FailedCount++
			result.Changes = append(result.Changes, outcome)
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return nil, fmt.Errorf("release savepoint: %w", err)
		}

		at := s.now().UTC()
		outcome.Status = StatusApplied
		outcome.AppliedAt = &at
		result.AppliedCount++
		result.Changes = append(result.Changes, outcome)
	}

	if result.AppliedCount == 0 {
		slog.Info("apply batch rolled back",
			"resource_type", d.Type,
			"failed", result.FailedCount,
		)
		return result, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit changes for %s: %w", d.Type, err)
	}

	slog.Info("changes applied",
		"resource_type", d.Type,
		"applied", result.AppliedCount,
		"failed", result.FailedCount,
	)
	s.audit(ctx, audit.Entry{
		Action:       audit.ActionChangesApplied,
		ResourceType: d.Type,
		ActorID:      opts.ActorID,
		Detail:       map[string]any{"applied": result.AppliedCount, "failed": result.FailedCount},
		RowsAffected: result.AppliedCount,
	})
	return result, nil
}

// RejectChanges is pure bookkeeping: proposals live nowhere, so
// rejecting one just stamps the outcome for the caller's records.
func (s *Service) RejectChanges(resourceType string, changes []ProposedChange) []AppliedChange {
	at := s.now().UTC()
	out := make([]AppliedChange, 0, len(changes))
	for _, ch := range changes {
		rejected := AppliedChange{ProposedChange: ch, AppliedAt: &at}
		rejected.Status = StatusRejected
		out = append(out, rejected)
	}
	return out
}

// coerceProposed settles JSON number drift before binding: id columns
// take integers, not the float64 a JSON body decodes to.
func coerceProposed(field string, v any) any {
	if !strings.HasSuffix(field, "_id") {
		return v
	}
	if n, ok := toInt64(v); ok {
		return n
	}
	return v
}

func (s *Service) audit(ctx context.Context, e audit.Entry) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, e)
}
