package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/forkful/backoffice/internal/audit"
	"github.com/forkful/backoffice/internal/logging"
	"github.com/forkful/backoffice/internal/statement"
)

// BulkError ties one failure to the input position that caused it.
type BulkError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BulkResult reports the outcome of a bulk insert.
type BulkResult struct {
	BatchID      string      `json:"batchId"`
	SuccessCount int         `json:"successCount"`
	FailureCount int         `json:"failureCount"`
	Errors       []BulkError `json:"errors"`
	CreatedItems []Row       `json:"createdItems"`

	// createdIDs feeds the audit entry so the batch stays reversible.
	createdIDs []int64
}

// BulkAdd inserts items inside one transaction, strictly in order. Each
// insert runs under its own savepoint so one bad item cannot poison the
// batch. Commit policy: any success commits, all-fail rolls back.
func (m *Manager) BulkAdd(ctx context.Context, resourceType string, items []map[string]any, actorID string) (*BulkResult, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{
		BatchID:      uuid.NewString(),
		Errors:       []BulkError{},
		CreatedItems: []Row{},
	}
	if len(items) == 0 {
		return result, nil
	}
	logger := logging.WithFields(ctx, "resource_type", d.Type, "batch_id", result.BatchID)

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return nil, opErr("bulkAdd", d.Type, err)
	}
	defer tx.Rollback(ctx)

	for i, item := range items {
		stmt, err := statement.Create(d, item)
		if err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, BulkError{Index: i, Message: err.Error()})
			continue
		}

		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return nil, opErr("bulkAdd", d.Type, fmt.Errorf("create savepoint: %w", err))
		}

		row, err := QueryOne(ctx, tx, stmt)
		if err != nil {
			_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint)
			result.FailureCount++
			result.Errors = append(result.Errors, BulkError{Index: i, Message: fmt.Sprintf("insert: %v", err)})
			continue
		}
		if row == nil {
			_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint)
			result.FailureCount++
			result.Errors = append(result.Errors, BulkError{Index: i, Message: ErrInsertReturnedNoRow.Error()})
			continue
		}
		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return nil, opErr("bulkAdd", d.Type, fmt.Errorf("release savepoint: %w", err))
		}

		result.SuccessCount++
		result.createdIDs = append(result.createdIDs, RowID(row))
		result.CreatedItems = append(result.CreatedItems, Row(d.Format(row)))
	}

	// All-fail: let the deferred rollback discard the transaction.
	if result.SuccessCount == 0 {
		logger.Info("bulk add rolled back", "failed", result.FailureCount)
		return result, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, opErr("bulkAdd", d.Type, err)
	}

	logger.Info("bulk add committed",
		"inserted", result.SuccessCount,
		"failed", result.FailureCount,
	)
	m.audit(ctx, audit.Entry{
		Action:       audit.ActionBulkAdd,
		ResourceType: d.Type,
		ActorID:      actorID,
		BatchID:      result.BatchID,
		Detail: map[string]any{
			"failed":      result.FailureCount,
			"created_ids": result.createdIDs,
		},
		RowsAffected: result.SuccessCount,
	})
	return result, nil
}

// RollbackBatch deletes the rows a bulk import created, identified by the
// ids its audit entry recorded. Ids already deleted by other means are
// skipped; the returned count is the number of rows actually removed.
func (m *Manager) RollbackBatch(ctx context.Context, resourceType, batchID string, ids []int64, actorID string) (int, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	stmt := statement.DeleteByIDs(d, ids)
	rows, err := m.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, opErr("rollbackBatch", d.Type, err)
	}
	deleted, err := Collect(rows)
	if err != nil {
		return 0, opErr("rollbackBatch", d.Type, err)
	}

	slog.Info("bulk batch rolled back",
		"resource_type", d.Type,
		"batch_id", batchID,
		"requested", len(ids),
		"deleted", len(deleted),
	)
	m.audit(ctx, audit.Entry{
		Action:       audit.ActionBulkRollback,
		ResourceType: d.Type,
		ActorID:      actorID,
		BatchID:      batchID,
		Detail:       map[string]any{"requested": len(ids)},
		RowsAffected: len(deleted),
	})
	return len(deleted), nil
}

// ExistingCheck is one tagged result of a duplicate probe.
type ExistingCheck struct {
	Index      int    `json:"index"`
	Exists     bool   `json:"exists"`
	MatchedID  int64  `json:"matchedId,omitempty"`
	Unverified bool   `json:"unverified,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CheckExisting probes each candidate's natural key sequentially and
// returns one result per input. Candidates without enough fields for a
// key are tagged unverified and treated as no match; database errors are
// captured per item rather than failing the batch.
func (m *Manager) CheckExisting(ctx context.Context, resourceType string, items []map[string]any) ([]ExistingCheck, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	results := make([]ExistingCheck, 0, len(items))
	for i, item := range items {
		check := ExistingCheck{Index: i}

		stmt := statement.ExistenceCheck(d, item)
		if stmt == nil {
			check.Unverified = true
			results = append(results, check)
			continue
		}

		var id int64
		err := m.db.QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(&id)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// no match
		case err != nil:
			check.Error = err.Error()
		default:
			check.Exists = true
			check.MatchedID = id
		}
		results = append(results, check)
	}
	return results, nil
}
