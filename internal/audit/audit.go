// Package audit records admin actions to the admin_audit_log table.
// Recording is observability, not control flow: a failed write is logged
// and swallowed so it can never fail the operation that triggered it.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/forkful/backoffice/internal/statement"
)

// Actions recorded by the admin surface.
const (
	ActionResourceCreate     = "resource_create"
	ActionResourceUpdate     = "resource_update"
	ActionResourceDelete     = "resource_delete"
	ActionBulkAdd            = "bulk_add"
	ActionBulkRollback       = "bulk_rollback"
	ActionChangesApplied     = "changes_applied"
	ActionSubmissionApproved = "submission_approved"
	ActionSubmissionRejected = "submission_rejected"
)

// Entry is one audit record.
type Entry struct {
	ID           uuid.UUID      `json:"id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType,omitempty"`
	ResourceID   int64          `json:"resourceId,omitempty"`
	ActorID      string         `json:"actorId,omitempty"`
	BatchID      string         `json:"batchId,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	RowsAffected int            `json:"rowsAffected"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// DBTX is the narrow database surface the recorder needs.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Recorder writes and reads audit entries.
type Recorder struct {
	db DBTX
}

func NewRecorder(db DBTX) *Recorder {
	return &Recorder{db: db}
}

const insertEntry = `INSERT INTO admin_audit_log
(id, action, resource_type, resource_id, actor_id, batch_id, detail, rows_affected, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Record writes one entry, filling in identity and timestamp when the
// caller left them zero. Failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	detail, err := json.Marshal(e.Detail)
	if err != nil {
		slog.Error("audit detail marshal failed", "action", e.Action, "error", err)
		detail = []byte("null")
	}

	_, err = r.db.Exec(ctx, insertEntry,
		e.ID,
		e.Action,
		toPgText(e.ResourceType),
		toPgInt8(e.ResourceID),
		toPgText(e.ActorID),
		toPgText(e.BatchID),
		detail,
		e.RowsAffected,
		e.CreatedAt,
	)
	if err != nil {
		slog.Error("audit record failed",
			"action", e.Action,
			"resource_type", e.ResourceType,
			"error", err,
		)
	}
}

// Audit pages are larger than resource pages; the log is append-only and
// operators scan it in bulk.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ListOptions filter the audit log. String timestamps are passed through
// as bounds on created_at.
type ListOptions struct {
	Action       string
	ResourceType string
	ActorID      string
	Start        string
	End          string
	Page         int
	PageSize     int
}

// PageResult is one page of audit entries, newest first.
type PageResult struct {
	Entries    []Entry `json:"entries"`
	TotalItems int64   `json:"totalItems"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}

// List returns matching entries ordered by created_at descending.
func (r *Recorder) List(ctx context.Context, opts ListOptions) (*PageResult, error) {
	wb := statement.NewWhereBuilder()
	wb.Add("action", opts.Action)
	wb.Add("resource_type", opts.ResourceType)
	wb.Add("actor_id", opts.ActorID)
	wb.AddTimestampRange("created_at", opts.Start, opts.End)
	where, args := wb.Build()

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM admin_audit_log"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit log: %w", err)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	argIndex := wb.NextArgIndex()
	query := fmt.Sprintf(`SELECT id, action, resource_type, resource_id, actor_id, batch_id, detail, rows_affected, created_at
FROM admin_audit_log%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIndex, argIndex+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit rows: %w", err)
	}

	return &PageResult{
		Entries:    entries,
		TotalItems: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// FindByBatch returns every entry stamped with the batch id, oldest
// first, so a batch's full history (import, then any rollback) reads in
// order. Unknown batch ids return an empty slice.
func (r *Recorder) FindByBatch(ctx context.Context, batchID string) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, action, resource_type, resource_id, actor_id, batch_id, detail, rows_affected, created_at
FROM admin_audit_log WHERE batch_id = $1 ORDER BY created_at ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query audit batch: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit rows: %w", err)
	}
	return entries, nil
}

// Get fetches one entry. Absent ids return (nil, nil).
func (r *Recorder) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, action, resource_type, resource_id, actor_id, batch_id, detail, rows_affected, created_at
FROM admin_audit_log WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query audit entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	e, err := scanEntry(rows)
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	return &e, nil
}

func scanEntry(rows pgx.Rows) (Entry, error) {
	var (
		e          Entry
		resourceID pgtype.Int8
		actorID    pgtype.Text
		rtype      pgtype.Text
		batchID    pgtype.Text
		detail     []byte
	)
	if err := rows.Scan(&e.ID, &e.Action, &rtype, &resourceID, &actorID, &batchID, &detail, &e.RowsAffected, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	e.ResourceType = rtype.String
	e.ResourceID = resourceID.Int64
	e.ActorID = actorID.String
	e.BatchID = batchID.String
	if len(detail) > 0 {
		_ = json.Unmarshal(detail, &e.Detail)
	}
	return e, nil
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toPgInt8(n int64) pgtype.Int8 {
	return pgtype.Int8{Int64: n, Valid: n != 0}
}
