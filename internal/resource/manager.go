// Package resource implements the generic find/create/update/delete/bulk
// engine shared by every resource type. All SQL comes from the statement
// package and all table knowledge comes from the registry; nothing here is
// specific to any one resource type.
package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/errgroup"

	"github.com/forkful/backoffice/internal/audit"
	"github.com/forkful/backoffice/internal/registry"
	"github.com/forkful/backoffice/internal/statement"
)

// DB is the database handle the manager needs. *pgxpool.Pool satisfies it;
// tests satisfy it with fakes.
type DB interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// AuditRecorder records admin actions. Implementations must never fail
// the calling operation. A nil recorder disables auditing.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry)
}

// Manager executes generic resource operations against one database
// handle. It owns transaction boundaries for multi-row mutations.
type Manager struct {
	db       DB
	reg      *registry.Registry
	recorder AuditRecorder
}

// NewManager wires a manager. recorder may be nil.
func NewManager(db DB, reg *registry.Registry, recorder AuditRecorder) *Manager {
	return &Manager{db: db, reg: reg, recorder: recorder}
}

// DB exposes the underlying handle for collaborators that manage their
// own transactions.
func (m *Manager) DB() DB {
	return m.db
}

// Registry exposes the injected registry.
func (m *Manager) Registry() *registry.Registry {
	return m.reg
}

// Pagination describes one page of a list result.
type Pagination struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalItems      int64 `json:"totalItems"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// ListResult is the findAll envelope.
type ListResult struct {
	Items      []Row      `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// FindAll returns one page of formatted rows plus the pagination envelope.
// The row fetch and the count run concurrently on independent pool
// connections; they share the same predicate by construction.
func (m *Manager) FindAll(ctx context.Context, resourceType string, q statement.ListQuery) (*ListResult, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	q = q.Normalize()
	mainStmt, countStmt := statement.List(d, q)

	var (
		items []Row
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := m.db.Query(gctx, mainStmt.SQL, mainStmt.Args...)
		if err != nil {
			return fmt.Errorf("list rows: %w", err)
		}
		items, err = Collect(rows)
		return err
	})
	g.Go(func() error {
		if err := m.db.QueryRow(gctx, countStmt.SQL, countStmt.Args...).Scan(&total); err != nil {
			return fmt.Errorf("count rows: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, opErr("findAll", d.Type, err)
	}

	if items == nil {
		items = []Row{}
	}
	for i, row := range items {
		items[i] = Row(d.Format(row))
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	return &ListResult{
		Items: items,
		Pagination: Pagination{
			CurrentPage:     q.Page,
			TotalPages:      totalPages,
			TotalItems:      total,
			ItemsPerPage:    q.PageSize,
			HasNextPage:     q.Page < totalPages,
			HasPreviousPage: q.Page > 1,
		},
	}, nil
}

// FindByID returns one formatted row, or (nil, nil) when the id is absent.
func (m *Manager) FindByID(ctx context.Context, resourceType string, id int64) (Row, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	row, err := QueryOne(ctx, m.db, statement.GetByID(d, id))
	if err != nil {
		return nil, opErr("findById", d.Type, err)
	}
	if row == nil {
		return nil, nil
	}
	return Row(d.Format(row)), nil
}

// Create inserts one row through the create allow-list and returns the
// stored row. Zero returned rows fail ErrInsertReturnedNoRow.
func (m *Manager) Create(ctx context.Context, resourceType string, data map[string]any, actorID string) (Row, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	stmt, err := statement.Create(d, data)
	if err != nil {
		return nil, err
	}

	row, err := QueryOne(ctx, m.db, stmt)
	if err != nil {
		return nil, opErr("create", d.Type, err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrInsertReturnedNoRow, d.Type)
	}

	m.audit(ctx, audit.Entry{
		Action:       audit.ActionResourceCreate,
		ResourceType: d.Type,
		ResourceID:   RowID(row),
		ActorID:      actorID,
		RowsAffected: 1,
	})
	return Row(d.Format(row)), nil
}

// Update writes the allow-listed columns of data to one row and returns
// the stored row, or (nil, nil) when the id is absent.
func (m *Manager) Update(ctx context.Context, resourceType string, id int64, data map[string]any, actorID string) (Row, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	stmt, err := statement.Update(d, id, data)
	if err != nil {
		return nil, err
	}

	row, err := QueryOne(ctx, m.db, stmt)
	if err != nil {
		return nil, opErr("update", d.Type, err)
	}
	if row == nil {
		return nil, nil
	}

	m.audit(ctx, audit.Entry{
		Action:       audit.ActionResourceUpdate,
		ResourceType: d.Type,
		ResourceID:   id,
		ActorID:      actorID,
		Detail:       map[string]any{"columns": updatedColumns(d, data)},
		RowsAffected: 1,
	})
	return Row(d.Format(row)), nil
}

// Delete removes one row and returns it, or (nil, nil) when the id is
// absent.
func (m *Manager) Delete(ctx context.Context, resourceType string, id int64, actorID string) (Row, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	row, err := QueryOne(ctx, m.db, statement.Delete(d, id))
	if err != nil {
		return nil, opErr("delete", d.Type, err)
	}
	if row == nil {
		return nil, nil
	}

	m.audit(ctx, audit.Entry{
		Action:       audit.ActionResourceDelete,
		ResourceType: d.Type,
		ResourceID:   id,
		ActorID:      actorID,
		RowsAffected: 1,
	})
	return Row(d.Format(row)), nil
}

// GetLookup returns the id→name map that feeds reference selectors.
func (m *Manager) GetLookup(ctx context.Context, resourceType string) (map[int64]string, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	stmt, err := statement.Lookup(d)
	if err != nil {
		return nil, err
	}

	rows, err := m.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, opErr("getLookup", d.Type, err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			name pgtype.Text
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, opErr("getLookup", d.Type, err)
		}
		out[id] = name.String
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("getLookup", d.Type, err)
	}
	return out, nil
}

// AllRows fetches every row of a type in id order, the analyzer's input.
func (m *Manager) AllRows(ctx context.Context, resourceType string) ([]Row, error) {
	d, err := m.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	stmt := statement.AllRows(d)
	rows, err := m.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, opErr("allRows", d.Type, err)
	}
	return Collect(rows)
}

func (m *Manager) audit(ctx context.Context, e audit.Entry) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(ctx, e)
}

// updatedColumns reports which allow-listed columns an update touched,
// for the audit trail.
func updatedColumns(d *registry.Descriptor, data map[string]any) []string {
	cols := make([]string, 0, len(data))
	for _, col := range d.UpdateFields {
		for k := range data {
			if strings.EqualFold(k, col) {
				cols = append(cols, col)
				break
			}
		}
	}
	return cols
}
