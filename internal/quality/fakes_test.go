package quality

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/forkful/backoffice/internal/audit"
	"github.com/forkful/backoffice/internal/registry"
	"github.com/forkful/backoffice/internal/resource"
)

func newTestService(db *fakeDB, places PlaceLookup) (*Service, *fakeRecorder) {
	rec := &fakeRecorder{}
	mgr := resource.NewManager(db, registry.Default(), rec)
	s := NewService(mgr, places, rec)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s, rec
}

// stub scripts the response for any statement containing match.
type stub struct {
	match string
	cols  []string
	rows  [][]any
	err   error
}

type fakeDB struct {
	mu       sync.Mutex
	stubs    []stub
	queries  []string
	beginErr error
	tx       *fakeTx
}

func (f *fakeDB) record(sql string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, sql)
}

func (f *fakeDB) find(sql string) *stub {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.stubs {
		if strings.Contains(sql, f.stubs[i].match) {
			return &f.stubs[i]
		}
	}
	return nil
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("OK"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	f.record(sql)
	s := f.find(sql)
	if s == nil {
		return &fakeRows{}, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return &fakeRows{cols: s.cols, values: s.rows}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	f.record(sql)
	s := f.find(sql)
	if s == nil || s.err != nil {
		if s != nil && s.err != nil {
			return &fakeRow{err: s.err}
		}
		return &fakeRow{err: pgx.ErrNoRows}
	}
	if len(s.rows) == 0 {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	return &fakeRow{values: s.rows[0]}
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tx == nil {
		f.tx = &fakeTx{db: f}
	}
	return f.tx, nil
}

type fakeTx struct {
	pgx.Tx

	db         *fakeDB
	execs      []string
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.NewCommandTag("OK"), nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type fakeRows struct {
	cols   []string
	values [][]any
	idx    int
	err    error
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.values) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.values[r.idx-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	return scanValues(r.values[r.idx-1], dest)
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanValues(r.values, dest)
}

func scanValues(row []any, dest []any) error {
	for i, d := range dest {
		if i >= len(row) {
			return fmt.Errorf("scan: no value for dest %d", i)
		}
		v := row[i]
		switch out := d.(type) {
		case *int64:
			switch n := v.(type) {
			case int64:
				*out = n
			case int:
				*out = int64(n)
			default:
				return fmt.Errorf("scan: cannot assign %T to *int64", v)
			}
		case *string:
			*out = v.(string)
		case *pgtype.Text:
			if v == nil {
				*out = pgtype.Text{}
			} else {
				*out = pgtype.Text{String: v.(string), Valid: true}
			}
		case *pgtype.Int8:
			if v == nil {
				*out = pgtype.Int8{}
			} else {
				switch n := v.(type) {
				case int64:
					*out = pgtype.Int8{Int64: n, Valid: true}
				case int:
					*out = pgtype.Int8{Int64: int64(n), Valid: true}
				default:
					return fmt.Errorf("scan: cannot assign %T to *pgtype.Int8", v)
				}
			}
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *fakeRecorder) Record(ctx context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// placeFake scripts place lookups by place id.
type placeFake struct {
	details map[string]*PlaceDetails
	err     error
	calls   []string
}

func (p *placeFake) FetchPlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error) {
	p.calls = append(p.calls, placeID)
	if p.err != nil {
		return nil, p.err
	}
	return p.details[placeID], nil
}
