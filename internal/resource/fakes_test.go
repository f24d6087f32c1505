package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/forkful/backoffice/internal/audit"
)

// stub scripts the response for any statement containing match.
type stub struct {
	match string
	cols  []string
	rows  [][]any
	err   error
}

// fakeDB is a scripted stand-in for a pgx pool. Lookups are by SQL
// substring so tests read as "this query gets these rows". The mutex
// matters: FindAll issues its list and count queries concurrently.
type fakeDB struct {
	mu       sync.Mutex
	stubs    []stub
	queries  []string
	execs    []string
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
	f.mu.Lock()
	f.execs = append(f.execs, sql)
	f.mu.Unlock()
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
	if s == nil {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	if s.err != nil {
		return &fakeRow{err: s.err}
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

// fakeTx records savepoint traffic and can fail inserts whose args
// contain failValue, mimicking a unique constraint violation.
type fakeTx struct {
	pgx.Tx

	db         *fakeDB
	execs      []string
	failValue  string
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.NewCommandTag("OK"), nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	if t.shouldFail(args) {
		return nil, errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)")
	}
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	if t.shouldFail(args) {
		return &fakeRow{err: errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)")}
	}
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) shouldFail(args []interface{}) bool {
	if t.failValue == "" {
		return false
	}
	for _, a := range args {
		if s, ok := a.(string); ok && s == t.failValue {
			return true
		}
	}
	return false
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

// fakeRows walks a fixed grid, implementing just enough of pgx.Rows.
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

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.idx-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.values[r.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			return fmt.Errorf("scan: no value for dest %d", i)
		}
		if err := assignScan(d, row[i]); err != nil {
			return err
		}
	}
	return nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) {
			return fmt.Errorf("scan: no value for dest %d", i)
		}
		if err := assignScan(d, r.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func assignScan(dest, v any) error {
	switch d := dest.(type) {
	case *int64:
		switch n := v.(type) {
		case int64:
			*d = n
		case int:
			*d = int64(n)
		default:
			return fmt.Errorf("scan: cannot assign %T to *int64", v)
		}
	case *int:
		switch n := v.(type) {
		case int64:
			*d = int(n)
		case int:
			*d = n
		default:
			return fmt.Errorf("scan: cannot assign %T to *int", v)
		}
	case *string:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("scan: cannot assign %T to *string", v)
		}
		*d = s
	case *time.Time:
		ts, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("scan: cannot assign %T to *time.Time", v)
		}
		*d = ts
	case *pgtype.Text:
		if v == nil {
			*d = pgtype.Text{}
			return nil
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("scan: cannot assign %T to *pgtype.Text", v)
		}
		*d = pgtype.Text{String: s, Valid: true}
	default:
		return fmt.Errorf("scan: unsupported dest %T", dest)
	}
	return nil
}

// fakeRecorder captures audit entries for assertions.
type fakeRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *fakeRecorder) Record(ctx context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}
