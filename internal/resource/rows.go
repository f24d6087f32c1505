package resource

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/forkful/backoffice/internal/statement"
)

// Row is one resource row as an opaque column→value mapping. The database
// owns row state; rows are never cached across calls.
type Row map[string]any

// Querier is the one-method slice of DB that row fetches need. Both DB
// and pgx.Tx satisfy it.
type Querier interface {
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

// QueryOne runs a statement expected to yield at most one row. Zero rows
// return (nil, nil).
func QueryOne(ctx context.Context, q Querier, stmt statement.Statement) (Row, error) {
	rows, err := q.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	decoded, err := Collect(rows)
	if err != nil {
		return nil, err
	}
	if len(decoded) == 0 {
		return nil, nil
	}
	return decoded[0], nil
}

// Collect decodes every row into a column→value map using the result's
// field descriptions, closing the rows when done. Driver-specific value
// types are normalized so rows can be formatted and serialized directly.
func Collect(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// normalizeValue converts driver value types into plain Go values.
// Numerics become decimals so price fields survive JSON without float
// drift; uuids and network types become strings.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case pgtype.Numeric:
		if !n.Valid || n.NaN || n.Int == nil {
			return nil
		}
		return decimal.NewFromBigInt(n.Int, n.Exp)
	case [16]byte:
		return uuid.UUID(n).String()
	case netip.Addr:
		return n.String()
	case netip.Prefix:
		return n.String()
	case time.Time:
		return n
	default:
		return v
	}
}

// RowID extracts the primary key from a decoded row, tolerating the
// integer shapes different paths produce.
func RowID(row Row) int64 {
	switch id := row["id"].(type) {
	case int64:
		return id
	case int32:
		return int64(id)
	case int:
		return int64(id)
	case float64:
		return int64(id)
	default:
		return 0
	}
}
