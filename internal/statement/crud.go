package statement

import (
	"fmt"
	"strings"

	"github.com/forkful/backoffice/internal/registry"
)

// Pagination bounds. Callers can ask for less but never more.
const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// ListQuery carries the browse parameters for a paginated list.
type ListQuery struct {
	Page     int
	PageSize int
	SortCol  string
	SortDir  string
	Search   string            // free-text match across text columns
	Filters  map[string]string // column -> value; unknown keys are skipped
}

// Normalize clamps page and page size into range.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// joinSpec surfaces read-only display columns from related tables. The
// base table is always aliased t; join aliases are fixed per type.
type joinSpec struct {
	columns string
	clause  string
}

var joins = map[string]joinSpec{
	"dishes": {
		columns: ", r.name AS restaurant_name",
		clause:  " LEFT JOIN restaurants r ON t.restaurant_id = r.id",
	},
	"restaurants": {
		columns: ", c.name AS city_name, n.name AS neighborhood_name",
		clause:  " LEFT JOIN cities c ON t.city_id = c.id LEFT JOIN neighborhoods n ON t.neighborhood_id = n.id",
	},
	"neighborhoods": {
		columns: ", c.name AS city_name",
		clause:  " LEFT JOIN cities c ON t.city_id = c.id",
	},
}

// List builds the paginated row statement and its matching count
// statement. Both share the same FROM, joins, and predicate; the count
// statement carries the same arguments minus limit and offset.
func List(d *registry.Descriptor, q ListQuery) (Statement, Statement) {
	q = q.Normalize()

	wb := NewWhereBuilder()
	wb.AddSearch(q.Search, searchColumns(d))
	addFilters(wb, d, q.Filters)
	whereClause, args := wb.Build()

	j := joins[d.Type]
	from := fmt.Sprintf("FROM %s t%s", quoteIdentifier(d.Table), j.clause)

	count := Statement{
		SQL:  fmt.Sprintf("SELECT COUNT(*) %s%s", from, whereClause),
		Args: args,
	}

	argIndex := wb.NextArgIndex()
	main := Statement{
		SQL: fmt.Sprintf("SELECT t.*%s %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
			j.columns, from, whereClause, orderBy(d, q.SortCol, q.SortDir), argIndex, argIndex+1),
		Args: append(append(make([]any, 0, len(args)+2), args...), q.PageSize, (q.Page-1)*q.PageSize),
	}
	return main, count
}

// GetByID builds a single-row fetch with the same display joins as List.
func GetByID(d *registry.Descriptor, id int64) Statement {
	j := joins[d.Type]
	return Statement{
		SQL:  fmt.Sprintf("SELECT t.*%s FROM %s t%s WHERE t.id = $1", j.columns, quoteIdentifier(d.Table), j.clause),
		Args: []any{id},
	}
}

// Delete builds a single-row delete. RETURNING * lets the caller
// distinguish a deleted row from an absent id without a second query.
func Delete(d *registry.Descriptor, id int64) Statement {
	return Statement{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE id = $1 RETURNING *", quoteIdentifier(d.Table)),
		Args: []any{id},
	}
}

// DeleteByIDs builds a multi-row delete for batch rollback. The id list
// binds as one array argument; rows that no longer exist are simply not
// returned.
func DeleteByIDs(d *registry.Descriptor, ids []int64) Statement {
	return Statement{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1) RETURNING id", quoteIdentifier(d.Table)),
		Args: []any{ids},
	}
}

// Create projects data onto the create allow-list and builds the insert.
// Returns ErrNoValidColumns when nothing survives projection.
func Create(d *registry.Descriptor, data map[string]any) (Statement, error) {
	cols, vals := projectAllowed(data, d.CreateFields)
	if len(cols) == 0 {
		return Statement{}, fmt.Errorf("%w: insert into %s", ErrNoValidColumns, d.Type)
	}

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return Statement{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			quoteIdentifier(d.Table), strings.Join(quoted, ", "), strings.Join(placeholders, ", ")),
		Args: vals,
	}, nil
}

// Update projects data onto the update allow-list and builds the update.
// Returns ErrNoValidColumns when nothing survives projection.
func Update(d *registry.Descriptor, id int64, data map[string]any) (Statement, error) {
	cols, vals := projectAllowed(data, d.UpdateFields)
	if len(cols) == 0 {
		return Statement{}, fmt.Errorf("%w: update of %s", ErrNoValidColumns, d.Type)
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(c), i+1)
	}

	return Statement{
		SQL: fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *",
			quoteIdentifier(d.Table), strings.Join(sets, ", "), len(cols)+1),
		Args: append(vals, id),
	}, nil
}

// projectAllowed restricts data to allow-listed columns, in allow-list
// order so generated statements are deterministic. Keys match
// case-insensitively; explicit nulls survive projection.
func projectAllowed(data map[string]any, allowed []string) ([]string, []any) {
	var cols []string
	var vals []any
	for _, col := range allowed {
		v, ok := lookupKeyFold(data, col)
		if !ok {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, v)
	}
	return cols, vals
}

// addFilters appends one condition per non-empty filter on a descriptor
// column: text columns match case-insensitively on a partial value, all
// others compare equal. Document columns and unknown keys are skipped.
// Conditions follow descriptor field order so generated SQL is
// deterministic regardless of map iteration.
func addFilters(wb *WhereBuilder, d *registry.Descriptor, filters map[string]string) {
	if len(filters) == 0 {
		return
	}
	for _, f := range d.Fields {
		value, ok := lookupFold(filters, f.Name)
		if !ok || value == "" {
			continue
		}
		if f.Kind == registry.FieldJSON {
			continue
		}
		col := qualify("t", f.Name)
		if isTextKind(f.Kind) {
			wb.AddContains(col, value)
		} else {
			wb.Add(col, value)
		}
	}
}

// searchColumns lists the alias-qualified text columns free-text search
// covers.
func searchColumns(d *registry.Descriptor) []string {
	var cols []string
	for _, f := range d.Fields {
		if isTextKind(f.Kind) {
			cols = append(cols, qualify("t", f.Name))
		}
	}
	return cols
}

func isTextKind(k registry.FieldKind) bool {
	switch k {
	case registry.FieldText, registry.FieldEmail, registry.FieldPhone, registry.FieldURL:
		return true
	default:
		return false
	}
}

// Columns every table carries and may sort by even though descriptors
// only list writable fields.
var baseSortable = []string{"id", "created_at", "updated_at"}

// orderBy resolves the sort column case-insensitively against the
// descriptor, defaulting to id, and clamps the direction. A trailing id
// tiebreaker keeps pagination stable under equal keys.
func orderBy(d *registry.Descriptor, col, dir string) string {
	sortCol := "id"
	if col != "" {
		if f, ok := d.Field(col); ok {
			sortCol = f.Name
		} else {
			for _, c := range baseSortable {
				if strings.EqualFold(c, col) {
					sortCol = c
					break
				}
			}
		}
	}

	direction := strings.ToLower(dir)
	if direction != "asc" && direction != "desc" {
		direction = "asc"
	}

	order := fmt.Sprintf("%s %s", qualify("t", sortCol), direction)
	if sortCol != "id" {
		order += ", " + qualify("t", "id") + " asc"
	}
	return order
}

func lookupFold(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func lookupKeyFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
