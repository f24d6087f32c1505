// Package statement turns (descriptor, request) pairs into parameterized
// SQL for the generic resource engine. Every builder here is pure: no
// database access, no side effects. The security invariant throughout is
// that values are always bound positionally and only identifiers are
// interpolated, and only after quoting.
package statement

import (
	"errors"
	"fmt"
	"strings"
)

// Statement is one executable SQL string plus its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

var (
	// ErrNoValidColumns means an insert or update payload had nothing
	// left after projection onto the allow-list.
	ErrNoValidColumns = errors.New("no valid columns")

	// ErrUnsupportedLookupType means the resource type has no id/name
	// lookup shape.
	ErrUnsupportedLookupType = errors.New("unsupported lookup type")
)

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualify prefixes a quoted column with a table alias. Aliases are always
// our own constants, never caller input.
func qualify(alias, column string) string {
	return alias + "." + quoteIdentifier(column)
}

// WhereBuilder accumulates WHERE conditions with positional parameters.
// Column arguments are expressions prepared by the caller (quoted and
// possibly alias-qualified from descriptor metadata); values always become
// bound arguments.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns a builder starting at parameter $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends an equality condition. Empty values are skipped.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", column, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddValue appends an equality condition for an arbitrarily typed value.
// Nil values are skipped.
func (wb *WhereBuilder) AddValue(column string, value any) {
	if value == nil {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", column, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddFold appends a case-insensitive exact match: ILIKE with the bare
// value, no wildcards. Empty values are skipped.
func (wb *WhereBuilder) AddFold(column, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s ILIKE $%d", column, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddContains appends a case-insensitive partial match. Empty values are
// skipped.
func (wb *WhereBuilder) AddContains(column, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s ILIKE $%d", column, wb.argIndex))
	wb.args = append(wb.args, "%"+value+"%")
	wb.argIndex++
}

// AddSearch appends one OR group matching the query against every given
// column. All branches share a single bound argument.
func (wb *WhereBuilder) AddSearch(query string, columns []string) {
	query = strings.TrimSpace(query)
	if query == "" || len(columns) == 0 {
		return
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, wb.argIndex)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+query+"%")
	wb.argIndex++
}

// AddTimestampRange appends >= start and <= end bounds. Either side may be
// empty and is then skipped.
func (wb *WhereBuilder) AddTimestampRange(column, start, end string) {
	if start != "" {
		wb.conditions = append(wb.conditions, fmt.Sprintf("%s >= $%d", column, wb.argIndex))
		wb.args = append(wb.args, start)
		wb.argIndex++
	}
	if end != "" {
		wb.conditions = append(wb.conditions, fmt.Sprintf("%s <= $%d", column, wb.argIndex))
		wb.args = append(wb.args, end)
		wb.argIndex++
	}
}

// Build returns the assembled clause with a leading " WHERE ", or ("", nil)
// when no conditions were added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex returns the positional index the next bound parameter would
// take, for statements that append their own arguments after the clause.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}
