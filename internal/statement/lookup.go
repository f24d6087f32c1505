package statement

import (
	"fmt"

	"github.com/forkful/backoffice/internal/registry"
)

// Lookup builds the fixed id/name projection that feeds reference
// selectors. Types without a name column fail ErrUnsupportedLookupType.
func Lookup(d *registry.Descriptor) (Statement, error) {
	if !d.HasNameColumn() {
		return Statement{}, fmt.Errorf("%w: %s", ErrUnsupportedLookupType, d.Type)
	}
	return Statement{
		SQL: fmt.Sprintf("SELECT id, name FROM %s ORDER BY name", quoteIdentifier(d.Table)),
	}, nil
}

// ZipLookup finds a neighborhood whose stored zip_codes text contains the
// zip. The zip is bound, wildcards and all.
func ZipLookup(zip string) Statement {
	return Statement{
		SQL:  "SELECT id, name, city_id FROM neighborhoods WHERE zip_codes LIKE $1 LIMIT 1",
		Args: []any{"%" + zip + "%"},
	}
}

// AllRows builds the full-table scan the analyzer consumes.
func AllRows(d *registry.Descriptor) Statement {
	return Statement{
		SQL: fmt.Sprintf("SELECT * FROM %s ORDER BY id", quoteIdentifier(d.Table)),
	}
}
