// Package registry holds the static per-resource-type metadata that drives
// the rest of the admin data core: backing table names, writable-column
// allow-lists, field validation specs, cleanup rules, and presentation
// formatters. Descriptors are built once at start-up and never mutated.
package registry

import "strings"

// CleanupKind identifies one declarative cleanup rule the analyzer can
// apply to a field value. Rules run in the fixed order listed here.
type CleanupKind string

const (
	CleanupTrim        CleanupKind = "trim"
	CleanupTitleCase   CleanupKind = "title_case"
	CleanupTruncate    CleanupKind = "truncate"
	CleanupFormatPhone CleanupKind = "format_phone"
	CleanupEnsureHTTPS CleanupKind = "ensure_https"
	CleanupLowercase   CleanupKind = "lowercase"
)

// CleanupRule pairs a kind with its parameters. MaxLen applies only to
// CleanupTruncate.
type CleanupRule struct {
	Kind   CleanupKind
	MaxLen int
}

// FieldKind represents the expected data shape for a resource field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldEmail
	FieldPhone
	FieldURL
	FieldNumeric
	FieldID
	FieldEnum
	FieldJSON
)

// FieldSpec defines validation metadata for a single writable column.
type FieldSpec struct {
	Name     string    // Database column name
	Kind     FieldKind // Expected data shape
	Required bool      // Must be present and non-empty in bulk imports
	LongText bool      // Exempt from the default length cap
	Enum     []string  // Valid values for FieldEnum
}

// Formatter shapes a raw database row for presentation. A nil Formatter
// means identity.
type Formatter func(row map[string]any) map[string]any

// Descriptor describes how to store, validate, format, and analyze one
// resource type. Descriptors are immutable after construction.
type Descriptor struct {
	Type         string   // Canonical resource type name, lowercase
	Table        string   // Backing table name
	CreateFields []string // Columns an insert may write
	UpdateFields []string // Columns an update may write
	Fields       []FieldSpec

	// CleanupRules maps a column to the ordered rules the analyzer runs
	// against it. Each rule that changes the value emits its own proposal.
	CleanupRules map[string][]CleanupRule

	Formatter Formatter

	// AnalyzeRow narrows which rows the analyzer considers. Nil means all.
	AnalyzeRow func(row map[string]any) bool
}

// Field returns the FieldSpec for a column, matched case-insensitively.
func (d *Descriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// RequiredFields returns the columns bulk imports must supply.
func (d *Descriptor) RequiredFields() []string {
	var req []string
	for _, f := range d.Fields {
		if f.Required {
			req = append(req, f.Name)
		}
	}
	return req
}

// HasNameColumn reports whether the type carries a plain "name" column,
// the prerequisite for lookup queries.
func (d *Descriptor) HasNameColumn() bool {
	_, ok := d.Field("name")
	return ok
}

// Format applies the descriptor's formatter, or returns the row unchanged
// when none is configured.
func (d *Descriptor) Format(row map[string]any) map[string]any {
	if d.Formatter == nil {
		return row
	}
	return d.Formatter(row)
}
