package resource

import (
	"context"
	"errors"
	"math/big"
	"net/netip"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/forkful/backoffice/internal/statement"
)

// ============================================================================
// Value Normalization Tests
// ============================================================================

func TestNormalizeValue_Numeric(t *testing.T) {
	tests := []struct {
		name string
		in   pgtype.Numeric
		want string
	}{
		{"two decimal places", pgtype.Numeric{Int: big.NewInt(1999), Exp: -2, Valid: true}, "19.99"},
		{"whole number", pgtype.Numeric{Int: big.NewInt(12), Exp: 0, Valid: true}, "12"},
		{"negative exponent spread", pgtype.Numeric{Int: big.NewInt(305), Exp: -1, Valid: true}, "30.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeValue(tt.in)
			d, ok := got.(decimal.Decimal)
			if !ok {
				t.Fatalf("normalizeValue() = %T, want decimal.Decimal", got)
			}
			if d.String() != tt.want {
				t.Errorf("normalizeValue() = %s, want %s", d.String(), tt.want)
			}
		})
	}
}

func TestNormalizeValue_InvalidNumericIsNil(t *testing.T) {
	if got := normalizeValue(pgtype.Numeric{}); got != nil {
		t.Errorf("null numeric = %v, want nil", got)
	}
	if got := normalizeValue(pgtype.Numeric{NaN: true, Valid: true}); got != nil {
		t.Errorf("NaN numeric = %v, want nil", got)
	}
}

func TestNormalizeValue_UUIDBytes(t *testing.T) {
	u := uuid.New()
	got := normalizeValue([16]byte(u))
	if got != u.String() {
		t.Errorf("normalizeValue() = %v, want %s", got, u.String())
	}
}

func TestNormalizeValue_NetAddr(t *testing.T) {
	got := normalizeValue(netip.MustParseAddr("10.0.0.1"))
	if got != "10.0.0.1" {
		t.Errorf("normalizeValue() = %v, want 10.0.0.1", got)
	}
}

func TestNormalizeValue_Passthrough(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"string", "hello"},
		{"int64", int64(42)},
		{"bool", true},
		{"time", ts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeValue(tt.in); got != tt.in {
				t.Errorf("normalizeValue(%v) = %v, want unchanged", tt.in, got)
			}
		})
	}
}

// ============================================================================
// Collect / QueryOne Tests
// ============================================================================

func TestCollect_MapsColumnsToNames(t *testing.T) {
	rows := &fakeRows{
		cols: []string{"id", "name", "price"},
		values: [][]any{
			{int64(1), "Migas Taco", pgtype.Numeric{Int: big.NewInt(450), Exp: -2, Valid: true}},
			{int64(2), "Queso", nil},
		},
	}

	got, err := Collect(rows)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if got[0]["name"] != "Migas Taco" {
		t.Errorf("name = %v", got[0]["name"])
	}
	d, ok := got[0]["price"].(decimal.Decimal)
	if !ok || d.String() != "4.5" {
		t.Errorf("price = %v, want decimal 4.5", got[0]["price"])
	}
	if got[1]["price"] != nil {
		t.Errorf("null price = %v, want nil", got[1]["price"])
	}
}

func TestCollect_RowsErrSurfaces(t *testing.T) {
	rows := &fakeRows{err: errors.New("broken pipe")}
	if _, err := Collect(rows); err == nil {
		t.Error("Collect() should surface rows.Err()")
	}
}

func TestQueryOne_NoRowsIsNilNil(t *testing.T) {
	db := &fakeDB{}
	row, err := QueryOne(context.Background(), db, statement.Statement{SQL: "SELECT 1"})
	if err != nil {
		t.Fatalf("QueryOne() error = %v", err)
	}
	if row != nil {
		t.Errorf("row = %v, want nil", row)
	}
}

func TestQueryOne_FirstRowWins(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{match: "SELECT", cols: []string{"id"}, rows: [][]any{{int64(1)}, {int64(2)}}},
	}}
	row, err := QueryOne(context.Background(), db, statement.Statement{SQL: "SELECT id FROM x"})
	if err != nil {
		t.Fatalf("QueryOne() error = %v", err)
	}
	if row["id"] != int64(1) {
		t.Errorf("id = %v, want 1", row["id"])
	}
}

// ============================================================================
// Row ID Extraction Tests
// ============================================================================

func TestRowID(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want int64
	}{
		{"int64", Row{"id": int64(5)}, 5},
		{"int32", Row{"id": int32(6)}, 6},
		{"int", Row{"id": 7}, 7},
		{"float64", Row{"id": float64(8)}, 8},
		{"missing", Row{"name": "x"}, 0},
		{"unsupported type", Row{"id": "9"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RowID(tt.row); got != tt.want {
				t.Errorf("RowID() = %d, want %d", got, tt.want)
			}
		})
	}
}
