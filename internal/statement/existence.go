package statement

import (
	"fmt"
	"strings"

	"github.com/forkful/backoffice/internal/registry"
)

// existenceStrategy builds the natural-key probe for one resource type,
// or returns nil when the candidate lacks the fields the key needs.
type existenceStrategy func(table string, candidate map[string]any) *Statement

// Strategies keyed by resource type. Adding a type means adding an entry
// here, not another branch in caller code.
var existenceStrategies = map[string]existenceStrategy{
	"restaurants":   restaurantExistence,
	"dishes":        dishExistence,
	"users":         userExistence,
	"cities":        cityExistence,
	"neighborhoods": neighborhoodExistence,
	"hashtags":      hashtagExistence,
}

// ExistenceCheck builds a query locating an already-stored row that
// matches the candidate's natural key. Name-ish comparisons are
// case-insensitive exact matches. A nil return means the type has no
// strategy or the candidate lacks the key fields; callers treat that as
// "no match, unverifiable".
func ExistenceCheck(d *registry.Descriptor, candidate map[string]any) *Statement {
	strategy, ok := existenceStrategies[d.Type]
	if !ok {
		return nil
	}
	return strategy(d.Table, candidate)
}

// probe wraps the accumulated predicate in a minimal single-row select.
func probe(table string, wb *WhereBuilder) *Statement {
	where, args := wb.Build()
	return &Statement{
		SQL:  fmt.Sprintf("SELECT id FROM %s%s LIMIT 1", quoteIdentifier(table), where),
		Args: args,
	}
}

// restaurantExistence prefers the google place id, then falls back to
// name+address+city, then name+city.
func restaurantExistence(table string, c map[string]any) *Statement {
	if placeID := stringField(c, "google_place_id"); placeID != "" {
		wb := NewWhereBuilder()
		wb.Add(quoteIdentifier("google_place_id"), placeID)
		return probe(table, wb)
	}

	name := stringField(c, "name")
	cityID, hasCity := idField(c, "city_id")
	if name == "" || !hasCity {
		return nil
	}

	wb := NewWhereBuilder()
	wb.AddFold(quoteIdentifier("name"), name)
	if address := stringField(c, "address"); address != "" {
		wb.AddFold(quoteIdentifier("address"), address)
	}
	wb.AddValue(quoteIdentifier("city_id"), cityID)
	return probe(table, wb)
}

func dishExistence(table string, c map[string]any) *Statement {
	name := stringField(c, "name")
	restaurantID, ok := idField(c, "restaurant_id")
	if name == "" || !ok {
		return nil
	}

	wb := NewWhereBuilder()
	wb.AddFold(quoteIdentifier("name"), name)
	wb.AddValue(quoteIdentifier("restaurant_id"), restaurantID)
	return probe(table, wb)
}

// userExistence checks email first, falling back to username.
func userExistence(table string, c map[string]any) *Statement {
	wb := NewWhereBuilder()
	if email := stringField(c, "email"); email != "" {
		wb.AddFold(quoteIdentifier("email"), email)
		return probe(table, wb)
	}
	if username := stringField(c, "username"); username != "" {
		wb.AddFold(quoteIdentifier("username"), username)
		return probe(table, wb)
	}
	return nil
}

// cityExistence matches on name, narrowed by state when the candidate
// carries one.
func cityExistence(table string, c map[string]any) *Statement {
	name := stringField(c, "name")
	if name == "" {
		return nil
	}

	wb := NewWhereBuilder()
	wb.AddFold(quoteIdentifier("name"), name)
	if state := stringField(c, "state"); state != "" {
		wb.AddFold(quoteIdentifier("state"), state)
	}
	return probe(table, wb)
}

func neighborhoodExistence(table string, c map[string]any) *Statement {
	name := stringField(c, "name")
	cityID, ok := idField(c, "city_id")
	if name == "" || !ok {
		return nil
	}

	wb := NewWhereBuilder()
	wb.AddFold(quoteIdentifier("name"), name)
	wb.AddValue(quoteIdentifier("city_id"), cityID)
	return probe(table, wb)
}

func hashtagExistence(table string, c map[string]any) *Statement {
	name := stringField(c, "name")
	if name == "" {
		return nil
	}

	wb := NewWhereBuilder()
	wb.AddFold(quoteIdentifier("name"), name)
	return probe(table, wb)
}

// stringField extracts a trimmed string value, tolerating absent keys and
// nils.
func stringField(c map[string]any, key string) string {
	v, ok := lookupKeyFold(c, key)
	if !ok || v == nil {
		return ""
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// idField extracts a reference id, accepting the numeric shapes JSON
// decoding produces. Empty strings and nils count as absent.
func idField(c map[string]any, key string) (any, bool) {
	v, ok := lookupKeyFold(c, key)
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil, false
		}
		return trimmed, true
	}
	return v, true
}
