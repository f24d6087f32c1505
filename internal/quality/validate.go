package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/forkful/backoffice/internal/registry"
	"github.com/forkful/backoffice/internal/resource"
)

// Text columns cap out here unless the field is marked long-text.
const maxFieldLength = 500

// InvalidItem ties an item that failed validation to every problem found
// in it, echoing the original payload for the operator.
type InvalidItem struct {
	Index  int            `json:"index"`
	Item   map[string]any `json:"item"`
	Errors []string       `json:"errors"`
}

// ValidationWarning flags something worth an operator's look that does
// not block the insert.
type ValidationWarning struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationResult partitions a bulk payload. Valid entries are cleaned
// copies ready for bulk add: trimmed strings, int64 ids, parsed decimals,
// canonical enum values, normalized US states for cities.
type ValidationResult struct {
	Valid    []map[string]any    `json:"valid"`
	Invalid  []InvalidItem       `json:"invalid"`
	Warnings []ValidationWarning `json:"warnings"`
}

// ValidateBulkData checks every item against the descriptor's field
// specs and the referential rules for its type. One bad item never
// hides another: all items are always checked.
func (s *Service) ValidateBulkData(ctx context.Context, resourceType string, items []map[string]any) (*ValidationResult, error) {
	d, err := s.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	rel := s.loadRelational(ctx, d)

	result := &ValidationResult{
		Valid:    []map[string]any{},
		Invalid:  []InvalidItem{},
		Warnings: []ValidationWarning{},
	}
	for i, item := range items {
		cleaned, errs, warnings := s.validateItem(ctx, d, rel, item)
		for _, w := range warnings {
			w.Index = i
			result.Warnings = append(result.Warnings, w)
		}
		if len(errs) > 0 {
			result.Invalid = append(result.Invalid, InvalidItem{Index: i, Item: item, Errors: errs})
			continue
		}
		result.Valid = append(result.Valid, cleaned)
	}
	return result, nil
}

func (s *Service) validateItem(ctx context.Context, d *registry.Descriptor, rel relational, item map[string]any) (map[string]any, []string, []ValidationWarning) {
	var (
		errs     []string
		warnings []ValidationWarning
	)
	cleaned := make(map[string]any, len(item))

	for _, f := range d.Fields {
		v, present := fieldValue(item, f.Name)
		if !present || isBlank(v) {
			if f.Required {
				errs = append(errs, fmt.Sprintf("missing required field: %s", f.Name))
			}
			continue
		}
		value, fieldErrs, warning := s.validateField(f, v)
		errs = append(errs, fieldErrs...)
		if warning != "" {
			warnings = append(warnings, ValidationWarning{Field: f.Name, Message: warning})
		}
		if len(fieldErrs) == 0 {
			cleaned[f.Name] = value
		}
	}

	if d.Type == "cities" {
		if state, ok := cleaned["state"].(string); ok {
			cleaned["state"] = NormalizeUsState(state)
		}
	}

	errs = append(errs, s.validateRelations(ctx, d, rel, cleaned)...)
	warnings = append(warnings, priceWarnings(d, cleaned)...)
	return cleaned, errs, warnings
}

// validateField checks one present value against its FieldSpec and returns
// the cleaned value, blocking errors, and an optional warning.
func (s *Service) validateField(f registry.FieldSpec, v any) (any, []string, string) {
	switch f.Kind {
	case registry.FieldText:
		str := strings.TrimSpace(stringify(v))
		if !f.LongText && utf8.RuneCountInString(str) > maxFieldLength {
			return nil, []string{fmt.Sprintf("%s exceeds %d characters", f.Name, maxFieldLength)}, ""
		}
		return str, nil, ""

	case registry.FieldEmail:
		str := strings.ToLower(strings.TrimSpace(stringify(v)))
		if err := s.validate.Var(str, "required,email"); err != nil {
			return nil, []string{fmt.Sprintf("%s is not a valid email address", f.Name)}, ""
		}
		return str, nil, ""

	case registry.FieldPhone:
		str := strings.TrimSpace(stringify(v))
		if !isUSPhone(str) {
			return nil, []string{fmt.Sprintf("%s is not a valid US phone number", f.Name)}, ""
		}
		return str, nil, ""

	case registry.FieldURL:
		str := strings.TrimSpace(stringify(v))
		if err := s.validate.Var(str, "required,url"); err != nil {
			// Bad URLs are worth flagging, not worth blocking an import.
			return str, nil, fmt.Sprintf("%s does not look like a valid URL", f.Name)
		}
		return str, nil, ""

	case registry.FieldNumeric:
		dec, err := toDecimal(v)
		if err != nil {
			return nil, []string{fmt.Sprintf("%s is not a valid number", f.Name)}, ""
		}
		if msg := numericBounds(f.Name, dec); msg != "" {
			return nil, []string{msg}, ""
		}
		return dec, nil, ""

	case registry.FieldID:
		n, ok := toInt64(v)
		if !ok || n <= 0 {
			return nil, []string{fmt.Sprintf("%s must be a positive integer", f.Name)}, ""
		}
		return n, nil, ""

	case registry.FieldEnum:
		str := strings.TrimSpace(stringify(v))
		for _, allowed := range f.Enum {
			if strings.EqualFold(str, allowed) {
				return allowed, nil, ""
			}
		}
		return nil, []string{fmt.Sprintf("%s must be one of: %s", f.Name, strings.Join(f.Enum, ", "))}, ""

	case registry.FieldJSON:
		switch doc := v.(type) {
		case map[string]any, []any:
			return doc, nil, ""
		case string:
			if !json.Valid([]byte(doc)) {
				return nil, []string{fmt.Sprintf("%s is not a valid JSON document", f.Name)}, ""
			}
			return doc, nil, ""
		default:
			return nil, []string{fmt.Sprintf("%s is not a valid JSON document", f.Name)}, ""
		}

	default:
		return v, nil, ""
	}
}

// relational carries the lookup tables referential checks consult. A nil
// map means that lookup could not be loaded and its checks are skipped;
// the database still enforces the constraint at insert time.
type relational struct {
	cities           map[int64]string
	restaurants      map[int64]string
	neighborhoodCity map[int64]int64
}

func (s *Service) loadRelational(ctx context.Context, d *registry.Descriptor) relational {
	var rel relational

	if d.Type == "restaurants" || d.Type == "neighborhoods" {
		if cities, err := s.mgr.GetLookup(ctx, "cities"); err != nil {
			slog.Warn("city lookup unavailable, relational checks skipped", "error", err)
		} else {
			rel.cities = cities
		}
	}
	if d.Type == "restaurants" {
		if rows, err := s.mgr.AllRows(ctx, "neighborhoods"); err != nil {
			slog.Warn("neighborhood lookup unavailable, relational checks skipped", "error", err)
		} else {
			rel.neighborhoodCity = make(map[int64]int64, len(rows))
			for _, nb := range rows {
				id := resource.RowID(nb)
				if cityID, ok := int64Field(nb, "city_id"); ok && id != 0 {
					rel.neighborhoodCity[id] = cityID
				}
			}
		}
	}
	if d.Type == "dishes" {
		if restaurants, err := s.mgr.GetLookup(ctx, "restaurants"); err != nil {
			slog.Warn("restaurant lookup unavailable, relational checks skipped", "error", err)
		} else {
			rel.restaurants = restaurants
		}
	}
	return rel
}

func (s *Service) validateRelations(ctx context.Context, d *registry.Descriptor, rel relational, cleaned map[string]any) []string {
	var errs []string
	switch d.Type {
	case "restaurants":
		cityID, hasCity := int64Field(cleaned, "city_id")
		if hasCity && rel.cities != nil {
			if _, ok := rel.cities[cityID]; !ok {
				errs = append(errs, fmt.Sprintf("city_id %d does not exist", cityID))
			}
		}
		nbID, hasNb := int64Field(cleaned, "neighborhood_id")
		if hasNb && rel.neighborhoodCity != nil {
			owner, ok := rel.neighborhoodCity[nbID]
			switch {
			case !ok:
				errs = append(errs, fmt.Sprintf("neighborhood_id %d does not exist", nbID))
			case hasCity && owner != cityID:
				errs = append(errs, fmt.Sprintf("neighborhood %d is not in city %d", nbID, cityID))
			}
		}

	case "dishes":
		if rid, ok := int64Field(cleaned, "restaurant_id"); ok && rel.restaurants != nil {
			if _, exists := rel.restaurants[rid]; !exists {
				errs = append(errs, fmt.Sprintf("restaurant_id %d does not exist", rid))
			}
		}

	case "neighborhoods":
		if cityID, ok := int64Field(cleaned, "city_id"); ok && rel.cities != nil {
			if _, exists := rel.cities[cityID]; !exists {
				errs = append(errs, fmt.Sprintf("city_id %d does not exist", cityID))
			}
		}

	case "users":
		errs = append(errs, s.checkUserUniqueness(ctx, cleaned)...)
	}
	return errs
}

func (s *Service) checkUserUniqueness(ctx context.Context, cleaned map[string]any) []string {
	checks, err := s.mgr.CheckExisting(ctx, "users", []map[string]any{cleaned})
	if err != nil || len(checks) == 0 {
		return nil
	}
	if checks[0].Exists {
		return []string{"a user with this email or username already exists"}
	}
	return nil
}

func priceWarnings(d *registry.Descriptor, cleaned map[string]any) []ValidationWarning {
	if d.Type != "dishes" {
		return nil
	}
	price, ok := cleaned["price"].(decimal.Decimal)
	if ok && price.GreaterThan(decimal.NewFromInt(500)) {
		return []ValidationWarning{{Field: "price", Message: "price looks unusually high"}}
	}
	return nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func isUSPhone(v string) bool {
	var b strings.Builder
	for _, r := range v {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return len(digits) == 10
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	default:
		return decimal.Decimal{}, fmt.Errorf("not numeric: %T", v)
	}
}

func numericBounds(name string, d decimal.Decimal) string {
	switch name {
	case "price":
		if d.IsNegative() {
			return "price cannot be negative"
		}
	case "latitude":
		if d.Abs().GreaterThan(decimal.NewFromInt(90)) {
			return "latitude must be between -90 and 90"
		}
	case "longitude":
		if d.Abs().GreaterThan(decimal.NewFromInt(180)) {
			return "longitude must be between -180 and 180"
		}
	}
	return ""
}
