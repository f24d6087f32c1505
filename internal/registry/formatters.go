package registry

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// formatRestaurant adds a combined location display column from the
// city/neighborhood names the list joins surface. The base columns are
// left untouched.
func formatRestaurant(row map[string]any) map[string]any {
	city := stringValue(row["city_name"])
	hood := stringValue(row["neighborhood_name"])
	switch {
	case hood != "" && city != "":
		row["location"] = hood + ", " + city
	case city != "":
		row["location"] = city
	case hood != "":
		row["location"] = hood
	}
	return row
}

// formatDish adds a price_display column rendered to two decimal places.
func formatDish(row map[string]any) map[string]any {
	if d, ok := decimalValue(row["price"]); ok {
		row["price_display"] = "$" + d.StringFixed(2)
	}
	return row
}

// formatSubmission decodes the raw item_data document so API consumers
// see a JSON object instead of an encoded string.
func formatSubmission(row map[string]any) map[string]any {
	switch v := row["item_data"].(type) {
	case map[string]any:
		// Already decoded by the driver.
	case []byte:
		var decoded map[string]any
		if err := json.Unmarshal(v, &decoded); err == nil {
			row["item_data"] = decoded
		}
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			row["item_data"] = decoded
		}
	}
	return row
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// decimalValue coerces the numeric shapes a decoded row can carry.
func decimalValue(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case string:
		if n == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case fmt.Stringer:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}
