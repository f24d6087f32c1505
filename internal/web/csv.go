package web

// csv.go decodes a text/csv request body into the same item maps the JSON
// path produces, so one import pipeline serves both encodings. Headers map
// case-insensitively onto column names and cells are scrubbed of the
// artifacts spreadsheet exports leave behind.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// decodeCSVItems parses a CSV body into one map per data row. The first
// record is the header. Empty cells are omitted from the item so required
// field checks see them as missing. Exceeding maxItems fails the whole
// import rather than silently truncating it.
func decodeCSVItems(r io.Reader, maxItems int) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are tolerated; short rows just omit cells
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty import: the CSV body has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}

	// Windows exports prefix the first header cell with a UTF-8 BOM.
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(cleanCell(h))
	}

	var items []map[string]any
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		item := make(map[string]any)
		for i, cell := range record {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			value := cleanCell(cell)
			if value == "" {
				continue
			}
			item[columns[i]] = value
		}
		if len(item) == 0 {
			continue
		}

		items = append(items, item)
		if len(items) > maxItems {
			return nil, fmt.Errorf("too many items: imports are limited to %d rows per request", maxItems)
		}
	}

	return items, nil
}

// cleanCell strips the artifacts spreadsheet exports leave in cells:
// surrounding whitespace, the Excel ="..." formula guard, and stray
// surrounding quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
