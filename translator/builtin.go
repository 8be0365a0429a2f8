package translator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	batchworker "github.com/acme/batchworker"
)

// CSVTranslator renders a row as a comma-separated line over a fixed column
// order, so output is stable regardless of map iteration order.
type CSVTranslator struct {
	Columns []string
}

// Translate renders row as CSV using t.Columns, in order, stringifying nil
// as an empty field.
func (t CSVTranslator) Translate(row batchworker.Row) (string, error) {
	fields := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		fields[i] = stringifyValue(row[col])
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(fields); err != nil {
		return "", fmt.Errorf("encoding csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv row: %w", err)
	}
	return strings.TrimRight(sb.String(), "\r\n"), nil
}

// JSONTranslator renders each row as one JSON object per line. encoding/json
// sorts map[string]any keys alphabetically, so output is deterministic.
type JSONTranslator struct{}

// Translate renders row as a single-line JSON object.
func (JSONTranslator) Translate(row batchworker.Row) (string, error) {
	data, err := json.Marshal(map[string]any(row))
	if err != nil {
		return "", fmt.Errorf("encoding json row: %w", err)
	}
	return string(data), nil
}

func stringifyValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
