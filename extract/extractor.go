package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/poiesic/datachat/core"
)

// CSV content types accepted alongside the .csv extension.
var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
}

// Supported reports whether a file may enter the pipeline at all, judged
// by filename extension and declared content type. Rejected files never
// reach extraction or embedding.
func Supported(filename, contentType string) bool {
	return isCSV(filename, contentType) ||
		strings.HasSuffix(strings.ToLower(filename), ".json") ||
		strings.Contains(strings.ToLower(contentType), "json")
}

// Extract parses raw file bytes into an ordered sequence of records.
// CSV is chosen when either the content type or the filename signals it,
// otherwise the bytes are parsed as JSON. Returns ErrUnsupportedFormat
// when the content matches neither format.
func Extract(filename, contentType string, raw []byte) ([]core.Record, error) {
	if isCSV(filename, contentType) {
		return extractCSV(raw)
	}
	return extractJSON(raw)
}

func isCSV(filename, contentType string) bool {
	if csvContentTypes[strings.ToLower(contentType)] {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".csv")
}

// extractCSV reads a header row of field names and coerces every cell to
// a typed scalar. Blank cells are omitted from the record entirely, and
// rows with no surviving cells are dropped.
func extractCSV(raw []byte) ([]core.Record, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err == io.EOF {
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	fields := make([]string, len(header))
	for i, name := range header {
		fields[i] = strings.TrimSpace(name)
	}

	records := make([]core.Record, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}

		record := core.Record{}
		for i, cell := range row {
			if i >= len(fields) || fields[i] == "" {
				continue
			}
			value, ok := coerceScalar(cell)
			if !ok {
				continue
			}
			record[fields[i]] = value
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}

	return records, nil
}

// coerceScalar converts a CSV cell to its typed value. The second return
// is false for blank cells, which must not appear in the record.
func coerceScalar(cell string) (any, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil, false
	}

	switch strings.ToLower(trimmed) {
	case "true":
		return true, true
	case "false":
		return false, true
	}

	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f, true
	}

	return trimmed, true
}

// extractJSON accepts three shapes, in priority order: a list, a mapping
// with a list-valued "items" field, and a bare mapping treated as a
// single record. Anything else is unsupported.
func extractJSON(raw []byte) ([]core.Record, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var data any
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	// Trailing non-whitespace after the first value means this is not a
	// single JSON document.
	if err := requireEOF(decoder); err != nil {
		return nil, err
	}

	switch v := data.(type) {
	case []any:
		return recordsFromList(v), nil
	case map[string]any:
		if items, ok := v["items"].([]any); ok {
			return recordsFromList(items), nil
		}
		return []core.Record{recordFromMapping(v)}, nil
	default:
		return nil, fmt.Errorf("%w: top-level JSON must be a list or mapping", ErrUnsupportedFormat)
	}
}

func requireEOF(decoder *json.Decoder) error {
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing content after JSON document", ErrUnsupportedFormat)
	}
	return nil
}

// recordsFromList turns every list element into a record. Non-mapping
// elements become {"text": stringified-value}.
func recordsFromList(items []any) []core.Record {
	records := make([]core.Record, 0, len(items))
	for _, item := range items {
		if mapping, ok := item.(map[string]any); ok {
			records = append(records, recordFromMapping(mapping))
			continue
		}
		records = append(records, core.Record{core.MetaText: stringify(item)})
	}
	return records
}

// recordFromMapping copies scalar fields into a record. Nulls are
// dropped, and nested structures are kept as their JSON serialization.
func recordFromMapping(mapping map[string]any) core.Record {
	record := core.Record{}
	for key, value := range mapping {
		if value == nil {
			continue
		}
		record[key] = normalizeValue(value)
	}
	return record
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case string, bool:
		return v
	default:
		return stringify(v)
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
