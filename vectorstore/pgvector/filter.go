package pgvector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/datachat/vectorstore"
)

// buildWhere translates a metadata filter into a SQL WHERE clause over
// the JSONB metadata column. Numeric comparisons cast the extracted
// text value, string equality compares text directly. Fields and ops
// are emitted in sorted order so the statement text is stable.
func buildWhere(filter vectorstore.Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var conditions []string
	var args []any
	for _, field := range fields {
		ops := filter[field]
		opNames := make([]string, 0, len(ops))
		for op := range ops {
			opNames = append(opNames, op)
		}
		sort.Strings(opNames)

		for _, op := range opNames {
			value := ops[op]
			args = append(args, value)
			n := len(args)
			switch op {
			case vectorstore.OpGte:
				conditions = append(conditions, fmt.Sprintf("(%s)::numeric >= $%d", jsonText(field), n))
			case vectorstore.OpLte:
				conditions = append(conditions, fmt.Sprintf("(%s)::numeric <= $%d", jsonText(field), n))
			case vectorstore.OpEq:
				if isNumeric(value) {
					conditions = append(conditions, fmt.Sprintf("(%s)::numeric = $%d", jsonText(field), n))
				} else {
					conditions = append(conditions, fmt.Sprintf("%s = $%d", jsonText(field), n))
				}
			default:
				// Unknown operator, drop the argument again
				args = args[:n-1]
			}
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// jsonText builds the SQL expression extracting a metadata field as
// text. The field name lands inside a single-quoted SQL literal, so
// quotes are doubled to keep hostile field names inert.
func jsonText(field string) string {
	return fmt.Sprintf("metadata->>'%s'", strings.ReplaceAll(field, "'", "''"))
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}
