package vectorstore

import "github.com/poiesic/datachat/core"

// Comparison operators supported in retrieval filters.
const (
	OpEq  = "$eq"
	OpGte = "$gte"
	OpLte = "$lte"
)

// Clause is a single field-level comparison, typically derived from a
// natural-language query by the planner.
type Clause struct {
	Field string
	Op    string
	Value any
}

// Filter is a conjunction of field-level comparisons: every field's
// conditions must all hold for a triple to match.
type Filter map[string]map[string]any

// ScopedFilter builds the filter for a retrieval, conjoining the derived
// clauses with the mandatory scope-equality clause. The scope clause is
// applied last and cannot be overridden: a derived clause on the scope
// field is discarded.
func ScopedFilter(scopeID string, clauses []Clause) Filter {
	filter := Filter{}
	for _, clause := range clauses {
		if clause.Field == core.MetaScopeID {
			continue
		}
		conditions, ok := filter[clause.Field]
		if !ok {
			conditions = map[string]any{}
			filter[clause.Field] = conditions
		}
		conditions[clause.Op] = clause.Value
	}
	filter[core.MetaScopeID] = map[string]any{OpEq: scopeID}
	return filter
}

// Matches reports whether the metadata of a stored triple satisfies the
// filter. Numeric comparisons are type-coercing, so an int64 metadata
// value matches a float64 filter value of equal magnitude.
func (f Filter) Matches(metadata map[string]any) bool {
	for field, conditions := range f {
		value, ok := metadata[field]
		if !ok {
			return false
		}
		for op, want := range conditions {
			if !compare(op, value, want) {
				return false
			}
		}
	}
	return true
}

func compare(op string, value, want any) bool {
	valueNum, valueIsNum := toFloat(value)
	wantNum, wantIsNum := toFloat(want)

	switch op {
	case OpEq:
		if valueIsNum && wantIsNum {
			return valueNum == wantNum
		}
		return value == want
	case OpGte:
		return valueIsNum && wantIsNum && valueNum >= wantNum
	case OpLte:
		return valueIsNum && wantIsNum && valueNum <= wantNum
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
