package pgvector

import (
	"testing"

	"github.com/poiesic/datachat/vectorstore"
	"github.com/stretchr/testify/assert"
)

func TestBuildWhereEmpty(t *testing.T) {
	where, args := buildWhere(nil)
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildWhereScopeEquality(t *testing.T) {
	filter := vectorstore.ScopedFilter("conv-1", nil)

	where, args := buildWhere(filter)
	assert.Equal(t, "WHERE metadata->>'scope_id' = $1", where)
	assert.Equal(t, []any{"conv-1"}, args)
}

func TestBuildWhereNumericRange(t *testing.T) {
	filter := vectorstore.ScopedFilter("conv-1", []vectorstore.Clause{
		{Field: "bedrooms", Op: vectorstore.OpGte, Value: 3},
		{Field: "price", Op: vectorstore.OpLte, Value: 400000},
	})

	where, args := buildWhere(filter)
	assert.Equal(t,
		"WHERE (metadata->>'bedrooms')::numeric >= $1 AND (metadata->>'price')::numeric <= $2 AND metadata->>'scope_id' = $3",
		where)
	assert.Equal(t, []any{3, 400000, "conv-1"}, args)
}

func TestBuildWhereNumericEquality(t *testing.T) {
	filter := vectorstore.Filter{"bedrooms": {vectorstore.OpEq: 3}}

	where, args := buildWhere(filter)
	assert.Equal(t, "WHERE (metadata->>'bedrooms')::numeric = $1", where)
	assert.Equal(t, []any{3}, args)
}

func TestBuildWhereEscapesFieldNames(t *testing.T) {
	filter := vectorstore.Filter{"a' OR '1'='1": {vectorstore.OpEq: "x"}}

	where, args := buildWhere(filter)
	assert.Equal(t, "WHERE metadata->>'a'' OR ''1''=''1' = $1", where)
	assert.Equal(t, []any{"x"}, args)
}

func TestBuildWhereDropsUnknownOps(t *testing.T) {
	filter := vectorstore.Filter{"city": {"$like": "Ber%"}}

	where, args := buildWhere(filter)
	assert.Empty(t, where)
	assert.Empty(t, args)
}
