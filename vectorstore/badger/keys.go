package badger

import (
	"fmt"

	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/vectorstore"
)

// Key prefix for vector entries. Triple IDs begin with the scope ID, so
// a per-scope scan is just a longer prefix.
const vectorPrefix = "vecrec"

// makeVectorKey generates a key for a vector entry by triple ID.
func makeVectorKey(tripleID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", vectorPrefix, tripleID))
}

// scanPrefix narrows the iterator to a single scope when the filter
// pins scope_id with an equality clause. Without one it scans every
// vector entry.
func scanPrefix(filter vectorstore.Filter) []byte {
	if ops, ok := filter[core.MetaScopeID]; ok {
		if scope, ok := ops[vectorstore.OpEq].(string); ok && scope != "" {
			return []byte(fmt.Sprintf("%s:%s:", vectorPrefix, scope))
		}
	}
	return []byte(vectorPrefix + ":")
}
