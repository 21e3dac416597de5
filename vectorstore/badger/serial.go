package badger

import (
	"encoding/json"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// entry is the stored form of a triple. Metadata is JSON-encoded since
// its values are schemaless.
type entry struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// marshalEntry serializes an entry to bytes.
func marshalEntry(e *entry) ([]byte, error) {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, err
	}
	metaStr := string(meta)

	size := ord.String.Size(e.ID)
	size += ord.String.Size(metaStr)
	size += varint.Int.Size(len(e.Vector))
	for _, v := range e.Vector {
		size += raw.Float32.Size(v)
	}

	buf := make([]byte, size)
	n := ord.String.Marshal(e.ID, buf)
	n += ord.String.Marshal(metaStr, buf[n:])
	n += varint.Int.Marshal(len(e.Vector), buf[n:])
	for _, v := range e.Vector {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	return buf, nil
}

// unmarshalEntry deserializes an entry from bytes.
func unmarshalEntry(data []byte) (*entry, error) {
	id, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	metaStr, n1, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	n += n1
	count, n1, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	n += n1

	vector := make([]float32, count)
	for i := 0; i < count; i++ {
		v, n1, err := raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return nil, err
		}
		vector[i] = v
		n += n1
	}

	var metadata map[string]any
	if err := json.Unmarshal([]byte(metaStr), &metadata); err != nil {
		return nil, err
	}

	return &entry{ID: id, Vector: vector, Metadata: metadata}, nil
}
