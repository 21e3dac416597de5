// Package pgvector provides a PostgreSQL vector store backend using the
// pgvector extension. Triples live in a single table keyed by triple ID
// with metadata stored as JSONB, so filters translate to SQL predicates
// and similarity search runs inside the database.
package pgvector
