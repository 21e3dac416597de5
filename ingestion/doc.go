// Package ingestion turns uploaded data files into vector store triples.
//
// A Pipeline extracts records from CSV or JSON content, embeds them in
// concurrent batches with retry, and upserts the resulting triples into
// the conversation's vector scope. Ingestion is all-or-nothing: if any
// batch fails after retries are exhausted, no partial result is
// reported to the caller.
//
// Triple IDs derive from the scope, a content fingerprint of the file
// and the record's position, so re-ingesting the same file overwrites
// its previous triples instead of duplicating them.
package ingestion
