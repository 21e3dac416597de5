// Package storage defines the persistence interfaces for conversations,
// turns and ingested file references, along with the binary
// serialization used by the embedded backend.
//
// Repository implementations must be thread-safe and support concurrent
// access. The answer streamer persists turns from background workers
// while the CLI reads history, so this is not optional.
package storage
