// Package planner derives structured metadata filters from a natural
// language question using the chat model's tool calling.
//
// Planning is strictly best-effort. Any provider failure, malformed
// tool output or unknown field is degraded to an unfiltered retrieval
// rather than an error: a worse answer beats no answer. Callers can
// inspect the outcome to see whether planning failed open.
package planner
