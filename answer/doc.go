// Package answer produces streamed, grounded answers to questions about
// a conversation's ingested data.
//
// A Streamer persists the user's question, plans retrieval filters,
// searches the conversation's vector scope and streams the model's
// completion token by token. The assistant turn and any conversation
// retitle are persisted on a background worker after the stream ends,
// so the caller sees the last token without waiting on storage. The
// returned Result lets callers await that deferred persistence.
//
// Retrieval failures abort before the first token; a failed filter
// planner does not, retrieval just runs unfiltered.
package answer
