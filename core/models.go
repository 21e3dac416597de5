package core

//go:generate go run ../cmd/musgen

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// Record is a single structured row extracted from an uploaded file.
// Values are scalars: string, int64, float64, bool. Blank values are
// dropped during extraction and never stored.
type Record map[string]any

// CanonicalText returns a stable JSON serialization of the record.
// Keys are sorted, so the same record always produces the same text.
// This is the text that gets embedded and stored as chunk metadata.
func (r Record) CanonicalText() string {
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		// Records only hold JSON-representable scalars, so this
		// should be unreachable.
		return fmt.Sprintf("%v", map[string]any(r))
	}
	return string(data)
}

// Triple is a single (identifier, vector, metadata) unit stored in the
// vector index.
type Triple struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// TripleID derives the deterministic vector-store identifier for a chunk.
// Re-ingesting the same file into the same scope overwrites the same IDs.
func TripleID(scopeID, fileID string, index int) string {
	return fmt.Sprintf("%s:%s:%d", scopeID, fileID, index)
}

// Metadata keys attached to every stored triple.
const (
	MetaScopeID    = "scope_id"
	MetaFileID     = "source_file_id"
	MetaChunkIndex = "chunk_index"
	MetaSource     = "source"
	MetaText       = "text"
)

// FileIDFromContent generates a deterministic file identifier from raw
// file bytes using BLAKE2b hashing. Identical uploads produce identical
// IDs, which keeps re-ingestion idempotent all the way down to the
// vector store.
func FileIDFromContent(raw []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn written by the human user.
	RoleUser Role = "USER"
	// RoleAssistant marks a turn generated by the model.
	RoleAssistant Role = "ASSISTANT"
)

// Conversation is the aggregate that owns turns and file references.
// Its ID is also the retrieval scope for every vector-store read.
type Conversation struct {
	Id        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is a single message in a conversation. Turns are append-only and
// ordered by creation time.
type Turn struct {
	Id             string
	ConversationId string
	Role           Role
	Content        string
	CreatedAt      time.Time
}

// FileRef records that a file was ingested into a conversation.
type FileRef struct {
	ConversationId string
	FileId         string
	Filename       string
	CreatedAt      time.Time
}

// NewID returns a fresh identifier for conversations and turns.
func NewID() string {
	return uuid.NewString()
}

// PlaceholderTitle is the title given to conversations created without
// one. A conversation still carrying it gets retitled after the first
// answered question.
const PlaceholderTitle = "New Chat"

// TitleLimit caps auto-generated conversation titles.
const TitleLimit = 32

// TitleFromQuestion derives a conversation title from the first user
// question: trimmed and truncated to TitleLimit characters.
func TitleFromQuestion(question string) string {
	title := strings.TrimSpace(question)
	runes := []rune(title)
	if len(runes) > TitleLimit {
		return string(runes[:TitleLimit])
	}
	return title
}
