package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	conversationPrefix = "convrec"
	turnPrefix         = "turnrec"
	turnTimePrefix     = "turntime"
	fileRefPrefix      = "filerec"
)

// makeConversationKey generates a key for a conversation by ID.
func makeConversationKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", conversationPrefix, id))
}

// makeTurnKey generates a key for a turn by ID.
func makeTurnKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", turnPrefix, id))
}

// makeTurnTimeKey generates a composite key for the per-conversation
// time index. Format: prefix:conversationID:timestamp:turnID
// The timestamp is BigEndian so lexicographic sort is chronological.
func makeTurnTimeKey(conversationID string, timestamp time.Time, turnID string) []byte {
	prefix := fmt.Sprintf("%s:%s:", turnTimePrefix, conversationID)
	buf := make([]byte, len(prefix)+8+len(turnID))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	copy(buf[offset:], turnID)
	return buf
}

// makeTurnTimePrefix generates the scan prefix for a conversation's
// time index.
func makeTurnTimePrefix(conversationID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", turnTimePrefix, conversationID))
}

// makeFileRefKey generates a key for a file reference.
// Format: prefix:conversationID:fileID
func makeFileRefKey(conversationID, fileID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", fileRefPrefix, conversationID, fileID))
}

// makeFileRefPrefix generates the scan prefix for a conversation's
// file references.
func makeFileRefPrefix(conversationID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", fileRefPrefix, conversationID))
}
