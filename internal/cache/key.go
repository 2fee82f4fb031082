package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// KeyNamespace prefixes every derived cache key.
const KeyNamespace = "sommelier_"

// DeriveKey builds the deterministic cache key for a query fingerprint:
// essence, data source and prompt joined with a fixed delimiter, plus a
// conversation segment when a conversation is active. The segment is
// omitted entirely (not left as an empty placeholder) outside of
// conversations, so conversational context never bleeds across
// sessions. SHA-256 truncated to 128 bits, hex encoded.
func DeriveKey(essence, dataSourceID, promptID, conversationID string) string {
	components := essence + "|" + dataSourceID + "|" + promptID
	if conversationID != "" {
		components += "|conv_" + conversationID
	}

	sum := sha256.Sum256([]byte(components))
	return KeyNamespace + hex.EncodeToString(sum[:16])
}
