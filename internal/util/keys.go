package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// maxPlainKey bounds the storage keys handed to providers; longer keys are
// replaced by a hash. Entries carry their full key, so a collision is detected
// on read rather than served.
const maxPlainKey = 200

// EntryKey returns prefix + ":" + key, or prefix + ":#" + a 32-hex-char sha256
// prefix when key is too long to use as-is.
func EntryKey(prefix, key string) string {
	if len(key) <= maxPlainKey {
		return prefix + ":" + key
	}
	sum := sha256.Sum256([]byte(key))
	return prefix + ":#" + hex.EncodeToString(sum[:16])
}
