package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// KeyFunc maps an entity id to a storage key.
type KeyFunc func(entityID string) string

const maxKeyPrefix = 96

// SanitizeKey replaces every rune outside [A-Za-z0-9_-] with '_'. Distinct ids may collide.
func SanitizeKey(entityID string) string {
	var b strings.Builder
	b.Grow(len(entityID))
	for _, r := range entityID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// HashedKey is SanitizeKey plus a digest of the raw id, so it is collision free in practice.
func HashedKey(entityID string) string {
	prefix := SanitizeKey(entityID)
	if len(prefix) > maxKeyPrefix {
		prefix = prefix[:maxKeyPrefix]
	}
	sum := sha256.Sum256([]byte(entityID))
	return prefix + "-" + hex.EncodeToString(sum[:6])
}
