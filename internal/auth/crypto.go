package auth

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters for API key hashing. Keys are high-entropy random
// strings, so a modest cost is enough and keeps per-request lookups cheap.
const (
	argon2Time    = 1
	argon2Memory  = 16 * 1024
	argon2Threads = 2
	argon2KeyLen  = 32

	defaultAPIKeySalt = "crm-service-api-key-salt-v1"
)

const dummyAPIKeyHash = "0000000000000000000000000000000000000000000000000000000000000000"

// KeyHasher derives the stored form of an API key secret
type KeyHasher struct {
	salt []byte
}

// NewKeyHasher uses salt for every key; an empty salt selects the built-in default
func NewKeyHasher(salt string) *KeyHasher {
	if salt == "" {
		salt = defaultAPIKeySalt
	}
	return &KeyHasher{salt: []byte(salt)}
}

// Hash returns the hex-encoded Argon2id digest of key
func (h *KeyHasher) Hash(key string) string {
	sum := argon2.IDKey([]byte(key), h.salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return hex.EncodeToString(sum)
}

// Verify hashes key and compares it to storedHash in constant time.
// An empty storedHash still burns a comparison.
func (h *KeyHasher) Verify(key, storedHash string) bool {
	actual := h.Hash(key)
	if storedHash == "" {
		ConstantTimeCompareHashes(actual, dummyAPIKeyHash)
		return false
	}
	return ConstantTimeCompareHashes(actual, storedHash)
}

// ConstantTimeCompareHashes compares two hex-encoded hash strings in constant time
func ConstantTimeCompareHashes(a, b string) bool {
	aBytes := []byte(a)
	bBytes := []byte(b)

	if len(aBytes) != len(bBytes) {
		if len(aBytes) < len(bBytes) {
			aBytes = make([]byte, len(bBytes))
		} else {
			bBytes = make([]byte, len(aBytes))
		}
		subtle.ConstantTimeCompare(aBytes, bBytes)
		return false
	}

	return subtle.ConstantTimeCompare(aBytes, bBytes) == 1
}
