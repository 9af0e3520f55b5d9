package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	APIKeyPrefix              = "ck_"
	apiKeyByteLength          = 24
	DisplayPrefixLength       = 11
	errGenerateRandomBytesFmt = "failed to generate random bytes: %w"
	errByteLengthPositiveFmt  = "byteLength must be positive"
)

func GenerateHex(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf(errByteLengthPositiveFmt)
	}

	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf(errGenerateRandomBytesFmt, err)
	}

	return hex.EncodeToString(bytes), nil
}

// GenerateAPIKey returns a new secret of the form ck_<48 hex chars>
func GenerateAPIKey() (string, error) {
	body, err := GenerateHex(apiKeyByteLength)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + body, nil
}

// LooksLikeAPIKey reports whether s has the shape of a generated secret
func LooksLikeAPIKey(s string) bool {
	if !strings.HasPrefix(s, APIKeyPrefix) {
		return false
	}
	body := s[len(APIKeyPrefix):]
	if len(body) != apiKeyByteLength*2 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}

func ExtractPrefix(token string, length int) string {
	if len(token) < length {
		return token
	}
	return token[:length]
}
