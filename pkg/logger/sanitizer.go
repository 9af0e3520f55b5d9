package logger

import (
	"regexp"
	"strings"
)

// Sensitive field patterns to filter from logs
var (
	passwordPattern = regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+[^\s]+`)
	tokenPattern    = regexp.MustCompile(`(?i)(token|jwt|bearer)[\s:=]+[^\s]+`)
	apiKeyPattern   = regexp.MustCompile(`(?i)(api[_-]?key|apikey|x-api-key)[\s:=]+[^\s]+`)
	secretPattern   = regexp.MustCompile(`(?i)(secret|salt)[\s:=]+[^\s]+`)
	rawKeyPattern   = regexp.MustCompile(`ck_[0-9a-f]{8,}`)
	emailPattern    = regexp.MustCompile(`([a-zA-Z0-9._%+-])[a-zA-Z0-9._%+-]*(@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
)

const redactedPlaceholder = "[REDACTED]"

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"token", "jwt", "bearer",
	"api_key", "apikey", "api-key",
	"secret", "salt",
	"keyhash", "key_hash",
}

// SanitizeLogMessage removes credentials and raw API key secrets from a message
func SanitizeLogMessage(message string) string {
	message = passwordPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = tokenPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = apiKeyPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = secretPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	return rawKeyPattern.ReplaceAllString(message, "ck_"+redactedPlaceholder)
}

// MaskEmail keeps the first character of the local part: ada@crm.io -> a***@crm.io
func MaskEmail(s string) string {
	return emailPattern.ReplaceAllString(s, "${1}***${2}")
}

// SanitizeMap returns a copy of data with sensitive keys redacted and
// string values scrubbed of raw key secrets.
func SanitizeMap(data map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(data))
	for k, v := range data {
		if isSensitiveKey(k) {
			sanitized[k] = redactedPlaceholder
			continue
		}
		if s, ok := v.(string); ok {
			v = rawKeyPattern.ReplaceAllString(s, "ck_"+redactedPlaceholder)
		}
		sanitized[k] = v
	}
	return sanitized
}

func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitiveKey := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitiveKey) {
			return true
		}
	}
	return false
}
