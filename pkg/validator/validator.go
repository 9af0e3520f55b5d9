package validator

import (
	"fmt"
	"regexp"
	"time"
)

const (
	minEmailLength    = 3
	maxEmailLength    = 255
	minPasswordLength = 8
	maxPasswordLength = 72
	maxAPIKeyNameLen  = 100
	maxPersonNameLen  = 120
	maxRateLimit      = 100000
	asciiControlStart = 32
	asciiDelete       = 127

	errEmailEmptyFmt          = "email cannot be empty"
	errEmailLengthFmt         = "email must be between %d and %d characters"
	errEmailInvalidFmt        = "invalid email format"
	errPasswordMinLengthFmt   = "password must be at least %d characters"
	errPasswordMaxLengthFmt   = "password must not exceed %d characters"
	errAPIKeyNameEmptyFmt     = "API key name cannot be empty"
	errAPIKeyNameMaxLengthFmt = "API key name must not exceed %d characters"
	errAPIKeyNameControlFmt   = "API key name cannot contain control characters"
	errNameEmptyFmt           = "name cannot be empty"
	errNameMaxLengthFmt       = "name must not exceed %d characters"
	errNameControlFmt         = "name cannot contain control characters"
	errRateLimitRangeFmt      = "rate limit must be between 1 and %d requests per minute"
	errExpiryInPastFmt        = "expiry must be in the future"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func Email(email string) error {
	if email == "" {
		return fmt.Errorf(errEmailEmptyFmt)
	}

	if len(email) < minEmailLength || len(email) > maxEmailLength {
		return fmt.Errorf(errEmailLengthFmt, minEmailLength, maxEmailLength)
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf(errEmailInvalidFmt)
	}

	return nil
}

// Password bounds the length; bcrypt ignores input past 72 bytes
func Password(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf(errPasswordMinLengthFmt, minPasswordLength)
	}

	if len(password) > maxPasswordLength {
		return fmt.Errorf(errPasswordMaxLengthFmt, maxPasswordLength)
	}

	return nil
}

func APIKeyName(name string) error {
	if name == "" {
		return fmt.Errorf(errAPIKeyNameEmptyFmt)
	}

	if len(name) > maxAPIKeyNameLen {
		return fmt.Errorf(errAPIKeyNameMaxLengthFmt, maxAPIKeyNameLen)
	}

	if hasControlChars(name) {
		return fmt.Errorf(errAPIKeyNameControlFmt)
	}

	return nil
}

// PersonName validates a team member's display name
func PersonName(name string) error {
	if name == "" {
		return fmt.Errorf(errNameEmptyFmt)
	}

	if len(name) > maxPersonNameLen {
		return fmt.Errorf(errNameMaxLengthFmt, maxPersonNameLen)
	}

	if hasControlChars(name) {
		return fmt.Errorf(errNameControlFmt)
	}

	return nil
}

func RateLimit(perMinute int) error {
	if perMinute < 1 || perMinute > maxRateLimit {
		return fmt.Errorf(errRateLimitRangeFmt, maxRateLimit)
	}
	return nil
}

// Expiry rejects expiry instants that are not after now
func Expiry(expiresAt time.Time, now time.Time) error {
	if !expiresAt.After(now) {
		return fmt.Errorf(errExpiryInPastFmt)
	}
	return nil
}

func hasControlChars(s string) bool {
	for _, char := range s {
		if char < asciiControlStart || char == asciiDelete {
			return true
		}
	}
	return false
}
