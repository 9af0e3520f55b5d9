package kv

import "fmt"

const (
	errAPIKeyNotFound  = "API key not found"
	errAPIKeyConflict  = "API key already exists"
	errUserNotFound    = "user not found"
	errMemberNotFound  = "member not found"
	errMemberExists    = "member with this email already exists"
	errSessionNotFound = "session not found"

	errFailedLoadFmt   = "failed to load %s: %w"
	errFailedUpdateFmt = "failed to update %s: %w"
)

func errFailedLoad(key string, err error) error {
	return fmt.Errorf(errFailedLoadFmt, key, err)
}

func errFailedUpdate(key string, err error) error {
	return fmt.Errorf(errFailedUpdateFmt, key, err)
}
