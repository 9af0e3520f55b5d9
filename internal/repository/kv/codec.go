package kv

import (
	"encoding/json"

	"crm-service/internal/domain/user"
)

func decodeSession(raw []byte) (*user.Session, error) {
	var s user.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
