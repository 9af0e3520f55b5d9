// Package kvstore is the generic key-value store the CRM persists its
// collections in. Every backend offers an atomic read-modify-write per key;
// nothing is assumed across keys.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("kvstore: key not found")
	ErrConflict = errors.New("kvstore: concurrent update conflict")
	ErrEmptyKey = errors.New("kvstore: key must not be empty")

	errEtcdEndpointsRequired = errors.New("etcd endpoints are required")
	errRedisAddrRequired     = errors.New("redis addr is required")
	errS3BucketRequired      = errors.New("s3 bucket is required")
	errSQLitePathRequired    = errors.New("kvstore sqlite path is required")
)

const (
	errDecodeFmt = "kvstore: decode %s: %w"
	errEncodeFmt = "kvstore: encode %s: %w"

	errGetFmt          = "get %s: %w"
	errSetFmt          = "set %s: %w"
	errDeleteFmt       = "delete %s: %w"
	errUpdateFmt       = "update %s: %w"
	errUpdateBeginFmt  = "update %s: begin: %w"
	errUpdateLockFmt   = "update %s: lock: %w"
	errUpdateReadFmt   = "update %s: read: %w"
	errUpdateWriteFmt  = "update %s: write: %w"
	errUpdateCommitFmt = "update %s: commit: %w"
	errInitSchemaFmt   = "failed to initialize kvstore schema: %w"
	errGetBodyFmt      = "get %s: read body: %w"
	errEtcdConnectFmt  = "failed to connect to etcd: %w"
	errRedisPingFmt    = "redis ping failed: %w"
	errSQLiteDirFmt    = "failed to create kvstore dir: %w"
	errSQLiteOpenFmt   = "failed to open kvstore sqlite db: %w"
	errSQLiteWALFmt    = "failed to enable wal: %w"
)

// UpdateFunc receives the current value of a key (exists is false when the
// key is absent) and returns the value to store. Returning an error aborts
// the update and the error is passed back to the caller unchanged.
type UpdateFunc func(current []byte, exists bool) ([]byte, error)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON decodes the value stored at key, returning def when the key is absent
func GetJSON[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf(errDecodeFmt, key, err)
	}
	return v, nil
}

// SetJSON encodes v and stores it at key
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf(errEncodeFmt, key, err)
	}
	return s.Set(ctx, key, raw)
}

// UpdateJSON applies fn to the decoded value at key (def when absent) and
// stores the result atomically.
func UpdateJSON[T any](ctx context.Context, s Store, key string, def T, fn func(T) (T, error)) error {
	return s.Update(ctx, key, func(current []byte, exists bool) ([]byte, error) {
		v := def
		if exists {
			var decoded T
			if err := json.Unmarshal(current, &decoded); err != nil {
				return nil, fmt.Errorf(errDecodeFmt, key, err)
			}
			v = decoded
		}
		next, err := fn(v)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf(errEncodeFmt, key, err)
		}
		return raw, nil
	})
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
