package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "crm"
	maxTxRetries       = 16
)

// RedisStore uses WATCH/MULTI optimistic transactions for updates
type RedisStore struct {
	client   *goredis.Client
	prefix   string
	addr     string
	db       int
	password string
}

type RedisOption func(*RedisStore)

func WithRedisPassword(password string) RedisOption {
	return func(s *RedisStore) {
		s.password = password
	}
}

func WithRedisDB(db int) RedisOption {
	return func(s *RedisStore) {
		s.db = db
	}
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithRedisClient(client *goredis.Client) RedisOption {
	return func(s *RedisStore) {
		if client != nil {
			s.client = client
		}
	}
}

func NewRedisStore(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errRedisAddrRequired
	}
	s := &RedisStore{prefix: defaultRedisPrefix, addr: addr}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = goredis.NewClient(&goredis.Options{
			Addr:     s.addr,
			Password: s.password,
			DB:       s.db,
		})
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf(errRedisPingFmt, err)
	}
	return s, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(errGetFmt, key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), nonNil(value), 0).Err(); err != nil {
		return fmt.Errorf(errSetFmt, key, err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := checkKey(key); err != nil {
		return err
	}
	k := s.key(key)
	txf := func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		exists := true
		if errors.Is(err, goredis.Nil) {
			current, exists = nil, false
		} else if err != nil {
			return fmt.Errorf(errUpdateReadFmt, key, err)
		}
		next, err := fn(current, exists)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, k, nonNil(next), 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf(errUpdateFmt, key, ErrConflict)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf(errDeleteFmt, key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
