package kvstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	defaultEtcdPrefix      = "/crm/"
	defaultEtcdDialTimeout = 5 * time.Second
)

// EtcdStore updates with compare-and-swap on the key's mod revision
type EtcdStore struct {
	client *clientv3.Client
	prefix string
}

func NewEtcdStore(endpoints []string, prefix string) (*EtcdStore, error) {
	if len(endpoints) == 0 {
		return nil, errEtcdEndpointsRequired
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultEtcdPrefix
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: defaultEtcdDialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf(errEtcdConnectFmt, err)
	}
	return &EtcdStore{client: client, prefix: prefix}, nil
}

func (s *EtcdStore) key(k string) string {
	return s.prefix + k
}

func (s *EtcdStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, s.key(key))
	if err != nil {
		return nil, fmt.Errorf(errGetFmt, key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}
	return resp.Kvs[0].Value, nil
}

func (s *EtcdStore) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := s.client.Put(ctx, s.key(key), string(value)); err != nil {
		return fmt.Errorf(errSetFmt, key, err)
	}
	return nil
}

func (s *EtcdStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := checkKey(key); err != nil {
		return err
	}
	k := s.key(key)
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		resp, err := s.client.Get(ctx, k)
		if err != nil {
			return fmt.Errorf(errUpdateReadFmt, key, err)
		}
		var (
			current  []byte
			exists   bool
			revision int64
		)
		if len(resp.Kvs) > 0 {
			current, exists, revision = resp.Kvs[0].Value, true, resp.Kvs[0].ModRevision
		}

		next, err := fn(current, exists)
		if err != nil {
			return err
		}

		txn, err := s.client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(k), "=", revision)).
			Then(clientv3.OpPut(k, string(next))).
			Commit()
		if err != nil {
			return fmt.Errorf(errUpdateWriteFmt, key, err)
		}
		if txn.Succeeded {
			return nil
		}
	}
	return fmt.Errorf(errUpdateFmt, key, ErrConflict)
}

func (s *EtcdStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := s.client.Delete(ctx, s.key(key)); err != nil {
		return fmt.Errorf(errDeleteFmt, key, err)
	}
	return nil
}

func (s *EtcdStore) Close() error {
	return s.client.Close()
}
