package app

import (
	"context"
	"errors"
	"fmt"

	"crm-service/internal/config"
	"crm-service/internal/infra/postgres"
	"crm-service/internal/infra/s3"
	"crm-service/internal/kvstore"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var errUnknownBackend = errors.New("unknown store backend")

const (
	errOpenStoreFmt = "failed to open %s store: %w"
	errOpenPoolFmt  = "failed to open %s pool: %w"
)

// openStore opens the key-value backend selected by cfg. The returned pool is
// non-nil for the postgres backend so other components can share it.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (kvstore.Store, *pgxpool.Pool, error) {
	sc := cfg.Store
	log.Info("opening key-value store", zap.String("backend", sc.Backend))

	switch sc.Backend {
	case config.BackendMemory:
		return kvstore.NewMemoryStore(), nil, nil

	case config.BackendSQLite:
		store, err := kvstore.NewSQLiteStore(sc.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf(errOpenStoreFmt, sc.Backend, err)
		}
		return store, nil, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, postgres.Config{URL: sc.DatabaseURL, MaxConns: sc.MaxConns, MinConns: sc.MinConns})
		if err != nil {
			return nil, nil, fmt.Errorf(errOpenPoolFmt, sc.Backend, err)
		}
		store, err := kvstore.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf(errOpenStoreFmt, sc.Backend, err)
		}
		return store, pool, nil

	case config.BackendRedis:
		opts := []kvstore.RedisOption{kvstore.WithRedisDB(sc.RedisDB), kvstore.WithRedisPrefix(sc.RedisPrefix)}
		if sc.RedisPassword != "" {
			opts = append(opts, kvstore.WithRedisPassword(sc.RedisPassword))
		}
		store, err := kvstore.NewRedisStore(ctx, sc.RedisAddr, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf(errOpenStoreFmt, sc.Backend, err)
		}
		return store, nil, nil

	case config.BackendEtcd:
		store, err := kvstore.NewEtcdStore(sc.EtcdEndpoints, sc.EtcdPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf(errOpenStoreFmt, sc.Backend, err)
		}
		return store, nil, nil

	case config.BackendS3:
		svc, err := s3.NewClient(s3.Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        sc.S3Endpoint,
		})
		if err != nil {
			return nil, nil, fmt.Errorf(errOpenStoreFmt, sc.Backend, err)
		}
		store, err := kvstore.NewS3Store(svc, sc.S3Bucket, sc.S3Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf(errOpenStoreFmt, sc.Backend, err)
		}
		return store, nil, nil
	}

	return nil, nil, fmt.Errorf(errOpenStoreFmt, sc.Backend, errUnknownBackend)
}
