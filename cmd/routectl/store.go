package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vango-dev/routeagent/internal/config"
	rerrors "github.com/vango-dev/routeagent/internal/errors"
	"github.com/vango-dev/routeagent/pkg/snapshot"
)

// redisStore owns the client it was dialed with.
type redisStore struct {
	*snapshot.RedisStore
	client *redis.Client
}

func (s *redisStore) Close() error {
	s.RedisStore.Close()
	return s.client.Close()
}

// openStore opens the snapshot backend named in the configuration.
func openStore(ctx context.Context, cfg *config.Config) (snapshot.Store, error) {
	sc := cfg.Snapshot
	switch sc.Backend {
	case config.BackendMemory:
		return snapshot.NewMemoryStore(), nil

	case config.BackendDisk:
		s, err := snapshot.NewDiskStore(cfg.SnapshotDir())
		if err != nil {
			return nil, rerrors.New("E120").WithField("snapshot.dir").Wrap(err)
		}
		return s, nil

	case config.BackendRedis:
		client, err := snapshot.DialRedis(ctx, sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB)
		if err != nil {
			return nil, rerrors.New("E120").
				WithField("snapshot.redis.addr").
				WithSuggestion("Check that redis is running at " + sc.Redis.Addr).
				Wrap(err)
		}
		return &redisStore{
			RedisStore: snapshot.NewRedisStore(client, snapshot.WithRedisPrefix(sc.Redis.Prefix)),
			client:     client,
		}, nil

	case config.BackendS3:
		client := snapshot.NewS3Client(snapshot.S3ClientConfig{
			Region:          sc.S3.Region,
			Endpoint:        sc.S3.Endpoint,
			AccessKeyID:     sc.S3.AccessKeyID,
			SecretAccessKey: sc.S3.SecretAccessKey,
			UsePathStyle:    sc.S3.UsePathStyle,
		})
		return snapshot.NewS3Store(client, sc.S3.Bucket, sc.S3.Prefix), nil
	}
	return nil, rerrors.New("E110").
		WithField("snapshot.backend").
		WithDetail(fmt.Sprintf("Unknown backend %q", sc.Backend))
}
