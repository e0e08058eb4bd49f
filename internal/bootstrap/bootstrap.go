package bootstrap

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tentens-tech/shared-debrid/internal/application"
	"github.com/tentens-tech/shared-debrid/internal/config"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/cache"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage/etcd"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage/gist"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage/mock"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage/redis"
)

func newStoreFactory(ctx context.Context, cfg *config.Config, gistCache *cache.Cache) (application.StoreFactory, error) {
	switch cfg.Storage.Type {
	case storage.TypeGist:
		return func(ctx context.Context, target application.Target) (storage.Store, error) {
			if target.ContainerID == "" {
				return nil, fmt.Errorf("gist id is required")
			}
			return gist.New(ctx, gist.Config{
				BaseURL:    cfg.Storage.Gist.APIURL,
				APIVersion: cfg.Storage.Gist.APIVersion,
				Token:      target.Token,
				GistID:     target.ContainerID,
				Timeout:    cfg.Storage.RequestTimeout,
				Cache:      gistCache,
				CacheTTL:   cfg.Cache.TTL,
			}), nil
		}, nil
	case storage.TypeEtcd:
		storageConnection, err := etcd.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create etcd storage connection, %v", err)
		}
		go func() {
			<-ctx.Done()
			if err := storageConnection.Close(); err != nil {
				log.Warnf("Failed to close etcd connection: %v", err)
			}
		}()
		return func(_ context.Context, target application.Target) (storage.Store, error) {
			return storageConnection.Container(target.ContainerID), nil
		}, nil
	case storage.TypeRedis:
		storageConnection := redis.New(cfg)
		return func(_ context.Context, target application.Target) (storage.Store, error) {
			return storageConnection.Container(target.ContainerID), nil
		}, nil
	case storage.TypeMock:
		storageConnection := mock.New()
		return func(_ context.Context, target application.Target) (storage.Store, error) {
			return storageConnection.Container(target.ContainerID), nil
		}, nil
	}

	return nil, fmt.Errorf("unsupported storage type: %v", cfg.Storage.Type)
}

func newCache(ctx context.Context, cfg *config.Config) *cache.Cache {
	if cfg.Cache.Enabled && cfg.Storage.Type == storage.TypeGist {
		log.Info("Gist response cache is enabled")
		gistCache := cache.New(cfg.Cache.Size)
		go func() {
			<-ctx.Done()
			gistCache.Close()
		}()
		return gistCache
	}

	log.Info("Gist response cache is disabled")
	return nil
}

// NewApplication wires the configured backend into an application. Long-lived
// connections are closed once ctx is done.
func NewApplication(ctx context.Context, cfg *config.Config) (*application.Application, error) {
	gistCache := newCache(ctx, cfg)

	stores, err := newStoreFactory(ctx, cfg, gistCache)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage connection: %v", err)
	}

	return application.New(ctx, cfg, stores), nil
}
