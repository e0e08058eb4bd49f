package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tentens-tech/shared-debrid/internal/application"
	"github.com/tentens-tech/shared-debrid/internal/config"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage/gist"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage/mock"
)

func TestNewApplication(t *testing.T) {
	tests := []struct {
		name        string
		storageType string
		expectError bool
	}{
		{name: "Mock storage", storageType: storage.TypeMock},
		{name: "Gist storage", storageType: storage.TypeGist},
		{name: "Redis storage", storageType: storage.TypeRedis},
		{name: "Unsupported storage", storageType: "s3", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			cfg := config.NewConfig()
			cfg.Storage.Type = tt.storageType

			app, err := NewApplication(ctx, cfg)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, app)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, app.Stores)
		})
	}
}

func TestMockStoresShareState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.NewConfig()
	cfg.Storage.Type = storage.TypeMock
	stores, err := newStoreFactory(ctx, cfg, nil)
	require.NoError(t, err)

	first, err := stores(ctx, application.Target{ContainerID: "a"})
	require.NoError(t, err)
	_, err = first.UpdateContent(ctx, "lease.json", "content")
	require.NoError(t, err)

	second, err := stores(ctx, application.Target{ContainerID: "a"})
	require.NoError(t, err)
	document, err := second.GetContent(ctx, "lease.json")
	require.NoError(t, err)
	assert.Equal(t, "content", document.Content)
	assert.IsType(t, &mock.Container{}, second)
}

func TestGistStoreRequiresID(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewConfig()
	cfg.Storage.Type = storage.TypeGist
	stores, err := newStoreFactory(ctx, cfg, nil)
	require.NoError(t, err)

	_, err = stores(ctx, application.Target{Token: "token"})
	assert.Error(t, err)

	store, err := stores(ctx, application.Target{Token: "token", ContainerID: "abc"})
	require.NoError(t, err)
	assert.IsType(t, &gist.Client{}, store)
}

func TestCacheOnlyForGist(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.NewConfig()
	cfg.Cache.Enabled = true

	cfg.Storage.Type = storage.TypeMock
	assert.Nil(t, newCache(ctx, cfg))

	cfg.Storage.Type = storage.TypeGist
	assert.NotNil(t, newCache(ctx, cfg))

	cfg.Cache.Enabled = false
	assert.Nil(t, newCache(ctx, cfg))
}
