package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
	configs "go_mock_dispatch/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorageClonesValues(t *testing.T) {
	s := NewMemoryDefinitionStorage()
	ctx := context.Background()
	def := &model.MockDefinition{ID: "a", APIName: "login", Method: "POST", ResponseBody: map[string]any{"k": "v"}}
	require.NoError(t, s.SaveDefinition(ctx, def))
	assert.False(t, def.CreatedAt.IsZero())

	def.APIName = "changed"
	got, err := s.GetDefinition(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "login", got.APIName)
	assert.Equal(t, model.SourcePersisted, got.Source)

	got.APIName = "changed again"
	again, _ := s.GetDefinition(ctx, "a")
	assert.Equal(t, "login", again.APIName)
}

func TestMemoryStorageNotFound(t *testing.T) {
	s := NewMemoryDefinitionStorage()
	ctx := context.Background()
	_, err := s.GetDefinition(ctx, "nope")
	assert.True(t, errors.Is(err, model.ErrDefinitionNotFound))
	assert.True(t, errors.Is(s.DeleteDefinition(ctx, "nope"), model.ErrDefinitionNotFound))
	assert.Error(t, s.SaveDefinition(ctx, &model.MockDefinition{}))
}

func TestMemoryStorageListOrder(t *testing.T) {
	s := NewMemoryDefinitionStorage()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, d := range []*model.MockDefinition{
		{ID: "1", APIName: "b", CreatedAt: base},
		{ID: "2", APIName: "a", CreatedAt: base},
		{ID: "3", APIName: "b", CreatedAt: base.Add(time.Hour)},
	} {
		require.NoError(t, s.SaveDefinition(ctx, d))
	}
	defs, err := s.ListDefinitions(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"2", "3", "1"}, ids)

	batch, err := s.BatchGetDefinitions(ctx, []string{"3", "x", "1"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestNewDefinitionStorageSelectsBackend(t *testing.T) {
	c := configs.Default()
	c.StorageConfig.Type = configs.StorageMemory
	st, err := NewDefinitionStorage(c)
	require.NoError(t, err)
	assert.IsType(t, &MemoryDefinitionStorage{}, st)

	c.StorageConfig.Type = "bolt"
	_, err = NewDefinitionStorage(c)
	assert.Error(t, err)
}

func TestDisabledRedisFallsBackToNoopCache(t *testing.T) {
	c := configs.Default()
	c.RedisConfig.Enabled = false
	client, err := NewRedisClient(c)
	require.NoError(t, err)
	assert.Nil(t, client)

	cache := NewDefinitionCache(client, c)
	require.NoError(t, cache.SetDefinitionToCache(context.Background(), &model.MockDefinition{ID: "a"}))
	_, err = cache.GetDefinitionFromCache(context.Background(), "a")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}
