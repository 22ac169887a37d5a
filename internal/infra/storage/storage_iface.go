package storage

import (
	"context"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
)

// DefinitionStorageIface 定义持久化存储接口
type DefinitionStorageIface interface {
	// SaveDefinition inserts or replaces by id.
	SaveDefinition(ctx context.Context, def *model.MockDefinition) error
	// GetDefinition returns model.ErrDefinitionNotFound when absent.
	GetDefinition(ctx context.Context, id string) (*model.MockDefinition, error)
	DeleteDefinition(ctx context.Context, id string) error
	BatchGetDefinitions(ctx context.Context, ids []string) ([]*model.MockDefinition, error)
	// ListDefinitions orders by apiName asc, createdAt desc.
	ListDefinitions(ctx context.Context) ([]*model.MockDefinition, error)
}

// DefinitionCacheIface 定义缓存操作接口
type DefinitionCacheIface interface {
	GetDefinitionFromCache(ctx context.Context, id string) (*model.MockDefinition, error)
	SetDefinitionToCache(ctx context.Context, def *model.MockDefinition) error
	DeleteDefinitionFromCache(ctx context.Context, id string) error
}
