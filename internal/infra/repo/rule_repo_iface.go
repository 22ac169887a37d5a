package repo

import (
	"context"
	"errors"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
)

// ErrStaleCache: the storage write succeeded but the cache entry could not
// be removed.
var ErrStaleCache = errors.New("definition cache is stale")

// DefinitionRepositoryIface 接口 - 定义数据仓库操作
type DefinitionRepositoryIface interface {
	SaveDefinition(ctx context.Context, def *model.MockDefinition) error
	DeleteDefinition(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.MockDefinition, error)
	BatchFind(ctx context.Context, ids []string) ([]*model.MockDefinition, error)
	// ListAll may share one storage read between concurrent callers.
	ListAll(ctx context.Context) ([]*model.MockDefinition, error)
	// Snapshot reads storage fresh on every call; the rule table is built from it.
	Snapshot(ctx context.Context) ([]*model.MockDefinition, error)
}
