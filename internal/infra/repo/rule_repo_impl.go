package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
	configs "go_mock_dispatch/internal/infra/config"
	"go_mock_dispatch/internal/infra/storage"
	"go_mock_dispatch/utils"

	"github.com/avast/retry-go/v4"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"
)

// definitionRepoImpl 实现了 DefinitionRepositoryIface 接口 (singleflight 并发控制, retry-go, ants pool)
type definitionRepoImpl struct {
	store    storage.DefinitionStorageIface
	cache    storage.DefinitionCacheIface
	config   *configs.DefinitionRepoConfig
	taskPool *ants.Pool
	sfGroup  singleflight.Group
}

// 确保 definitionRepoImpl 实现了接口 (编译时检查)
var _ DefinitionRepositoryIface = (*definitionRepoImpl)(nil)

func NewDefinitionRepoConfig(c *configs.MockConfig) *configs.DefinitionRepoConfig {
	return &c.DefinitionRepoConfig
}

// NewDefinitionRepoImpl builds the repository; the cleanup releases its pool.
func NewDefinitionRepoImpl(store storage.DefinitionStorageIface, cache storage.DefinitionCacheIface, config *configs.DefinitionRepoConfig) (DefinitionRepositoryIface, func(), error) {
	taskPool, err := ants.NewPool(config.AsyncPoolSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	repo := &definitionRepoImpl{
		store:    store,
		cache:    cache,
		config:   config,
		taskPool: taskPool,
	}
	return repo, repo.close, nil
}

func (r *definitionRepoImpl) close() {
	r.taskPool.Release()
}

func (r *definitionRepoImpl) cacheRetry(fn retry.RetryableFunc) error {
	return retry.Do(fn,
		retry.Attempts(uint(max(r.config.CacheRetryCount, 1))),
		retry.Delay(r.config.CacheRetryDelay),
		retry.LastErrorOnly(true),
	)
}

// ListAll 列出全部定义
func (r *definitionRepoImpl) ListAll(ctx context.Context) ([]*model.MockDefinition, error) {
	// 使用 singleflight 合并并发的全量查询
	data, err, shared := r.sfGroup.Do("list_all", func() (interface{}, error) {
		defs, err := r.store.ListDefinitions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list definitions from storage: %w", err)
		}
		return defs, nil
	})
	if err != nil {
		return nil, err
	}

	defs := data.([]*model.MockDefinition)
	if !shared {
		return defs, nil
	}
	// shared results must not alias between callers
	out := make([]*model.MockDefinition, len(defs))
	for i, d := range defs {
		out[i] = d.Clone()
	}
	return out, nil
}

// Snapshot 绕过 singleflight: a read already in flight may predate the write
// that triggered the reload.
func (r *definitionRepoImpl) Snapshot(ctx context.Context) ([]*model.MockDefinition, error) {
	defs, err := r.store.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions from storage: %w", err)
	}
	return defs, nil
}

// FindByID 根据ID查询定义, 先查缓存
func (r *definitionRepoImpl) FindByID(ctx context.Context, id string) (*model.MockDefinition, error) {
	def, err := r.cache.GetDefinitionFromCache(ctx, id)
	if err == nil {
		utils.GetLogger().Debugf("definition found in cache: %s", id)
		return def, nil
	}
	if !errors.Is(err, storage.ErrCacheMiss) {
		utils.GetLogger().Warnf("definition cache read failed for %s: %v", id, err)
	}

	// 使用 singleflight 防止缓存击穿
	data, err, _ := r.sfGroup.Do("find_definition_"+id, func() (interface{}, error) {
		def, err := r.store.GetDefinition(ctx, id)
		if err != nil {
			return nil, err
		}

		// 设置缓存，使用重试机制; a cache failure does not fail the read
		if err := r.cacheRetry(func() error {
			return r.cache.SetDefinitionToCache(ctx, def)
		}); err != nil {
			utils.GetLogger().Warnf("failed to set definition cache for %s: %v", id, err)
		}
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*model.MockDefinition).Clone(), nil
}

func (r *definitionRepoImpl) BatchFind(ctx context.Context, ids []string) ([]*model.MockDefinition, error) {
	found := make([]*model.MockDefinition, 0, len(ids))
	missing := make([]string, 0)
	for _, id := range ids {
		def, err := r.cache.GetDefinitionFromCache(ctx, id)
		if err != nil {
			missing = append(missing, id)
			continue
		}
		found = append(found, def)
	}
	if len(missing) == 0 {
		return found, nil
	}

	key := "batch_find_" + strings.Join(sortedCopy(missing), ",")
	data, err, _ := r.sfGroup.Do(key, func() (interface{}, error) {
		return r.store.BatchGetDefinitions(ctx, missing)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to batch get definitions from storage: %w", err)
	}
	dbDefs := data.([]*model.MockDefinition)
	for _, d := range dbDefs {
		found = append(found, d.Clone())
	}

	// 异步回填缓存
	r.submit(ctx, "backfill definition cache", func(ctx context.Context) error {
		return r.cacheRetry(func() error {
			for _, d := range dbDefs {
				if err := r.cache.SetDefinitionToCache(ctx, d); err != nil {
					return err
				}
			}
			return nil
		})
	})
	return found, nil
}

// SaveDefinition 保存定义，同时异步更新缓存
func (r *definitionRepoImpl) SaveDefinition(ctx context.Context, def *model.MockDefinition) error {
	_, err, _ := r.sfGroup.Do("save_definition_"+def.ID, func() (interface{}, error) {
		// 1. Save to storage (primary source of truth)
		err := retry.Do(
			func() error {
				return r.store.SaveDefinition(ctx, def)
			},
			retry.Attempts(uint(max(r.config.SaveRetryCount, 1))),
			retry.Delay(r.config.SaveRetryDelay),
			retry.LastErrorOnly(true),
			retry.Context(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to save definition to storage: %w", err)
		}

		// 2. Async update cache
		cached := def.Clone()
		r.submit(ctx, "update definition cache", func(ctx context.Context) error {
			return r.cacheRetry(func() error {
				return r.cache.SetDefinitionToCache(ctx, cached)
			})
		})
		return nil, nil
	})
	return err
}

// DeleteDefinition 删除定义，同时删除缓存
func (r *definitionRepoImpl) DeleteDefinition(ctx context.Context, id string) error {
	_, err, _ := r.sfGroup.Do("delete_definition_"+id, func() (interface{}, error) {
		if err := r.store.DeleteDefinition(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete definition from storage: %w", err)
		}

		// 删除缓存，使用重试机制
		if err := r.cacheRetry(func() error {
			return r.cache.DeleteDefinitionFromCache(ctx, id)
		}); err != nil {
			return nil, fmt.Errorf("%w: failed to delete definition cache: %v", ErrStaleCache, err)
		}
		return nil, nil
	})
	return err
}

// submit runs task on the pool, detached from the caller's cancellation.
func (r *definitionRepoImpl) submit(ctx context.Context, what string, task func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	if err := r.taskPool.Submit(func() {
		if err := task(detached); err != nil {
			utils.GetLogger().Errorf("async %s failed: %v", what, err)
		}
	}); err != nil {
		utils.GetLogger().Errorf("failed to submit %s task: %v", what, err)
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
