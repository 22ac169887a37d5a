package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go_mock_dispatch/internal/domain/compiler"
	"go_mock_dispatch/internal/domain/iface"
	model "go_mock_dispatch/internal/domain/model/mock_rule"
	"go_mock_dispatch/internal/domain/ruletable"
	"go_mock_dispatch/internal/infra/repo"
	"go_mock_dispatch/internal/infra/storage"
	"go_mock_dispatch/utils"

	"github.com/google/uuid"
)

type RuleManageService struct {
	ruleRepo repo.DefinitionRepositoryIface
	manager  *ruletable.Manager
}

var _ iface.RuleService = (*RuleManageService)(nil)

func NewRuleManageService(ruleRepo repo.DefinitionRepositoryIface, manager *ruletable.Manager) *RuleManageService {
	return &RuleManageService{
		ruleRepo: ruleRepo,
		manager:  manager,
	}
}

// SaveOrUpdate 创建或更新定义, 保存后重建规则表
func (s *RuleManageService) SaveOrUpdate(ctx context.Context, def *model.MockDefinition) (*model.MockDefinition, error) {
	d, err := s.prepare(ctx, def)
	if err != nil {
		return nil, err
	}
	if err := s.ruleRepo.SaveDefinition(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save definition to repository: %w", err)
	}
	utils.GetLogger().Infof("mock definition saved: id=%s api=%s method=%s", d.ID, d.APIName, d.Method)

	if _, err := s.Reload(ctx); err != nil {
		return d, fmt.Errorf("definition %s saved but reload failed: %w", d.ID, err)
	}
	return d, nil
}

// prepare normalizes, validates and compiles a copy of def, assigning an id
// for new definitions and keeping createdAt for existing ones.
func (s *RuleManageService) prepare(ctx context.Context, def *model.MockDefinition) (*model.MockDefinition, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: definition is required", model.ErrInvalidDefinition)
	}
	d := def.Clone()
	d.Source = model.SourcePersisted
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	// 提前编译, 让非法正则等问题同步返回给调用方
	if _, err := compiler.Compile(d); err != nil {
		return nil, err
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
		d.CreatedAt = time.Time{}
		return d, nil
	}
	existing, err := s.ruleRepo.FindByID(ctx, d.ID)
	switch {
	case err == nil:
		d.CreatedAt = existing.CreatedAt
	case errors.Is(err, model.ErrDefinitionNotFound):
	default:
		return nil, fmt.Errorf("failed to look up definition %s: %w", d.ID, err)
	}
	return d, nil
}

// Delete removes the definition and rebuilds the table. A stale cache entry
// does not stop the rebuild; it is reported after it.
func (s *RuleManageService) Delete(ctx context.Context, id string) error {
	cacheErr := s.ruleRepo.DeleteDefinition(ctx, id)
	if cacheErr != nil && !errors.Is(cacheErr, repo.ErrStaleCache) {
		return cacheErr
	}
	utils.GetLogger().Infof("mock definition deleted: id=%s", id)
	if _, err := s.Reload(ctx); err != nil {
		return errors.Join(cacheErr, fmt.Errorf("definition %s deleted but reload failed: %w", id, err))
	}
	if cacheErr != nil {
		utils.GetLogger().Warnf("definition %s deleted, cache cleanup failed: %v", id, cacheErr)
		return fmt.Errorf("definition %s deleted: %w", id, cacheErr)
	}
	return nil
}

func (s *RuleManageService) Get(ctx context.Context, id string) (*model.MockDefinition, error) {
	for _, t := range s.manager.Temporaries() {
		if t.ID == id {
			return t, nil
		}
	}
	return s.ruleRepo.FindByID(ctx, id)
}

func (s *RuleManageService) List(ctx context.Context) ([]*model.MockDefinition, error) {
	persisted, err := s.ruleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	out := make([]*model.MockDefinition, 0, len(persisted))
	for _, d := range persisted {
		d.Source = model.SourcePersisted
		out = append(out, d)
	}
	out = append(out, s.manager.Temporaries()...)
	storage.SortForListing(out)
	return out, nil
}

// ImportBatch saves each definition independently; a failing item never
// blocks the others. The table is rebuilt once at the end.
func (s *RuleManageService) ImportBatch(ctx context.Context, defs []*model.MockDefinition) ([]iface.ImportResult, error) {
	results := make([]iface.ImportResult, 0, len(defs))
	saved := 0
	for _, def := range defs {
		res := iface.ImportResult{}
		if def != nil {
			res.APIName = def.APIName
		}
		d, err := s.prepare(ctx, def)
		if err == nil {
			err = s.ruleRepo.SaveDefinition(ctx, d)
		}
		if err != nil {
			res.Error = err.Error()
			utils.GetLogger().Warnf("mock definition import failed: api=%s: %v", res.APIName, err)
		} else {
			res.Success = true
			res.APIName = d.APIName
			res.MockID = d.ID
			saved++
		}
		results = append(results, res)
	}
	utils.GetLogger().Infof("mock definition import finished: total=%d saved=%d", len(defs), saved)

	if saved > 0 {
		if _, err := s.Reload(ctx); err != nil {
			return results, fmt.Errorf("import saved %d definitions but reload failed: %w", saved, err)
		}
	}
	return results, nil
}

// UploadTemporary validates every definition before storing any of them.
func (s *RuleManageService) UploadTemporary(ctx context.Context, defs []*model.MockDefinition) ([]*model.MockDefinition, error) {
	prepared := make([]*model.MockDefinition, 0, len(defs))
	for i, def := range defs {
		if def == nil {
			return nil, fmt.Errorf("%w: item %d is empty", model.ErrInvalidDefinition, i)
		}
		d := def.Clone()
		d.Normalize()
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, d.APIName, err)
		}
		if _, err := compiler.Compile(d); err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, d.APIName, err)
		}
		prepared = append(prepared, d)
	}

	stored := s.manager.PutTemporary(prepared...)
	utils.GetLogger().Infof("temporary mock definitions uploaded: %d", len(stored))
	if _, err := s.Reload(ctx); err != nil {
		return stored, fmt.Errorf("temporary definitions stored but reload failed: %w", err)
	}
	return stored, nil
}

func (s *RuleManageService) DeleteTemporary(ctx context.Context, apiName, method string) (bool, error) {
	if !s.manager.DeleteTemporary(apiName, method) {
		return false, nil
	}
	utils.GetLogger().Infof("temporary mock definition deleted: api=%s method=%s", apiName, method)
	if _, err := s.Reload(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (s *RuleManageService) Reload(ctx context.Context) (iface.ReloadResult, error) {
	table, err := s.manager.Reload(ctx)
	res := iface.ReloadResult{
		Generation: table.Generation,
		Rules:      table.Len(),
		Failures:   table.Failures,
	}
	if res.Failures == nil {
		res.Failures = []compiler.CompileFailure{}
	}
	return res, err
}

func (s *RuleManageService) DebugTable(_ context.Context) ruletable.TableView {
	return s.manager.Current().View()
}
