package iface

import (
	"context"

	"go_mock_dispatch/internal/domain/compiler"
	model "go_mock_dispatch/internal/domain/model/mock_rule"
	"go_mock_dispatch/internal/domain/ruletable"
)

// ImportResult 批量导入单条结果
type ImportResult struct {
	Success bool   `json:"success"`
	APIName string `json:"apiName"`
	MockID  string `json:"mockId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReloadResult summarizes an installed rule table.
type ReloadResult struct {
	Generation uint64                    `json:"generation"`
	Rules      int                       `json:"rules"`
	Failures   []compiler.CompileFailure `json:"failures"`
}

// RuleService 规则管理服务接口
type RuleService interface {
	// SaveOrUpdate creates the definition, or replaces it when its id exists.
	SaveOrUpdate(ctx context.Context, def *model.MockDefinition) (*model.MockDefinition, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.MockDefinition, error)
	// List returns persisted and temporary definitions together.
	List(ctx context.Context) ([]*model.MockDefinition, error)
	ImportBatch(ctx context.Context, defs []*model.MockDefinition) ([]ImportResult, error)
	UploadTemporary(ctx context.Context, defs []*model.MockDefinition) ([]*model.MockDefinition, error)
	DeleteTemporary(ctx context.Context, apiName, method string) (bool, error)
	Reload(ctx context.Context) (ReloadResult, error)
	DebugTable(ctx context.Context) ruletable.TableView
}

type RuleMatchService interface {
	// MatchRule 匹配规则
	MatchRule(ctx context.Context, req model.RequestInfo) (*model.MatchRule, bool)
	// ExecuteRuleAction 执行规则动作
	ExecuteRuleAction(ctx context.Context, rule *model.MatchRule, req model.RequestInfo) (model.ResponseInfo, error)
}
