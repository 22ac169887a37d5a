package services

import (
	"context"
	"fmt"

	"go_mock_dispatch/internal/domain/iface"
	model "go_mock_dispatch/internal/domain/model/mock_rule"
	"go_mock_dispatch/internal/domain/resolver"
	"go_mock_dispatch/internal/domain/ruletable"
)

type RuleMatchService struct {
	manager  *ruletable.Manager
	resolver *resolver.Resolver
}

var _ iface.RuleMatchService = (*RuleMatchService)(nil)

func NewRuleMatchService(manager *ruletable.Manager, res *resolver.Resolver) *RuleMatchService {
	return &RuleMatchService{manager: manager, resolver: res}
}

// MatchRule returns the first rule of the installed table satisfied by req.
func (s *RuleMatchService) MatchRule(ctx context.Context, req model.RequestInfo) (*model.MatchRule, bool) {
	return s.manager.Dispatch(ctx, req)
}

func (s *RuleMatchService) ExecuteRuleAction(ctx context.Context, rule *model.MatchRule, req model.RequestInfo) (model.ResponseInfo, error) {
	if rule == nil {
		return nil, fmt.Errorf("no rule to execute")
	}
	return s.resolver.Resolve(ctx, rule, req)
}
