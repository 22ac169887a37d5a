package services

import (
	"go_mock_dispatch/internal/domain/iface"
	"go_mock_dispatch/internal/domain/ruletable"
	"go_mock_dispatch/internal/infra/repo"

	"github.com/google/wire"
)

var ServiceSet = wire.NewSet(
	wire.Bind(new(ruletable.DefinitionSource), new(repo.DefinitionRepositoryIface)),
	ruletable.NewManager,
	NewRuleManageService,
	wire.Bind(new(iface.RuleService), new(*RuleManageService)),
	NewRuleMatchService,
	wire.Bind(new(iface.RuleMatchService), new(*RuleMatchService)),
)
