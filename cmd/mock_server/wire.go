//go:build wireinject
// +build wireinject

package main

import (
	"go_mock_dispatch/app/http_mock_app"
	"go_mock_dispatch/internal/domain/callback"
	"go_mock_dispatch/internal/domain/resolver"
	"go_mock_dispatch/internal/domain/ruletable"
	"go_mock_dispatch/internal/domain/services"
	configs "go_mock_dispatch/internal/infra/config"
	"go_mock_dispatch/internal/infra/repo"

	"github.com/google/wire"
)

func InitializeMockApp(c *configs.MockConfig) (*MockApp, func(), error) {
	wire.Build(
		repo.Reposet,
		services.ServiceSet,
		provideHTTPClient,
		provideResolverOptions,
		resolver.NewResolver,
		wire.Bind(new(callback.DefinitionFinder), new(*ruletable.Manager)),
		provideSimulator,
		http_mock_app.NewChassisMetrics,
		http_mock_app.NewMockController,
		provideDispatchHandler,
		provideDispatchServer,
		NewMockApp,
	)
	return &MockApp{}, nil, nil
}
