//go:build wireinject
// +build wireinject

package rulerepotest

import (
	configs "go_mock_dispatch/internal/infra/config"
	"go_mock_dispatch/internal/infra/repo"

	"github.com/google/wire"
)

type RepoDefinitionTestSuite struct {
	Repo repo.DefinitionRepositoryIface
}

func NewRepoDefinitionTestSuite(r repo.DefinitionRepositoryIface) *RepoDefinitionTestSuite {
	return &RepoDefinitionTestSuite{Repo: r}
}

func InitializeRepoTest(configPath string) (*RepoDefinitionTestSuite, func(), error) {
	wire.Build(configs.LoadMockConfig, repo.Reposet, NewRepoDefinitionTestSuite)
	return &RepoDefinitionTestSuite{}, nil, nil
}
