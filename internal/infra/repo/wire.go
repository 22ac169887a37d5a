package repo

import (
	"go_mock_dispatch/internal/infra/storage"

	"github.com/google/wire"
)

var Reposet = wire.NewSet(
	NewDefinitionRepoConfig,
	storage.StorageSet,
	NewDefinitionRepoImpl,
)
