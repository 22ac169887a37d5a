//go:build wireinject
// +build wireinject

package storagetest

import (
	configs "go_mock_dispatch/internal/infra/config"
	"go_mock_dispatch/internal/infra/storage"

	"github.com/google/wire"
)

type DefinitionStorageTestSuite struct {
	storage storage.DefinitionStorageIface
	cache   storage.DefinitionCacheIface
}

func NewDefinitionStorageTestSuite(st storage.DefinitionStorageIface, cache storage.DefinitionCacheIface) *DefinitionStorageTestSuite {
	return &DefinitionStorageTestSuite{storage: st, cache: cache}
}

func InitializeStorageTest(configPath string) (*DefinitionStorageTestSuite, error) {
	wire.Build(configs.LoadMockConfig, storage.StorageSet, NewDefinitionStorageTestSuite)
	return &DefinitionStorageTestSuite{}, nil
}
