package storage

import (
	"fmt"

	configs "go_mock_dispatch/internal/infra/config"

	"github.com/google/wire"
)

// StorageSet is a Wire provider set that includes all storage-related providers
var StorageSet = wire.NewSet(
	NewDefinitionStorage,
	NewRedisClient,
	NewDefinitionCache,
)

// NewDefinitionStorage selects the configured backend.
func NewDefinitionStorage(c *configs.MockConfig) (DefinitionStorageIface, error) {
	switch c.StorageConfig.Type {
	case configs.StorageMySQL:
		db, err := NewMySQLClient(c)
		if err != nil {
			return nil, err
		}
		return NewMysqlDefinitionStorage(db), nil
	case configs.StorageMemory, "":
		return NewMemoryDefinitionStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", c.StorageConfig.Type)
	}
}
