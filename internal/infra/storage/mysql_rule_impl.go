package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
	configs "go_mock_dispatch/internal/infra/config"
	"go_mock_dispatch/utils"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type MysqlDefinitionStorage struct {
	mysqlClient *gorm.DB
}

var gormLogLevels = map[string]logger.LogLevel{
	"silent": logger.Silent,
	"error":  logger.Error,
	"warn":   logger.Warn,
	"info":   logger.Info,
}

// NewMySQLClient opens the pool and applies the pool options.
func NewMySQLClient(c *configs.MockConfig) (*gorm.DB, error) {
	opts := c.DatabaseOptionConfig
	db, err := gorm.Open(mysql.Open(c.DatabaseConfig.GetDSN()), &gorm.Config{
		Logger: logger.New(utils.GetLogger(), logger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  gormLogLevels[opts.NormalizedLogLevel()],
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	if c.StorageConfig.AutoMigrate {
		if err := db.AutoMigrate(&model.MockDefinition{}); err != nil {
			return nil, fmt.Errorf("failed to migrate mock_definitions: %w", err)
		}
	}
	return db, nil
}

func NewMysqlDefinitionStorage(mysqlClient *gorm.DB) *MysqlDefinitionStorage {
	return &MysqlDefinitionStorage{mysqlClient: mysqlClient}
}

var _ DefinitionStorageIface = (*MysqlDefinitionStorage)(nil)

func (s *MysqlDefinitionStorage) SaveDefinition(ctx context.Context, def *model.MockDefinition) error {
	tx := s.mysqlClient.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now()
	}
	if err := tx.Save(def).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save definition %s to mysql: %w", def.ID, err)
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *MysqlDefinitionStorage) GetDefinition(ctx context.Context, id string) (*model.MockDefinition, error) {
	def := &model.MockDefinition{}
	if err := s.mysqlClient.WithContext(ctx).First(def, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrDefinitionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get definition from mysql: %w", err)
	}
	def.Source = model.SourcePersisted
	return def, nil
}

func (s *MysqlDefinitionStorage) DeleteDefinition(ctx context.Context, id string) error {
	res := s.mysqlClient.WithContext(ctx).Delete(&model.MockDefinition{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete definition from mysql: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrDefinitionNotFound, id)
	}
	return nil
}

func (s *MysqlDefinitionStorage) BatchGetDefinitions(ctx context.Context, ids []string) ([]*model.MockDefinition, error) {
	var defs []*model.MockDefinition
	if len(ids) == 0 {
		return defs, nil
	}
	if err := s.mysqlClient.WithContext(ctx).Where("id IN ?", ids).Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to batch get definitions from mysql: %w", err)
	}
	for _, d := range defs {
		d.Source = model.SourcePersisted
	}
	return defs, nil
}

func (s *MysqlDefinitionStorage) ListDefinitions(ctx context.Context) ([]*model.MockDefinition, error) {
	var defs []*model.MockDefinition
	err := s.mysqlClient.WithContext(ctx).
		Model(&model.MockDefinition{}).
		Order("api_name ASC").
		Order("created_at DESC").
		Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions from mysql: %w", err)
	}
	for _, d := range defs {
		d.Source = model.SourcePersisted
	}
	return defs, nil
}
