// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package connectors

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/murmurai/pkg/commons"
)

// SqliteConnector hands out the gorm handle backing the local object store.
type SqliteConnector interface {
	DB(ctx context.Context) *gorm.DB
	Migrate(models ...interface{}) error
	Close() error
}

type sqliteConnector struct {
	logger commons.Logger
	db     *gorm.DB
}

// NewSqliteConnector opens (or creates) the sqlite database at path.
// Foreign keys are enabled so cascade deletes are enforced by the engine.
func NewSqliteConnector(logger commons.Logger, path string) (SqliteConnector, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	logger.Infof("sqlite connector ready: path=%s", path)
	return &sqliteConnector{logger: logger, db: db}, nil
}

func (c *sqliteConnector) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

func (c *sqliteConnector) Migrate(models ...interface{}) error {
	if err := c.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (c *sqliteConnector) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
