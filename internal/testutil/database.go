// Package testutil 提供测试用的基础设施构造器
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/infrastructure/persistence/postgres"
)

// NewSQLiteDB 创建内存 SQLite 数据库并迁移全部实体
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := postgres.GormConfig()
	cfg.TranslateError = true
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)

	// :memory: 数据库按连接隔离，限制为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&entity.User{},
		&entity.UserCredits{},
		&entity.CreditTransaction{},
		&entity.ShapeGeneration{},
	))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewSQLiteClient 创建基于内存 SQLite 的数据库客户端
func NewSQLiteClient(t testing.TB) *postgres.Client {
	t.Helper()
	return postgres.NewClientWithDB(NewSQLiteDB(t))
}
