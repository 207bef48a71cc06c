package database

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/toughstock/config"
	"github.com/talkincode/toughstock/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TypeSqlite   = "sqlite"
	TypePostgres = "postgres"
)

// Open connects to the configured store. sqlite pools are pinned to a single
// connection so transactions from concurrent callers serialize.
func Open(cfg config.DBConfig, sqlitePath string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	if cfg.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case TypeSqlite, "sqlite3", "":
		if dir := filepath.Dir(sqlitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "create database dir")
			}
		}
		dialector = sqlite.Open(sqlitePath + "?_busy_timeout=5000&_foreign_keys=on")
	case TypePostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", cfg.Type)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if IsSqlite(db) {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db, nil
}

func IsSqlite(db *gorm.DB) bool {
	return db.Dialector.Name() == TypeSqlite
}

func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == TypePostgres
}

// Migrate creates or updates every table in domain.Tables.
func Migrate(db *gorm.DB) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			if err2, ok := err1.(error); ok {
				err = err2
			} else {
				err = errors.Errorf("migrate panic: %v", err1)
			}
			zap.S().Error(err)
		}
	}()
	if IsSqlite(db) {
		if err := createSqliteTables(db); err != nil {
			return err
		}
	}
	if err := db.Migrator().AutoMigrate(domain.Tables...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
