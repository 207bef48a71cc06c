package app

import (
	"github.com/robfig/cron/v3"
	"github.com/talkincode/toughstock/config"
	"github.com/talkincode/toughstock/internal/account"
	"github.com/talkincode/toughstock/internal/chat"
	"github.com/talkincode/toughstock/internal/stock"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// LedgerProvider provides the stock ledger and its photo store
type LedgerProvider interface {
	Ledger() *stock.Ledger
	Assets() *stock.AssetStore
}

// AccountProvider provides the account store
type AccountProvider interface {
	Accounts() *account.Store
}

// ChatProvider provides the per-user chat sessions
type ChatProvider interface {
	Chats() *chat.Registry
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	LedgerProvider
	AccountProvider
	ChatProvider
	SchedulerProvider

	// MigrateDB creates or updates the schema
	MigrateDB() error
	// Backup snapshots the database file once per process
	Backup() (string, error)
}
