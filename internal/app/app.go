package app

import (
	"context"
	"os"
	"sync"
	"time"
	_ "time/tzdata"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/toughstock/config"
	"github.com/talkincode/toughstock/internal/account"
	"github.com/talkincode/toughstock/internal/backup"
	"github.com/talkincode/toughstock/internal/chat"
	"github.com/talkincode/toughstock/internal/database"
	"github.com/talkincode/toughstock/internal/stock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig  *config.AppConfig
	gormDB     *gorm.DB
	sched      *cron.Cron
	bus        EventBus.Bus
	ledger     *stock.Ledger
	accounts   *account.Store
	assets     *stock.AssetStore
	chats      *chat.Registry
	backupOnce sync.Once
	backupFile string
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ LedgerProvider    = (*Application)(nil)
	_ AccountProvider   = (*Application)(nil)
	_ ChatProvider      = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

func (a *Application) Ledger() *stock.Ledger {
	return a.ledger
}

func (a *Application) Accounts() *account.Store {
	return a.accounts
}

func (a *Application) Assets() *stock.AssetStore {
	return a.assets
}

func (a *Application) Chats() *chat.Registry {
	return a.chats
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Init prepares logging, snapshots the database file, opens and migrates
// the store, seeds the admin account and builds the services. The backup
// always runs before any schema change or ledger write.
func (a *Application) Init(cfg *config.AppConfig) error {
	a.appConfig = cfg
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	if err := cfg.InitDirs(); err != nil {
		return err
	}
	initLogger(cfg)

	if _, err := a.Backup(); err != nil {
		zap.L().Error("database backup failed", zap.String("namespace", "backup"), zap.Error(err))
	}

	a.gormDB, err = database.Open(cfg.Database, cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	a.bus = EventBus.New()
	a.subscribeAudit()
	a.assets = stock.NewAssetStore(cfg.GetAssetsDir())
	a.ledger = stock.NewLedger(a.gormDB,
		stock.WithFileRemover(a.assets),
		stock.WithPublisher(a.bus))
	a.accounts = account.NewStore(a.gormDB)
	a.chats = chat.NewRegistry(chat.NewInterpreter(a.ledger, cfg.Stock.ListLimit))

	a.checkSuper()
	return nil
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// Backup snapshots the sqlite file once per process. Later calls return
// the first result.
func (a *Application) Backup() (string, error) {
	var err error
	a.backupOnce.Do(func() {
		cfg := a.appConfig
		if !cfg.Backup.Enabled {
			return
		}
		if !isSqliteType(cfg.Database.Type) {
			zap.L().Info("file backup skipped for non sqlite database",
				zap.String("namespace", "backup"), zap.String("type", cfg.Database.Type))
			return
		}
		mgr := backup.NewManager(cfg.GetBackupDir(), cfg.Backup.Retention)
		a.backupFile, err = mgr.Snapshot(cfg.GetDatabasePath())
	})
	return a.backupFile, err
}

func isSqliteType(t string) bool {
	switch t {
	case database.TypeSqlite, "sqlite3", "":
		return true
	}
	return false
}

func (a *Application) MigrateDB() error {
	return database.Migrate(a.gormDB)
}

func (a *Application) subscribeAudit() {
	for _, topic := range stock.Topics {
		err := a.bus.Subscribe(topic, func(ev stock.Event) {
			zap.L().Info("stock event",
				zap.String("namespace", "audit"),
				zap.String("topic", ev.Topic),
				zap.Int64("product_id", ev.ProductID),
				zap.String("name", ev.Name),
				zap.Int("quantity", ev.Quantity),
				zap.Int("delta", ev.Delta))
		})
		if err != nil {
			zap.L().Error("subscribe audit failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// Subscribe registers fn for a ledger event topic.
func (a *Application) Subscribe(topic string, fn func(stock.Event)) error {
	return a.bus.Subscribe(topic, fn)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		ctx := a.sched.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
	}
	database.Close(a.gormDB)
	_ = zap.L().Sync()
}

// StartJobs starts the cron jobs used by the long running server.
func (a *Application) StartJobs(ctx context.Context) {
	a.initJob()
	go func() {
		<-ctx.Done()
		if a.sched != nil {
			a.sched.Stop()
		}
	}()
}
