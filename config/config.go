package config

import (
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables that override the config file,
// e.g. TOUGHSTOCK_DATABASE_NAME or TOUGHSTOCK_WEB_PORT.
const EnvPrefix = "TOUGHSTOCK_"

type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

type DBConfig struct {
	Type     string `yaml:"type"` // sqlite or postgres
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type WebConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

// BackupConfig controls the startup snapshot of the sqlite database file.
type BackupConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	Retention int    `yaml:"retention"`
}

type StockConfig struct {
	AssetsDir         string `yaml:"assets_dir"`
	LowStockThreshold int    `yaml:"low_stock_threshold"`
	ExpiryDays        int    `yaml:"expiry_days"`
	ListLimit         int    `yaml:"list_limit"`
	// AlertSchedule is a cron expression; empty disables the alert job.
	AlertSchedule string `yaml:"alert_schedule"`
}

type MailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Passwd  string `yaml:"passwd"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system"`
	Database DBConfig     `yaml:"database"`
	Logger   LogConfig    `yaml:"logger"`
	Web      WebConfig    `yaml:"web"`
	Backup   BackupConfig `yaml:"backup"`
	Stock    StockConfig  `yaml:"stock"`
	Mail     MailConfig   `yaml:"mail"`
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetBackupDir() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return path.Join(c.System.Workdir, "backup")
}

func (c *AppConfig) GetAssetsDir() string {
	if c.Stock.AssetsDir != "" {
		return c.Stock.AssetsDir
	}
	return path.Join(c.System.Workdir, "assets")
}

// GetDatabasePath resolves the sqlite file location under the workdir.
func (c *AppConfig) GetDatabasePath() string {
	if c.Database.Name == "" {
		return path.Join(c.GetDataDir(), "estoque.db")
	}
	if path.IsAbs(c.Database.Name) {
		return c.Database.Name
	}
	return path.Join(c.GetDataDir(), c.Database.Name)
}

func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetDataDir(), c.GetLogDir(), c.GetBackupDir(), c.GetAssetsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "ToughStock",
		Location: "America/Sao_Paulo",
		Workdir:  "/var/toughstock",
		Debug:    true,
	},
	Database: DBConfig{
		Type:     "sqlite",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "estoque.db",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  50,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/toughstock/logs/toughstock.log",
	},
	Web: WebConfig{
		Host: "0.0.0.0",
		Port: 1818,
	},
	Backup: BackupConfig{
		Enabled:   true,
		Retention: 5,
	},
	Stock: StockConfig{
		LowStockThreshold: 3,
		ExpiryDays:        30,
		ListLimit:         10,
	},
	Mail: MailConfig{
		Port: 587,
	},
}

// LoadConfig reads the yaml file when present, then applies .env and
// TOUGHSTOCK_* environment overrides. A missing file yields the defaults.
func LoadConfig(cfile string) (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := *DefaultAppConfig
	if cfile == "" {
		cfile = "toughstock.yml"
	}
	data, err := os.ReadFile(cfile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	case !os.IsNotExist(err):
		return nil, errors.Wrapf(err, "read config %s", cfile)
	}

	if err := applyEnv(&cfg, os.Environ()); err != nil {
		return nil, err
	}
	normalize(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *AppConfig, environ []string) error {
	sections := map[string]interface{}{
		"system":   &cfg.System,
		"database": &cfg.Database,
		"logger":   &cfg.Logger,
		"web":      &cfg.Web,
		"backup":   &cfg.Backup,
		"stock":    &cfg.Stock,
		"mail":     &cfg.Mail,
	}
	values := make(map[string]map[string]interface{})
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		section, key, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "_")
		if !ok || sections[section] == nil {
			continue
		}
		if values[section] == nil {
			values[section] = make(map[string]interface{})
		}
		values[section][key] = v
	}
	for section, vals := range values {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "yaml",
			WeaklyTypedInput: true,
			Result:           sections[section],
		})
		if err != nil {
			return errors.WithStack(err)
		}
		if err := dec.Decode(vals); err != nil {
			return errors.Wrapf(err, "env override for %s", section)
		}
	}
	return nil
}

func normalize(cfg *AppConfig) {
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Backup.Retention <= 0 {
		cfg.Backup.Retention = 5
	}
	if cfg.Stock.LowStockThreshold <= 0 {
		cfg.Stock.LowStockThreshold = 3
	}
	if cfg.Stock.ListLimit <= 0 {
		cfg.Stock.ListLimit = 10
	}
}
