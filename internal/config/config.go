package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Sheets struct {
		CredentialsFile        string `yaml:"credentials_file"`
		RosterSpreadsheetID    string `yaml:"roster_spreadsheet_id"`
		ReceptionSpreadsheetID string `yaml:"reception_spreadsheet_id"`
		ReceptionSheetGID      int64  `yaml:"reception_sheet_gid"`
		StaffSheetGID          int64  `yaml:"staff_sheet_gid"`
		// Per-brand schedule spreadsheets, keyed by brand display name.
		ScheduleSpreadsheets map[string]string `yaml:"schedule_spreadsheets"`
		RatePerSecond        float64           `yaml:"rate_per_second"`
		RateBurst            int               `yaml:"rate_burst"`
	} `yaml:"sheets"`

	Database struct {
		Path   string       `yaml:"path"`
		Backup BackupConfig `yaml:"backup"`
	} `yaml:"database"`

	Redis struct {
		Enabled         bool   `yaml:"enabled"`
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Poll struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"poll"`

	Timeline struct {
		BufferMinutes    int `yaml:"buffer_minutes"`
		ToleranceMinutes int `yaml:"match_tolerance_minutes"`
	} `yaml:"timeline"`
}

// BackupConfig governs periodic copies of the audit database.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StoragePath   string `yaml:"storage_path"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
}

func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/castboard.db"
	}

	if cfg.Database.Backup.StoragePath == "" {
		cfg.Database.Backup.StoragePath = "data/backups"
	}

	// The reception book historically lives in the roster spreadsheet.
	if cfg.Sheets.ReceptionSpreadsheetID == "" {
		cfg.Sheets.ReceptionSpreadsheetID = cfg.Sheets.RosterSpreadsheetID
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) PollInterval() time.Duration {
	if c.Poll.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) BufferMinutes() int {
	if c.Timeline.BufferMinutes <= 0 {
		return 30
	}
	return c.Timeline.BufferMinutes
}

func (c *Config) ToleranceMinutes() int {
	if c.Timeline.ToleranceMinutes <= 0 {
		return 1
	}
	return c.Timeline.ToleranceMinutes
}

func (c *Config) SheetsRate() (float64, int) {
	rps := c.Sheets.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := c.Sheets.RateBurst
	if burst <= 0 {
		burst = 3
	}
	return rps, burst
}

func (c *Config) ServerPort() int {
	if c.Server.Port <= 0 {
		return 8080
	}
	return c.Server.Port
}
