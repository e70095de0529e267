package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Log       LogConfig
	Fixtures  FixturesConfig
	Alerts    AlertsConfig
	SLA       SLAConfig
	Dashboard DashboardConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// FixturesConfig points at a YAML seed file. An empty path means the
// built-in seed.
type FixturesConfig struct {
	Path string
}

type AlertsConfig struct {
	Schedule     string
	DeadlineDays int
}

// SLAConfig holds the days-to-deadline thresholds for the urgency buckets.
type SLAConfig struct {
	CriticalDays int
	HighDays     int
	MediumDays   int
}

type DashboardConfig struct {
	UrgentLimit int
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Alerts: AlertsConfig{
			Schedule:     "@every 1m",
			DeadlineDays: 7,
		},
		SLA: SLAConfig{
			CriticalDays: 3,
			HighDays:     7,
			MediumDays:   14,
		},
		Dashboard: DashboardConfig{
			UrgentLimit: 5,
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/rfpdesk/config.json, then applies RFPDESK_* environment
// variables on top. The API token is read from RFPDESK_API_TOKEN only.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate checks ranges and the ordering of the SLA thresholds.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is empty"))
	}
	level := strings.ToLower(c.Log.Level)
	found := false
	for _, l := range validLevels {
		if level == l {
			found = true
		}
	}
	if !found {
		errs = append(errs, fmt.Errorf("log.level %q is not one of %s", c.Log.Level, strings.Join(validLevels, ", ")))
	}
	if _, err := cron.ParseStandard(c.Alerts.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("alerts.schedule %q: %w", c.Alerts.Schedule, err))
	}
	if c.Alerts.DeadlineDays < 1 {
		errs = append(errs, fmt.Errorf("alerts.deadline_days must be positive, got %d", c.Alerts.DeadlineDays))
	}
	s := c.SLA
	if s.CriticalDays < 0 || s.CriticalDays > s.HighDays || s.HighDays > s.MediumDays {
		errs = append(errs, fmt.Errorf("sla thresholds must satisfy 0 <= critical <= high <= medium, got %d/%d/%d",
			s.CriticalDays, s.HighDays, s.MediumDays))
	}
	if c.Dashboard.UrgentLimit < 0 {
		errs = append(errs, fmt.Errorf("dashboard.urgent_limit must not be negative, got %d", c.Dashboard.UrgentLimit))
	}
	return errors.Join(errs...)
}
