package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "RFPDESK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "RFPDESK_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "RFPDESK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "RFPDESK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "fixtures.path", typ: kString, env: "RFPDESK_FIXTURES_PATH",
		apply:   func(cfg *Config, v any) { cfg.Fixtures.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Fixtures.Path },
	},
	{
		key: "alerts.schedule", typ: kString, env: "RFPDESK_ALERTS_SCHEDULE",
		apply:   func(cfg *Config, v any) { cfg.Alerts.Schedule = v.(string) },
		extract: func(cfg Config) any { return cfg.Alerts.Schedule },
	},
	{
		key: "alerts.deadline_days", typ: kInt, env: "RFPDESK_ALERTS_DEADLINE_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Alerts.DeadlineDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Alerts.DeadlineDays },
	},
	{
		key: "sla.critical_days", typ: kInt, env: "RFPDESK_SLA_CRITICAL_DAYS",
		apply:   func(cfg *Config, v any) { cfg.SLA.CriticalDays = v.(int) },
		extract: func(cfg Config) any { return cfg.SLA.CriticalDays },
	},
	{
		key: "sla.high_days", typ: kInt, env: "RFPDESK_SLA_HIGH_DAYS",
		apply:   func(cfg *Config, v any) { cfg.SLA.HighDays = v.(int) },
		extract: func(cfg Config) any { return cfg.SLA.HighDays },
	},
	{
		key: "sla.medium_days", typ: kInt, env: "RFPDESK_SLA_MEDIUM_DAYS",
		apply:   func(cfg *Config, v any) { cfg.SLA.MediumDays = v.(int) },
		extract: func(cfg Config) any { return cfg.SLA.MediumDays },
	},
	{
		key: "dashboard.urgent_limit", typ: kInt, env: "RFPDESK_DASHBOARD_URGENT_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Dashboard.UrgentLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Dashboard.UrgentLimit },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
