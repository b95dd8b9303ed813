// Package config resolves the runtime profile a maxbot instance starts
// with: bot token, storage backend selection, and whether to ingest
// updates via long-polling or an inbound webhook.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// StorageDriver selects the fsm.Storage backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StorageRedis    StorageDriver = "redis"
	StoragePostgres StorageDriver = "postgres"
	StorageSQLite   StorageDriver = "sqlite"
)

// IngestMode selects how updates reach the bot.
type IngestMode string

const (
	IngestLongpoll IngestMode = "longpoll"
	IngestWebhook  IngestMode = "webhook"
)

// Profile is the resolved configuration a cmd/maxbot instance runs with.
type Profile struct {
	Mode string // "dev", "demo", or "prod"

	Token   string
	BaseURL string

	Storage   StorageDriver
	DSN       string
	KeyPrefix string

	Ingest      IngestMode
	Addr        string // webhook listen address, e.g. ":8080"
	WebhookPath string

	SkipUpdates   bool
	AutoRequests  bool
	Concurrent    bool
	MaxConcurrent int

	MetricsAddr string // empty disables the /metrics exporter
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// FromEnv populates Profile fields left unset from MAXBOT_* environment
// variables. A boolean field takes its variable's value only when that
// variable is set; otherwise the field keeps its current value.
func (p *Profile) FromEnv() {
	if p.Mode == "" {
		p.Mode = getEnvOrDefault("MAXBOT_MODE", "dev")
	}
	if p.Token == "" {
		p.Token = getEnvOrDefault("MAXBOT_TOKEN", "")
	}
	if p.BaseURL == "" {
		p.BaseURL = getEnvOrDefault("MAXBOT_BASE_URL", "https://botapi.max.ru")
	}
	if p.Storage == "" {
		p.Storage = StorageDriver(getEnvOrDefault("MAXBOT_STORAGE", string(StorageMemory)))
	}
	if p.DSN == "" {
		p.DSN = getEnvOrDefault("MAXBOT_DSN", "")
	}
	if p.KeyPrefix == "" {
		p.KeyPrefix = getEnvOrDefault("MAXBOT_KEY_PREFIX", "maxbot")
	}
	if p.Ingest == "" {
		p.Ingest = IngestMode(getEnvOrDefault("MAXBOT_INGEST", string(IngestLongpoll)))
	}
	if p.Addr == "" {
		p.Addr = getEnvOrDefault("MAXBOT_ADDR", ":8080")
	}
	if p.WebhookPath == "" {
		p.WebhookPath = getEnvOrDefault("MAXBOT_WEBHOOK_PATH", "/")
	}
	p.SkipUpdates = getEnvOrDefaultBool("MAXBOT_SKIP_UPDATES", p.SkipUpdates)
	p.AutoRequests = getEnvOrDefaultBool("MAXBOT_AUTO_REQUESTS", p.AutoRequests)
	p.Concurrent = getEnvOrDefaultBool("MAXBOT_CONCURRENT", p.Concurrent)
	if p.MaxConcurrent == 0 {
		p.MaxConcurrent = getEnvOrDefaultInt("MAXBOT_MAX_CONCURRENT", 0)
	}
	if p.MetricsAddr == "" {
		p.MetricsAddr = getEnvOrDefault("MAXBOT_METRICS_ADDR", ":9090")
	}
}

// Validate checks for inconsistent or missing required fields, rejects
// unknown storage/ingest values, and normalizes an unknown Mode to "dev".
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "demo" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if strings.TrimSpace(p.Token) == "" {
		return errors.New("maxbot: token is required (set MAXBOT_TOKEN or --token)")
	}

	switch p.Storage {
	case StorageMemory, StorageRedis, StoragePostgres, StorageSQLite:
	default:
		return errors.Errorf("maxbot: unknown storage driver %q", p.Storage)
	}

	if (p.Storage == StorageRedis || p.Storage == StoragePostgres) && p.DSN == "" {
		return errors.Errorf("maxbot: storage driver %q requires a DSN", p.Storage)
	}

	switch p.Ingest {
	case IngestLongpoll, IngestWebhook:
	default:
		return errors.Errorf("maxbot: unknown ingest mode %q", p.Ingest)
	}

	if p.Ingest == IngestWebhook && p.Addr == "" {
		return errors.New("maxbot: webhook ingest requires an --addr")
	}

	return nil
}

// String renders a one-line startup summary safe to log (the token is
// redacted).
func (p *Profile) String() string {
	return fmt.Sprintf("mode=%s storage=%s ingest=%s addr=%s metrics=%s", p.Mode, p.Storage, p.Ingest, p.Addr, p.MetricsAddr)
}
