package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
)

type Mode string

const (
	ModeCLI  Mode = "cli"
	ModeHTTP Mode = "http"
)

type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

var ErrInvalid = errors.New("config: invalid value")

// MinSessionIdle keeps the eviction sweep from spinning.
const MinSessionIdle = time.Second

type Config struct {
	ServiceName      string
	Env              string
	Mode             Mode
	HTTPAddr         string
	LogLevel         string
	LogFile          string
	InventoryBackend Backend
	RedisURL         string
	InventorySeed    map[string]int
	OTELEndpoint     string
	KafkaBroker      string
	KafkaTopic       string
	SessionIdle      time.Duration
	ShutdownTimeout  time.Duration
}

// Load reads the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		ServiceName:      get("SERVICE_NAME", "pizzashop"),
		Env:              get("ENV", "dev"),
		Mode:             Mode(strings.ToLower(get("MODE", string(ModeCLI)))),
		HTTPAddr:         get("HTTP_ADDR", ":8080"),
		LogLevel:         get("LOG_LEVEL", "info"),
		LogFile:          get("LOG_FILE", ""),
		InventoryBackend: Backend(strings.ToLower(get("INVENTORY_BACKEND", string(BackendMemory)))),
		RedisURL:         get("REDIS_URL", ""),
		OTELEndpoint:     get("OTEL_ENDPOINT", ""),
		KafkaBroker:      get("KAFKA_BROKER", ""),
		KafkaTopic:       get("KAFKA_TOPIC", "pizzashop.payments"),
	}

	var err error
	switch cfg.Mode {
	case ModeCLI, ModeHTTP:
	default:
		return Config{}, fmt.Errorf("%w: MODE=%q", ErrInvalid, cfg.Mode)
	}
	switch cfg.InventoryBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("%w: REDIS_URL is required for the redis backend", ErrInvalid)
		}
	default:
		return Config{}, fmt.Errorf("%w: INVENTORY_BACKEND=%q", ErrInvalid, cfg.InventoryBackend)
	}

	if raw := get("INVENTORY_SEED", ""); raw != "" {
		if cfg.InventorySeed, err = inventory.ParseSeed(raw); err != nil {
			return Config{}, fmt.Errorf("%w: INVENTORY_SEED: %w", ErrInvalid, err)
		}
	} else {
		cfg.InventorySeed = inventory.DefaultSeed()
	}

	if cfg.SessionIdle, err = duration(get("SESSION_IDLE_TIMEOUT", "30m"), MinSessionIdle); err != nil {
		return Config{}, fmt.Errorf("%w: SESSION_IDLE_TIMEOUT: %w", ErrInvalid, err)
	}
	if cfg.ShutdownTimeout, err = duration(get("SHUTDOWN_TIMEOUT", "10s"), time.Nanosecond); err != nil {
		return Config{}, fmt.Errorf("%w: SHUTDOWN_TIMEOUT: %w", ErrInvalid, err)
	}
	return cfg, nil
}

func duration(s string, floor time.Duration) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < floor {
		return 0, fmt.Errorf("must be at least %s, got %s", floor, s)
	}
	return d, nil
}
