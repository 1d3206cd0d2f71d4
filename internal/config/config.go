// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/sirupsen/logrus"
)

// Config is the process configuration of the dealer server and the historian.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// DealerStore selects where desks live: "redis" or "memory".
	DealerStore string `env:"DEALER_STORE" envDefault:"redis"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
	// DatabaseURL is optional; rooms and players stay in memory without it.
	DatabaseURL string `env:"DATABASE_URL"`

	HistorianQueue     string `env:"HISTORIAN_QUEUE_NAME" envDefault:"dealer_activities"`
	HistorianBatchSize int    `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlushMs   int    `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`

	AdminPassword     string        `env:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	TokenExpireTime   time.Duration `env:"TOKEN_EXPIRE_TIME" envDefault:"24h"`

	// SerializerScope is "room" (one queue per room) or "global".
	SerializerScope string        `env:"SERIALIZER_SCOPE" envDefault:"room"`
	EventPacing     time.Duration `env:"EVENT_PACING" envDefault:"0s"`
	// AutoStart deals the first turn as soon as every seated player is connected.
	AutoStart bool `env:"AUTO_START" envDefault:"false"`

	Rules game.Rules `envPrefix:"RULE_"`
}

// Load parses the environment into a Config and validates the enumerated settings.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DealerStore {
	case "redis", "memory":
	default:
		return fmt.Errorf("DEALER_STORE must be redis or memory, got %q", c.DealerStore)
	}
	switch c.SerializerScope {
	case "room", "global":
	default:
		return fmt.Errorf("SERIALIZER_SCOPE must be room or global, got %q", c.SerializerScope)
	}
	if c.HistorianBatchSize < 1 {
		return fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive")
	}
	if c.Rules.HandSize < 1 || c.Rules.StallRounds < 1 {
		return fmt.Errorf("RULE_HAND_SIZE and RULE_STALL_ROUNDS must be positive")
	}
	return nil
}

// GlobalSerializer reports whether every room shares one command queue.
func (c *Config) GlobalSerializer() bool {
	return c.SerializerScope == "global"
}

// HistorianFlush is the flush period of the historian batch.
func (c *Config) HistorianFlush() time.Duration {
	return time.Duration(c.HistorianFlushMs) * time.Millisecond
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
