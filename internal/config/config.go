// Package config loads the comment service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nasermirzaei89/env"

	"dms-comments/internal/logging"
)

const (
	StoreDynamoDB = "dynamodb"
	StoreSQLite   = "sqlite"

	PublisherEventBridge = "eventbridge"
	PublisherLog         = "log"

	DefaultEventBusName     = "com.globomantics.dms"
	DefaultEventSource      = "com.globomantics.dms.comments"
	DefaultRequestTimeout   = 5 * time.Second
	DefaultMaxCommentLength = 2000
)

// Config holds every setting read at cold start.
type Config struct {
	TableName        string        // DynamoDB table holding documents and comments
	StoreBackend     string        // "dynamodb"|"sqlite"
	SQLitePath       string        // database file for the sqlite backend
	EventBusName     string        // bus name, or an ssm: reference to it
	EventSource      string        // source tag on published events
	EventPublisher   string        // "eventbridge"|"log"
	RequestTimeout   time.Duration // deadline applied to each request
	MaxCommentLength int           // upper bound on comment text, in runes
	LogLevel         slog.Level
	LogFormat        string // "json"|"text"
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	timeout, err := time.ParseDuration(env.GetString("REQUEST_TIMEOUT", DefaultRequestTimeout.String()))
	if err != nil {
		return nil, fmt.Errorf("config: REQUEST_TIMEOUT: %w", err)
	}
	maxLen, err := strconv.Atoi(env.GetString("MAX_COMMENT_LENGTH", strconv.Itoa(DefaultMaxCommentLength)))
	if err != nil {
		return nil, fmt.Errorf("config: MAX_COMMENT_LENGTH: %w", err)
	}
	levelStr := env.GetString("LOG_LEVEL", "info")
	level, ok := logging.ParseLevel(levelStr)
	if !ok {
		return nil, fmt.Errorf("config: LOG_LEVEL: unknown level %q", levelStr)
	}

	cfg := &Config{
		TableName:        strings.TrimSpace(env.GetString("DYNAMO_DB_TABLE", "")),
		StoreBackend:     strings.ToLower(env.GetString("STORE_BACKEND", StoreDynamoDB)),
		SQLitePath:       env.GetString("SQLITE_PATH", "comments.db"),
		EventBusName:     strings.TrimSpace(env.GetString("EVENT_BUS_NAME", DefaultEventBusName)),
		EventSource:      strings.TrimSpace(env.GetString("EVENT_SOURCE", DefaultEventSource)),
		EventPublisher:   strings.ToLower(env.GetString("EVENT_PUBLISHER", PublisherEventBridge)),
		RequestTimeout:   timeout,
		MaxCommentLength: maxLen,
		LogLevel:         level,
		LogFormat:        strings.ToLower(env.GetString("LOG_FORMAT", "json")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable together.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreDynamoDB:
		if c.TableName == "" {
			return fmt.Errorf("config: DYNAMO_DB_TABLE is required for the dynamodb store")
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("config: store backend must be %s or %s", StoreDynamoDB, StoreSQLite)
	}

	if c.EventPublisher != PublisherEventBridge && c.EventPublisher != PublisherLog {
		return fmt.Errorf("config: event publisher must be %s or %s", PublisherEventBridge, PublisherLog)
	}
	if c.EventBusName == "" {
		return fmt.Errorf("config: event bus name is required")
	}
	if c.EventSource == "" {
		return fmt.Errorf("config: event source is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive")
	}
	if c.MaxCommentLength < 1 {
		return fmt.Errorf("config: max comment length must be at least 1")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("config: log format must be json or text")
	}
	return nil
}
