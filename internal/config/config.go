/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// EventPolicy selects how the resolver decides an event slot has finished.
type EventPolicy string

const (
	// EventPolicyWholeDay keeps a started event active for the rest of its
	// calendar day. The conservative default.
	EventPolicyWholeDay EventPolicy = "whole_day"

	// EventPolicyWindowEnd ends an event at its explicit To minute when
	// one is configured.
	EventPolicyWindowEnd EventPolicy = "window_end"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	DBBackend DatabaseBackend
	DBDSN     string

	// Redis (slot snapshot cache + distributed event bus)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS (fleet event publishing for external integrations)
	NATSURL string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Scheduling engine
	EventPolicy         EventPolicy
	ChangeHorizon       time.Duration
	FallbackItemSeconds int

	// Fleet watcher
	WatcherInterval time.Duration

	InstanceID string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("FLEET_ENV", "development"),
		HTTPBind:    getEnv("FLEET_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("FLEET_HTTP_PORT", 8080),
		MetricsBind: getEnv("FLEET_METRICS_BIND", "127.0.0.1:9000"),

		DBBackend: DatabaseBackend(getEnv("FLEET_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("FLEET_DB_DSN", ""),

		RedisAddr:     getEnv("FLEET_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("FLEET_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("FLEET_REDIS_DB", 0),

		NATSURL: getEnv("FLEET_NATS_URL", ""),

		TracingEnabled:    getEnvBool("FLEET_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("FLEET_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("FLEET_TRACING_SAMPLE_RATE", 1.0),

		EventPolicy:         EventPolicy(getEnv("FLEET_EVENT_POLICY", string(EventPolicyWholeDay))),
		ChangeHorizon:       time.Duration(getEnvInt("FLEET_CHANGE_HORIZON_HOURS", 24)) * time.Hour,
		FallbackItemSeconds: getEnvInt("FLEET_FALLBACK_ITEM_SECONDS", 10),

		WatcherInterval: time.Duration(getEnvInt("FLEET_WATCHER_INTERVAL_SECONDS", 30)) * time.Second,

		InstanceID: getEnv("FLEET_INSTANCE_ID", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("FLEET_DB_DSN must be provided")
	}

	if cfg.EventPolicy != EventPolicyWholeDay && cfg.EventPolicy != EventPolicyWindowEnd {
		return nil, fmt.Errorf("unsupported event policy %q", cfg.EventPolicy)
	}

	if cfg.ChangeHorizon <= 0 {
		return nil, fmt.Errorf("FLEET_CHANGE_HORIZON_HOURS must be positive")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
