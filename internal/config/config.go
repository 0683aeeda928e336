// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	GatewayBaseURL string
	GatewayWSURL   string

	AgentBaseURL string

	RedisURL    string
	DatabaseURL string

	AgentTimeoutSec int
	AgentRetryMax   int
	AgentMaxRounds  int
	MoveDelayMs     int
	SessionTTLSec   int
	AllowedRooms    []string
	BoardSquareSize int
	ArchiveFinished bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		AgentTimeoutSec: 15,
		AgentRetryMax:   3,
		AgentMaxRounds:  5,
		MoveDelayMs:     600,
		SessionTTLSec:   3600,
		BoardSquareSize: 64,
		ArchiveFinished: true,
	}

	cfg.GatewayBaseURL = strings.TrimSpace(os.Getenv("GATEWAY_BASE_URL"))
	cfg.GatewayWSURL = strings.TrimSpace(os.Getenv("GATEWAY_WS_URL"))
	cfg.AgentBaseURL = strings.TrimSpace(os.Getenv("AGENT_BASE_URL"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("AGENT_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AgentTimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_RETRY_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AgentRetryMax = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_MAX_ROUNDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AgentMaxRounds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MOVE_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MoveDelayMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOARD_SQUARE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 24 {
			cfg.BoardSquareSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_FINISHED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ArchiveFinished = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ROOMS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedRooms = append(cfg.AllowedRooms, s)
			}
		}
	}

	if cfg.GatewayBaseURL == "" {
		return nil, errors.New("GATEWAY_BASE_URL is required")
	}
	if cfg.GatewayWSURL == "" {
		return nil, errors.New("GATEWAY_WS_URL is required")
	}
	if cfg.AgentBaseURL == "" {
		return nil, errors.New("AGENT_BASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}
