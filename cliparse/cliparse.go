// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type Config struct {
	Role string

	// Teacher: vote protocol listen address. Student: teacher address.
	Listen string
	Peer   string

	HTTPPort     int
	DatabaseType string
	DatabaseURL  string
	AdminKey     string
	Candidates   []string

	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	ReconnectAttempts int

	LogLevel string
}

// ParseFlags reads flags, then .env and the environment, then defaults
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var candidates, envFile string

	fs := flag.NewFlagSet("classvote", flag.ContinueOnError)

	fs.StringVar(&cfg.Role, "role", "", "Role to run (teacher or student)")
	fs.StringVar(&cfg.Listen, "listen", "", "Vote protocol listen address (teacher)")
	fs.StringVar(&cfg.Peer, "peer", "", "Teacher address to connect to (student)")
	fs.IntVar(&cfg.HTTPPort, "p", 0, "HTTP port for the teacher API")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or memory)")
	fs.StringVar(&candidates, "candidates", "", "Initial candidates, comma separated")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", 0, "Per-frame write timeout")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", 0, "Idle read timeout (0 disables)")
	fs.IntVar(&cfg.ReconnectAttempts, "reconnect", 0, "Dial attempts before a vote when disconnected")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&envFile, "env-file", ".env", "Dotenv file to load")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKey, "admin-key", "", "Admin key for the HTTP API (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// A missing .env file is fine; real environment variables always win
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	if cfg.Role == "" {
		cfg.Role = envOr("ROLE", RoleTeacher)
	}
	cfg.Role = strings.ToLower(cfg.Role)
	if cfg.Role != RoleTeacher && cfg.Role != RoleStudent {
		return Config{}, fmt.Errorf("invalid role %q (want teacher or student)", cfg.Role)
	}

	if cfg.Listen == "" {
		cfg.Listen = envOr("LISTEN_ADDR", ":3319")
	}
	if cfg.Peer == "" {
		cfg.Peer = os.Getenv("PEER_ADDR")
	}
	if cfg.Role == RoleStudent && cfg.Peer == "" {
		return Config{}, errors.New("peer address required for student (use -peer or PEER_ADDR env)")
	}

	if cfg.HTTPPort == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.HTTPPort = port
		} else {
			cfg.HTTPPort = 3318 // default
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envOr("DATABASE_TYPE", "sqlite")
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" && cfg.DatabaseType != "memory" {
		return Config{}, fmt.Errorf("invalid database type %q", cfg.DatabaseType)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" && cfg.DatabaseType != "memory" {
		if cfg.DatabaseType == "postgres" {
			return Config{}, errors.New("database URL required for postgres (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = "file:voting.db"
	}

	if cfg.AdminKey == "" {
		cfg.AdminKey = os.Getenv("ADMIN_KEY")
	}

	if candidates == "" {
		candidates = os.Getenv("CANDIDATES")
	}
	cfg.Candidates = splitList(candidates)

	var err error
	if cfg.WriteTimeout == 0 {
		if cfg.WriteTimeout, err = envDuration("WRITE_TIMEOUT", 10*time.Second); err != nil {
			return Config{}, err
		}
	}
	if cfg.ReadTimeout == 0 {
		if cfg.ReadTimeout, err = envDuration("READ_TIMEOUT", 0); err != nil {
			return Config{}, err
		}
	}
	if cfg.WriteTimeout < 0 || cfg.ReadTimeout < 0 {
		return Config{}, errors.New("timeouts must not be negative")
	}

	if cfg.ReconnectAttempts == 0 {
		if s := os.Getenv("RECONNECT_ATTEMPTS"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return Config{}, errors.New("invalid RECONNECT_ATTEMPTS env variable")
			}
			cfg.ReconnectAttempts = n
		} else {
			cfg.ReconnectAttempts = 1
		}
	}
	if cfg.ReconnectAttempts < 1 {
		return Config{}, errors.New("reconnect attempts must be at least 1")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = envOr("LOG_LEVEL", "info")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
