// Package config loads server settings from an optional YAML file and the
// environment. A .env file in the working directory is read first.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"gopkg.in/yaml.v3"
)

const (
	UsersMemory = "memory"
	UsersRedis  = "redis"
)

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Lobby struct {
		BroadcastInterval time.Duration `yaml:"broadcast_interval"`
		MaxDistanceMeters float64       `yaml:"max_distance_meters"`
	} `yaml:"lobby"`

	Game struct {
		Retention       time.Duration `yaml:"retention"`
		JanitorInterval time.Duration `yaml:"janitor_interval"`
	} `yaml:"game"`

	Users struct {
		Backend string `yaml:"backend"`
	} `yaml:"users"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Key      string `yaml:"key"`
	} `yaml:"redis"`

	Database struct {
		URL      string `yaml:"url"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"database"`

	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

// Default returns the settings used when neither file nor environment
// says otherwise.
func Default() Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.IdleTimeout = time.Minute
	c.Lobby.BroadcastInterval = 3 * time.Second
	c.Lobby.MaxDistanceMeters = 20
	c.Game.Retention = 30 * time.Minute
	c.Game.JanitorInterval = time.Minute
	c.Users.Backend = UsersMemory
	c.Redis.Key = "mission:users"
	c.Database.MaxConns = 4
	c.NATS.SubjectPrefix = "mission.games"
	return c
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file; so does CONFIG_FILE
// when it is unset.
func Load(path string) (Config, error) {
	cfg := Default()

	if env := os.Getenv("CONFIG_FILE"); env != "" {
		path = env
	}
	if path != "" {
		// #nosec G304 - path comes from the operator, not from clients
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("BROADCAST_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BROADCAST_INTERVAL: %w", err)
		}
		c.Lobby.BroadcastInterval = d
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Users.Backend = UsersRedis
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Lobby.BroadcastInterval <= 0 {
		return fmt.Errorf("lobby.broadcast_interval must be positive")
	}
	if c.Lobby.MaxDistanceMeters <= 0 {
		return fmt.Errorf("lobby.max_distance_meters must be positive")
	}
	if c.Game.Retention < 0 {
		return fmt.Errorf("game.retention must not be negative")
	}
	switch c.Users.Backend {
	case UsersMemory:
	case UsersRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("users.backend is redis but redis.addr is empty")
		}
	default:
		return fmt.Errorf("unknown users.backend %q", c.Users.Backend)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
