package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	WebSocket struct {
		WriteTimeoutSec int `yaml:"write_timeout_sec"`
		ReadTimeoutSec  int `yaml:"read_timeout_sec"`
		PingIntervalSec int `yaml:"ping_interval_sec"`
	} `yaml:"websocket"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the optional yaml config file and applies environment
// overrides on top. A missing file leaves everything at defaults.
func loadConfig(path string) (*Config, error) {
	var config Config

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.Server.Port = getEnv("PORT", defaultString(config.Server.Port, "3001"))
	config.Server.StaticDir = getEnv("STATIC_DIR", defaultString(config.Server.StaticDir, "dist"))
	config.Log.Level = getEnv("LOG_LEVEL", defaultString(config.Log.Level, "info"))
	config.WebSocket.WriteTimeoutSec = getEnvAsInt("WS_WRITE_TIMEOUT_SEC", defaultInt(config.WebSocket.WriteTimeoutSec, 10))
	config.WebSocket.ReadTimeoutSec = getEnvAsInt("WS_READ_TIMEOUT_SEC", defaultInt(config.WebSocket.ReadTimeoutSec, 60))
	config.WebSocket.PingIntervalSec = getEnvAsInt("WS_PING_INTERVAL_SEC", defaultInt(config.WebSocket.PingIntervalSec, 30))

	return &config, nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

func (c *Config) writeTimeout() time.Duration {
	return time.Duration(c.WebSocket.WriteTimeoutSec) * time.Second
}

func (c *Config) readTimeout() time.Duration {
	return time.Duration(c.WebSocket.ReadTimeoutSec) * time.Second
}

func (c *Config) pingInterval() time.Duration {
	return time.Duration(c.WebSocket.PingIntervalSec) * time.Second
}
