package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel   string           `json:"log_level" yaml:"log_level"`
	LogFormat  string           `json:"log_format" yaml:"log_format"`
	Tail       TailConfig       `json:"tail" yaml:"tail"`
	Collector  CollectorConfig  `json:"collector" yaml:"collector"`
	Exclusions ExclusionsConfig `json:"exclusions" yaml:"exclusions"`
	API        APIConfig        `json:"api" yaml:"api"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Publish    PublishConfig    `json:"publish" yaml:"publish"`
}

type TailConfig struct {
	Path string `json:"path" yaml:"path"`
}

type CollectorConfig struct {
	TickInterval   time.Duration `json:"tick_interval" yaml:"tick_interval"`
	RetentionHours int           `json:"retention_hours" yaml:"retention_hours"`
	TopN           int           `json:"top_n" yaml:"top_n"`
}

type ExclusionsConfig struct {
	IPs              []string `json:"ips" yaml:"ips"`
	IncludeLastHosts bool     `json:"include_last_hosts" yaml:"include_last_hosts"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type PublishConfig struct {
	Kafka KafkaConfig `json:"kafka" yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Tail:      TailConfig{Path: "/var/log/auth.log"},
		Collector: CollectorConfig{
			TickInterval:   3 * time.Second,
			RetentionHours: 24,
			TopN:           10,
		},
		Exclusions: ExclusionsConfig{},
		API:        APIConfig{Enabled: true, Addr: ":8081"},
		Storage:    StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:sshwatch.db?_pragma=busy_timeout(5000)"},
		Publish:    PublishConfig{},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Tail.Path == "" {
		cfg.Tail.Path = "/var/log/auth.log"
	}
	if cfg.Collector.TickInterval == 0 {
		cfg.Collector.TickInterval = 3 * time.Second
	}
	if cfg.Collector.RetentionHours == 0 {
		cfg.Collector.RetentionHours = 24
	}
	if cfg.Collector.TopN == 0 {
		cfg.Collector.TopN = 10
	}
}

// Validate rejects configurations the process must not start with.
func Validate(cfg *Config) error {
	if cfg.Collector.TickInterval <= 0 {
		return fmt.Errorf("collector.tick_interval must be > 0, got %s", cfg.Collector.TickInterval)
	}
	if cfg.Collector.RetentionHours <= 0 {
		return fmt.Errorf("collector.retention_hours must be > 0, got %d", cfg.Collector.RetentionHours)
	}
	if cfg.Collector.TopN <= 0 {
		return fmt.Errorf("collector.top_n must be > 0, got %d", cfg.Collector.TopN)
	}
	if cfg.Tail.Path == "" {
		return errors.New("tail.path is required")
	}
	for _, ip := range cfg.Exclusions.IPs {
		if net.ParseIP(strings.TrimSpace(ip)) == nil {
			return fmt.Errorf("exclusions.ips contains invalid address: %q", ip)
		}
	}
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Storage.Enabled && cfg.Storage.DSN == "" {
		return errors.New("storage.dsn required when storage.enabled is true")
	}
	if cfg.Publish.Kafka.Enabled {
		if len(cfg.Publish.Kafka.Brokers) == 0 || cfg.Publish.Kafka.Topic == "" {
			return errors.New("publish.kafka requires brokers and topic")
		}
	}
	return nil
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
