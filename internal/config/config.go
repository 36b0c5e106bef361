// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/relabs-tech/activity_monitor/internal/imu"
)

// DefaultPath is the config file the commands read when no flag is given.
const DefaultPath = "activity_monitor.toml"

// Config holds all application configuration values.
type Config struct {
	// Device names this monitor in cache keys and MQTT topics.
	Device string `toml:"device"`

	Log      LogConfig      `toml:"log"`
	MQTT     MQTTConfig     `toml:"mqtt"`
	Serial   SerialConfig   `toml:"serial"`
	Models   ModelsConfig   `toml:"models"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Logbook  LogbookConfig  `toml:"logbook"`
	Web      WebConfig      `toml:"web"`
	Redis    RedisConfig    `toml:"redis"`
	Summary  SummaryConfig  `toml:"summary"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

// MQTTConfig is the broker connection. An empty broker disables MQTT
// ingestion and label publishing.
type MQTTConfig struct {
	Broker          string `toml:"broker"`
	ClientIDMonitor string `toml:"client_id_monitor"`
	QoS             byte   `toml:"qos"`

	TopicChest    string `toml:"topic_chest"`    // source A samples
	TopicWearable string `toml:"topic_wearable"` // source B samples
	TopicLabels   string `toml:"topic_labels"`   // smoothed labels out
}

// SerialConfig reads one source from a serial line. An empty port
// disables it.
type SerialConfig struct {
	Port     string `toml:"port"`
	BaudRate uint   `toml:"baud_rate"`
	Source   string `toml:"source"` // chest or wearable
}

// ModelsConfig holds the artifact paths of the four cascade stages.
type ModelsConfig struct {
	Meta        string `toml:"meta"`
	Dynamic     string `toml:"dynamic"`
	Static      string `toml:"static"`
	Respiratory string `toml:"respiratory"`
}

type PipelineConfig struct {
	IntervalMs     int `toml:"interval_ms"`
	WindowSize     int `toml:"window_size"`
	SmoothingDepth int `toml:"smoothing_depth"`
	LogQueue       int `toml:"log_queue"`
}

type LogbookConfig struct {
	Dir string `toml:"dir"`
	// RecordOnStart begins a recording session as soon as the monitor runs.
	RecordOnStart bool `toml:"record_on_start"`
}

// WebConfig serves the label feed. Port 0 disables the web server.
type WebConfig struct {
	Port int `toml:"port"`
}

// RedisConfig caches the current labels. An empty address disables it.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type SummaryConfig struct {
	DBPath string `toml:"db_path"`
}

// Interval returns the classification tick period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Pipeline.IntervalMs) * time.Millisecond
}

// RedisTTL returns how long cached labels stay valid.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		Device: "monitor",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		MQTT: MQTTConfig{
			ClientIDMonitor: "activity-monitor",
			TopicChest:      "activity/samples/chest",
			TopicWearable:   "activity/samples/wearable",
			TopicLabels:     "activity/labels",
		},
		Serial: SerialConfig{
			BaudRate: 115200,
			Source:   imu.SourceWearable,
		},
		Pipeline: PipelineConfig{
			IntervalMs:     500,
			WindowSize:     51,
			SmoothingDepth: 3,
			LogQueue:       64,
		},
		Logbook: LogbookConfig{
			Dir: "logbook",
		},
		Redis: RedisConfig{
			TTLSeconds: 10,
		},
		Summary: SummaryConfig{
			DBPath: "logbook/summary.db",
		},
	}
}

// Load reads the configuration file over the defaults, applies environment
// overrides and validates the result.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides deployment-specific values from ACTIVITY_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ACTIVITY_MQTT_BROKER"); ok {
		c.MQTT.Broker = v
	}
	if v, ok := lookup("ACTIVITY_LOG_DIR"); ok {
		c.Logbook.Dir = v
	}
	if v, ok := lookup("ACTIVITY_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("ACTIVITY_REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup("ACTIVITY_WEB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ACTIVITY_WEB_PORT %q: %w", v, err)
		}
		c.Web.Port = port
	}
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.Device == "" {
		return fmt.Errorf("device is required")
	}
	if c.Pipeline.IntervalMs <= 0 {
		return fmt.Errorf("pipeline.interval_ms must be positive, got %d", c.Pipeline.IntervalMs)
	}
	if c.Pipeline.WindowSize < 2 {
		return fmt.Errorf("pipeline.window_size must be at least 2, got %d", c.Pipeline.WindowSize)
	}
	if c.Pipeline.SmoothingDepth < 1 {
		return fmt.Errorf("pipeline.smoothing_depth must be at least 1, got %d", c.Pipeline.SmoothingDepth)
	}
	if c.Logbook.Dir == "" {
		return fmt.Errorf("logbook.dir is required")
	}
	if c.MQTT.Broker != "" {
		if c.MQTT.TopicChest == "" || c.MQTT.TopicWearable == "" {
			return fmt.Errorf("mqtt.topic_chest and mqtt.topic_wearable are required with a broker")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0-2, got %d", c.MQTT.QoS)
		}
	}
	if c.Serial.Port != "" {
		if _, err := imu.Offset(c.Serial.Source); err != nil {
			return fmt.Errorf("serial.source: %w", err)
		}
		if c.Serial.BaudRate == 0 {
			return fmt.Errorf("serial.baud_rate is required with a port")
		}
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	return nil
}

// ValidateModels checks that every cascade stage has an artifact path.
// Mock mode skips it.
func (c *Config) ValidateModels() error {
	stages := []struct {
		name string
		path string
	}{
		{"meta", c.Models.Meta},
		{"dynamic", c.Models.Dynamic},
		{"static", c.Models.Static},
		{"respiratory", c.Models.Respiratory},
	}
	for _, st := range stages {
		if st.path == "" {
			return fmt.Errorf("models.%s is required", st.name)
		}
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
