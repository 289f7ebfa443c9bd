// Package config loads mudra settings from a YAML file, a .env file and
// MUDRA_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/detector"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MUDRA_"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Session  SessionConfig  `yaml:"session"`
	Capture  CaptureConfig  `yaml:"capture"`
	Detector DetectorConfig `yaml:"detector"`
	Sinks    SinksConfig    `yaml:"sinks"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type SessionConfig struct {
	FPS            int      `yaml:"fps"`
	FrameLimit     int      `yaml:"frame_limit"`
	Preprocessing  []string `yaml:"preprocessing"`
	DefaultGesture string   `yaml:"default_gesture"`
}

type CaptureConfig struct {
	Enabled           bool    `yaml:"enabled"`
	CameraID          int     `yaml:"camera_id"`
	Width             int     `yaml:"width"`
	Height            int     `yaml:"height"`
	PoorLightingBelow float64 `yaml:"poor_lighting_below"`
}

type DetectorConfig struct {
	MaxHands        int     `yaml:"max_hands"`
	MinConfidence   float64 `yaml:"min_confidence"`
	MinTracking     float64 `yaml:"min_tracking"`
	IdleShutdownSec int     `yaml:"idle_shutdown_sec"`
	Python          string  `yaml:"python"`
	Script          string  `yaml:"script"`
}

type SinksConfig struct {
	Dir       string     `yaml:"dir"`
	TimeoutMs int        `yaml:"timeout_ms"`
	MQTT      MQTTConfig `yaml:"mqtt"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".mudra")

	return Config{
		Server: ServerConfig{
			Addr:      ":8080",
			StaticDir: "web/static",
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "mudra.db"),
		},
		Session: SessionConfig{
			FPS:            30,
			FrameLimit:     60,
			Preprocessing:  []string{},
			DefaultGesture: "unlabeled",
		},
		Capture: CaptureConfig{
			Enabled:           true,
			Width:             640,
			Height:            480,
			PoorLightingBelow: 60,
		},
		Detector: DetectorConfig{
			MaxHands:        2,
			MinConfidence:   0.5,
			MinTracking:     0.5,
			IdleShutdownSec: 30,
		},
		Sinks: SinksConfig{
			Dir:       filepath.Join(dataDir, "sinks"),
			TimeoutMs: 10000,
			MQTT: MQTTConfig{
				Topic:    "mudra/takes",
				ClientID: "mudra",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults, then applies .env and environment
// overrides. An empty path skips the file; a missing .env is ignored.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(EnvPrefix + key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("ADDR", &c.Server.Addr)
	str("STATIC_DIR", &c.Server.StaticDir)
	str("DB_PATH", &c.Store.Path)
	str("DEFAULT_GESTURE", &c.Session.DefaultGesture)
	str("PYTHON", &c.Detector.Python)
	str("SINKS_DIR", &c.Sinks.Dir)
	str("MQTT_BROKER", &c.Sinks.MQTT.Broker)
	str("MQTT_TOPIC", &c.Sinks.MQTT.Topic)
	str("MQTT_CLIENT_ID", &c.Sinks.MQTT.ClientID)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	for key, dst := range map[string]*int{
		"FPS":             &c.Session.FPS,
		"FRAME_LIMIT":     &c.Session.FrameLimit,
		"CAMERA_ID":       &c.Capture.CameraID,
		"SINK_TIMEOUT_MS": &c.Sinks.TimeoutMs,
		"MAX_HANDS":       &c.Detector.MaxHands,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if v := getenv(EnvPrefix + "CAPTURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCAPTURE: %w", EnvPrefix, err)
		}
		c.Capture.Enabled = b
	}
	if v := getenv(EnvPrefix + "PREPROCESSING"); v != "" {
		c.Session.Preprocessing = splitList(v)
	}
	return nil
}

// Validate rejects settings the recorder cannot run with.
func (c Config) Validate() error {
	if c.Session.FPS <= 0 {
		return fmt.Errorf("session.fps must be positive, got %d", c.Session.FPS)
	}
	if c.Session.FrameLimit < 0 {
		return fmt.Errorf("session.frame_limit must not be negative, got %d", c.Session.FrameLimit)
	}
	if err := c.DetectorConfig().Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	return nil
}

// CollectConfig returns the recorder configuration.
func (c Config) CollectConfig() collect.Config {
	return collect.Config{
		FPS:           c.Session.FPS,
		FrameLimit:    c.Session.FrameLimit,
		Preprocessing: append([]string{}, c.Session.Preprocessing...),
	}
}

// DetectorConfig returns the hand tracker configuration.
func (c Config) DetectorConfig() detector.Config {
	return detector.Config{
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTracking,
		IdleShutdown:    time.Duration(c.Detector.IdleShutdownSec) * time.Second,
		Python:          c.Detector.Python,
		Script:          c.Detector.Script,
	}
}

// SinkTimeout returns the per-run sink timeout.
func (c Config) SinkTimeout() time.Duration {
	return time.Duration(c.Sinks.TimeoutMs) * time.Millisecond
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
