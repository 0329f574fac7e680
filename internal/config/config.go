// engine/internal/config/config.go
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	PolicyMarkAttempted = "mark_attempted"
	PolicyMarkSucceeded = "mark_succeeded"

	DefaultScanSeconds    = 300
	DefaultTrackerSeconds = 60
	DefaultPlaceholder    = "https://images.unsplash.com/photo-1540747913346-19e3adcc174b?auto=format&fit=crop&q=80&w=1200"

	EnvDataDir     = "CRICKMIC_DATA_DIR"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvRapidAPIKey = "RAPIDAPI_KEY"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port" validate:"min=1,max=65535"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
		BaseURL string `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	} `yaml:"app" json:"app"`

	Autopilot struct {
		ScanSeconds   int  `yaml:"scan_seconds" json:"scan_seconds" validate:"min=1"`
		StartEnabled  bool `yaml:"start_enabled" json:"start_enabled"`
		RefreshOnBoot bool `yaml:"refresh_on_boot" json:"refresh_on_boot"`
	} `yaml:"autopilot" json:"autopilot"`

	Tracker struct {
		RefreshSeconds int `yaml:"refresh_seconds" json:"refresh_seconds" validate:"min=1"`
	} `yaml:"tracker" json:"tracker"`

	Enrichment struct {
		ProcessedPolicy    string `yaml:"processed_policy" json:"processed_policy" validate:"oneof=mark_attempted mark_succeeded"`
		ImageFallback      bool   `yaml:"image_fallback" json:"image_fallback"`
		PlaceholderImage   string `yaml:"placeholder_image" json:"placeholder_image" validate:"omitempty,url"`
		ItemTimeoutSeconds int    `yaml:"item_timeout_seconds" json:"item_timeout_seconds" validate:"min=0"`
	} `yaml:"enrichment" json:"enrichment"`

	Gemini struct {
		TextModel  string `yaml:"text_model" json:"text_model" validate:"required"`
		ImageModel string `yaml:"image_model" json:"image_model" validate:"required"`
		Brand      string `yaml:"brand" json:"brand"`
		BaseURL    string `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	} `yaml:"gemini" json:"gemini"`

	RapidAPI struct {
		Enabled           bool    `yaml:"enabled" json:"enabled"`
		Host              string  `yaml:"host" json:"host" validate:"required_if=Enabled true"`
		RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
		MaxSignals        int     `yaml:"max_signals" json:"max_signals" validate:"min=0"`
	} `yaml:"rapidapi" json:"rapidapi"`

	Publish struct {
		WebhookURL string `yaml:"webhook_url" json:"webhook_url" validate:"omitempty,url"`
		Auto       bool   `yaml:"auto" json:"auto"`
		FeedTitle  string `yaml:"feed_title" json:"feed_title"`
	} `yaml:"publish" json:"publish"`

	History struct {
		RetentionDays int `yaml:"retention_days" json:"retention_days" validate:"min=0"`
	} `yaml:"history" json:"history"`

	Log struct {
		Level      string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error fatal panic trace"`
		Format     string `yaml:"format" json:"format" validate:"omitempty,oneof=console json text"`
		File       string `yaml:"file" json:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" validate:"min=0"`
		MaxBackups int    `yaml:"max_backups" json:"max_backups" validate:"min=0"`
	} `yaml:"log" json:"log"`
}

// Default returns the configuration used when the file leaves a key empty.
func Default() Config {
	var c Config
	c.App.Port = 38472
	c.Autopilot.ScanSeconds = DefaultScanSeconds
	c.Tracker.RefreshSeconds = DefaultTrackerSeconds
	c.Enrichment.ProcessedPolicy = PolicyMarkAttempted
	c.Enrichment.PlaceholderImage = DefaultPlaceholder
	c.Gemini.TextModel = "gemini-3-flash-preview"
	c.Gemini.ImageModel = "gemini-2.5-flash-image"
	c.Gemini.Brand = "CrickMic"
	c.RapidAPI.Enabled = true
	c.RapidAPI.Host = "cricket-api-free-data.p.rapidapi.com"
	c.RapidAPI.RequestsPerSecond = 1
	c.RapidAPI.MaxSignals = 10
	c.Publish.FeedTitle = "CrickMic dispatches"
	c.History.RetentionDays = 90
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.MaxSizeMB = 10
	c.Log.MaxBackups = 3
	return c
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// applyDefaults fills zero values a partial file leaves behind.
func applyDefaults(c *Config) {
	d := Default()
	if c.App.Port == 0 {
		c.App.Port = d.App.Port
	}
	if c.Autopilot.ScanSeconds == 0 {
		c.Autopilot.ScanSeconds = d.Autopilot.ScanSeconds
	}
	if c.Tracker.RefreshSeconds == 0 {
		c.Tracker.RefreshSeconds = d.Tracker.RefreshSeconds
	}
	if strings.TrimSpace(c.Enrichment.ProcessedPolicy) == "" {
		c.Enrichment.ProcessedPolicy = d.Enrichment.ProcessedPolicy
	}
	if c.Gemini.TextModel == "" {
		c.Gemini.TextModel = d.Gemini.TextModel
	}
	if c.Gemini.ImageModel == "" {
		c.Gemini.ImageModel = d.Gemini.ImageModel
	}
	if c.Gemini.Brand == "" {
		c.Gemini.Brand = d.Gemini.Brand
	}
	if c.RapidAPI.Host == "" {
		c.RapidAPI.Host = d.RapidAPI.Host
	}
}

// GeminiAPIKey and RapidAPIKey only consult the environment; the keyring
// fallback lives in the secrets package.
func GeminiAPIKey() string { return strings.TrimSpace(os.Getenv(EnvGeminiKey)) }
func RapidAPIKey() string  { return strings.TrimSpace(os.Getenv(EnvRapidAPIKey)) }
