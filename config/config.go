package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. Values come from, in
// increasing priority: built-in defaults, dashboard.yaml, .env and the
// process environment.
type Config struct {
	DatasetPath  string
	DatasetTable string
	CacheTTL     time.Duration

	HTTPAddr       string
	AllowedOrigins []string

	LogLevel      string
	LogJSON       bool
	FluentEnabled bool
	FluentHost    string
	FluentPort    int

	SnapshotDir     string
	SnapshotBaseURL string
	ChromeBin       string
	MaxConcurrency  int
	RateLimitMs     int
	MaxRetries      int

	HistogramBins int
	Palette       Palette
}

// Palette is the chart colour scheme, as hex strings without '#'.
type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Light     string
}

var defaults = map[string]any{
	"dataset_path":         "analisis.csv",
	"dataset_table":        "listings",
	"cache_ttl":            "1h",
	"http_addr":            ":8501",
	"cors_allowed_origins": "http://localhost:8501",
	"log_level":            "info",
	"log_json":             false,
	"fluent_enabled":       false,
	"fluent_host":          "localhost",
	"fluent_port":          24224,
	"snapshot_dir":         "./output/snapshots",
	"snapshot_base_url":    "http://localhost:8501",
	"chrome_bin":           "",
	"max_concurrency":      3,
	"rate_limit_ms":        500,
	"max_retries":          3,
	"histogram_bins":       25,
	"palette_primary":      "4CAF50",
	"palette_secondary":    "81C784",
	"palette_accent":       "A5D6A7",
	"palette_light":        "C8E6C9",
}

// Load reads .env and the optional dashboard.yaml found in configPath, and
// returns a populated Config.
func Load(configPath string) *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName("dashboard")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("[config] No dashboard.yaml found, using defaults and env vars")
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	ttl := v.GetDuration("cache_ttl")
	if ttl <= 0 {
		ttl = time.Hour
	}

	bins := v.GetInt("histogram_bins")
	if bins <= 0 {
		bins = 25
	}

	return &Config{
		DatasetPath:  v.GetString("dataset_path"),
		DatasetTable: v.GetString("dataset_table"),
		CacheTTL:     ttl,

		HTTPAddr:       v.GetString("http_addr"),
		AllowedOrigins: splitList(v.GetString("cors_allowed_origins")),

		LogLevel:      v.GetString("log_level"),
		LogJSON:       v.GetBool("log_json"),
		FluentEnabled: v.GetBool("fluent_enabled"),
		FluentHost:    v.GetString("fluent_host"),
		FluentPort:    v.GetInt("fluent_port"),

		SnapshotDir:     v.GetString("snapshot_dir"),
		SnapshotBaseURL: strings.TrimRight(v.GetString("snapshot_base_url"), "/"),
		ChromeBin:       v.GetString("chrome_bin"),
		MaxConcurrency:  v.GetInt("max_concurrency"),
		RateLimitMs:     v.GetInt("rate_limit_ms"),
		MaxRetries:      v.GetInt("max_retries"),

		HistogramBins: bins,
		Palette: Palette{
			Primary:   strings.TrimPrefix(v.GetString("palette_primary"), "#"),
			Secondary: strings.TrimPrefix(v.GetString("palette_secondary"), "#"),
			Accent:    strings.TrimPrefix(v.GetString("palette_accent"), "#"),
			Light:     strings.TrimPrefix(v.GetString("palette_light"), "#"),
		},
	}
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
