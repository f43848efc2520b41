package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/couchcryptid/quakewatch/internal/domain"
)

// DefaultUSGSBaseURL is the USGS real-time GeoJSON summary feed root.
const DefaultUSGSBaseURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"

// Config holds all service settings. Values come from environment variables,
// then the optional YAML file named by CONFIG_FILE, then defaults.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// USGS feed settings.
	USGSBaseURL      string
	USGSTimeout      time.Duration
	FeedWindow       domain.TimeWindow
	FeedStaleAfter   time.Duration
	DetailStaleAfter time.Duration
	DetailCacheSize  int
	RefreshInterval  time.Duration

	// Viewport settings.
	StatsThreshold float64
	MapDebounce    time.Duration
	MapPadding     float64
	ListItemHeight float64
	ListOverscan   int

	// Alert publishing (feature-flagged via ALERTS_ENABLED).
	AlertsEnabled     bool
	AlertMinMagnitude float64
	KafkaBrokers      []string
	KafkaAlertTopic   string
}

// Load reads configuration, applying defaults where unset.
func Load() (*Config, error) {
	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := src.shutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedWindow, err := domain.ParseTimeWindow(src.str("FEED_WINDOW", string(domain.DefaultTimeWindow)))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_WINDOW: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        src.str("HTTP_ADDR", ":8080"),
		LogLevel:        src.str("LOG_LEVEL", "info"),
		LogFormat:       src.str("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		USGSBaseURL:     strings.TrimRight(src.str("USGS_BASE_URL", DefaultUSGSBaseURL), "/"),
		FeedWindow:      feedWindow,
		DetailCacheSize: src.positiveInt("DETAIL_CACHE_SIZE", 500),

		KafkaBrokers:    sharedcfg.ParseBrokers(src.str("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: src.str("KAFKA_ALERT_TOPIC", "quake-alerts"),
		AlertsEnabled:   src.str("ALERTS_ENABLED", "false") == "true",
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"USGS_TIMEOUT", "10s", &cfg.USGSTimeout},
		{"FEED_STALE_AFTER", "60s", &cfg.FeedStaleAfter},
		{"DETAIL_STALE_AFTER", "5m", &cfg.DetailStaleAfter},
		{"REFRESH_INTERVAL", "60s", &cfg.RefreshInterval},
		{"MAP_DEBOUNCE", "150ms", &cfg.MapDebounce},
	}
	for _, d := range durations {
		if *d.dst, err = src.duration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	floats := []struct {
		key string
		def string
		dst *float64
	}{
		{"STATS_THRESHOLD", "5.0", &cfg.StatsThreshold},
		{"MAP_PADDING", "0.1", &cfg.MapPadding},
		{"LIST_ITEM_HEIGHT", "57", &cfg.ListItemHeight},
		{"ALERT_MIN_MAGNITUDE", "4.5", &cfg.AlertMinMagnitude},
	}
	for _, f := range floats {
		if *f.dst, err = src.float(f.key, f.def); err != nil {
			return nil, err
		}
	}

	if cfg.ListOverscan, err = strconv.Atoi(src.str("LIST_OVERSCAN", "5")); err != nil || cfg.ListOverscan < 0 {
		return nil, errors.New("invalid LIST_OVERSCAN")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.USGSBaseURL == "" {
		return errors.New("USGS_BASE_URL is required")
	}
	if c.MapPadding < 0 {
		return errors.New("MAP_PADDING must not be negative")
	}
	if c.ListItemHeight <= 0 {
		return errors.New("LIST_ITEM_HEIGHT must be positive")
	}
	if c.AlertsEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("ALERTS_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if c.AlertsEnabled && c.KafkaAlertTopic == "" {
		return errors.New("ALERTS_ENABLED is true but KAFKA_ALERT_TOPIC is not set")
	}
	return nil
}

// source resolves a key from the environment first and the config file second.
// File keys are the lowercase form of the environment variable name.
type source struct {
	k *koanf.Koanf
}

func newSource(path string) (source, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return source{}, fmt.Errorf("load CONFIG_FILE %s: %w", path, err)
		}
	}
	return source{k: k}, nil
}

func (s source) fromFile(key string) (string, bool) {
	switch v := s.k.Get(strings.ToLower(key)).(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(v), true
	}
}

func (s source) str(key, def string) string {
	if v, ok := s.fromFile(key); ok && v != "" {
		def = v
	}
	return sharedcfg.EnvOrDefault(key, def)
}

func (s source) duration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(s.str(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func (s source) float(key, def string) (float64, error) {
	f, err := strconv.ParseFloat(s.str(key, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

// positiveInt falls back to def when the value is missing or not a positive integer.
func (s source) positiveInt(key string, def int) int {
	if n, err := strconv.Atoi(s.str(key, strconv.Itoa(def))); err == nil && n > 0 {
		return n
	}
	return def
}

func (s source) shutdownTimeout() (time.Duration, error) {
	if _, ok := s.fromFile("SHUTDOWN_TIMEOUT"); ok && os.Getenv("SHUTDOWN_TIMEOUT") == "" {
		return s.duration("SHUTDOWN_TIMEOUT", "10s")
	}
	return sharedcfg.ParseShutdownTimeout()
}
