// Package config holds the engine's startup options. The options document is
// a flat JSON object; anything not present falls back to a default. Options
// are immutable once loaded.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/valyala/fastjson"
)

// Rotation strategies.
const (
	StrategySize   = "size"
	StrategyTime   = "time"
	StrategyHybrid = "hybrid"
)

// Time-rotation intervals.
const (
	IntervalHourly = "hourly"
	IntervalDaily  = "daily"
)

// Options is the full configuration surface of the engine.
type Options struct {
	DataDir string

	LogLevel         string
	MaxFileSizeMB    int
	BackupCount      int
	RotationStrategy string
	RotationInterval string

	EnableAllLog           bool
	EnableCoreLog          bool
	EnableErrorLog         bool
	EnablePluginSeparation bool

	EnableCompression    bool
	CompressionAfterDays int

	AutoCleanEnabled bool
	MaxTotalSizeMB   int
	MaxAgeDays       int

	EnableSensitiveFilter bool
	SensitiveKeywords     string
}

// Defaults returns the options used when no config document is supplied.
func Defaults() Options {
	return Options{
		DataDir:                "data",
		LogLevel:               "DEBUG",
		MaxFileSizeMB:          10,
		BackupCount:            5,
		RotationStrategy:       StrategySize,
		RotationInterval:       IntervalDaily,
		EnableAllLog:           true,
		EnableCoreLog:          true,
		EnableErrorLog:         true,
		EnablePluginSeparation: true,
		EnableCompression:      true,
		CompressionAfterDays:   1,
		AutoCleanEnabled:       true,
		MaxTotalSizeMB:         500,
		MaxAgeDays:             30,
		EnableSensitiveFilter:  true,
		SensitiveKeywords:      "token,password,secret,api_key,apikey,access_key,accesskey",
	}
}

// Load parses a JSON options document, overlaying it on the defaults.
func Load(data []byte) (Options, error) {
	o := Defaults()

	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return o, fmt.Errorf("parse config: %w", err)
	}

	str := func(key string, dst *string) {
		if v.Exists(key) {
			*dst = string(v.GetStringBytes(key))
		}
	}
	num := func(key string, dst *int) {
		if v.Exists(key) {
			*dst = v.GetInt(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if v.Exists(key) {
			*dst = v.GetBool(key)
		}
	}

	str("data_dir", &o.DataDir)
	str("log_level", &o.LogLevel)
	num("max_file_size_mb", &o.MaxFileSizeMB)
	num("backup_count", &o.BackupCount)
	str("rotation_strategy", &o.RotationStrategy)
	str("rotation_interval", &o.RotationInterval)
	boolean("enable_all_log", &o.EnableAllLog)
	boolean("enable_core_log", &o.EnableCoreLog)
	boolean("enable_error_log", &o.EnableErrorLog)
	boolean("enable_plugin_separation", &o.EnablePluginSeparation)
	boolean("enable_compression", &o.EnableCompression)
	num("compression_after_days", &o.CompressionAfterDays)
	boolean("auto_clean_enabled", &o.AutoCleanEnabled)
	num("max_total_size_mb", &o.MaxTotalSizeMB)
	num("max_age_days", &o.MaxAgeDays)
	boolean("enable_sensitive_filter", &o.EnableSensitiveFilter)
	str("sensitive_keywords", &o.SensitiveKeywords)

	if err := o.Validate(); err != nil {
		return o, err
	}
	return o, nil
}

// LoadFile reads and parses an options document from disk.
func LoadFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), fmt.Errorf("read config: %w", err)
	}
	return Load(data)
}

// Validate checks option invariants. Called by Load; callers constructing
// Options directly should call it themselves.
func (o Options) Validate() error {
	if o.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max_file_size_mb must be positive, got %d", o.MaxFileSizeMB)
	}
	if o.BackupCount < 0 {
		return fmt.Errorf("backup_count must not be negative, got %d", o.BackupCount)
	}
	switch o.RotationStrategy {
	case StrategySize, StrategyTime, StrategyHybrid:
	default:
		return fmt.Errorf("unknown rotation_strategy %q", o.RotationStrategy)
	}
	switch o.RotationInterval {
	case IntervalHourly, IntervalDaily:
	default:
		return fmt.Errorf("unknown rotation_interval %q", o.RotationInterval)
	}
	return nil
}

// SensitiveKeywordList splits the comma-separated keyword option, dropping
// empty entries.
func (o Options) SensitiveKeywordList() []string {
	var out []string
	for _, k := range strings.Split(o.SensitiveKeywords, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// MaxFileSizeBytes returns the per-segment size budget in bytes.
func (o Options) MaxFileSizeBytes() int64 {
	return int64(o.MaxFileSizeMB) * 1024 * 1024
}

// MaxTotalSizeBytes returns the corpus size budget in bytes.
func (o Options) MaxTotalSizeBytes() int64 {
	return int64(o.MaxTotalSizeMB) * 1024 * 1024
}
