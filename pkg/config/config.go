package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the environment-derived defaults. CLI flags overlay these;
// a flag the user sets always wins over the environment.
type Config struct {
	// Metrics backend
	PrometheusURL    string
	UseMetricsServer bool

	// Storage
	StorageEnabled bool
	DatabaseURL    string

	// Analysis defaults
	HistoryWindow      string // e.g. "24h", "7d"
	CPUPercentile      float64
	MemoryBuffer       float64
	BusinessHoursStart int
	BusinessHoursEnd   int
	BusinessDays       []time.Weekday
	TrendThreshold     float64
	VarianceThreshold  float64

	// Output
	OutputFormat string // text, json, yaml, csv
	Verbose      bool
}

// NewConfig creates a new configuration from environment defaults.
func NewConfig() *Config {
	return &Config{
		PrometheusURL:      getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		UseMetricsServer:   getEnvBool("USE_METRICS_SERVER", false),
		StorageEnabled:     getEnvBool("STORAGE_ENABLED", false),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		HistoryWindow:      getEnv("HISTORY_WINDOW", "24h"),
		CPUPercentile:      getEnvFloat("CPU_PERCENTILE", 95.0),
		MemoryBuffer:       getEnvFloat("MEMORY_BUFFER", 1.15),
		BusinessHoursStart: getEnvInt("BUSINESS_HOURS_START", 9),
		BusinessHoursEnd:   getEnvInt("BUSINESS_HOURS_END", 17),
		BusinessDays:       getEnvWeekdays("BUSINESS_DAYS", []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}),
		TrendThreshold:     getEnvFloat("TREND_THRESHOLD", 0.1),
		VarianceThreshold:  getEnvFloat("VARIANCE_THRESHOLD", 0.5),
		OutputFormat:       getEnv("OUTPUT_FORMAT", "text"),
		Verbose:            getEnvBool("VERBOSE", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ParseWeekdays parses a comma-separated day list, e.g. "Mon,Tue,Wed".
// Day names are matched on their first three letters, so "Friday" and
// "fri" are equivalent.
func ParseWeekdays(value string) ([]time.Weekday, error) {
	names := map[string]time.Weekday{
		"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
		"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
		"sat": time.Saturday,
	}

	var days []time.Weekday
	for _, part := range strings.Split(value, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if len(name) < 3 {
			return nil, fmt.Errorf("unrecognized day %q", part)
		}
		day, ok := names[name[:3]]
		if !ok {
			return nil, fmt.Errorf("unrecognized day %q", part)
		}
		days = append(days, day)
	}
	return days, nil
}

// getEnvWeekdays reads a day list from the environment. An unrecognized
// entry invalidates the whole list so a typo cannot silently shrink the
// business week.
func getEnvWeekdays(key string, defaultValue []time.Weekday) []time.Weekday {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	days, err := ParseWeekdays(value)
	if err != nil {
		return defaultValue
	}
	return days
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	if c.CPUPercentile <= 0 || c.CPUPercentile > 100 {
		return fmt.Errorf("cpu percentile must be in (0, 100], got %g", c.CPUPercentile)
	}
	if c.MemoryBuffer < 1.0 {
		return fmt.Errorf("memory buffer must be >= 1.0, got %g", c.MemoryBuffer)
	}
	if c.BusinessHoursStart < 0 || c.BusinessHoursStart > 23 ||
		c.BusinessHoursEnd < 1 || c.BusinessHoursEnd > 24 ||
		c.BusinessHoursStart >= c.BusinessHoursEnd {
		return fmt.Errorf("business hours %d-%d invalid", c.BusinessHoursStart, c.BusinessHoursEnd)
	}
	return nil
}
