package config

import (
	"os"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	// Clear any existing env vars
	os.Unsetenv("PROMETHEUS_URL")
	os.Unsetenv("HISTORY_WINDOW")
	os.Unsetenv("CPU_PERCENTILE")
	os.Unsetenv("BUSINESS_DAYS")

	cfg := NewConfig()

	// Verify defaults
	if cfg.PrometheusURL != "http://localhost:9090" {
		t.Errorf("Expected default Prometheus URL, got %s", cfg.PrometheusURL)
	}

	if cfg.HistoryWindow != "24h" {
		t.Errorf("Expected default window 24h, got %s", cfg.HistoryWindow)
	}

	if cfg.CPUPercentile != 95.0 {
		t.Errorf("Expected CPU percentile 95, got %.1f", cfg.CPUPercentile)
	}

	if cfg.BusinessHoursStart != 9 || cfg.BusinessHoursEnd != 17 {
		t.Errorf("Expected business hours 9-17, got %d-%d", cfg.BusinessHoursStart, cfg.BusinessHoursEnd)
	}

	if len(cfg.BusinessDays) != 5 {
		t.Errorf("Expected 5 business days, got %d", len(cfg.BusinessDays))
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	os.Setenv("PROMETHEUS_URL", "http://prometheus:9090")
	os.Setenv("HISTORY_WINDOW", "7d")
	os.Setenv("CPU_PERCENTILE", "90")
	os.Setenv("BUSINESS_HOURS_START", "8")
	defer os.Unsetenv("PROMETHEUS_URL")
	defer os.Unsetenv("HISTORY_WINDOW")
	defer os.Unsetenv("CPU_PERCENTILE")
	defer os.Unsetenv("BUSINESS_HOURS_START")

	cfg := NewConfig()

	if cfg.PrometheusURL != "http://prometheus:9090" {
		t.Errorf("Expected custom Prometheus URL, got %s", cfg.PrometheusURL)
	}

	if cfg.HistoryWindow != "7d" {
		t.Errorf("Expected window 7d from env, got %s", cfg.HistoryWindow)
	}

	if cfg.CPUPercentile != 90.0 {
		t.Errorf("Expected CPU percentile 90 from env, got %.1f", cfg.CPUPercentile)
	}

	if cfg.BusinessHoursStart != 8 {
		t.Errorf("Expected business hours start 8 from env, got %d", cfg.BusinessHoursStart)
	}
}

func TestBusinessDaysFromEnvironment(t *testing.T) {
	os.Setenv("BUSINESS_DAYS", "Mon,Wed,Friday")
	defer os.Unsetenv("BUSINESS_DAYS")

	cfg := NewConfig()

	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(cfg.BusinessDays) != len(want) {
		t.Fatalf("Expected %d days, got %d", len(want), len(cfg.BusinessDays))
	}
	for i, day := range want {
		if cfg.BusinessDays[i] != day {
			t.Errorf("Day %d: expected %v, got %v", i, day, cfg.BusinessDays[i])
		}
	}
}

func TestBusinessDaysInvalidEntry(t *testing.T) {
	os.Setenv("BUSINESS_DAYS", "Mon,Funday")
	defer os.Unsetenv("BUSINESS_DAYS")

	cfg := NewConfig()

	// A typo falls back to the full default week, never a partial list
	if len(cfg.BusinessDays) != 5 {
		t.Errorf("Expected fallback to 5 default days, got %d", len(cfg.BusinessDays))
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays("Mon, Wednesday, fri")
	if err != nil {
		t.Fatalf("Expected parse to succeed, got %v", err)
	}
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(days) != len(want) {
		t.Fatalf("Expected %d days, got %d", len(want), len(days))
	}
	for i, day := range want {
		if days[i] != day {
			t.Errorf("Day %d: expected %v, got %v", i, day, days[i])
		}
	}

	if _, err := ParseWeekdays("Mon,Funday"); err == nil {
		t.Error("Expected error for unrecognized day")
	}
	if _, err := ParseWeekdays("M"); err == nil {
		t.Error("Expected error for truncated day name")
	}
}

func TestInvalidEnvValues(t *testing.T) {
	os.Setenv("CPU_PERCENTILE", "invalid")
	defer os.Unsetenv("CPU_PERCENTILE")

	cfg := NewConfig()

	// Should fall back to default
	if cfg.CPUPercentile != 95.0 {
		t.Errorf("Expected fallback to default 95, got %.1f", cfg.CPUPercentile)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name          string
		setupConfig   func(*Config)
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid default config",
			setupConfig: func(c *Config) {},
			expectError: false,
		},
		{
			name: "percentile too high",
			setupConfig: func(c *Config) {
				c.CPUPercentile = 150
			},
			expectError:   true,
			errorContains: "percentile",
		},
		{
			name: "percentile zero",
			setupConfig: func(c *Config) {
				c.CPUPercentile = 0
			},
			expectError:   true,
			errorContains: "percentile",
		},
		{
			name: "memory buffer too low",
			setupConfig: func(c *Config) {
				c.MemoryBuffer = 0.5
			},
			expectError:   true,
			errorContains: "must be >= 1.0",
		},
		{
			name: "inverted business hours",
			setupConfig: func(c *Config) {
				c.BusinessHoursStart = 18
				c.BusinessHoursEnd = 9
			},
			expectError:   true,
			errorContains: "business hours",
		},
		{
			name: "valid edge case - buffer 1.0",
			setupConfig: func(c *Config) {
				c.MemoryBuffer = 1.0
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.setupConfig(cfg)

			err := cfg.Validate()

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}

			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}

			if tt.expectError && err != nil && tt.errorContains != "" {
				if !contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error containing '%s', got '%s'",
						tt.errorContains, err.Error())
				}
			}
		})
	}
}

func TestStorageValidation(t *testing.T) {
	cfg := NewConfig()
	cfg.StorageEnabled = true
	cfg.DatabaseURL = ""

	err := cfg.Validate()
	if err == nil {
		t.Error("Expected validation error when storage enabled but no database URL")
	}

	if !contains(err.Error(), "DATABASE_URL") {
		t.Errorf("Expected error about DATABASE_URL, got: %v", err)
	}
}

// Helper function
func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
