package window

import (
	"errors"
	"testing"
	"time"
)

func TestParseValidWindows(t *testing.T) {
	cases := []struct {
		input string
		want  time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"12h", 12 * time.Hour},
		{"1d", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"8w", 56 * 24 * time.Hour},
		{"1yr", 365 * 24 * time.Hour},
		{"2yr", 2 * 365 * 24 * time.Hour},
	}

	for _, tc := range cases {
		got, err := Parse(tc.input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestParseInvalidWindows(t *testing.T) {
	cases := []string{"", "abc", "-5h", "5x", "h", "24", "1.5d", "0d", "7 d", "1y"}

	for _, input := range cases {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
			continue
		}
		var winErr *InvalidWindowError
		if !errors.As(err, &winErr) {
			t.Errorf("Parse(%q) returned %T, want *InvalidWindowError", input, err)
		}
	}
}

func TestHours(t *testing.T) {
	got, err := Hours("8w")
	if err != nil {
		t.Fatalf("Hours failed: %v", err)
	}
	if got != 56*24 {
		t.Errorf("Hours(8w) = %d, want %d", got, 56*24)
	}
}
