package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// LoadEnvString
// ============================================================================

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_STRING", "custom_value")
	assert.Equal(t, "custom_value", LoadEnvString("TEST_STRING", "default_value"))

	t.Setenv("TEST_STRING", "")
	assert.Equal(t, "default_value", LoadEnvString("TEST_STRING", "default_value"))
}

// ============================================================================
// LoadEnvWithFallback
// ============================================================================

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		want         string
		wantFallback bool
	}{
		{name: "valid value", value: "@every 30s", want: "@every 30s"},
		{name: "unset", value: "", want: "*/5 * * * *"},
		{name: "invalid value", value: "not a schedule", want: "*/5 * * * *", wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CRON", tt.value)

			result := LoadEnvWithFallback("TEST_CRON", "*/5 * * * *", ValidateCronSchedule)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantFallback {
				assert.Len(t, result.Warnings, 1)
				assert.Contains(t, result.Warnings[0], "Invalid TEST_CRON='not a schedule'")
				assert.Contains(t, result.Warnings[0], "falling back to default '*/5 * * * *'")
			} else {
				assert.Empty(t, result.Warnings)
			}
		})
	}
}

func TestLoadEnvWithFallback_URL(t *testing.T) {
	t.Setenv("TEST_URL", "ftp://bot")

	result := LoadEnvWithFallback("TEST_URL", "http://localhost:7777", ValidateHTTPURL)

	assert.Equal(t, "http://localhost:7777", result.Value)
	assert.True(t, result.FallbackApplied)
}

// ============================================================================
// LoadEnvDuration
// ============================================================================

func TestLoadEnvDuration(t *testing.T) {
	rangeCheck := func(d time.Duration) error { return ValidateDuration(d, time.Second, 5*time.Minute) }

	tests := []struct {
		name         string
		value        string
		want         time.Duration
		wantFallback bool
	}{
		{name: "valid", value: "45s", want: 45 * time.Second},
		{name: "unset", value: "", want: 30 * time.Second},
		{name: "unparsable", value: "soon", want: 30 * time.Second, wantFallback: true},
		{name: "out of range", value: "10m", want: 30 * time.Second, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_TIMEOUT", tt.value)

			result := LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, rangeCheck)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}

func TestLoadEnvDuration_NilValidator(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "-5s")

	result := LoadEnvDuration("TEST_TIMEOUT", time.Second, nil)

	assert.Equal(t, -5*time.Second, result.Value)
	assert.False(t, result.FallbackApplied)
}

// ============================================================================
// LoadEnvInt
// ============================================================================

func TestLoadEnvInt(t *testing.T) {
	rangeCheck := func(v int) error { return ValidateIntRange(v, 1, 86400) }

	tests := []struct {
		name         string
		value        string
		want         int
		wantFallback bool
		wantWarning  string
	}{
		{name: "valid", value: "60", want: 60},
		{name: "unset", value: "", want: 10},
		{name: "not a number", value: "ten", want: 10, wantFallback: true, wantWarning: "invalid integer format"},
		{name: "zero", value: "0", want: 10, wantFallback: true, wantWarning: "below minimum"},
		{name: "too large", value: "100000", want: 10, wantFallback: true, wantWarning: "exceeds maximum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INTERVAL", tt.value)

			result := LoadEnvInt("TEST_INTERVAL", 10, rangeCheck)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantWarning != "" {
				assert.Contains(t, result.Warnings[0], tt.wantWarning)
			}
		})
	}
}

// ============================================================================
// LoadEnvBool
// ============================================================================

func TestLoadEnvBool(t *testing.T) {
	tests := []struct {
		value        string
		want         bool
		wantFallback bool
	}{
		{value: "true", want: true},
		{value: "FALSE", want: false},
		{value: "0", want: false},
		{value: "1", want: true},
		{value: "", want: true},
		{value: "maybe", want: true, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)

			result := LoadEnvBool("TEST_BOOL", true)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}
