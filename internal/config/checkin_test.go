package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadCheckInPolicy_Defaults(t *testing.T) {
	t.Setenv("CHECKIN_WINDOW_MIN", "")
	t.Setenv("CHECKIN_WINDOW_ALL_MODES", "")
	p := LoadCheckInPolicy()
	assert.Equal(t, time.Hour, p.Window)
	assert.False(t, p.AllModes)
}

func TestLoadCheckInPolicy_Custom(t *testing.T) {
	t.Setenv("CHECKIN_WINDOW_MIN", "30")
	t.Setenv("CHECKIN_WINDOW_ALL_MODES", "true")
	p := LoadCheckInPolicy()
	assert.Equal(t, 30*time.Minute, p.Window)
	assert.True(t, p.AllModes)
}

func TestLoadCheckInPolicy_RejectsNonPositive(t *testing.T) {
	t.Setenv("CHECKIN_WINDOW_MIN", "-5")
	p := LoadCheckInPolicy()
	assert.Equal(t, time.Hour, p.Window)
}

func TestCheckInPolicy_InWindow(t *testing.T) {
	p := CheckInPolicy{Window: time.Hour}
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	assert.True(t, p.InWindow(start, start))
	assert.True(t, p.InWindow(start, start.Add(-time.Hour)))
	assert.True(t, p.InWindow(start, start.Add(59*time.Minute)))
	assert.False(t, p.InWindow(start, start.Add(-61*time.Minute)))
	assert.False(t, p.InWindow(start, start.Add(2*time.Hour)))
}
