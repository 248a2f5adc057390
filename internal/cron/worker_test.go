package cron

import (
	"testing"
	"time"
)

func TestNextRunTimeSeconds(t *testing.T) {
	from := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if got := nextRunTime("3600", from); !got.Equal(from.Add(time.Hour)) {
		t.Errorf("nextRunTime(3600) = %v", got)
	}
}

func TestNextRunTimeCronExpression(t *testing.T) {
	from := time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC)
	// Hourly on the hour.
	got := nextRunTime("0 * * * *", from)
	want := time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("nextRunTime(cron) = %v, want %v", got, want)
	}
}

func TestNextRunTimeFallback(t *testing.T) {
	from := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for _, setting := range []string{"", "soon", "-10"} {
		if got := nextRunTime(setting, from); !got.Equal(from.Add(5 * time.Minute)) {
			t.Errorf("nextRunTime(%q) = %v, want 5m fallback", setting, got)
		}
	}
}
