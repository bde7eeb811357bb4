package reminder

import (
	"testing"
	"time"
)

func TestRelativePhrase(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{30 * time.Second, "in under a minute"},
		{1 * time.Minute, "in 1 minute"},
		{8 * time.Minute, "in 8 minutes"},
		{45 * time.Minute, "in 45 minutes"},
		{60 * time.Minute, "in 1 hour"},
		{65 * time.Minute, "in 1 hour and 5 minutes"},
		{2 * time.Hour, "in 2 hours"},
		{2*time.Hour + 1*time.Minute, "in 2 hours and 1 minute"},
	}

	for _, tt := range tests {
		if got := relativePhrase(tt.duration); got != tt.want {
			t.Errorf("relativePhrase(%v) = %q, want %q", tt.duration, got, tt.want)
		}
	}
}
