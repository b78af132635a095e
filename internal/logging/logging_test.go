package logging

import (
	"log/slog"
	"testing"
)

func TestSetupLevels(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		logger := Setup(tc.in)
		if logger == nil {
			t.Fatalf("Setup(%q) returned nil", tc.in)
		}
		ctx := t.Context()
		if !logger.Enabled(ctx, tc.want) {
			t.Errorf("Setup(%q): level %v not enabled", tc.in, tc.want)
		}
		if tc.want > slog.LevelDebug && logger.Enabled(ctx, tc.want-4) {
			t.Errorf("Setup(%q): level %v unexpectedly enabled", tc.in, tc.want-4)
		}
	}
}
