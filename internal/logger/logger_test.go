package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		level   zapcore.Level
		wantErr bool
	}{
		{"console info", Config{Level: "info", Encoding: "console"}, zapcore.InfoLevel, false},
		{"json debug", Config{Level: "DEBUG", Encoding: "json"}, zapcore.DebugLevel, false},
		{"development defaults", Config{Level: "warn", Development: true}, zapcore.WarnLevel, false},
		{"bad level", Config{Level: "loud"}, 0, true},
		{"bad encoding", Config{Level: "info", Encoding: "xml"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if !l.Core().Enabled(tt.level) {
				t.Errorf("level %s should be enabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && l.Core().Enabled(tt.level-1) {
				t.Errorf("level %s should be disabled", tt.level-1)
			}
		})
	}
}
