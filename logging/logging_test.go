package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"clothstock/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
		enabled zapcore.Level
	}{
		{"console info", config.LogConfig{Level: "info", Encoding: "console"}, false, zapcore.InfoLevel},
		{"json debug", config.LogConfig{Level: "debug", Encoding: "json"}, false, zapcore.DebugLevel},
		{"default encoding", config.LogConfig{Level: "warn"}, false, zapcore.WarnLevel},
		{"bad level", config.LogConfig{Level: "loud"}, true, 0},
		{"bad encoding", config.LogConfig{Level: "info", Encoding: "xml"}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if !log.Core().Enabled(tt.enabled) {
				t.Errorf("level %v should be enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && log.Core().Enabled(tt.enabled-1) {
				t.Errorf("level %v should be disabled", tt.enabled-1)
			}
		})
	}
}
