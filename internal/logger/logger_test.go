package logger

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWithFileConfig(t *testing.T) {
	dir := t.TempDir()
	log, err := NewWithFileConfig("debug", DefaultFileConfig(filepath.Join(dir, "test.log")), false)
	if err != nil {
		t.Fatalf("NewWithFileConfig: %v", err)
	}
	log.Info("hello")
	if err := log.Sync(); err != nil {
		t.Logf("sync: %v", err) // sync on some platforms returns EINVAL
	}
}

func TestNewNoOutputs(t *testing.T) {
	log, err := NewWithFileConfig("info", FileConfig{}, false)
	if err != nil {
		t.Fatalf("NewWithFileConfig: %v", err)
	}
	log.Info("discarded")
}
