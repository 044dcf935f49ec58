package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		logger, err := New(level, false)
		if err != nil {
			t.Errorf("Unexpected error for level %q: %v", level, err)
			continue
		}
		logger.Sync()
	}

	if _, err := New("loud", false); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestNewWritesToOutputPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tonestep.log")
	logger, err := New("debug", true, path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	logger.Info("session started")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "session started") {
		t.Errorf("Expected log file to contain message, got %q", string(data))
	}
}
