package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_ConsoleOnly(t *testing.T) {
	log, closeFn, err := New(false, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeFn()

	log.Info("Opportunity found")
}

func TestNew_WithLogFile(t *testing.T) {
	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "engine.log")

	log, closeFn, err := New(true, logFile)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("Bundle landed")
	if err := closeFn(); err != nil {
		t.Fatalf("closeFn: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log file to contain data")
	}
}
