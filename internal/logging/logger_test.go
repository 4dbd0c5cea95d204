package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPartitionLogsCarryIdentity(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	defer func() {
		Logger = prev
		slog.SetDefault(prev)
	}()
	Init(&buf, "DEBUG", "json")

	LogPartitionSkipped("run-1", "job_verifsassuser_2", "", "date_format", errors.New("bad date"))
	LogPartitionCommitted("run-1", "job_verifsassuser_3", "05/03/2024", 4, 2, 15*time.Millisecond)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var skipped map[string]interface{}
	if err := json.Unmarshal(lines[0], &skipped); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if skipped["partition"] != "job_verifsassuser_2" || skipped["run_id"] != "run-1" {
		t.Errorf("skipped line missing identity: %v", skipped)
	}
	if skipped["level"] != "ERROR" {
		t.Errorf("skipped line level = %v, want ERROR", skipped["level"])
	}

	var committed map[string]interface{}
	if err := json.Unmarshal(lines[1], &committed); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if committed["job_date"] != "05/03/2024" {
		t.Errorf("committed job_date = %v", committed["job_date"])
	}
}

func TestInitTextFormat(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	defer func() {
		Logger = prev
		slog.SetDefault(prev)
	}()

	Init(&buf, "WARN", "text")
	LogRunStart("run-2", 3)
	if buf.Len() != 0 {
		t.Errorf("INFO line should be filtered at WARN level, got %q", buf.String())
	}

	LogDuplicateIngestion("run-2", "job_a", "01/01/2024")
	if !bytes.Contains(buf.Bytes(), []byte("partition=job_a")) {
		t.Errorf("text handler output missing partition: %q", buf.String())
	}
}
