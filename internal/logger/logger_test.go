package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"TRACE", LevelTrace, false},
		{"debug", LevelDebug, false},
		{" Info ", LevelInfo, false},
		{"WARN", LevelWarning, false},
		{"warning", LevelWarning, false},
		{"ERROR", LevelError, false},
		{"FATAL", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseLevel(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetLevel(GetLevel())
	SetLevel(LevelInfo)

	Debug("hidden")
	Info("shown", "key", "value")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["msg"] != "shown" || rec["key"] != "value" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestCountersIgnoreSampling(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetSampleRate(1)
	defer SetSampleRate(100)

	errorsBefore := TotalErrors.Load()
	warningsBefore := TotalWarnings.Load()

	Error("boom")
	Warn("careful")
	HTTPStatus(404)
	HTTPStatus(503)
	HTTPStatus(200)

	if got := TotalErrors.Load() - errorsBefore; got != 2 {
		t.Errorf("TotalErrors delta = %d, want 2", got)
	}
	if got := TotalWarnings.Load() - warningsBefore; got != 2 {
		t.Errorf("TotalWarnings delta = %d, want 2", got)
	}
}

func TestStepFailed(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetLevel(GetLevel())
	SetLevel(LevelDebug)

	before := StepFailures.Load()
	StepFailed("checkout", "discount", errors.New("unknown operator"))

	if StepFailures.Load()-before != 1 {
		t.Error("StepFailures should be incremented")
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"step":"discount"`)) {
		t.Errorf("log output missing step attribute: %s", buf.String())
	}
}
