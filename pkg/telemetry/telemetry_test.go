package telemetry

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
	if err := DevelopmentConfig().Validate(); err != nil {
		t.Errorf("development config must validate: %v", err)
	}
	if err := ProductionConfig().Validate(); err != nil {
		t.Errorf("production config must validate: %v", err)
	}

	bad := DefaultConfig()
	bad.ServiceName = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty service name")
	}

	bad = DefaultConfig()
	bad.Logging.Format = "xml"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unsupported log format")
	}

	bad = DefaultConfig()
	bad.Tracing.SamplingRate = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("expected error for out-of-range sampling rate")
	}
}

func TestDisabledMetricsAreNoOps(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	// None of these may panic on a disabled collector, nor on a nil one.
	for _, collector := range []*Metrics{m, nil} {
		collector.ExecutionStarted("install")
		collector.ExecutionCompleted("install", "succeeded", time.Second)
		collector.InstanceUpdated("state")
		collector.UpdateConflict("web-app")
	}
	if m.Handler() != nil {
		t.Error("disabled metrics must not expose a handler")
	}
}

func TestEnabledMetrics(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "orchard"})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.ExecutionStarted("install")
	m.ExecutionCompleted("install", "succeeded", 2*time.Second)
	m.InstanceUpdated("properties")
	m.UpdateConflict("web-app")

	if m.Handler() == nil {
		t.Error("enabled metrics must expose a handler")
	}
}

func TestNopLogger(t *testing.T) {
	log := NopLogger()
	// Chained field helpers must be safe on a disabled logger.
	log.Component("engine").
		WithDeploymentID("web-app").
		WithWorkflowID("install").
		WithExecutionID("exec-1").
		WithField("k", "v").
		Info("dropped")
}

func TestLoggerToFile(t *testing.T) {
	path := t.TempDir() + "/engine.log"
	log, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	log.WithInstanceID("vm_1").Debugf("formatted %s", "message")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "vm_1") || !strings.Contains(string(data), "formatted message") {
		t.Errorf("unexpected log output: %s", data)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"trace":    "trace",
		"debug":    "debug",
		"warn":     "warn",
		"error":    "error",
		"nonsense": "info",
		"":         "info",
	}
	for in, want := range tests {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
