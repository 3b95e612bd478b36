package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStorageSurvivesReopen(t *testing.T) {
	p := testPlan()
	cfg := Config{
		Backend: BackendSQLite,
		Name:    p.Name,
		Path:    filepath.Join(t.TempDir(), "test.db"),
	}
	ctx := context.Background()

	st, err := NewSQLiteStorage(ctx, cfg, p)
	if err != nil {
		t.Fatalf("failed to open sqlite backend: %v", err)
	}
	if err := st.UpdateNodeInstance("server_1", 0, map[string]any{"port": "8080"}, strPtr("started")); err != nil {
		t.Fatalf("failed to update instance: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("failed to close sqlite backend: %v", err)
	}

	reopened, err := NewSQLiteStorage(ctx, cfg, p)
	if err != nil {
		t.Fatalf("failed to reopen sqlite backend: %v", err)
	}
	defer reopened.Close()

	instance, err := reopened.GetNodeInstance("server_1")
	if err != nil {
		t.Fatalf("failed to get instance: %v", err)
	}
	if instance.State != "started" || instance.Version != 1 {
		t.Errorf("expected persisted state to survive reopen, got state=%s version=%d",
			instance.State, instance.Version)
	}
	if instance.RuntimeProperties["port"] != "8080" {
		t.Errorf("expected persisted properties to survive reopen, got %v", instance.RuntimeProperties)
	}
}

func TestSQLiteStorageClear(t *testing.T) {
	p := testPlan()
	cfg := Config{
		Backend: BackendSQLite,
		Name:    p.Name,
		Path:    filepath.Join(t.TempDir(), "test.db"),
	}
	ctx := context.Background()

	st, err := NewSQLiteStorage(ctx, cfg, p)
	if err != nil {
		t.Fatalf("failed to open sqlite backend: %v", err)
	}
	if err := st.UpdateNodeInstance("server_1", 0, nil, strPtr("started")); err != nil {
		t.Fatalf("failed to update instance: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("failed to close sqlite backend: %v", err)
	}

	cfg.Clear = true
	cleared, err := NewSQLiteStorage(ctx, cfg, p)
	if err != nil {
		t.Fatalf("failed to reopen sqlite backend with clear: %v", err)
	}
	defer cleared.Close()

	instance, err := cleared.GetNodeInstance("server_1")
	if err != nil {
		t.Fatalf("failed to get instance: %v", err)
	}
	if instance.State != "uninitialized" || instance.Version != 0 {
		t.Errorf("expected a fresh snapshot after clear, got state=%s version=%d",
			instance.State, instance.Version)
	}
}
