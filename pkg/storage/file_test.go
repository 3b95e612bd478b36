package storage

import (
	"testing"
)

func TestFileStorageSurvivesReopen(t *testing.T) {
	p := testPlan()
	dir := t.TempDir()
	cfg := Config{Backend: BackendFile, Name: p.Name, Dir: dir}

	st, err := NewFileStorage(cfg, p)
	if err != nil {
		t.Fatalf("failed to open file backend: %v", err)
	}
	if err := st.UpdateNodeInstance("vm_1", 0, map[string]any{"ip": "10.0.0.9"}, strPtr("started")); err != nil {
		t.Fatalf("failed to update instance: %v", err)
	}
	st.Close()

	// A second store over the same directory sees the prior run's state,
	// not the plan's snapshot.
	reopened, err := NewFileStorage(cfg, p)
	if err != nil {
		t.Fatalf("failed to reopen file backend: %v", err)
	}
	defer reopened.Close()

	instance, err := reopened.GetNodeInstance("vm_1")
	if err != nil {
		t.Fatalf("failed to get instance: %v", err)
	}
	if instance.State != "started" || instance.Version != 1 {
		t.Errorf("expected persisted state to survive reopen, got state=%s version=%d",
			instance.State, instance.Version)
	}
	if instance.RuntimeProperties["ip"] != "10.0.0.9" {
		t.Errorf("expected persisted properties to survive reopen, got %v", instance.RuntimeProperties)
	}
}

func TestFileStorageClear(t *testing.T) {
	p := testPlan()
	dir := t.TempDir()
	cfg := Config{Backend: BackendFile, Name: p.Name, Dir: dir}

	st, err := NewFileStorage(cfg, p)
	if err != nil {
		t.Fatalf("failed to open file backend: %v", err)
	}
	if err := st.UpdateNodeInstance("vm_1", 0, nil, strPtr("started")); err != nil {
		t.Fatalf("failed to update instance: %v", err)
	}
	st.Close()

	cfg.Clear = true
	cleared, err := NewFileStorage(cfg, p)
	if err != nil {
		t.Fatalf("failed to reopen file backend with clear: %v", err)
	}
	defer cleared.Close()

	instance, err := cleared.GetNodeInstance("vm_1")
	if err != nil {
		t.Fatalf("failed to get instance: %v", err)
	}
	if instance.State != "uninitialized" || instance.Version != 0 {
		t.Errorf("expected a fresh snapshot after clear, got state=%s version=%d",
			instance.State, instance.Version)
	}
}

func TestFileStorageDeploymentsAreIsolated(t *testing.T) {
	p := testPlan()
	dir := t.TempDir()

	first, err := NewFileStorage(Config{Backend: BackendFile, Name: "first", Dir: dir}, p)
	if err != nil {
		t.Fatalf("failed to open first deployment: %v", err)
	}
	defer first.Close()
	second, err := NewFileStorage(Config{Backend: BackendFile, Name: "second", Dir: dir}, p)
	if err != nil {
		t.Fatalf("failed to open second deployment: %v", err)
	}
	defer second.Close()

	if err := first.UpdateNodeInstance("vm_1", 0, nil, strPtr("started")); err != nil {
		t.Fatalf("failed to update instance: %v", err)
	}

	instance, err := second.GetNodeInstance("vm_1")
	if err != nil {
		t.Fatalf("failed to get instance: %v", err)
	}
	if instance.State != "uninitialized" {
		t.Errorf("deployments under one base dir must not share state, got %s", instance.State)
	}
}
