package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/funkyHat/orchard/pkg/plan"
)

// FileStorage persists each node instance as one file under a per-deployment
// directory, named by the instance id verbatim. After construction the
// directory listing is the source of truth for which instances exist; the
// initial in-memory snapshot is discarded.
type FileStorage struct {
	*index
	storageDir   string
	instancesDir string
}

// NewFileStorage builds a file-backed store for one deployment.
//
// A prior directory for the deployment name is removed first when cfg.Clear
// is set. A fresh instances directory is populated once from the plan's
// instances; an existing one is used as-is and the plan snapshot is ignored.
func NewFileStorage(cfg Config, p *plan.Plan) (*FileStorage, error) {
	baseDir := cfg.Dir
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "orchard-deployments")
	}
	storageDir := filepath.Join(baseDir, cfg.Name)
	instancesDir := filepath.Join(storageDir, "node-instances")

	if cfg.Clear && isDir(storageDir) {
		if err := os.RemoveAll(storageDir); err != nil {
			return nil, fmt.Errorf("failed to clear deployment directory %s: %w", storageDir, err)
		}
	}

	// The lock table must cover exactly the instances that will exist: the
	// prior run's on-disk set when one survives, the plan's set otherwise.
	instanceIDs := planInstanceIDs(p)
	seed := true
	if isDir(instancesDir) {
		onDisk, err := listInstanceFiles(instancesDir)
		if err != nil {
			return nil, err
		}
		instanceIDs = onDisk
		seed = false
	}

	s := &FileStorage{
		index:        newIndex(cfg, p, instanceIDs),
		storageDir:   storageDir,
		instancesDir: instancesDir,
	}

	if seed {
		if err := os.MkdirAll(instancesDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create instances directory %s: %w", instancesDir, err)
		}
		// One-time bulk write of the initial snapshot. No locks needed:
		// no concurrent readers exist before construction returns.
		for _, instance := range initialInstances(p) {
			if err := s.storeInstanceLocked(instance); err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}

// GetNodeInstance reads and deserializes one instance file under its lock.
func (s *FileStorage) GetNodeInstance(id string) (*plan.NodeInstance, error) {
	mu, ok := s.lock(id)
	if !ok {
		return nil, notFoundf("node instance %s", id)
	}
	mu.Lock()
	defer mu.Unlock()
	return s.loadInstanceLocked(id)
}

// GetNodeInstances reads every instance currently on disk.
func (s *FileStorage) GetNodeInstances() ([]*plan.NodeInstance, error) {
	ids, err := listInstanceFiles(s.instancesDir)
	if err != nil {
		return nil, err
	}
	instances := make([]*plan.NodeInstance, 0, len(ids))
	for _, id := range ids {
		instance, err := s.GetNodeInstance(id)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// UpdateNodeInstance applies a property update or state transition under the
// instance lock, overwriting the instance file on acceptance.
func (s *FileStorage) UpdateNodeInstance(id string, version int64, runtimeProperties map[string]any, state *string) error {
	mu, ok := s.lock(id)
	if !ok {
		return notFoundf("node instance %s", id)
	}
	mu.Lock()
	defer mu.Unlock()

	instance, err := s.loadInstanceLocked(id)
	if err != nil {
		return err
	}
	if err := applyUpdate(instance, version, runtimeProperties, state); err != nil {
		return err
	}
	return s.storeInstanceLocked(instance)
}

// Close is a no-op for the file backend.
func (s *FileStorage) Close() error { return nil }

// loadInstanceLocked reads one instance file. The caller holds the
// instance's lock.
func (s *FileStorage) loadInstanceLocked(id string) (*plan.NodeInstance, error) {
	data, err := os.ReadFile(s.instancePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFoundf("node instance %s", id)
		}
		return nil, fmt.Errorf("failed to read node instance %s: %w", id, err)
	}
	var instance plan.NodeInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("failed to decode node instance %s: %w", id, err)
	}
	return &instance, nil
}

// storeInstanceLocked overwrites one instance file. The caller holds the
// instance's lock, except during the one-time bulk initial write.
func (s *FileStorage) storeInstanceLocked(instance *plan.NodeInstance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to encode node instance %s: %w", instance.ID, err)
	}
	if err := os.WriteFile(s.instancePath(instance.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write node instance %s: %w", instance.ID, err)
	}
	return nil
}

func (s *FileStorage) instancePath(id string) string {
	return filepath.Join(s.instancesDir, id)
}

func listInstanceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances directory %s: %w", dir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
