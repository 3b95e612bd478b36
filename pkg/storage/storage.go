package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/funkyHat/orchard/pkg/plan"
)

// Backend selects a concrete storage implementation.
type Backend string

const (
	// BackendMemory keeps instance state in process memory only.
	BackendMemory Backend = "memory"

	// BackendFile persists each node instance as one file on disk.
	BackendFile Backend = "file"

	// BackendSQLite persists each node instance as one row in a SQLite
	// database.
	BackendSQLite Backend = "sqlite"
)

// Config selects and configures a storage backend for one deployment.
type Config struct {
	// Backend is the backend to use.
	Backend Backend

	// Name is the deployment name. It scopes the on-disk layout of the
	// file and sqlite backends.
	Name string

	// ResourcesRoot is the directory blueprint resources are read from
	// (the blueprint's source directory).
	ResourcesRoot string

	// Dir is the base directory for the file backend. Defaults to
	// "orchard-deployments" under the system temp directory.
	Dir string

	// Path is the SQLite database path. Defaults to "<Dir>/<Name>.db".
	Path string

	// Clear removes any prior persisted state for this deployment name
	// before initializing.
	Clear bool
}

// Storage is the instance store contract shared by all backends.
//
// Every operation touches at most one node instance, so no call ever holds
// two instance locks and cross-instance deadlock is structurally impossible.
// Conflicting writes to the same instance serialize in lock-acquisition
// order; there is no ordering guarantee across instances.
type Storage interface {
	// Name returns the deployment name.
	Name() string

	// ResourcesRoot returns the blueprint resource root directory.
	ResourcesRoot() string

	// GetResource reads a blueprint resource relative to the resource root.
	GetResource(resourcePath string) ([]byte, error)

	// DownloadResource writes a blueprint resource to targetPath, or to a
	// fresh temporary path when targetPath is empty, and returns the path
	// written.
	DownloadResource(resourcePath, targetPath string) (string, error)

	// GetNode returns a deep copy of the node template with the given id.
	GetNode(id string) (*plan.Node, error)

	// GetNodes returns deep copies of all node templates.
	GetNodes() ([]*plan.Node, error)

	// GetNodeInstance returns the current state of a node instance. The
	// returned value is the caller's own copy.
	GetNodeInstance(id string) (*plan.NodeInstance, error)

	// GetNodeInstances returns the current state of all node instances.
	GetNodeInstances() ([]*plan.NodeInstance, error)

	// UpdateNodeInstance applies a property update or a state transition
	// to one node instance under its lock.
	//
	// When state is nil the call is a property update: version must equal
	// the stored version or the update is rejected with a ConflictError
	// and nothing is written. When state is non-nil the call is an
	// engine-driven state transition and is always accepted. Either
	// accepted path increments the stored version by exactly one.
	// A non-nil runtimeProperties fully replaces the stored properties.
	UpdateNodeInstance(id string, version int64, runtimeProperties map[string]any, state *string) error

	// Close releases any resources held by the backend.
	Close() error
}

// New builds the backend selected by cfg, seeded from the compiled plan.
func New(ctx context.Context, cfg Config, p *plan.Plan) (Storage, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStorage(cfg, p), nil
	case BackendFile:
		return NewFileStorage(cfg, p)
	case BackendSQLite:
		return NewSQLiteStorage(ctx, cfg, p)
	default:
		return nil, fmt.Errorf("%w %q (valid backends: memory, file, sqlite)",
			ErrUnknownBackend, cfg.Backend)
	}
}

// index holds the state every backend shares: the deployment identity, the
// immutable node template set and the per-instance lock table. The lock
// table is built once at construction for the fixed instance set and never
// resized.
type index struct {
	name          string
	resourcesRoot string
	nodes         map[string]*plan.Node
	locks         map[string]*sync.Mutex
}

func newIndex(cfg Config, p *plan.Plan, instanceIDs []string) *index {
	nodes := make(map[string]*plan.Node, len(p.Nodes))
	for _, node := range p.Nodes {
		nodes[node.ID] = node.Clone()
	}
	locks := make(map[string]*sync.Mutex, len(instanceIDs))
	for _, id := range instanceIDs {
		locks[id] = &sync.Mutex{}
	}
	return &index{
		name:          cfg.Name,
		resourcesRoot: cfg.ResourcesRoot,
		nodes:         nodes,
		locks:         locks,
	}
}

// Name returns the deployment name.
func (x *index) Name() string { return x.name }

// ResourcesRoot returns the blueprint resource root directory.
func (x *index) ResourcesRoot() string { return x.resourcesRoot }

// lock returns the lock for one instance id. Unknown ids have no lock
// because the instance set is fixed at construction.
func (x *index) lock(id string) (*sync.Mutex, bool) {
	mu, ok := x.locks[id]
	return mu, ok
}

// instanceIDs returns the fixed instance id set in sorted order.
func (x *index) instanceIDs() []string {
	ids := make([]string, 0, len(x.locks))
	for id := range x.locks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetNode returns a deep copy of one node template.
func (x *index) GetNode(id string) (*plan.Node, error) {
	node, ok := x.nodes[id]
	if !ok {
		return nil, notFoundf("node %s", id)
	}
	return node.Clone(), nil
}

// GetNodes returns deep copies of all node templates.
func (x *index) GetNodes() ([]*plan.Node, error) {
	nodes := make([]*plan.Node, 0, len(x.nodes))
	for _, node := range x.nodes {
		nodes = append(nodes, node.Clone())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

// GetResource reads a file relative to the resource root.
func (x *index) GetResource(resourcePath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(x.resourcesRoot, resourcePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFoundf("resource %s", resourcePath)
		}
		return nil, fmt.Errorf("failed to read resource %s: %w", resourcePath, err)
	}
	return data, nil
}

// DownloadResource writes a resource to targetPath, or to a fresh temporary
// path named after the resource when targetPath is empty.
func (x *index) DownloadResource(resourcePath, targetPath string) (string, error) {
	data, err := x.GetResource(resourcePath)
	if err != nil {
		return "", err
	}
	if targetPath == "" {
		f, err := os.CreateTemp("", "orchard-*-"+filepath.Base(resourcePath))
		if err != nil {
			return "", fmt.Errorf("failed to create temp file for resource %s: %w", resourcePath, err)
		}
		targetPath = f.Name()
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write resource %s to %s: %w", resourcePath, targetPath, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to write resource %s to %s: %w", resourcePath, targetPath, err)
		}
		return targetPath, nil
	}
	if err := os.WriteFile(targetPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write resource %s to %s: %w", resourcePath, targetPath, err)
	}
	return targetPath, nil
}

// initialInstances builds the construction-time snapshot: deep copies of the
// plan's instances with the version counter forced to its starting value.
func initialInstances(p *plan.Plan) map[string]*plan.NodeInstance {
	instances := make(map[string]*plan.NodeInstance, len(p.NodeInstances))
	for _, instance := range p.NodeInstances {
		clone := instance.Clone()
		clone.Version = 0
		instances[clone.ID] = clone
	}
	return instances
}

func planInstanceIDs(p *plan.Plan) []string {
	ids := make([]string, 0, len(p.NodeInstances))
	for _, instance := range p.NodeInstances {
		ids = append(ids, instance.ID)
	}
	return ids
}

// applyUpdate implements the shared accept path of UpdateNodeInstance: the
// caller holds the instance lock and has loaded the current state.
// A property update with a stale version is rejected; a state transition is
// always accepted. Acceptance bumps the version by exactly one.
func applyUpdate(instance *plan.NodeInstance, version int64, runtimeProperties map[string]any, state *string) error {
	if state == nil && version != instance.Version {
		return &ConflictError{
			InstanceID: instance.ID,
			Expected:   version,
			Actual:     instance.Version,
		}
	}
	instance.Version++
	if runtimeProperties != nil {
		instance.RuntimeProperties = plan.CopyProperties(runtimeProperties)
	}
	if state != nil {
		instance.State = *state
	}
	return nil
}
