package storage

import (
	"github.com/funkyHat/orchard/pkg/plan"
)

// MemoryStorage keeps all node instance state in process memory. Reads hand
// out deep copies; writes mutate the stored entry in place under the
// instance lock. There is no separate persistence step.
type MemoryStorage struct {
	*index
	instances map[string]*plan.NodeInstance
}

// NewMemoryStorage builds an in-memory store seeded from the compiled plan.
func NewMemoryStorage(cfg Config, p *plan.Plan) *MemoryStorage {
	return &MemoryStorage{
		index:     newIndex(cfg, p, planInstanceIDs(p)),
		instances: initialInstances(p),
	}
}

// GetNodeInstance returns a deep copy of one node instance's current state.
func (m *MemoryStorage) GetNodeInstance(id string) (*plan.NodeInstance, error) {
	mu, ok := m.lock(id)
	if !ok {
		return nil, notFoundf("node instance %s", id)
	}
	mu.Lock()
	defer mu.Unlock()
	return m.instances[id].Clone(), nil
}

// GetNodeInstances returns deep copies of all node instances.
func (m *MemoryStorage) GetNodeInstances() ([]*plan.NodeInstance, error) {
	instances := make([]*plan.NodeInstance, 0, len(m.instances))
	for _, id := range m.instanceIDs() {
		instance, err := m.GetNodeInstance(id)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// UpdateNodeInstance applies a property update or state transition under the
// instance lock. See the Storage contract for the version rules.
func (m *MemoryStorage) UpdateNodeInstance(id string, version int64, runtimeProperties map[string]any, state *string) error {
	mu, ok := m.lock(id)
	if !ok {
		return notFoundf("node instance %s", id)
	}
	mu.Lock()
	defer mu.Unlock()
	return applyUpdate(m.instances[id], version, runtimeProperties, state)
}

// Close is a no-op for the memory backend.
func (m *MemoryStorage) Close() error { return nil }
