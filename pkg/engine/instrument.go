package engine

import (
	"github.com/funkyHat/orchard/pkg/storage"
	"github.com/funkyHat/orchard/pkg/telemetry"
)

// instrumentedStorage decorates a storage backend with update metrics. It
// changes no observable storage semantics; workflow implementations receive
// it through the execution context in place of the raw backend.
type instrumentedStorage struct {
	storage.Storage
	metrics *telemetry.Metrics
}

func newInstrumentedStorage(s storage.Storage, m *telemetry.Metrics) storage.Storage {
	return &instrumentedStorage{Storage: s, metrics: m}
}

// UpdateNodeInstance counts accepted updates by kind and rejected updates
// as conflicts, then defers to the wrapped backend's verdict.
func (s *instrumentedStorage) UpdateNodeInstance(id string, version int64, runtimeProperties map[string]any, state *string) error {
	err := s.Storage.UpdateNodeInstance(id, version, runtimeProperties, state)
	switch {
	case err == nil && state != nil:
		s.metrics.InstanceUpdated("state")
	case err == nil:
		s.metrics.InstanceUpdated("properties")
	case storage.IsConflict(err):
		s.metrics.UpdateConflict(s.Name())
	}
	return err
}
