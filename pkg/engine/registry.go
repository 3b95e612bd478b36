package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// TaskFunc is the shape of externally-registered workflow and operation
// implementations. The engine invokes workflows synchronously; any
// concurrency inside the implementation is its own concern.
type TaskFunc func(ctx context.Context, tctx *Context, kwargs map[string]any) error

// Resolver resolves a dotted "<module>.<attribute>" path to a registered
// implementation, failing with a not-found error naming the missing part.
type Resolver interface {
	Resolve(path string) (TaskFunc, error)
}

// Registry is the default Resolver: a process-wide table of modules and
// their attributes, populated by the host environment before any
// Environment is constructed. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]map[string]TaskFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]TaskFunc)}
}

// Register registers one attribute of a module, overwriting any previous
// registration.
func (r *Registry) Register(module, attribute string, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attrs, ok := r.modules[module]
	if !ok {
		attrs = make(map[string]TaskFunc)
		r.modules[module] = attrs
	}
	attrs[attribute] = fn
}

// RegisterModule registers a whole module at once.
func (r *Registry) RegisterModule(module string, attrs map[string]TaskFunc) {
	for attribute, fn := range attrs {
		r.Register(module, attribute, fn)
	}
}

// Resolve looks up the module then the attribute named by path.
func (r *Registry) Resolve(path string) (TaskFunc, error) {
	module, attribute := splitTaskPath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()
	attrs, ok := r.modules[module]
	if !ok {
		return nil, NewNotFoundError(fmt.Sprintf("no module named %s", module))
	}
	fn, ok := attrs[attribute]
	if !ok {
		return nil, NewNotFoundError(fmt.Sprintf("module %s has no attribute %q", module, attribute))
	}
	return fn, nil
}

// splitTaskPath splits a dotted path at its last dot: everything before is
// the module name, the rest is the attribute.
func splitTaskPath(path string) (module, attribute string) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// DefaultRegistry is the process-wide registry used when an Environment is
// configured without an explicit Resolver.
var DefaultRegistry = NewRegistry()

// Register registers one attribute in the process-wide registry.
func Register(module, attribute string, fn TaskFunc) {
	DefaultRegistry.Register(module, attribute, fn)
}

// RegisterModule registers a whole module in the process-wide registry.
func RegisterModule(module string, attrs map[string]TaskFunc) {
	DefaultRegistry.RegisterModule(module, attrs)
}
