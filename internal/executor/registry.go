// Package executor maps tool names to the side-effecting functions that
// perform their real-world actions.
//
// The registry is an explicit object constructed once during startup and
// injected into the services that execute tools, never a module-level
// global, so the completeness check runs deterministically in tests.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Strob0t/Gatekeeper/internal/domain"
)

// Func performs a tool's side effect for one tenant. Implementations must
// validate their own payload before mutating state and must be safe to
// invoke exactly once per confirmed proposal.
type Func func(ctx context.Context, tenantID string, payload json.RawMessage) (json.RawMessage, error)

// Registry maps tool names to executors. Register is a startup-only API;
// Execute is safe for concurrent use once the service is serving.
type Registry struct {
	mu    sync.RWMutex
	execs map[string]Func
}

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{execs: make(map[string]Func)}
}

// Register makes an executor available under the given tool name.
// Registration happens once at process start; a duplicate or nil
// registration is a programming error.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fn == nil {
		panic(fmt.Sprintf("executor: nil executor for %q", name))
	}
	if _, exists := r.execs[name]; exists {
		panic(fmt.Sprintf("executor: duplicate registration for %q", name))
	}
	r.execs[name] = fn
}

// Execute runs the executor registered for name. An unregistered name is a
// configuration error; executor errors and panics are converted to
// ExecutionError and never propagate.
func (r *Registry) Execute(ctx context.Context, name, tenantID string, payload json.RawMessage) (result json.RawMessage, err error) {
	r.mu.RLock()
	fn, ok := r.execs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.ConfigurationError{Msg: fmt.Sprintf("no executor registered for tool %q", name)}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = &domain.ExecutionError{Tool: name, Err: fmt.Errorf("executor panic: %v", rec)}
		}
	}()

	out, err := fn(ctx, tenantID, payload)
	if err != nil {
		return nil, &domain.ExecutionError{Tool: name, Err: err}
	}
	return out, nil
}

// Names returns the sorted names of all registered executors.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.execs))
	for name := range r.execs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateComplete checks that every required tool name has a registered
// executor. A non-empty difference is a fatal startup error: it converts a
// silently broken write path into a deploy-time failure.
func (r *Registry) ValidateComplete(required []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string
	for _, name := range required {
		if _, ok := r.execs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &domain.ConfigurationError{Missing: missing}
	}
	return nil
}
