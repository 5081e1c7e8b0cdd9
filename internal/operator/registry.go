package operator

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh operator instance. Instances are not shared
// between lookups so concurrent pipelines never share operator state.
type Factory func() Operator

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an operator factory under its name. Called from package
// init functions; duplicate names panic since they indicate a wiring bug.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("operator %q registered twice", name))
	}
	registry[name] = factory
}

// Lookup returns a new instance of the named operator.
func Lookup(name string) (Operator, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown operator: %s", name)
	}
	return factory(), nil
}

// Names returns the registered operator names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
