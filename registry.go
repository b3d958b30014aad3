package sasl

import (
	"strings"
)

// ServerFactory mints a fresh server mechanism instance. Server mechanisms
// are stateful one-exchange objects, so a registry stores factories rather
// than instances.
type ServerFactory func() Server

// Registry holds the server mechanisms one endpoint is willing to offer.
// It is plain per-instance state: construct one per listener (or per test)
// and pass it around; there is no process-wide registry.
type Registry struct {
	factories map[string]ServerFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ServerFactory)}
}

// Register adds a mechanism under its IANA name. Registering the same name
// again replaces the factory.
func (r *Registry) Register(name string, factory ServerFactory) {
	r.factories[name] = factory
}

// Get mints a fresh server instance for name, or returns
// ErrUnsupportedMechanism.
func (r *Registry) Get(name string) (Server, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, &Error{
			Kind:      KindUnsupportedMechanism,
			Mechanism: name,
			Message:   "mechanism not registered: " + name,
		}
	}
	return factory(), nil
}

// List returns the registered mechanism names in advertisement order, most
// secure first.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for _, name := range Priority {
		if _, ok := r.factories[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// String returns the space-separated advertisement list, the shape most
// line protocols expect in a capability response.
func (r *Registry) String() string {
	return strings.Join(r.List(), " ")
}
