package catalog

import (
	"fmt"

	"github.com/itmedclk/HealthNews/internal/ports"
)

// Registry keeps a mapping from loader kinds ("csv", "web") to their
// implementations, so config decides where a brand's catalog comes
// from.
type Registry struct {
	loaders map[string]ports.ProductLoader
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: map[string]ports.ProductLoader{}}
}

// Register adds or replaces a loader implementation.
func (r *Registry) Register(loader ports.ProductLoader) {
	if r.loaders == nil {
		r.loaders = map[string]ports.ProductLoader{}
	}
	r.loaders[loader.Name()] = loader
}

// Resolve returns a loader by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (ports.ProductLoader, error) {
	if loader, ok := r.loaders[kind]; ok {
		return loader, nil
	}
	return nil, fmt.Errorf("catalog loader %s is not registered", kind)
}
