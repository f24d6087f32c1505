package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedResourceType is returned when a resource type string does
// not match any registered descriptor.
var ErrUnsupportedResourceType = errors.New("unsupported resource type")

// Registry is an immutable map of resource type to descriptor. Construct
// with New and inject into dependents; there is no package-level instance
// and no mutation API.
type Registry struct {
	descriptors map[string]*Descriptor
	types       []string
}

// New builds a registry from the given descriptors.
// Panics if two descriptors share a type, which is a programming error.
func New(descs ...Descriptor) *Registry {
	r := &Registry{descriptors: make(map[string]*Descriptor, len(descs))}
	for i := range descs {
		d := descs[i]
		key := strings.ToLower(d.Type)
		if _, exists := r.descriptors[key]; exists {
			panic(fmt.Sprintf("resource type already registered: %s", d.Type))
		}
		r.descriptors[key] = &d
		r.types = append(r.types, key)
	}
	sort.Strings(r.types)
	return r
}

// Descriptor returns the descriptor for a resource type. The lookup is
// case-insensitive and ignores surrounding whitespace. Unknown or empty
// types return ErrUnsupportedResourceType.
func (r *Registry) Descriptor(resourceType string) (*Descriptor, error) {
	key := strings.ToLower(strings.TrimSpace(resourceType))
	d, ok := r.descriptors[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedResourceType, resourceType)
	}
	return d, nil
}

// IsValidType reports whether the resource type is registered.
func (r *Registry) IsValidType(resourceType string) bool {
	_, err := r.Descriptor(resourceType)
	return err == nil
}

// Types returns all registered resource type names, sorted.
func (r *Registry) Types() []string {
	out := make([]string, len(r.types))
	copy(out, r.types)
	return out
}
