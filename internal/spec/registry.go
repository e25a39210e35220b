package spec

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateTask is returned when a task name is defined twice.
var ErrDuplicateTask = errors.New("duplicate task name")

// Builder constructs a TaskSpec from call-site args. Builders must be
// total over well-formed args: string interpolation and object
// construction only, no I/O.
type Builder func(args map[string]any, tc TaskContext) TaskSpec

// Registry maps task names to builders. Registration happens at process
// definition time; the registry is read-only afterwards.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Define registers a builder under a unique name.
func (r *Registry) Define(name string, b Builder) error {
	if name == "" {
		return fmt.Errorf("task name is required")
	}
	if b == nil {
		return fmt.Errorf("task %q: builder is required", name)
	}
	if _, exists := r.builders[name]; exists {
		return fmt.Errorf("task %q: %w", name, ErrDuplicateTask)
	}
	r.builders[name] = b
	return nil
}

// MustDefine registers a builder and panics on error. Intended for
// package-level process definitions where a duplicate is a programming
// mistake.
func (r *Registry) MustDefine(name string, b Builder) {
	if err := r.Define(name, b); err != nil {
		panic(err)
	}
}

// Resolve returns the builder registered under name.
func (r *Registry) Resolve(name string) (Builder, bool) {
	b, ok := r.builders[name]
	return b, ok
}

// Names returns all registered task names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
