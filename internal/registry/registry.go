package registry

import (
	"fmt"
	"sort"
	"time"

	"vestry/internal/adapter"
	"vestry/internal/services"
)

// Strength classifies how a prerequisite constrains its dependent.
// A hard prerequisite must be enabled and succeed before the dependent
// may run. A soft prerequisite only orders the two modules and requires
// success when it happens to be enabled.
type Strength string

const (
	Hard Strength = "hard"
	Soft Strength = "soft"
)

// Idempotency classifies whether re-running a module after success is safe.
type Idempotency string

const (
	// SkipIfSucceeded modules are elided from subsequent runs unless the
	// caller forces a re-run.
	SkipIfSucceeded Idempotency = "skip-if-succeeded"
	// SafeToRerun modules may execute again on every run.
	SafeToRerun Idempotency = "safe-to-rerun"
)

// Prerequisite names a module that must be handled before the dependent.
type Prerequisite struct {
	Name     string
	Strength Strength
}

// Descriptor declares one workflow module: its adapter, the modules it
// depends on, and how it behaves across repeated runs.
type Descriptor struct {
	Name          string
	Adapter       adapter.Adapter
	Prerequisites []Prerequisite
	Idempotency   Idempotency
	NeedsInput    bool
	Timeout       time.Duration
}

// Registry holds module descriptors in declaration order. Declaration
// order is the deterministic tie-break for planning, so it is fixed at
// construction and never re-sorted.
type Registry struct {
	order  []string
	byName map[string]Descriptor
}

// New builds a registry from descriptors in the order given. It rejects
// duplicate names, self-references, and prerequisites that name a module
// not present in the set.
func New(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{
		order:  make([]string, 0, len(descriptors)),
		byName: make(map[string]Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, services.Wrap(services.ErrValidation, "", "registry", "module name is empty", nil)
		}
		if _, exists := r.byName[d.Name]; exists {
			return nil, services.Wrap(services.ErrValidation, d.Name, "registry", "duplicate module name", nil)
		}
		if d.Idempotency == "" {
			d.Idempotency = SafeToRerun
		}
		r.order = append(r.order, d.Name)
		r.byName[d.Name] = d
	}
	for _, name := range r.order {
		d := r.byName[name]
		for _, p := range d.Prerequisites {
			if p.Name == name {
				return nil, services.Wrap(services.ErrValidation, name, "registry", "module depends on itself", nil)
			}
			if _, ok := r.byName[p.Name]; !ok {
				return nil, services.Wrap(services.ErrValidation, name, "registry", fmt.Sprintf("unknown prerequisite %q", p.Name), nil)
			}
			if p.Strength != Hard && p.Strength != Soft {
				return nil, services.Wrap(services.ErrValidation, name, "registry", fmt.Sprintf("invalid prerequisite strength %q", p.Strength), nil)
			}
		}
	}
	return r, nil
}

// Describe returns the descriptor for name.
func (r *Registry) Describe(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns module names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Index returns the declaration position of name, or -1 when unknown.
func (r *Registry) Index(name string) int {
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

// Len returns the number of declared modules.
func (r *Registry) Len() int {
	return len(r.order)
}

// Unknown returns the names from the given set that the registry does not
// declare, sorted for stable error messages.
func (r *Registry) Unknown(names []string) []string {
	var missing []string
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			missing = append(missing, n)
		}
	}
	sort.Strings(missing)
	return missing
}
