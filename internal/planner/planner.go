package planner

import (
	"fmt"
	"sort"

	"vestry/internal/event"
	"vestry/internal/registry"
	"vestry/internal/services"
)

// Action says what the engine should do with a planned module.
type Action string

const (
	// ActionRun executes the module's adapter.
	ActionRun Action = "run"
	// ActionSkip records a skipped result without invoking the adapter.
	ActionSkip Action = "skip"
)

// Step is one entry of a plan.
type Step struct {
	Module string
	Action Action
	Reason event.SkipReason
}

// Plan is the ordered work list for one run. Run steps come first, in
// dependency order; skip steps determined at planning time follow in
// declaration order.
type Plan struct {
	Steps []Step
}

// Empty reports whether the plan contains no steps at all.
func (p Plan) Empty() bool {
	return len(p.Steps) == 0
}

// RunModules returns the modules the engine will actually execute.
func (p Plan) RunModules() []string {
	var out []string
	for _, s := range p.Steps {
		if s.Action == ActionRun {
			out = append(out, s.Module)
		}
	}
	return out
}

// Options adjust how a plan is computed.
type Options struct {
	// Force re-includes the named modules even when a prior succeeded
	// result would normally elide them.
	Force []string
	// ForceAll re-includes every enabled module.
	ForceAll bool
}

func (o Options) forced(name string) bool {
	if o.ForceAll {
		return true
	}
	for _, f := range o.Force {
		if f == name {
			return true
		}
	}
	return false
}

// Build computes the ordered plan for one event. Ordering is a
// topological sort of the enabled subgraph; modules with no constraint
// between them keep the registry's declaration order. Modules whose hard
// prerequisite is disabled and has never succeeded become skip steps
// rather than silently running without their dependency.
func Build(reg *registry.Registry, evt *event.Event, opts Options) (Plan, error) {
	if err := checkAcyclic(reg); err != nil {
		return Plan{}, err
	}
	enabled := evt.EnabledModules()
	if missing := reg.Unknown(enabled); len(missing) > 0 {
		return Plan{}, services.Wrap(services.ErrPlanning, missing[0], "plan", fmt.Sprintf("unknown modules in toggles: %v", missing), nil)
	}

	succeeded := func(name string) bool {
		res, ok := evt.Result(name)
		return ok && res.Status == event.ResultSucceeded
	}

	// Elide modules that already succeeded and declare themselves
	// skip-if-succeeded, unless the caller forces them back in.
	candidates := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		desc, _ := reg.Describe(name)
		if succeeded(name) && desc.Idempotency == registry.SkipIfSucceeded && !opts.forced(name) {
			continue
		}
		candidates[name] = true
	}

	// A hard prerequisite is satisfied by a prior success or by being a
	// candidate scheduled earlier in this same run. Anything else blocks
	// the dependent, and blocking cascades through hard edges.
	blocked := make(map[string]bool)
	for changed := true; changed; {
		changed = false
		for name := range candidates {
			if blocked[name] {
				continue
			}
			desc, _ := reg.Describe(name)
			for _, p := range desc.Prerequisites {
				if p.Strength != registry.Hard {
					continue
				}
				if succeeded(p.Name) {
					continue
				}
				if candidates[p.Name] && !blocked[p.Name] {
					continue
				}
				blocked[name] = true
				changed = true
				break
			}
		}
	}

	ordered := order(reg, candidates, blocked)

	plan := Plan{}
	for _, name := range ordered {
		plan.Steps = append(plan.Steps, Step{Module: name, Action: ActionRun})
	}
	var skips []string
	for name := range blocked {
		skips = append(skips, name)
	}
	sort.Slice(skips, func(i, j int) bool { return reg.Index(skips[i]) < reg.Index(skips[j]) })
	for _, name := range skips {
		plan.Steps = append(plan.Steps, Step{Module: name, Action: ActionSkip, Reason: event.SkipMissingDependency})
	}
	return plan, nil
}

// order runs Kahn's algorithm over the runnable candidates, always
// taking the ready module with the lowest declaration index so plans
// are stable across runs.
func order(reg *registry.Registry, candidates, blocked map[string]bool) []string {
	runnable := func(name string) bool { return candidates[name] && !blocked[name] }

	indegree := make(map[string]int)
	dependents := make(map[string][]string)
	for name := range candidates {
		if !runnable(name) {
			continue
		}
		indegree[name] = 0
	}
	for name := range indegree {
		desc, _ := reg.Describe(name)
		for _, p := range desc.Prerequisites {
			if !runnable(p.Name) {
				continue
			}
			indegree[name]++
			dependents[p.Name] = append(dependents[p.Name], name)
		}
	}

	var out []string
	for len(indegree) > 0 {
		next := ""
		for name, deg := range indegree {
			if deg != 0 {
				continue
			}
			if next == "" || reg.Index(name) < reg.Index(next) {
				next = name
			}
		}
		if next == "" {
			break
		}
		out = append(out, next)
		delete(indegree, next)
		for _, dep := range dependents[next] {
			indegree[dep]--
		}
	}
	return out
}

// checkAcyclic verifies the full registry graph has no dependency
// cycle. A cyclic registry is a configuration defect that fails every
// plan, regardless of which modules an event enables.
func checkAcyclic(reg *registry.Registry) error {
	indegree := make(map[string]int)
	dependents := make(map[string][]string)
	for _, name := range reg.Names() {
		indegree[name] = 0
	}
	for _, name := range reg.Names() {
		desc, _ := reg.Describe(name)
		for _, p := range desc.Prerequisites {
			indegree[name]++
			dependents[p.Name] = append(dependents[p.Name], name)
		}
	}
	queue := make([]string, 0, len(indegree))
	for _, name := range reg.Names() {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	seen := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		seen++
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if seen != reg.Len() {
		var stuck []string
		for name, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return services.Wrap(services.ErrPlanning, "", "plan", fmt.Sprintf("dependency cycle involving %v", stuck), nil)
	}
	return nil
}
