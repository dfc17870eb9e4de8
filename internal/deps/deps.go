// Package deps reports availability of external adapter commands.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"vestry/internal/config"
)

// Status reports the adapter wiring for one module.
type Status struct {
	Module    string
	Command   string
	Builtin   bool
	Available bool
	Detail    string
}

// CheckAdapters inspects the configured command for each module, in the
// given order. Modules without a configured command run on the built-in
// stub adapter and are always available.
func CheckAdapters(cfg *config.Config, modules []string) []Status {
	results := make([]Status, 0, len(modules))
	for _, module := range modules {
		command := ""
		if cfg != nil {
			command = strings.TrimSpace(cfg.ModuleFor(module).Command)
		}
		status := Status{Module: module, Command: command}
		if command == "" {
			status.Builtin = true
			status.Available = true
			status.Detail = "built-in stub"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(command); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", command)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
