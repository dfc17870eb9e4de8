package adapter

import (
	"context"
)

// Stub is a placeholder adapter for modules with no configured command. It
// succeeds without producing output files, which keeps partially configured
// deployments runnable and backs the engine tests.
type Stub struct {
	Module string
}

// NewStub creates a stub adapter for the named module.
func NewStub(module string) *Stub {
	return &Stub{Module: module}
}

func (s *Stub) Execute(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{Metadata: map[string]string{"adapter": "stub", "module": s.Module}}, nil
}

var _ Adapter = (*Stub)(nil)
var _ Adapter = (*ExecAdapter)(nil)
