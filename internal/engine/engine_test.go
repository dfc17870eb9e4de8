package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vestry/internal/adapter"
	"vestry/internal/config"
	"vestry/internal/engine"
	"vestry/internal/event"
	"vestry/internal/registry"
	"vestry/internal/runlog"
	"vestry/internal/services"
	"vestry/internal/store"
	"vestry/internal/testsupport"
)

func succeeding(calls *[]string, name string) adapter.Func {
	return func(ctx context.Context, req adapter.Request) (adapter.Result, error) {
		if calls != nil {
			*calls = append(*calls, name)
		}
		return adapter.Result{OutputFiles: []string{name + ".out"}}, nil
	}
}

func failing(name string) adapter.Func {
	return func(ctx context.Context, req adapter.Request) (adapter.Result, error) {
		return adapter.Result{}, services.Wrap(services.ErrExternalTool, name, "execute", "tool exploded", nil)
	}
}

// chainRegistry declares three modules: b hard-depends on a, c is
// independent.
func chainRegistry(t *testing.T, calls *[]string, aAdapter adapter.Adapter) *registry.Registry {
	t.Helper()
	if aAdapter == nil {
		aAdapter = succeeding(calls, "a")
	}
	reg, err := registry.New(
		registry.Descriptor{Name: "a", Adapter: aAdapter, Idempotency: registry.SkipIfSucceeded},
		registry.Descriptor{
			Name:          "b",
			Adapter:       succeeding(calls, "b"),
			Idempotency:   registry.SkipIfSucceeded,
			Prerequisites: []registry.Prerequisite{{Name: "a", Strength: registry.Hard}},
		},
		registry.Descriptor{Name: "c", Adapter: succeeding(calls, "c"), Idempotency: registry.SkipIfSucceeded},
	)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func newEngine(t *testing.T, cfg *config.Config, reg *registry.Registry) (*engine.Engine, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	return engine.New(cfg, st, reg, nil), st
}

func allOn() map[string]bool {
	return map[string]bool{"a": true, "b": true, "c": true}
}

func TestExecuteRunsModulesInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var calls []string
	reg := chainRegistry(t, &calls, nil)
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", allOn())

	report, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Outcome != engine.OutcomeCompleted {
		t.Fatalf("outcome = %q, want completed", report.Outcome)
	}
	if report.Status != event.StatusCompleted {
		t.Fatalf("status = %q, want completed", report.Status)
	}
	want := []string{"a", "b", "c"}
	if len(calls) != len(want) {
		t.Fatalf("adapter calls %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("adapter calls %v, want %v", calls, want)
		}
	}

	stored, err := st.GetEvent(context.Background(), evt.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	for _, name := range want {
		res, ok := stored.Result(name)
		if !ok || res.Status != event.ResultSucceeded || res.Attempts != 1 {
			t.Fatalf("unexpected stored result for %s: %+v", name, res)
		}
	}

	layout := event.NewLayout(cfg.Paths.EventsDir)
	if _, err := runlog.ReadModuleResult(layout, evt.ID, "b"); err != nil {
		t.Fatalf("module record missing: %v", err)
	}
	state, ok, err := runlog.ReadRunState(layout, evt.ID)
	if err != nil || !ok {
		t.Fatalf("run state missing: ok=%v err=%v", ok, err)
	}
	if state.Phase != runlog.PhaseCompleted {
		t.Fatalf("run state phase = %q, want completed", state.Phase)
	}

	if _, held, err := st.ActiveRun(context.Background(), evt.ID); err != nil || held {
		t.Fatalf("lock still held after run: held=%v err=%v", held, err)
	}
}

func TestExecuteContinuesPastFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var calls []string
	reg := chainRegistry(t, &calls, failing("a"))
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", allOn())

	report, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Outcome != engine.OutcomePartial {
		t.Fatalf("outcome = %q, want partial", report.Outcome)
	}

	stored, err := st.GetEvent(context.Background(), evt.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	a, _ := stored.Result("a")
	if a.Status != event.ResultFailed || a.ErrorKind != "adapter" || a.ErrorDetail == "" {
		t.Fatalf("unexpected result for a: %+v", a)
	}
	b, _ := stored.Result("b")
	if b.Status != event.ResultSkipped || b.SkipReason != event.SkipDependencyFailed {
		t.Fatalf("unexpected result for b: %+v", b)
	}
	c, _ := stored.Result("c")
	if c.Status != event.ResultSucceeded {
		t.Fatalf("unexpected result for c: %+v", c)
	}
}

func TestExecuteRejectsConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := chainRegistry(t, nil, nil)
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", allOn())

	if err := st.AcquireRunLock(context.Background(), evt.ID, "other-run"); err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}
	_, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if !errors.Is(err, services.ErrConcurrency) {
		t.Fatalf("expected concurrency error, got %v", err)
	}

	lock, held, err := st.ActiveRun(context.Background(), evt.ID)
	if err != nil || !held || lock.RunID != "other-run" {
		t.Fatalf("original lock disturbed: held=%v lock=%+v err=%v", held, lock, err)
	}
}

func TestExecuteIdempotentRerun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := chainRegistry(t, nil, nil)
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", allOn())

	if _, err := eng.Execute(context.Background(), evt.ID, engine.Options{}); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	first, err := st.ModuleResults(context.Background(), evt.ID)
	if err != nil {
		t.Fatalf("ModuleResults: %v", err)
	}

	report, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if report.Outcome != engine.OutcomeCompleted || len(report.Planned) != 0 {
		t.Fatalf("expected empty completed rerun, got %+v", report)
	}
	second, err := st.ModuleResults(context.Background(), evt.ID)
	if err != nil {
		t.Fatalf("ModuleResults: %v", err)
	}
	for name, res := range first {
		after := second[name]
		if after.Status != res.Status || after.Attempts != res.Attempts || !after.FinishedAt.Equal(res.FinishedAt) {
			t.Fatalf("result for %s changed on rerun: %+v vs %+v", name, res, after)
		}
	}
}

func TestExecuteForceRerunsSucceededModule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := chainRegistry(t, nil, nil)
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", allOn())

	if _, err := eng.Execute(context.Background(), evt.ID, engine.Options{}); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	report, err := eng.Execute(context.Background(), evt.ID, engine.Options{Force: []string{"c"}})
	if err != nil {
		t.Fatalf("forced Execute: %v", err)
	}
	if len(report.Planned) != 1 || report.Planned[0] != "c" {
		t.Fatalf("forced plan = %v, want [c]", report.Planned)
	}

	stored, err := st.GetEvent(context.Background(), evt.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	c, _ := stored.Result("c")
	if c.Attempts != 2 {
		t.Fatalf("forced module attempts = %d, want 2", c.Attempts)
	}
	a, _ := stored.Result("a")
	if a.Attempts != 1 {
		t.Fatalf("unforced module attempts = %d, want 1", a.Attempts)
	}
}

func TestExecuteRejectsUnknownToggle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := chainRegistry(t, nil, nil)
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{"a": true, "mystery": true})

	_, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	results, err := st.ModuleResults(context.Background(), evt.ID)
	if err != nil {
		t.Fatalf("ModuleResults: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("rejected run mutated results: %+v", results)
	}
}

func TestExecuteRejectsArchivedEvent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := chainRegistry(t, nil, nil)
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", allOn())

	evt.Archived = true
	if err := st.UpdateEvent(context.Background(), evt); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}

	_, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestExecuteRequiresInputsForInputModules(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg, err := registry.New(
		registry.Descriptor{Name: "transcribe", Adapter: succeeding(nil, "transcribe"), NeedsInput: true},
	)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{"transcribe": true})

	if _, err := eng.Execute(context.Background(), evt.ID, engine.Options{}); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}

	evt.Inputs = []string{"/media/recording.mp4"}
	if err := st.UpdateEvent(context.Background(), evt); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	report, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if err != nil {
		t.Fatalf("Execute with inputs: %v", err)
	}
	if report.Outcome != engine.OutcomeCompleted {
		t.Fatalf("outcome = %q, want completed", report.Outcome)
	}
}

func TestExecuteEmptyTogglesCompletesImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := chainRegistry(t, nil, nil)
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{})

	report, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Outcome != engine.OutcomeCompleted || len(report.Planned) != 0 {
		t.Fatalf("expected immediate completion, got %+v", report)
	}
	if report.Status != event.StatusCompleted {
		t.Fatalf("status = %q, want completed", report.Status)
	}
}

func TestExecuteCancelStopsAtModuleBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancelRun := context.WithCancel(context.Background())
	var calls []string
	first := adapter.Func(func(adapterCtx context.Context, req adapter.Request) (adapter.Result, error) {
		cancelRun()
		select {
		case <-adapterCtx.Done():
			return adapter.Result{}, services.Wrap(services.ErrExternalTool, "a", "execute", "interrupted mid-module", adapterCtx.Err())
		case <-time.After(100 * time.Millisecond):
		}
		calls = append(calls, "a")
		return adapter.Result{OutputFiles: []string{"a.out"}}, nil
	})
	reg := chainRegistry(t, &calls, first)
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", allOn())

	report, err := eng.Execute(ctx, evt.ID, engine.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report.Outcome != engine.OutcomeFailed {
		t.Fatalf("outcome = %q, want failed", report.Outcome)
	}
	if len(calls) != 1 || calls[0] != "a" {
		t.Fatalf("adapter calls %v, want in-flight module to finish and no more", calls)
	}

	stored, err := st.GetEvent(context.Background(), evt.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	a, ok := stored.Result("a")
	if !ok || a.Status != event.ResultSucceeded {
		t.Fatalf("in-flight module result not recorded: ok=%v res=%+v", ok, a)
	}
	for _, name := range []string{"b", "c"} {
		if _, ok := stored.Result(name); ok {
			t.Fatalf("module %s ran past the cancellation boundary", name)
		}
	}
	if _, held, err := st.ActiveRun(context.Background(), evt.ID); err != nil || held {
		t.Fatalf("lock still held after cancelled run: held=%v err=%v", held, err)
	}
}

func TestExecutePropagatesMissingDependencySkip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg, err := registry.New(
		registry.Descriptor{Name: "z", Adapter: succeeding(nil, "z")},
		registry.Descriptor{
			Name:          "a",
			Adapter:       succeeding(nil, "a"),
			Prerequisites: []registry.Prerequisite{{Name: "z", Strength: registry.Hard}},
		},
		registry.Descriptor{
			Name:          "b",
			Adapter:       succeeding(nil, "b"),
			Prerequisites: []registry.Prerequisite{{Name: "a", Strength: registry.Soft}},
		},
	)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{"z": false, "a": true, "b": true})

	report, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("skipped = %v, want a and b", report.Skipped)
	}

	stored, err := st.GetEvent(context.Background(), evt.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	a, _ := stored.Result("a")
	if a.Status != event.ResultSkipped || a.SkipReason != event.SkipMissingDependency {
		t.Fatalf("unexpected result for a: %+v", a)
	}
	b, _ := stored.Result("b")
	if b.Status != event.ResultSkipped || b.SkipReason != event.SkipMissingDependency {
		t.Fatalf("dependent of pre-skipped module not propagated: %+v", b)
	}
}

func TestExecuteModuleTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	slow := adapter.Func(func(ctx context.Context, req adapter.Request) (adapter.Result, error) {
		select {
		case <-ctx.Done():
			return adapter.Result{}, services.Wrap(services.ErrTimeout, "slow", "execute", "deadline exceeded", ctx.Err())
		case <-time.After(5 * time.Second):
			return adapter.Result{}, nil
		}
	})
	reg, err := registry.New(
		registry.Descriptor{Name: "slow", Adapter: slow, Timeout: 50 * time.Millisecond},
	)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", map[string]bool{"slow": true})

	report, err := eng.Execute(context.Background(), evt.ID, engine.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Outcome != engine.OutcomeFailed {
		t.Fatalf("outcome = %q, want failed", report.Outcome)
	}
	stored, err := st.GetEvent(context.Background(), evt.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	res, _ := stored.Result("slow")
	if res.Status != event.ResultFailed || res.ErrorKind != "timeout" {
		t.Fatalf("unexpected timeout result: %+v", res)
	}
}

func TestReconcileClearsStaleLocks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHeartbeat(1, 1))
	reg := chainRegistry(t, nil, nil)
	eng, st := newEngine(t, cfg, reg)
	evt := testsupport.NewEvent(t, st, "Sunday Service", allOn())

	if err := st.AcquireRunLock(context.Background(), evt.ID, "crashed-run"); err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}
	layout := event.NewLayout(cfg.Paths.EventsDir)
	if err := runlog.WriteRunState(layout, runlog.RunState{
		RunID:     "crashed-run",
		EventID:   evt.ID,
		Phase:     runlog.PhaseRunning,
		StartedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("WriteRunState: %v", err)
	}

	time.Sleep(1200 * time.Millisecond)

	reclaimed, err := eng.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed = %d, want 1", reclaimed)
	}
	if _, held, err := st.ActiveRun(context.Background(), evt.ID); err != nil || held {
		t.Fatalf("stale lock survived: held=%v err=%v", held, err)
	}
	state, ok, err := runlog.ReadRunState(layout, evt.ID)
	if err != nil || !ok {
		t.Fatalf("ReadRunState: ok=%v err=%v", ok, err)
	}
	if state.Phase != runlog.PhaseFailed || state.FinishedAt.IsZero() {
		t.Fatalf("run marker not reconciled: %+v", state)
	}

	// The event is runnable again after reconciliation.
	if _, err := eng.Execute(context.Background(), evt.ID, engine.Options{}); err != nil {
		t.Fatalf("Execute after reconcile: %v", err)
	}
}
