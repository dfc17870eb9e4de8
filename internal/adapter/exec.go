package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"vestry/internal/services"
)

// ExecAdapter invokes an external command implementing one module. The
// request is written to the command's stdin as JSON; on success the command
// prints a JSON envelope on stdout:
//
//	{"status": "success", "output_files": [...], "metadata": {...}}
//	{"status": "failed", "error_kind": "...", "detail": "..."}
//
// A non-zero exit without a parseable envelope is reported as an external
// tool error with the captured stderr tail.
type ExecAdapter struct {
	Module  string
	Command string
	Args    []string
}

// NewExec builds an exec adapter for the named module.
func NewExec(module, command string, args ...string) *ExecAdapter {
	return &ExecAdapter{Module: module, Command: command, Args: args}
}

type execEnvelope struct {
	Status      string            `json:"status"`
	OutputFiles []string          `json:"output_files"`
	Metadata    map[string]string `json:"metadata"`
	ErrorKind   string            `json:"error_kind"`
	Detail      string            `json:"detail"`
}

func (a *ExecAdapter) Execute(ctx context.Context, req Request) (Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, a.Module, "encode request", "", err)
	}

	cmd := exec.CommandContext(ctx, a.Command, a.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, services.Wrap(services.ErrTimeout, a.Module, "execute", a.Command, ctx.Err())
		}
		return Result{}, ctx.Err()
	}

	envelope, parseErr := parseEnvelope(stdout.Bytes())
	if parseErr == nil {
		switch envelope.Status {
		case "success":
			return Result{OutputFiles: envelope.OutputFiles, Metadata: envelope.Metadata}, nil
		case "failed":
			detail := strings.TrimSpace(envelope.Detail)
			if detail == "" {
				detail = "adapter reported failure"
			}
			if kind := strings.TrimSpace(envelope.ErrorKind); kind != "" {
				detail = kind + ": " + detail
			}
			return Result{}, services.Wrap(services.ErrExternalTool, a.Module, "execute", detail, nil)
		}
	}

	if runErr != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, a.Module, "execute",
			fmt.Sprintf("%s: %s", a.Command, stderrTail(&stderr)), runErr)
	}
	return Result{}, services.Wrap(services.ErrExternalTool, a.Module, "execute",
		fmt.Sprintf("%s produced no result envelope", a.Command), parseErr)
}

func parseEnvelope(data []byte) (execEnvelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return execEnvelope{}, errors.New("empty adapter output")
	}
	// Tools may emit progress lines before the envelope; take the last line.
	lines := bytes.Split(trimmed, []byte("\n"))
	last := bytes.TrimSpace(lines[len(lines)-1])

	var envelope execEnvelope
	if err := json.Unmarshal(last, &envelope); err != nil {
		return execEnvelope{}, fmt.Errorf("parse adapter envelope: %w", err)
	}
	if envelope.Status == "" {
		return execEnvelope{}, errors.New("adapter envelope missing status")
	}
	return envelope, nil
}

func stderrTail(buf *bytes.Buffer) string {
	const maxTail = 512
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return "no stderr output"
	}
	if len(s) > maxTail {
		s = s[len(s)-maxTail:]
	}
	return s
}
