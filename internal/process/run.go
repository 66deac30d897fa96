// Package process runs the external build and screenshot scripts.
//
// Both scripts are black boxes whose contract is fixed by convention:
// positional path arguments in, a document on stdout or files on disk out.
// Run owns the parts every invocation shares: the concurrency gate, the
// timeout, stderr capture, and metrics.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/gate"
	"github.com/yanizio/zitefy/internal/metrics"
)

// Spec describes one configured external command.
type Spec struct {
	Argv    []string      // program and fixed leading args, e.g. bun run scripts/builder.js
	Dir     string        // working directory; empty means the current one
	Timeout time.Duration // zero disables the per-call deadline
	Gate    *gate.Gate    // optional
}

// Run executes spec.Argv followed by args and returns stdout.  Any
// failure, including a non-zero exit, is a *errs.ProcessError.
func Run(ctx context.Context, op string, spec Spec, args ...string) ([]byte, error) {
	if len(spec.Argv) == 0 {
		return nil, &errs.ProcessError{Op: op, Err: errors.New("no command configured")}
	}

	if spec.Gate != nil {
		release, err := spec.Gate.Acquire(ctx)
		if err != nil {
			return nil, &errs.ProcessError{Op: op, Err: fmt.Errorf("wait for slot: %w", err)}
		}
		defer release()
	}

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	argv := append(append([]string{}, spec.Argv[1:]...), args...)
	cmd := exec.CommandContext(ctx, spec.Argv[0], argv...)
	cmd.Dir = spec.Dir
	// Headless browsers fork helpers that inherit our pipes; do not wait on
	// them forever once the parent has been killed.
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ProcessSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProcessTotal.WithLabelValues(op, "error").Inc()
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", err, ctx.Err())
		}
		return nil, &errs.ProcessError{Op: op, Stderr: stderr.String(), Err: err}
	}
	metrics.ProcessTotal.WithLabelValues(op, "ok").Inc()
	return stdout.Bytes(), nil
}
