package multimodal

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"fiscaldoc/internal/logger"
)

// Runner executes external commands. Tests stub it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct {
	Logger *zap.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	l := r.Logger
	if l == nil {
		l = zap.NewNop()
	}
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		l.Error("exec failed",
			zap.String("cmd", name),
			zap.String("args", strings.Join(args, " ")),
			zap.Int64(logger.FieldDurationMS, dur.Milliseconds()),
			zap.Error(err),
			zap.String("stderr", truncate(errb.String(), 8<<10)))
	} else {
		l.Debug("exec ok",
			zap.String("cmd", name),
			zap.String("args", strings.Join(args, " ")),
			zap.Int64(logger.FieldDurationMS, dur.Milliseconds()),
			zap.Int("stdout_bytes", out.Len()))
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
