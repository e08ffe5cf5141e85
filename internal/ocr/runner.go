package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// tesseract dumps whole page buffers to stderr on some failures; cap what
// ends up in the log line.
const maxStderrLog = 8 << 10

// Runner abstracts external command execution so tests can stub tesseract.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	log *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	if err := cmd.Run(); err != nil {
		r.log.Error("ocr.exec.failed",
			"cmd", name,
			"error", err,
			"stderr", truncate(errb.String(), maxStderrLog),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out.Bytes(), errb.Bytes(), err
	}

	r.log.Debug("ocr.exec.ok",
		"cmd", name,
		"stdout_bytes", out.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Bytes(), errb.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
