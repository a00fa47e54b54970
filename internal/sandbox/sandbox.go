// Package sandbox runs generated programs, either in a locked-down Docker
// container or directly on the host.
package sandbox

import (
	"context"
	"time"
)

// Result captures output of a command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner runs commands in a sandboxed environment.
type Runner interface {
	// RunCmd runs a command with dir as its working directory.
	// - ctx: base context for cancellation
	// - dir: directory holding the program and its inputs; mounted into the sandbox
	// - name: executable name, e.g. "python3"
	// - args: arguments, e.g. []string{"harness.py", "sample.pdf"}
	// - timeout: optional timeout (<=0 uses the configured default)
	RunCmd(ctx context.Context, dir, name string, args []string, timeout time.Duration) (Result, error)
}

// maxOutputBytes caps captured stdout and stderr per stream.
const maxOutputBytes = 4 << 20

// limitedBuffer keeps the first maxOutputBytes written and drops the rest.
type limitedBuffer struct {
	buf       []byte
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := maxOutputBytes - len(b.buf)
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf = append(b.buf, p[:room]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	if b.truncated {
		return string(b.buf) + "\n[output truncated]"
	}
	return string(b.buf)
}
