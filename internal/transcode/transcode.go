// Package transcode runs an external media tool (ffmpeg by default) over a
// provider output to produce the stored artifact format.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var commandContext = exec.CommandContext

// TranscodeError reports a failed tool run. Stderr holds the tool's
// diagnostic output when it ran.
type TranscodeError struct {
	Stage  string
	Stderr string
	Err    error
}

func (e *TranscodeError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("transcode %s: %v: %s", e.Stage, e.Err, e.Stderr)
	}
	return fmt.Sprintf("transcode %s: %v", e.Stage, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// Job is one conversion. Name keys the scratch files, so concurrent jobs
// with the same Name and extensions share them.
type Job struct {
	Name      string
	InputExt  string
	OutputExt string
	Args      []string
	Input     []byte
}

// Option configures the Runner.
type Option func(*Runner)

// WithBinary overrides the default tool name.
func WithBinary(binary string) Option {
	return func(r *Runner) {
		if binary != "" {
			r.binary = binary
		}
	}
}

// WithScratchDir sets the directory input and output files are written to.
func WithScratchDir(dir string) Option {
	return func(r *Runner) {
		if dir != "" {
			r.scratchDir = dir
		}
	}
}

// Runner invokes the tool as `<bin> -i <in> <args...> -y <out>`.
type Runner struct {
	binary     string
	scratchDir string
}

// NewRunner constructs a Runner using ffmpeg and ./tmp by default.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{binary: "ffmpeg", scratchDir: "tmp"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary returns the tool the runner invokes.
func (r *Runner) Binary() string { return r.binary }

// Transcode writes job.Input to the scratch dir, runs the tool, and returns
// the produced output. Both scratch files are removed before returning,
// whatever the outcome.
func (r *Runner) Transcode(ctx context.Context, job Job) ([]byte, error) {
	if job.Name == "" || job.InputExt == "" || job.OutputExt == "" {
		return nil, &TranscodeError{Stage: "prepare", Err: errors.New("name and extensions are required")}
	}
	if err := os.MkdirAll(r.scratchDir, 0o755); err != nil {
		return nil, &TranscodeError{Stage: "prepare", Err: err}
	}

	in, out := scratchPaths(r.scratchDir, job)
	defer func() {
		_ = os.Remove(in)
		_ = os.Remove(out)
	}()

	if err := os.WriteFile(in, job.Input, 0o644); err != nil {
		return nil, &TranscodeError{Stage: "write input", Err: err}
	}

	args := make([]string, 0, len(job.Args)+4)
	args = append(args, "-i", in)
	args = append(args, job.Args...)
	args = append(args, "-y", out)

	var stderr bytes.Buffer
	cmd := commandContext(ctx, r.binary, args...) //nolint:gosec
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &TranscodeError{Stage: "start", Err: fmt.Errorf("%s failed to execute (is it installed?): %w", r.binary, err)}
		}
		return nil, &TranscodeError{Stage: "run", Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, &TranscodeError{Stage: "read output", Err: err}
	}
	return data, nil
}

// scratchPaths names the job's input and output files. The output carries
// an ".out" suffix when both extensions match so the tool never writes over
// its own input.
func scratchPaths(dir string, job Job) (in, out string) {
	inExt := strings.TrimPrefix(job.InputExt, ".")
	outExt := strings.TrimPrefix(job.OutputExt, ".")
	in = filepath.Join(dir, job.Name+"."+inExt)
	if strings.EqualFold(inExt, outExt) {
		return in, filepath.Join(dir, job.Name+".out."+outExt)
	}
	return in, filepath.Join(dir, job.Name+"."+outExt)
}
