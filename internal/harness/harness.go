// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package harness drives the Murphi model checker over rendered
// models.
//
// Each model goes through three steps: the Murphi compiler translates
// it to C++, the C++ compiler builds a checker executable, and the
// executable explores the model's state space. The first two steps
// are skipped when their outputs are newer than their inputs. A
// model passes if all three steps succeed.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/segmentio/fasthash/fnv1a"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Config describes the checker toolchain and how to run it.
type Config struct {
	Mu       string // Murphi compiler
	Include  string // Murphi include directory
	CXX      string // C++ compiler
	MuFlags  string // shell-quoted
	CFlags   string
	RunFlags string

	BuildDir string
	LogDir   string // failure logs; no logs are saved if ""

	Parallelism int
	Timeout     time.Duration // per checker run; 0 means none

	// Force reruns models that passed before.
	Force bool
}

// DefaultConfig returns the flags the checker is normally run with.
func DefaultConfig() Config {
	return Config{
		Mu:          "mu",
		CXX:         "g++",
		MuFlags:     "-b",
		CFlags:      "-O3",
		RunFlags:    "-tv -pr -m2000",
		BuildDir:    "build",
		Parallelism: 1,
	}
}

// ExecFunc runs the command args[0] with arguments args[1:] and
// returns its combined output. A non-nil error means the command
// failed.
type ExecFunc func(ctx context.Context, args []string) ([]byte, error)

// Exec runs commands with os/exec.
func Exec(ctx context.Context, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
}

// A Reporter receives progress from a Harness. Writes may come from
// several goroutines; the Harness serializes them.
type Reporter interface {
	io.Writer
	Status(format string, a ...any)
}

// Harness runs the checker over models.
type Harness struct {
	Config
	Exec  ExecFunc
	Store *Store // optional

	mu     sync.Mutex
	logIdx int
}

// New returns a Harness that runs real commands.
func New(cfg Config, store *Store) *Harness {
	return &Harness{Config: cfg, Exec: Exec, Store: store}
}

// Step names a stage of the checker pipeline.
type Step string

const (
	StepTranslate Step = "translate"
	StepCompile   Step = "compile"
	StepCheck     Step = "check"

	// StepHarness marks a model the harness itself could not
	// process, for example because its results could not be stored.
	StepHarness Step = "harness"
)

// Outcome is the result of checking one model.
type Outcome struct {
	Model    string
	Passed   bool
	Skipped  bool // passed before and unchanged
	Duration time.Duration

	// For failures, the failing step, the tail of its output and
	// where the full output was saved.
	Step    Step
	Tail    string
	LogPath string
}

// Run checks every model and returns the summary. Models that fail do
// not stop the others. The returned error reports problems with the
// harness itself, such as an unusable results store.
func (h *Harness) Run(ctx context.Context, models []string, rep Reporter) (*Summary, error) {
	muFlags, err := shellquote.Split(h.MuFlags)
	if err != nil {
		return nil, fmt.Errorf("parsing Murphi flags: %w", err)
	}
	cFlags, err := shellquote.Split(h.CFlags)
	if err != nil {
		return nil, fmt.Errorf("parsing compiler flags: %w", err)
	}
	runFlags, err := shellquote.Split(h.RunFlags)
	if err != nil {
		return nil, fmt.Errorf("parsing run flags: %w", err)
	}
	if err := os.MkdirAll(h.BuildDir, 0777); err != nil {
		return nil, err
	}
	if h.LogDir != "" {
		if err := os.MkdirAll(h.LogDir, 0777); err != nil {
			return nil, err
		}
	}
	flags := [3][]string{muFlags, cFlags, runFlags}

	var (
		sum  Summary
		errs error
		done int
	)
	var g errgroup.Group
	if h.Parallelism > 0 {
		g.SetLimit(h.Parallelism)
	}
	for _, model := range models {
		g.Go(func() error {
			out, err := h.check(ctx, model, flags, rep)
			h.mu.Lock()
			defer h.mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", model, err))
				out.Passed, out.Skipped = false, false
				if out.Step == "" {
					out.Step = StepHarness
				}
				if out.Tail == "" {
					out.Tail = err.Error() + "\n"
				}
			}
			sum.add(out)
			done++
			rep.Status("%d/%d models checked, %d failed", done, len(models), len(sum.Failed))
			return nil
		})
	}
	g.Wait()
	sum.sort()
	return &sum, errs
}

// check runs the pipeline for one model.
func (h *Harness) check(ctx context.Context, model string, flags [3][]string, rep Reporter) (Outcome, error) {
	out := Outcome{Model: model}

	data, err := os.ReadFile(model)
	if err != nil {
		return out, err
	}
	hash := modelHash(data, flags)
	if h.Store != nil && !h.Force {
		rec, ok, err := h.Store.Get(model)
		if err != nil {
			return out, err
		}
		if ok && rec.Passed && rec.Hash == hash {
			out.Passed, out.Skipped, out.Duration = true, true, rec.Duration
			return out, nil
		}
	}

	base := modelName(model)
	cpp := filepath.Join(h.BuildDir, base+".cpp")
	exe := filepath.Join(h.BuildDir, base)

	start := time.Now()
	fail := func(step Step, output []byte, err error) (Outcome, error) {
		out.Step = step
		out.Duration = time.Since(start)
		err = h.failed(&out, output, err, rep)
		return out, err
	}

	if stale(model, cpp) {
		args := append(append([]string{h.Mu}, flags[0]...), model)
		if output, err := h.Exec(ctx, args); err != nil {
			return fail(StepTranslate, output, err)
		}
		// mu writes the C++ next to the model.
		gen := strings.TrimSuffix(model, filepath.Ext(model)) + ".cpp"
		if err := os.Rename(gen, cpp); err != nil {
			return fail(StepTranslate, nil, err)
		}
	}
	if stale(cpp, exe) {
		args := append([]string{h.CXX}, flags[1]...)
		args = append(args, "-o", exe, cpp)
		if h.Include != "" {
			args = append(args, "-I"+h.Include)
		}
		if output, err := h.Exec(ctx, args); err != nil {
			return fail(StepCompile, output, err)
		}
	}

	runCtx := ctx
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	output, err := h.Exec(runCtx, append([]string{exe}, flags[2]...))
	if err == nil && runCtx.Err() != nil {
		err = runCtx.Err()
	}
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = errTimeout
		}
		return fail(StepCheck, output, err)
	}

	out.Passed = true
	out.Duration = time.Since(start)
	if h.Store != nil {
		rec := Record{Hash: hash, Passed: true, Duration: out.Duration, When: time.Now()}
		if err := h.Store.Put(model, rec); err != nil {
			return out, err
		}
	}
	return out, nil
}

var errTimeout = errors.New("timeout")

// modelHash identifies a model's text together with the flags of
// every step. Lengths are mixed in so no two flag lists collide by
// concatenation.
func modelHash(data []byte, flags [3][]string) uint64 {
	hash := fnv1a.HashBytes64(data)
	for _, f := range flags {
		hash = fnv1a.AddUint64(hash, uint64(len(f)))
		for _, arg := range f {
			hash = fnv1a.AddUint64(hash, uint64(len(arg)))
			hash = fnv1a.AddString64(hash, arg)
		}
	}
	return hash
}

// failed records a failing step: it prints the tail of the output and
// saves the full output to the log directory.
func (h *Harness) failed(out *Outcome, output []byte, err error, rep Reporter) error {
	if len(output) > 0 && output[len(output)-1] != '\n' {
		output = append(output, '\n')
	}
	output = append(output, []byte(describe(err)+"\n")...)

	var tail strings.Builder
	printTail(&tail, output)
	out.Tail = tail.String()

	if h.Store != nil {
		rec := Record{Passed: false, Duration: out.Duration, When: time.Now()}
		if err := h.Store.Put(out.Model, rec); err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(rep, "%s: %s failed\n%s", out.Model, out.Step, out.Tail)
	if h.LogDir == "" {
		return nil
	}
	path, err := saveLog(h.LogDir, &h.logIdx, output)
	if err != nil {
		return fmt.Errorf("saving log: %w", err)
	}
	out.LogPath = path
	fmt.Fprintf(rep, "full output written to %s\n", path)
	return nil
}

// describe formats the way a step failed.
func describe(err error) string {
	var ee *exec.ExitError
	switch {
	case errors.Is(err, errTimeout):
		return "timeout"
	case errors.As(err, &ee):
		return "exited: " + formatProcessState(ee.ProcessState)
	}
	return "error: " + err.Error()
}

// modelName returns the base name of model without its extension.
func modelName(model string) string {
	return strings.TrimSuffix(filepath.Base(model), filepath.Ext(model))
}

// stale reports whether dst is missing or older than src.
func stale(src, dst string) bool {
	si, err := os.Stat(src)
	if err != nil {
		// Let the step report the missing input.
		return true
	}
	di, err := os.Stat(dst)
	if err != nil {
		return true
	}
	return si.ModTime().After(di.ModTime())
}
