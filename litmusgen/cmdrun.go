// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/litmusgen/litmusgen/internal/harness"
)

var run struct {
	force bool
}

var cmdRunFlags = flag.NewFlagSet(os.Args[0]+" run", flag.ExitOnError)

func init() {
	f := cmdRunFlags
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s run [flags] [model or directory...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nWith no models, run every rendered model in the -src directory.\n\n")
		f.PrintDefaults()
	}
	m := &tool.Murphi
	f.StringVar(&tool.SrcDir, "src", tool.SrcDir, "find rendered models in `dir`")
	f.StringVar(&m.Mu, "mu", m.Mu, "Murphi compiler `path`")
	f.StringVar(&m.Include, "include", m.Include, "Murphi include `dir`")
	f.StringVar(&m.CXX, "cxx", m.CXX, "C++ compiler `path`")
	f.StringVar(&m.MuFlags, "muflags", m.MuFlags, "pass `flags` to the Murphi compiler")
	f.StringVar(&m.CFlags, "cflags", m.CFlags, "pass `flags` to the C++ compiler")
	f.StringVar(&m.RunFlags, "runflags", m.RunFlags, "pass `flags` to each checker")
	f.StringVar(&m.BuildDir, "build", m.BuildDir, "write checkers to `dir`")
	f.StringVar(&m.LogDir, "logs", m.LogDir, "write failure logs to `dir`")
	f.StringVar(&m.ResultsDir, "results", m.ResultsDir, "record results in `dir`; empty disables")
	f.DurationVar(&m.Timeout, "timeout", m.Timeout, "kill a checker after `duration`; 0 means never")
	f.IntVar(&tool.Parallelism, "p", tool.Parallelism, "run up to `N` checkers at once")
	f.BoolVar(&run.force, "force", false, "rerun models that passed before")
	registerSubcommand("run", "[flags] [model or directory...] - run the model checker", cmdRun, f)
}

func cmdRun() error {
	var models []string
	if cmdRunFlags.NArg() == 0 {
		// Rendered models are named <template>.<config>.m.
		var err error
		models, err = filepath.Glob(filepath.Join(tool.SrcDir, "*.*.m"))
		if err != nil {
			return err
		}
	} else {
		var err error
		models, err = findFiles(cmdRunFlags.Args(), ".m")
		if err != nil {
			return err
		}
	}
	if len(models) == 0 {
		return fmt.Errorf("no models to run")
	}

	var store *harness.Store
	if dir := tool.Murphi.ResultsDir; dir != "" {
		var err error
		store, err = harness.OpenStore(dir)
		if err != nil {
			return fmt.Errorf("opening results: %w", err)
		}
		defer store.Close()
	}

	cfg := tool.harnessConfig()
	cfg.Force = run.force
	h := harness.New(cfg, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep := newReporter("run")
	rep.StartStatus()
	sum, err := h.Run(ctx, models, rep)
	rep.StopStatus()
	if sum != nil {
		sum.Write(os.Stdout)
	}
	if err != nil {
		return err
	}
	if !sum.OK() {
		return fmt.Errorf("%d of %d models failed", len(sum.Failed), len(models))
	}
	return nil
}
