// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/litmusgen/litmusgen/internal/litmus"
)

var gen struct {
	lint bool
}

var cmdGenFlags = flag.NewFlagSet(os.Args[0]+" gen", flag.ExitOnError)

func init() {
	f := cmdGenFlags
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s gen [flags] <base test or directory>...\n", os.Args[0])
		f.PrintDefaults()
	}
	f.StringVar(&tool.ConfigDir, "o", tool.ConfigDir, "write configurations to `dir`")
	f.IntVar(&tool.Parallelism, "p", tool.Parallelism, "expand up to `N` base tests at once")
	f.BoolVar(&gen.lint, "lint", false, "warn about outcomes that are wrong under sequential consistency")
	registerSubcommand("gen", "[flags] <base test or directory>... - expand base tests", cmdGen, f)
}

func cmdGen() error {
	if cmdGenFlags.NArg() < 1 {
		cmdGenFlags.Usage()
		os.Exit(2)
	}
	bases, err := findFiles(cmdGenFlags.Args(), ".yml", ".yaml")
	if err != nil {
		return err
	}

	rep := newReporter("gen")
	rep.StartStatus()
	n, err := generate(bases, tool.ConfigDir, gen.lint, rep)
	rep.StopStatus()

	errs := multierr.Errors(err)
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, err)
	}
	fmt.Printf("%d generated, %d failed\n", n, len(errs))
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d base tests failed", len(errs), len(bases))
	}
	return nil
}

// generate expands each base test into outDir. A base test that fails
// does not stop the others; the returned error combines all failures.
func generate(bases []string, outDir string, lint bool, rep reporter) (int, error) {
	if err := os.MkdirAll(outDir, 0777); err != nil {
		return 0, err
	}

	var (
		mu              sync.Mutex
		errs            error
		generated, done int
	)
	var g errgroup.Group
	g.SetLimit(max(tool.Parallelism, 1))
	for _, path := range bases {
		g.Go(func() error {
			n, err := genOne(path, outDir, lint, rep)
			mu.Lock()
			defer mu.Unlock()
			generated += n
			done++
			errs = multierr.Append(errs, err)
			rep.Status("%d/%d base tests, %d configurations", done, len(bases), generated)
			return nil
		})
	}
	g.Wait()
	return generated, errs
}

func genOne(path, outDir string, lint bool, rep reporter) (int, error) {
	base, err := litmus.Load(path)
	if err != nil {
		return 0, err
	}

	if lint {
		problems, err := litmus.Lint(base)
		for _, p := range problems {
			fmt.Fprintf(rep, "%s: %s\n", path, p)
		}
		if err != nil {
			fmt.Fprintf(rep, "%s: not checked: %v\n", path, err)
		}
	}

	n := 0
	for g := range litmus.Expand(base, baseName(path)) {
		if err := g.Config.Save(filepath.Join(outDir, g.Name+".yml")); err != nil {
			return n, fmt.Errorf("%s: %w", path, err)
		}
		n++
	}
	return n, nil
}
