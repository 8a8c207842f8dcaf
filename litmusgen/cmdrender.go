// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/litmusgen/litmusgen/internal/litmus"
	"github.com/litmusgen/litmusgen/internal/murphi"
)

var render struct {
	strict bool
}

var cmdRenderFlags = flag.NewFlagSet(os.Args[0]+" render", flag.ExitOnError)

func init() {
	f := cmdRenderFlags
	f.Usage = func() {
		renderUsage(os.Stderr)
		f.PrintDefaults()
	}
	f.StringVar(&tool.ConfigDir, "c", tool.ConfigDir, "read configurations from `dir` if none are named")
	f.StringVar(&tool.TemplateDir, "t", tool.TemplateDir, "read sub-templates from `dir`")
	f.StringVar(&tool.SrcDir, "o", tool.SrcDir, "write models to `dir`")
	f.IntVar(&tool.Parallelism, "p", tool.Parallelism, "render up to `N` models at once")
	f.BoolVar(&render.strict, "strict", false, "fail on unresolved placeholders")
	registerSubcommand("render", "[flags] <template.m> [config or directory...] - render Murphi models", cmdRender, f)
}

func renderUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s render [flags] <template.m> [config or directory...]\n", os.Args[0])
	fmt.Fprintf(w, "\nWith no configurations, render every configuration in the -c directory.\n")
	fmt.Fprintf(w, "\nBesides the configuration's own keys, templates may use:\n")
	for _, name := range murphi.Composites() {
		fmt.Fprintf(w, "\t{{%s}}\n", name)
	}
	fmt.Fprintf(w, "\n")
}

func cmdRender() error {
	if cmdRenderFlags.NArg() < 1 {
		cmdRenderFlags.Usage()
		os.Exit(2)
	}
	tmplPath := cmdRenderFlags.Arg(0)
	args := cmdRenderFlags.Args()[1:]
	if len(args) == 0 {
		args = []string{tool.ConfigDir}
	}
	configs, err := findFiles(args, ".yml", ".yaml")
	if err != nil {
		return err
	}

	rep := newReporter("render")
	rep.StartStatus()
	n, err := renderAll(tmplPath, tool.TemplateDir, configs, tool.SrcDir, murphi.Options{Strict: render.strict}, rep)
	rep.StopStatus()

	errs := multierr.Errors(err)
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, err)
	}
	fmt.Printf("%d rendered, %d failed\n", n, len(errs))
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d models failed", len(errs), len(configs))
	}
	return nil
}

// renderAll renders the template at tmplPath once for each
// configuration, writing models to outDir. A configuration that fails
// does not stop the others; the returned error combines all failures.
func renderAll(tmplPath, setDir string, configs []string, outDir string, opts murphi.Options, rep reporter) (int, error) {
	if filepath.Ext(tmplPath) != ".m" {
		return 0, fmt.Errorf("template %s must be a .m file", tmplPath)
	}
	data, err := os.ReadFile(tmplPath)
	if err != nil {
		return 0, err
	}
	tmpl := string(data)
	set, err := murphi.LoadTemplateSet(setDir)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outDir, 0777); err != nil {
		return 0, err
	}

	var (
		mu             sync.Mutex
		errs           error
		rendered, done int
	)
	var g errgroup.Group
	g.SetLimit(max(tool.Parallelism, 1))
	for _, path := range configs {
		g.Go(func() error {
			err := renderOne(tmpl, tmplPath, set, path, outDir, opts, rep)
			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				errs = multierr.Append(errs, err)
			} else {
				rendered++
			}
			rep.Status("%d/%d configurations rendered", done, len(configs))
			return nil
		})
	}
	g.Wait()
	return rendered, errs
}

func renderOne(tmpl, tmplPath string, set *murphi.TemplateSet, path, outDir string, opts murphi.Options, rep reporter) error {
	cfg, err := litmus.Load(path)
	if err != nil {
		return err
	}
	res, err := murphi.Render(tmpl, set, cfg, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(res.Unresolved) > 0 {
		fmt.Fprintf(rep, "%s: unresolved placeholders: %s\n", path, strings.Join(res.Unresolved, ", "))
	}
	return os.WriteFile(filepath.Join(outDir, murphi.OutputName(tmplPath, path)), []byte(res.Text), 0666)
}
