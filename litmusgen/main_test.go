// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/litmusgen/litmusgen/internal/litmus"
	"github.com/litmusgen/litmusgen/internal/murphi"
)

func testReporter() (*reporterDumb, *strings.Builder) {
	var out strings.Builder
	return &reporterDumb{w: &out}, &out
}

func TestPipeline(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "configs")
	srcDir := filepath.Join(dir, "src")

	bases, err := findFiles([]string{filepath.Join("testdata", "base")}, ".yml", ".yaml")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join("testdata", "base", "mp.yml"),
		filepath.Join("testdata", "base", "sb.yml"),
	}, bases)

	rep, out := testReporter()
	n, err := generate(bases, configDir, true, rep)
	require.NoError(t, err)
	// mp has one relaxed store, sb two; both have two addresses.
	require.Equal(t, 2*2*2+2*4*2, n)
	require.NotContains(t, out.String(), "reachable")

	cfg, err := litmus.Load(filepath.Join(configDir, "sb.a2d0_1.st10.nof.yml"))
	require.NoError(t, err)
	require.Equal(t, "nt_store", cfg.Test[0].Instrs[0].Acc)
	require.Equal(t, "store", cfg.Test[1].Instrs[0].Acc)
	require.Equal(t, []litmus.AddrDir{{Addr: 0, Dir: 0}, {Addr: 1, Dir: 1}}, cfg.AddrToDir)
	require.Equal(t, 4, *cfg.TSMax)

	configs, err := findFiles([]string{configDir}, ".yml")
	require.NoError(t, err)
	require.Len(t, configs, n)
	rendered, err := renderAll(filepath.Join("testdata", "msi.m"), filepath.Join("testdata", "template"), configs, srcDir, murphi.Options{Strict: true}, rep)
	require.NoError(t, err)
	require.Equal(t, n, rendered)

	model, err := os.ReadFile(filepath.Join(srcDir, "msi.sb.a2d0_1.st10.nof.m"))
	require.NoError(t, err)
	require.Contains(t, string(model), "AddInstr(cpu, 0, nt_store, RLX, 0, 1);")
	require.Contains(t, string(model), "\t\t\tif adr = 1 then\n\t\t\t\treturn DIR1;\n")
	require.NotContains(t, string(model), "{{")
}

func TestGenerateBadBase(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("ADR_COUNT: [1\n"), 0666))

	rep, _ := testReporter()
	n, err := generate([]string{bad, filepath.Join("testdata", "base", "mp.yml")}, filepath.Join(dir, "out"), false, rep)
	require.Equal(t, 8, n)
	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "bad.yml")
}

func TestGenerateLint(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "weak.yml")
	// Forbids an outcome sequential consistency allows.
	require.NoError(t, os.WriteFile(base, []byte(`ADR_COUNT: 1
DIR_COUNT: 1
CPU_COUNT: 2
LITMUS_TEST:
  - CPU_IDX: 0
    INSTR_STREAM:
      - {INSTR_IDX: 0, INSTR_ACC: store, INSTR_CST: RLX, INSTR_ADDR: 0, INSTR_VAL: 1}
  - CPU_IDX: 1
    INSTR_STREAM:
      - {INSTR_IDX: 0, INSTR_ACC: load, INSTR_CST: RLX, INSTR_ADDR: 0, INSTR_VAL: 0}
ADDR_TO_DIR:
  - {ADDR: 0, DIR: 0}
CHECK_FORBIDDEN: 1
FORBIDDEN_OUTCOME:
  - LOAD_OUTCOME:
      - {CPU_IDX: 1, INSTR_IDX: 0, INSTR_VAL: 1}
`), 0666))

	rep, out := testReporter()
	n, err := generate([]string{base}, filepath.Join(dir, "out"), true, rep)
	require.NoError(t, err)
	require.Equal(t, 1*2*2, n)
	require.Contains(t, out.String(), base+": forbidden outcome 0 is reachable under SC")
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yml")
	require.NoError(t, os.WriteFile(broken, []byte("CPU_COUNT: 1\nCHECK_FORBIDDEN: 1\n"), 0666))
	good := filepath.Join("testdata", "base", "mp.yml")
	set := filepath.Join("testdata", "template")
	tmpl := filepath.Join("testdata", "msi.m")

	rep, out := testReporter()
	n, err := renderAll(tmpl, set, []string{broken, good}, dir, murphi.Options{}, rep)
	require.Equal(t, 1, n)
	var serr *murphi.StructuralError
	require.True(t, errors.As(err, &serr), "got %v", err)
	require.Equal(t, "FUNC_BODY_FORBIDDEN", serr.Placeholder)
	// Base tests have no overflow limits yet.
	require.Contains(t, out.String(), good+": unresolved placeholders: TS_MAX, CNT_MAX")
	require.FileExists(t, filepath.Join(dir, "msi.mp.m"))

	n, err = renderAll(tmpl, set, []string{good}, filepath.Join(dir, "strict"), murphi.Options{Strict: true}, rep)
	require.Equal(t, 0, n)
	var uerr *murphi.UnresolvedError
	require.True(t, errors.As(err, &uerr), "got %v", err)
	require.NoFileExists(t, filepath.Join(dir, "strict", "msi.mp.m"))

	_, err = renderAll(filepath.Join("testdata", "base", "mp.yml"), set, []string{good}, dir, murphi.Options{}, rep)
	require.Error(t, err)
}

func TestRenderUsage(t *testing.T) {
	var buf strings.Builder
	renderUsage(&buf)
	for _, name := range murphi.Composites() {
		require.Contains(t, buf.String(), "\t{{"+name+"}}\n")
	}
	require.Contains(t, buf.String(), "{{FUNC_BODY_FORBIDDEN}}")
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yml", "b.yaml", "notes.txt", "sub/c.yml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
		require.NoError(t, os.WriteFile(path, nil, 0666))
	}
	files, err := findFiles([]string{dir, filepath.Join(dir, "a.yml"), filepath.Join(dir, "notes.txt")}, ".yml", ".yaml")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "sub", "c.yml"),
	}, files)

	_, err = findFiles([]string{filepath.Join(dir, "missing")}, ".yml")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestToolConfigLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "litmusgen.yml")
	require.NoError(t, os.WriteFile(path, []byte(`src_dir: models
parallelism: 3
murphi:
  mu: /opt/cmurphi/src/mu
  run_flags: -tv -pr -m4000
  timeout: 30m
`), 0666))

	c := defaultToolConfig()
	require.NoError(t, c.load(path))
	require.Equal(t, "models", c.SrcDir)
	require.Equal(t, "configs", c.ConfigDir)
	require.Equal(t, 3, c.Parallelism)
	require.Equal(t, "/opt/cmurphi/src/mu", c.Murphi.Mu)
	require.Equal(t, "g++", c.Murphi.CXX)
	require.Equal(t, 30*time.Minute, c.Murphi.Timeout)

	h := c.harnessConfig()
	require.Equal(t, "-tv -pr -m4000", h.RunFlags)
	require.Equal(t, "-b", h.MuFlags)
	require.Equal(t, 3, h.Parallelism)

	require.Error(t, c.load(filepath.Join(t.TempDir(), "missing.yml")))
}
