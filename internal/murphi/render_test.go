// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package murphi

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/litmusgen/litmusgen/internal/litmus"
)

// testSet is a compact template set that makes expected output easy
// to write down.
var testSet = &TemplateSet{
	AddCPUInstr:  "{{CPU_IDX}}:{{INSTR_COUNT}}:{{FUNC_BODY_ADD_ONE_INSTR}}",
	AddOneInstr:  "{{INSTR_IDX}} {{INSTR_ACC}} {{INSTR_CST}} {{INSTR_ADDR}} {{INSTR_VAL}}",
	CheckOutcome: "if {{LOAD_VAL_COND}} then {{ACTION}}; endif;",
	CheckOneLoad: "{{CPU_IDX}}[{{INSTR_IDX}}]={{EXP_VAL}}",
	CheckOneVal:  "mem[{{ADDR}}]={{VAL}}",
}

func loadMP(t *testing.T) *litmus.Config {
	t.Helper()
	c, err := litmus.Load(filepath.Join("testdata", "mp.yml"))
	require.NoError(t, err)
	return c
}

func render(t *testing.T, tmpl string, cfg *litmus.Config) *Result {
	t.Helper()
	res, err := Render(tmpl, testSet, cfg, Options{})
	require.NoError(t, err)
	return res
}

func TestEnumLists(t *testing.T) {
	cfg := &litmus.Config{CPUCount: 3, DirCount: 2}
	res := render(t, "{{ENUM_CPU_LIST}}|{{ ENUM_DIR_LIST }}", cfg)
	require.Equal(t, "CPU0, CPU1, CPU2|DIR0, DIR1", res.Text)
	require.Empty(t, res.Unresolved)

	res = render(t, "<{{ENUM_DIR_LIST}}>", &litmus.Config{})
	require.Equal(t, "<>", res.Text)
}

func TestCPUNext(t *testing.T) {
	res := render(t, "{{FUNC_BODY_CPU_NEXT}}", &litmus.Config{CPUCount: 2})
	require.Equal(t,
		"\t\t\tif cur = CPU0 then\n\t\t\t\treturn CPU1;\n\t\t\tendif;\n"+
			"\t\t\tif cur = CPU1 then\n\t\t\t\treturn CPU0;\n\t\t\tendif;\n"+
			"\t\t\treturn CPU0",
		res.Text)

	res = render(t, "{{FUNC_BODY_CPU_NEXT}}", &litmus.Config{CPUCount: 1})
	require.Equal(t, "\t\t\tif cur = CPU0 then\n\t\t\t\treturn CPU0;\n\t\t\tendif;\n\t\t\treturn CPU0", res.Text)
}

func TestAddrToDir(t *testing.T) {
	res := render(t, "{{FUNC_BODY_ADDR_TO_DIR}}", loadMP(t))
	require.Equal(t,
		"\t\t\tif adr = 0 then\n\t\t\t\treturn DIR0;\n\t\t\tendif;\n"+
			"\t\t\tif adr = 1 then\n\t\t\t\treturn DIR0;\n\t\t\tendif;\n"+
			"\t\t\treturn DIR0",
		res.Text)

	res = render(t, "{{FUNC_BODY_ADDR_TO_DIR}}", &litmus.Config{})
	require.Equal(t, "\t\t\treturn DIR0", res.Text)
}

func TestAddCPUInstr(t *testing.T) {
	res := render(t, "{{FUNC_BODY_ADD_CPU_INSTR}}", loadMP(t))
	require.Equal(t,
		"CPU0:2:0 store RLX 0 1\n1 store REL 1 1"+
			"\n\n\t\t\t"+
			"CPU1:2:0 load ACQ 1 0\n1 load RLX 0 0",
		res.Text)
}

func TestCheckDisabled(t *testing.T) {
	cfg := loadMP(t)
	cfg.CheckForbidden = 0
	cfg.CheckExpected = 2
	res := render(t, "{{FUNC_BODY_FORBIDDEN}}|{{FUNC_BODY_EXPECTED}}", cfg)
	require.Equal(t, "\n\t\treturn true;|\n\t\treturn true;", res.Text)
}

func TestCheckForbidden(t *testing.T) {
	cfg := &litmus.Config{
		CheckForbidden: 1,
		Forbidden: []litmus.Outcome{
			{Loads: []litmus.LoadOutcome{{CPU: 1, Instr: 0, Val: 1}, {CPU: 1, Instr: 1, Val: 0}}},
			{Loads: []litmus.LoadOutcome{{CPU: 0, Instr: 1, Val: 0}}, Vals: []litmus.ValOutcome{{Addr: 0, Val: 0}}},
			{Vals: []litmus.ValOutcome{{Addr: 2, Val: 5}}},
		},
	}
	res := render(t, "{{FUNC_BODY_FORBIDDEN}}", cfg)
	require.Equal(t,
		"if CPU1[0]=1 & CPU1[1]=0 then return false; endif;\n"+
			"if CPU0[1]=0 & mem[0]=0 then return false; endif;\n"+
			"if mem[2]=5 then return false; endif;"+
			"\n\t\treturn true;",
		res.Text)

	cfg.Forbidden = []litmus.Outcome{}
	res = render(t, "{{FUNC_BODY_FORBIDDEN}}", cfg)
	require.Equal(t, "\n\t\treturn true;", res.Text)
}

func TestCheckExpected(t *testing.T) {
	cfg := loadMP(t)
	// Final values in expected outcomes are not checked.
	cfg.Expected[0].Vals = []litmus.ValOutcome{{Addr: 0, Val: 1}}
	res := render(t, "{{FUNC_BODY_EXPECTED}}", cfg)
	require.Equal(t,
		`if CPU1[0]=1 & CPU1[1]=1 then put "expected outcome appeared"; endif;`+"\n\t\treturn true;",
		res.Text)
}

func TestStructuralErrors(t *testing.T) {
	for _, test := range []struct {
		name        string
		placeholder string
		cfg         *litmus.Config
	}{
		{"forbidden missing", "FUNC_BODY_FORBIDDEN", &litmus.Config{CheckForbidden: 1}},
		{"expected missing", "FUNC_BODY_EXPECTED", &litmus.Config{CheckExpected: 1}},
		{"empty forbidden clause", "FUNC_BODY_FORBIDDEN", &litmus.Config{
			CheckForbidden: 1,
			Forbidden:      []litmus.Outcome{{}},
		}},
		{"expected without loads", "FUNC_BODY_EXPECTED", &litmus.Config{
			CheckExpected: 1,
			Expected:      []litmus.Outcome{{Vals: []litmus.ValOutcome{{Addr: 0, Val: 1}}}},
		}},
	} {
		t.Run(test.name, func(t *testing.T) {
			res, err := Render("x {{"+test.placeholder+"}} y", testSet, test.cfg, Options{})
			require.Nil(t, res)
			var serr *StructuralError
			require.True(t, errors.As(err, &serr), "got %v", err)
			require.Equal(t, test.placeholder, serr.Placeholder)
		})
	}
}

func TestScalars(t *testing.T) {
	cfg := loadMP(t)
	tmpl := "net={{NET_MAX}} cpus={{ CPU_COUNT }} ts={{TS_MAX}} {{FOO}}{{TS_MAX}}{{ FOO }}"
	res := render(t, tmpl, cfg)
	require.Equal(t, "net=3 cpus=2 ts={{TS_MAX}} {{FOO}}{{TS_MAX}}{{ FOO }}", res.Text)
	require.Equal(t, []string{"TS_MAX", "FOO"}, res.Unresolved)

	ts := 4
	cfg.TSMax = &ts
	res = render(t, tmpl, cfg)
	require.Equal(t, "net=3 cpus=2 ts=4 {{FOO}}4{{ FOO }}", res.Text)
	require.Equal(t, []string{"FOO"}, res.Unresolved)
}

func TestStrict(t *testing.T) {
	res, err := Render("a {{MISSING}} {{CPU_COUNT}}", testSet, loadMP(t), Options{Strict: true})
	var uerr *UnresolvedError
	require.True(t, errors.As(err, &uerr), "got %v", err)
	require.Equal(t, []string{"MISSING"}, uerr.Names)
	require.NotNil(t, res)
	require.Equal(t, "a {{MISSING}} 2", res.Text)

	res, err = Render("{{CPU_COUNT}}", testSet, loadMP(t), Options{Strict: true})
	require.NoError(t, err)
	require.Equal(t, "2", res.Text)
}

func TestNoRescan(t *testing.T) {
	cfg := loadMP(t)
	cfg.Extra["A"] = "{{B}}"
	cfg.Extra["B"] = "b"
	res := render(t, "{{A}} {{B}}", cfg)
	require.Equal(t, "{{B}} b", res.Text)
	require.Empty(t, res.Unresolved)

	// Sub-template values are not rescanned either.
	cfg.Test[0].Instrs[0].Cst = "{{INSTR_VAL}}"
	res = render(t, "{{FUNC_BODY_ADD_CPU_INSTR}}", cfg)
	require.True(t, strings.HasPrefix(res.Text, "CPU0:2:0 store {{INSTR_VAL}} 0 1\n"), "got %q", res.Text)
}

func TestRenderModel(t *testing.T) {
	set, err := LoadTemplateSet(filepath.Join("testdata", "template"))
	require.NoError(t, err)
	require.Equal(t, "LoadVal({{CPU_IDX}}, {{INSTR_IDX}}) = {{EXP_VAL}}", set.CheckOneLoad)
	data, err := os.ReadFile(filepath.Join("testdata", "model.m"))
	require.NoError(t, err)
	tmpl := string(data)

	base := loadMP(t)
	res, err := Render(tmpl, set, base, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"TS_MAX", "CNT_MAX"}, res.Unresolved)

	n := 0
	for g := range litmus.Expand(base, "mp") {
		res, err := Render(tmpl, set, g.Config, Options{Strict: true})
		require.NoError(t, err, g.Name)
		require.NotContains(t, res.Text, "{{")
		require.Contains(t, res.Text, "TS_MAX: "+map[string]string{"of": "1", "nof": "4"}[g.Profile.Name]+";")
		require.Contains(t, res.Text, "CPU: enum { CPU0, CPU1 };")
		require.Contains(t, res.Text, "\t\t\tcpu := CPU1;\n\t\t\tAddInstr(cpu, 0, load, ACQ, 1, 0);")
		require.Contains(t, res.Text, "\t\tif LoadVal(CPU1, 0) = 1 & LoadVal(CPU1, 1) = 0 then\n\t\t\treturn false;\n\t\tendif;\n\t\treturn true;")

		again, err := Render(tmpl, set, g.Config, Options{Strict: true})
		require.NoError(t, err)
		require.Equal(t, res.Text, again.Text)
		n++
	}
	require.Equal(t, 8, n)
}

func TestLoadTemplateSetMissing(t *testing.T) {
	_, err := LoadTemplateSet(t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOutputName(t *testing.T) {
	require.Equal(t, "msi.mp.a2d01.st0.of.m", OutputName("src/template/msi.m", "configs/mp.a2d01.st0.of.yml"))
	require.Equal(t, "msi.sb.m", OutputName("msi.m", "sb.yaml"))
}

func TestComposites(t *testing.T) {
	require.Equal(t, []string{
		"ENUM_CPU_LIST",
		"ENUM_DIR_LIST",
		"FUNC_BODY_ADDR_TO_DIR",
		"FUNC_BODY_ADD_CPU_INSTR",
		"FUNC_BODY_CPU_NEXT",
		"FUNC_BODY_EXPECTED",
		"FUNC_BODY_FORBIDDEN",
	}, Composites())
}

func TestRenderSavedConfig(t *testing.T) {
	base, err := litmus.Parse([]byte(`ADR_COUNT: 1
DIR_COUNT: 1
CPU_COUNT: 1
LITMUS_TEST:
  - CPU_IDX: 0
    INSTR_STREAM:
      - {INSTR_IDX: 0, INSTR_ACC: store, INSTR_CST: REL, INSTR_ADDR: 0, INSTR_VAL: 1}
ADDR_TO_DIR:
  - {ADDR: 0, DIR: 0}
CHECK_FORBIDDEN: 1
FORBIDDEN_OUTCOME: []
`))
	require.NoError(t, err)
	tmpl := "f={{CHECK_FORBIDDEN}} e={{CHECK_EXPECTED}}{{FUNC_BODY_FORBIDDEN}}{{FUNC_BODY_EXPECTED}}"
	want := render(t, tmpl, base)
	require.Equal(t, "f=1 e=0\n\t\treturn true;\n\t\treturn true;", want.Text)
	require.Empty(t, want.Unresolved)

	// Every generated configuration, once saved and reloaded, renders
	// exactly like its base.
	dir := t.TempDir()
	n := 0
	for g := range litmus.Expand(base, "rel") {
		path := filepath.Join(dir, g.Name+".yml")
		require.NoError(t, g.Config.Save(path))
		back, err := litmus.Load(path)
		require.NoError(t, err)
		got, err := Render(tmpl, testSet, back, Options{Strict: true})
		require.NoError(t, err, g.Name)
		require.Equal(t, want.Text, got.Text, g.Name)
		n++
	}
	require.Equal(t, 2, n)
}
