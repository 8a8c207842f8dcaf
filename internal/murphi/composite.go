// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package murphi

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/litmusgen/litmusgen/internal/litmus"
)

// A compositeFunc generates the text of one composite placeholder.
type compositeFunc func(cfg *litmus.Config, set *TemplateSet) (string, error)

var composites = map[string]compositeFunc{
	"FUNC_BODY_ADD_CPU_INSTR": addCPUInstr,
	"FUNC_BODY_FORBIDDEN":     checkForbidden,
	"FUNC_BODY_EXPECTED":      checkExpected,
	"ENUM_CPU_LIST":           cpuList,
	"ENUM_DIR_LIST":           dirList,
	"FUNC_BODY_CPU_NEXT":      cpuNext,
	"FUNC_BODY_ADDR_TO_DIR":   addrToDir,
}

// Composites returns the names of the composite placeholders in
// sorted order.
func Composites() []string {
	names := maps.Keys(composites)
	slices.Sort(names)
	return names
}

const (
	cpuJoin      = "\n\n\t\t\t"
	checkReturn  = "\n\t\treturn true;"
	forbidAction = "return false"
	expectAction = `put "expected outcome appeared"`
)

func cpuName(i int) string { return "CPU" + strconv.Itoa(i) }

func addCPUInstr(cfg *litmus.Config, set *TemplateSet) (string, error) {
	frags := make([]string, 0, len(cfg.Test))
	for _, s := range cfg.Test {
		instrs := make([]string, 0, len(s.Instrs))
		for _, in := range s.Instrs {
			instrs = append(instrs, fill(set.AddOneInstr, map[string]string{
				"INSTR_IDX":  strconv.Itoa(in.Idx),
				"INSTR_ACC":  in.Acc,
				"INSTR_CST":  in.Cst,
				"INSTR_ADDR": strconv.Itoa(in.Addr),
				"INSTR_VAL":  strconv.Itoa(in.Val),
			}))
		}
		frags = append(frags, fill(set.AddCPUInstr, map[string]string{
			"CPU_IDX":                 cpuName(s.CPU),
			"FUNC_BODY_ADD_ONE_INSTR": strings.Join(instrs, "\n"),
			"INSTR_COUNT":             strconv.Itoa(len(s.Instrs)),
		}))
	}
	return strings.Join(frags, cpuJoin), nil
}

func checkForbidden(cfg *litmus.Config, set *TemplateSet) (string, error) {
	if cfg.CheckForbidden != 1 {
		return checkReturn, nil
	}
	if cfg.Forbidden == nil {
		return "", &StructuralError{"FUNC_BODY_FORBIDDEN", "CHECK_FORBIDDEN is set but FORBIDDEN_OUTCOME is missing"}
	}
	clauses := make([]string, 0, len(cfg.Forbidden))
	for i, o := range cfg.Forbidden {
		var conds []string
		for _, l := range o.Loads {
			conds = append(conds, loadCond(set, l))
		}
		for _, v := range o.Vals {
			conds = append(conds, fill(set.CheckOneVal, map[string]string{
				"ADDR": strconv.Itoa(v.Addr),
				"VAL":  strconv.Itoa(v.Val),
			}))
		}
		if len(conds) == 0 {
			return "", &StructuralError{"FUNC_BODY_FORBIDDEN", fmt.Sprintf("forbidden outcome %d has no conditions", i)}
		}
		clauses = append(clauses, clause(set, conds, forbidAction))
	}
	return strings.Join(clauses, "\n") + checkReturn, nil
}

// checkExpected builds the expected-outcome checks. Only load results
// can be expected; final memory values are ignored.
func checkExpected(cfg *litmus.Config, set *TemplateSet) (string, error) {
	if cfg.CheckExpected != 1 {
		return checkReturn, nil
	}
	if cfg.Expected == nil {
		return "", &StructuralError{"FUNC_BODY_EXPECTED", "CHECK_EXPECTED is set but EXPECTED_OUTCOME is missing"}
	}
	clauses := make([]string, 0, len(cfg.Expected))
	for i, o := range cfg.Expected {
		if len(o.Loads) == 0 {
			return "", &StructuralError{"FUNC_BODY_EXPECTED", fmt.Sprintf("expected outcome %d has no LOAD_OUTCOME", i)}
		}
		conds := make([]string, 0, len(o.Loads))
		for _, l := range o.Loads {
			conds = append(conds, loadCond(set, l))
		}
		clauses = append(clauses, clause(set, conds, expectAction))
	}
	return strings.Join(clauses, "\n") + checkReturn, nil
}

func loadCond(set *TemplateSet, l litmus.LoadOutcome) string {
	return fill(set.CheckOneLoad, map[string]string{
		"CPU_IDX":   cpuName(l.CPU),
		"INSTR_IDX": strconv.Itoa(l.Instr),
		"EXP_VAL":   strconv.Itoa(l.Val),
	})
}

func clause(set *TemplateSet, conds []string, action string) string {
	return fill(set.CheckOutcome, map[string]string{
		"LOAD_VAL_COND": strings.Join(conds, " & "),
		"ACTION":        action,
	})
}

func cpuList(cfg *litmus.Config, _ *TemplateSet) (string, error) {
	return enumList("CPU", cfg.CPUCount), nil
}

func dirList(cfg *litmus.Config, _ *TemplateSet) (string, error) {
	return enumList("DIR", cfg.DirCount), nil
}

func enumList(prefix string, n int) string {
	names := make([]string, n)
	for i := range names {
		names[i] = prefix + strconv.Itoa(i)
	}
	return strings.Join(names, ", ")
}

// cpuNext builds the round-robin successor function over the CPUs.
func cpuNext(cfg *litmus.Config, _ *TemplateSet) (string, error) {
	var b strings.Builder
	n := cfg.CPUCount
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "\t\t\tif cur = CPU%d then\n\t\t\t\treturn CPU%d;\n\t\t\tendif;\n", i, (i+1)%n)
	}
	b.WriteString("\t\t\treturn CPU0")
	return b.String(), nil
}

// addrToDir builds the address to directory lookup. Addresses missing
// from ADDR_TO_DIR fall through to DIR0.
func addrToDir(cfg *litmus.Config, _ *TemplateSet) (string, error) {
	var b strings.Builder
	for _, ad := range cfg.AddrToDir {
		fmt.Fprintf(&b, "\t\t\tif adr = %d then\n\t\t\t\treturn DIR%d;\n\t\t\tendif;\n", ad.Addr, ad.Dir)
	}
	b.WriteString("\t\t\treturn DIR0")
	return b.String(), nil
}
