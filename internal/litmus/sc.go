// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"fmt"
	"sort"
	"strings"
)

// MaxSCOps is the largest total instruction count EvalSC will
// explore.
const MaxSCOps = 16

// An Execution is the observable result of one complete run of a
// test: the value returned by every load and the final value of every
// address that was stored to. Addresses never stored to hold 0.
type Execution struct {
	Loads map[Slot]int
	Mem   map[int]int
}

// Satisfies reports whether e meets every condition of o.
func (e Execution) Satisfies(o Outcome) bool {
	for _, l := range o.Loads {
		v, ok := e.Loads[Slot{l.CPU, l.Instr}]
		if !ok || v != l.Val {
			return false
		}
	}
	for _, v := range o.Vals {
		if e.Mem[v.Addr] != v.Val {
			return false
		}
	}
	return true
}

func (e Execution) key() string {
	var parts []string
	for s, v := range e.Loads {
		parts = append(parts, fmt.Sprintf("%s=%d", s, v))
	}
	for a, v := range e.Mem {
		parts = append(parts, fmt.Sprintf("[%d]=%d", a, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// EvalSC returns every distinct execution of c permitted by
// sequential consistency: all instructions of all CPUs execute in
// some total order that respects each CPU's program order, and every
// load returns the most recent store to its address.
//
// Store kinds and consistency classes do not affect SC. Access kinds
// other than loads and stores are treated as no-ops.
func EvalSC(c *Config) ([]Execution, error) {
	total := 0
	for _, s := range c.Test {
		total += len(s.Instrs)
	}
	if total > MaxSCOps {
		return nil, fmt.Errorf("test has %d instructions; SC evaluation is limited to %d", total, MaxSCOps)
	}

	g := &scGlobal{c: c, seen: make(map[string]bool), outcomes: make(map[string]Execution)}
	g.rec(scState{
		pcs:   make([]int, len(c.Test)),
		mem:   make(map[int]int),
		loads: make(map[Slot]int),
	})

	keys := make([]string, 0, len(g.outcomes))
	for k := range g.outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	execs := make([]Execution, len(keys))
	for i, k := range keys {
		execs[i] = g.outcomes[k]
	}
	return execs, nil
}

// scGlobal stores state that is global to an SC evaluation.
type scGlobal struct {
	c *Config

	// seen records visited intermediate states. Different
	// interleavings often reach the same state.
	seen map[string]bool

	outcomes map[string]Execution
}

// scState stores the state of a test at a single point during
// execution.
type scState struct {
	pcs   []int
	mem   map[int]int
	loads map[Slot]int
}

func (s scState) key() string {
	return fmt.Sprint(s.pcs, " ", Execution{s.loads, s.mem}.key())
}

func (s scState) clone() scState {
	ns := scState{
		pcs:   append([]int(nil), s.pcs...),
		mem:   make(map[int]int, len(s.mem)),
		loads: make(map[Slot]int, len(s.loads)),
	}
	for k, v := range s.mem {
		ns.mem[k] = v
	}
	for k, v := range s.loads {
		ns.loads[k] = v
	}
	return ns
}

func (g *scGlobal) rec(s scState) {
	k := s.key()
	if g.seen[k] {
		return
	}
	g.seen[k] = true

	// Pick an instruction to execute next.
	more := false
	for tid, stream := range g.c.Test {
		if s.pcs[tid] >= len(stream.Instrs) {
			continue
		}
		more = true
		in := stream.Instrs[s.pcs[tid]]
		ns := s.clone()
		switch {
		case in.Acc == AccessLoad:
			ns.loads[Slot{stream.CPU, in.Idx}] = ns.mem[in.Addr]
		case in.IsStore():
			ns.mem[in.Addr] = in.Val
		}
		ns.pcs[tid]++
		g.rec(ns)
	}
	if !more {
		// This execution is done.
		e := Execution{s.loads, s.mem}
		g.outcomes[e.key()] = e
	}
}

// Lint checks c for mistakes that make its outcome checks
// meaningless and returns a description of each. Outcome entries
// must name existing load instructions, and a forbidden outcome must
// not be reachable under sequential consistency, since no weaker
// memory model can forbid what SC allows.
func Lint(c *Config) ([]string, error) {
	var problems []string
	checkLoads := func(what string, i int, o Outcome) {
		for _, l := range o.Loads {
			in, ok := c.Instr(l.CPU, l.Instr)
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("%s outcome %d: CPU%d has no instruction %d", what, i, l.CPU, l.Instr))
			case in.Acc != AccessLoad:
				problems = append(problems, fmt.Sprintf("%s outcome %d: CPU%d instruction %d is a %s, not a load", what, i, l.CPU, l.Instr, in.Acc))
			}
		}
	}
	for i, o := range c.Forbidden {
		checkLoads("forbidden", i, o)
	}
	for i, o := range c.Expected {
		checkLoads("expected", i, o)
	}

	if c.CheckForbidden != 1 || len(c.Forbidden) == 0 {
		return problems, nil
	}
	execs, err := EvalSC(c)
	if err != nil {
		return problems, err
	}
	for i, o := range c.Forbidden {
		for _, e := range execs {
			if e.Satisfies(o) {
				problems = append(problems, fmt.Sprintf("forbidden outcome %d is reachable under SC: %s", i, e.key()))
				break
			}
		}
	}
	return problems, nil
}
