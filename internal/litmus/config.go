// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package litmus models litmus-test configuration documents and
// expands a base test into every concrete instantiation the model
// checker should explore.
//
// A configuration is a YAML document. The keys are the ones used by
// existing test suites:
//
//	ADR_COUNT: 2
//	DIR_COUNT: 2
//	CPU_COUNT: 2
//	LITMUS_TEST:
//	- CPU_IDX: 0
//	  INSTR_STREAM:
//	  - {INSTR_IDX: 0, INSTR_ACC: store, INSTR_CST: RLX, INSTR_ADDR: 0, INSTR_VAL: 1}
//	  - {INSTR_IDX: 1, INSTR_ACC: store, INSTR_CST: REL, INSTR_ADDR: 1, INSTR_VAL: 1}
//	...
//	ADDR_TO_DIR:
//	- {ADDR: 0, DIR: 0}
//	CHECK_FORBIDDEN: 1
//	FORBIDDEN_OUTCOME:
//	- LOAD_OUTCOME:
//	  - {CPU_IDX: 1, INSTR_IDX: 0, INSTR_VAL: 1}
//
// Keys this package does not know about are preserved and written
// back unchanged, so they remain available to templates.
package litmus

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Access kinds.
const (
	AccessLoad = "load"
)

// Consistency classes.
const (
	Relaxed = "RLX"
	Acquire = "ACQ"
	Release = "REL"
)

// Config is a litmus-test configuration. A base configuration is the
// input to Expand; a generated configuration is one of its outputs
// with the directory map, store kinds and overflow limits filled in.
type Config struct {
	AdrCount int `yaml:"ADR_COUNT"`
	DirCount int `yaml:"DIR_COUNT"`
	CPUCount int `yaml:"CPU_COUNT"`

	Test      []CPUStream `yaml:"LITMUS_TEST"`
	AddrToDir []AddrDir   `yaml:"ADDR_TO_DIR"`

	// A missing check flag reads as 0 and is written back as 0, so
	// base and generated configurations resolve it alike.
	CheckForbidden int      `yaml:"CHECK_FORBIDDEN"`
	Forbidden      Outcomes `yaml:"FORBIDDEN_OUTCOME,omitempty"`
	CheckExpected  int      `yaml:"CHECK_EXPECTED"`
	Expected       Outcomes `yaml:"EXPECTED_OUTCOME,omitempty"`

	// TSMax and CntMax are nil in base configurations.
	TSMax  *int `yaml:"TS_MAX,omitempty"`
	CntMax *int `yaml:"CNT_MAX,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

// CPUStream is the program of one CPU, in program order.
type CPUStream struct {
	CPU    int     `yaml:"CPU_IDX"`
	Instrs []Instr `yaml:"INSTR_STREAM"`

	Extra map[string]any `yaml:",inline"`
}

// Instr is a single memory instruction.
type Instr struct {
	Idx  int    `yaml:"INSTR_IDX"`
	Acc  string `yaml:"INSTR_ACC"`
	Cst  string `yaml:"INSTR_CST"`
	Addr int    `yaml:"INSTR_ADDR"`
	Val  int    `yaml:"INSTR_VAL"`

	Extra map[string]any `yaml:",inline"`
}

// IsStore reports whether in writes memory, whatever its store kind.
func (in Instr) IsStore() bool {
	return in.Acc == string(Store) || in.Acc == string(NTStore)
}

// AddrDir maps one address to one directory.
type AddrDir struct {
	Addr int `yaml:"ADDR"`
	Dir  int `yaml:"DIR"`

	Extra map[string]any `yaml:",inline"`
}

// Outcomes is a list of outcome clauses. A missing list is nil and an
// explicitly empty one is not; Save keeps the distinction.
type Outcomes []Outcome

// IsZero reports whether o is missing, so that omitempty drops nil
// lists but writes empty ones.
func (o Outcomes) IsZero() bool { return o == nil }

// Outcome is a conjunction of load results and final memory values.
type Outcome struct {
	Loads []LoadOutcome `yaml:"LOAD_OUTCOME,omitempty"`
	Vals  []ValOutcome  `yaml:"VAL_OUTCOME,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

// LoadOutcome requires instruction Instr of CPU to have loaded Val.
type LoadOutcome struct {
	CPU   int `yaml:"CPU_IDX"`
	Instr int `yaml:"INSTR_IDX"`
	Val   int `yaml:"INSTR_VAL"`

	Extra map[string]any `yaml:",inline"`
}

// ValOutcome requires Addr to hold Val at the end of the execution.
type ValOutcome struct {
	Addr int `yaml:"ADDR"`
	Val  int `yaml:"VAL"`

	Extra map[string]any `yaml:",inline"`
}

// Parse decodes a configuration document.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the configuration document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Marshal encodes c as a YAML document.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes c to path.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0666)
}

// Document returns c as a generic key/value document, exactly as it
// would be written by Save. Templates look up scalar placeholders in
// this document.
func (c *Config) Document() (map[string]any, error) {
	data, err := c.Marshal()
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Instr returns the instruction with index idx on CPU cpu.
func (c *Config) Instr(cpu, idx int) (Instr, bool) {
	for _, s := range c.Test {
		if s.CPU != cpu {
			continue
		}
		for _, in := range s.Instrs {
			if in.Idx == idx {
				return in, true
			}
		}
	}
	return Instr{}, false
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	n := *c
	n.Test = make([]CPUStream, len(c.Test))
	for i, s := range c.Test {
		n.Test[i] = CPUStream{CPU: s.CPU, Instrs: make([]Instr, len(s.Instrs)), Extra: cloneMap(s.Extra)}
		for j, in := range s.Instrs {
			in.Extra = cloneMap(in.Extra)
			n.Test[i].Instrs[j] = in
		}
	}
	if c.AddrToDir != nil {
		n.AddrToDir = make([]AddrDir, len(c.AddrToDir))
		for i, ad := range c.AddrToDir {
			ad.Extra = cloneMap(ad.Extra)
			n.AddrToDir[i] = ad
		}
	}
	n.Forbidden = cloneOutcomes(c.Forbidden)
	n.Expected = cloneOutcomes(c.Expected)
	if c.TSMax != nil {
		v := *c.TSMax
		n.TSMax = &v
	}
	if c.CntMax != nil {
		v := *c.CntMax
		n.CntMax = &v
	}
	n.Extra = cloneMap(c.Extra)
	return &n
}

func cloneOutcomes(outs Outcomes) Outcomes {
	if outs == nil {
		return nil
	}
	out := make(Outcomes, len(outs))
	for i, o := range outs {
		n := Outcome{Extra: cloneMap(o.Extra)}
		for _, l := range o.Loads {
			l.Extra = cloneMap(l.Extra)
			n.Loads = append(n.Loads, l)
		}
		for _, v := range o.Vals {
			v.Extra = cloneMap(v.Extra)
			n.Vals = append(n.Vals, v)
		}
		out[i] = n
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = cloneValue(x)
		}
		return out
	}
	return v
}
