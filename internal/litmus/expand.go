// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"iter"

	"github.com/litmusgen/litmusgen/internal/partition"
)

// Generated is one instantiation of a base test.
type Generated struct {
	// Name is the base name followed by Postfix.
	Name   string
	Config *Config

	Partition  partition.Partition
	Assignment Assignment
	Profile    OverflowProfile
}

// Postfix returns the part of a generated name that identifies the
// instantiation, for example "a2d0_1.st01.of". It encodes the
// partition, the store-kind bit pattern, and the profile name.
func Postfix(p partition.Partition, a Assignment, prof OverflowProfile) string {
	return "a2d" + p.Key() + ".st" + a.Bits() + "." + prof.Name
}

// Count returns the number of configurations Expand produces for
// base.
func Count(base *Config) int {
	n := 0
	for range partition.All(base.AdrCount, base.DirCount) {
		n++
	}
	return n * len(StoreTypeAssignments(base)) * len(OverflowProfiles)
}

// Expand returns every instantiation of base: one per address
// partition into at most DIR_COUNT directories, store-kind assignment
// of its relaxed stores, and overflow profile. Names are baseName
// followed by "." and the Postfix, and are distinct.
//
// base is not modified. Each Generated holds its own copy.
func Expand(base *Config, baseName string) iter.Seq[Generated] {
	return func(yield func(Generated) bool) {
		assigns := StoreTypeAssignments(base)
		for p := range partition.All(base.AdrCount, base.DirCount) {
			for _, a := range assigns {
				for _, prof := range OverflowProfiles {
					g := Generated{
						Name:       baseName + "." + Postfix(p, a, prof),
						Config:     Instantiate(base, p, a, prof),
						Partition:  p,
						Assignment: a,
						Profile:    prof,
					}
					if !yield(g) {
						return
					}
				}
			}
		}
	}
}

// ExpandAll returns all of the configurations produced by Expand.
func ExpandAll(base *Config, baseName string) []Generated {
	var gs []Generated
	for g := range Expand(base, baseName) {
		gs = append(gs, g)
	}
	return gs
}

// Instantiate returns a copy of base with its directory map taken
// from p, its relaxed stores given the kinds in a, and the overflow
// limits of prof.
func Instantiate(base *Config, p partition.Partition, a Assignment, prof OverflowProfile) *Config {
	c := base.Clone()

	// Unknown keys of a base entry stay with its address.
	extra := make(map[int]map[string]any)
	for _, ad := range c.AddrToDir {
		if ad.Extra != nil {
			extra[ad.Addr] = ad.Extra
		}
	}
	c.AddrToDir = make([]AddrDir, 0, base.AdrCount)
	for addr := 0; addr < base.AdrCount; addr++ {
		c.AddrToDir = append(c.AddrToDir, AddrDir{Addr: addr, Dir: p.Directory(addr), Extra: extra[addr]})
	}

	for i := range c.Test {
		s := &c.Test[i]
		for j := range s.Instrs {
			in := &s.Instrs[j]
			if k, ok := a.Kind(s.CPU, in.Idx); ok {
				in.Acc = string(k)
			}
		}
	}

	ts, cnt := prof.TSMax, prof.CntMax
	c.TSMax, c.CntMax = &ts, &cnt
	return c
}
