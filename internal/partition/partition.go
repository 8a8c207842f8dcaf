// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package partition enumerates the ways a set of addresses can be
// split across directories.
//
// A partition of {0, ..., n-1} into at most k groups assigns every
// address to exactly one directory. Two partitions that differ only
// in the order of their groups are the same assignment up to
// renaming directories, so partitions are kept in a canonical form:
// each group is sorted, and groups are ordered by size and then by
// their element lists. Group i of a canonical partition maps to
// directory i.
package partition

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/segmentio/fasthash/fnv1a"
)

// A Partition is a set of non-empty, pairwise disjoint groups of
// addresses in canonical order.
type Partition [][]int

// Canonical returns p with every group sorted and the groups ordered
// by (size, elements). It reorders p in place.
func (p Partition) Canonical() Partition {
	for _, g := range p {
		slices.Sort(g)
	}
	slices.SortFunc(p, compareGroups)
	return p
}

func compareGroups(a, b []int) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return slices.Compare(a, b)
}

// Equal reports whether p and q contain the same groups in the same
// order. For canonical partitions this is set equality.
func (p Partition) Equal(q Partition) bool {
	return slices.EqualFunc(p, q, func(a, b []int) bool {
		return slices.Equal(a, b)
	})
}

// Groups returns the number of groups in p.
func (p Partition) Groups() int {
	return len(p)
}

// Directory returns the directory index of addr under p, or -1 if
// addr is not covered by p.
func (p Partition) Directory(addr int) int {
	for i, g := range p {
		if slices.Contains(g, addr) {
			return i
		}
	}
	return -1
}

// Key returns the textual encoding of p used in generated file
// names: groups separated by "_". If every address is a single
// digit, a group's addresses are written back to back ("0_12");
// otherwise they are separated by "-" ("0-11_10") so the encoding
// stays unambiguous.
func (p Partition) Key() string {
	sep := ""
	for _, g := range p {
		for _, a := range g {
			if a >= 10 {
				sep = "-"
			}
		}
	}
	groups := make([]string, len(p))
	for i, g := range p {
		elems := make([]string, len(g))
		for j, a := range g {
			elems[j] = strconv.Itoa(a)
		}
		groups[i] = strings.Join(elems, sep)
	}
	return strings.Join(groups, "_")
}

func (p Partition) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, g := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('{')
		for j, a := range g {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(a))
		}
		b.WriteByte('}')
	}
	b.WriteByte(']')
	return b.String()
}

func (p Partition) hash() uint64 {
	h := fnv1a.Init64
	for _, g := range p {
		h = fnv1a.AddUint64(h, uint64(len(g)))
		for _, a := range g {
			h = fnv1a.AddUint64(h, uint64(a))
		}
	}
	return h
}

// set is a set of canonical partitions. Partitions are bucketed by
// hash and compared exactly within a bucket.
type set map[uint64][]Partition

// add inserts p and reports whether it was not already present.
func (s set) add(p Partition) bool {
	h := p.hash()
	for _, q := range s[h] {
		if p.Equal(q) {
			return false
		}
	}
	s[h] = append(s[h], p)
	return true
}

// All returns the canonical partitions of {0, ..., n-1} into 1 to
// maxGroups groups. Partitions with fewer groups come first; within a
// group count, partitions appear in the order they are first
// generated. Each canonical partition is yielded exactly once.
//
// If n is 0, All yields a single empty partition. Group counts larger
// than n contribute nothing.
func All(n, maxGroups int) iter.Seq[Partition] {
	return func(yield func(Partition) bool) {
		if n <= 0 {
			yield(Partition{})
			return
		}
		elems := make([]int, n)
		for i := range elems {
			elems[i] = i
		}
		seen := make(set)
		for k := 1; k <= maxGroups; k++ {
			for _, p := range split(elems, k) {
				if seen.add(p) && !yield(p) {
					return
				}
			}
		}
	}
}

// Enumerate returns all of the partitions produced by All.
func Enumerate(n, maxGroups int) []Partition {
	var ps []Partition
	for p := range All(n, maxGroups) {
		ps = append(ps, p)
	}
	return ps
}

// split returns the distinct canonical partitions of elems into
// exactly k groups. elems must be sorted.
//
// The first group's size is limited to a window that keeps the split
// roughly balanced and leaves at least one element for each of the
// remaining groups. Every subset of elems of an allowed size is tried
// as the first group, in lexicographic order, and the rest is split
// recursively.
func split(elems []int, k int) []Partition {
	switch k {
	case 0:
		if len(elems) == 0 {
			return []Partition{{}}
		}
		return nil
	case 1:
		return []Partition{{slices.Clone(elems)}}
	}

	minSize := max(1, len(elems)/k)
	maxSize := len(elems) - k + 1
	var out []Partition
	seen := make(set)
	for size := minSize; size <= maxSize; size++ {
		combinations(elems, size, func(first, rest []int) {
			for _, sub := range split(rest, k-1) {
				p := make(Partition, 0, len(sub)+1)
				p = append(p, slices.Clone(first))
				for _, g := range sub {
					p = append(p, slices.Clone(g))
				}
				p.Canonical()
				if seen.add(p) {
					out = append(out, p)
				}
			}
		})
	}
	return out
}

// combinations calls fn for every size-element subset of elems in
// lexicographic order of element positions, passing the subset and
// its complement. fn must not retain either slice.
func combinations(elems []int, size int, fn func(chosen, rest []int)) {
	n := len(elems)
	if size < 0 || size > n {
		return
	}
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	chosen := make([]int, size)
	rest := make([]int, 0, n-size)
	for {
		rest = rest[:0]
		j := 0
		for i, e := range elems {
			if j < size && idx[j] == i {
				chosen[j] = e
				j++
			} else {
				rest = append(rest, e)
			}
		}
		fn(chosen, rest)

		// Advance to the next combination.
		i := size - 1
		for i >= 0 && idx[i] == n-size+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < size; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
