// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"fmt"
	"sort"
	"strings"
)

// StoreKind is the access kind a relaxed store is instantiated as.
type StoreKind string

const (
	Store   StoreKind = "store"    // bit 0
	NTStore StoreKind = "nt_store" // bit 1
)

// A Slot names one instruction of a test.
type Slot struct {
	CPU, Instr int
}

func (s Slot) String() string {
	return fmt.Sprintf("CPU%d.%d", s.CPU, s.Instr)
}

// RelaxedStores returns the relaxed plain stores of c ordered by CPU
// index and then by instruction index. These are the instructions
// whose store kind is varied by StoreTypeAssignments; stores of any
// other consistency class, and stores that already carry a store kind
// other than Store, are left alone.
func RelaxedStores(c *Config) []Slot {
	var slots []Slot
	for _, s := range c.Test {
		for _, in := range s.Instrs {
			if in.Acc == string(Store) && in.Cst == Relaxed {
				slots = append(slots, Slot{s.CPU, in.Idx})
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].CPU != slots[j].CPU {
			return slots[i].CPU < slots[j].CPU
		}
		return slots[i].Instr < slots[j].Instr
	})
	return slots
}

// An Assignment gives a store kind to each relaxed store of a test.
// Kinds[i] is the kind of Slots[i].
type Assignment struct {
	Slots []Slot
	Kinds []StoreKind
}

// Bits returns a's bit pattern: one digit per slot, "0" for Store and
// "1" for NTStore.
func (a Assignment) Bits() string {
	var b strings.Builder
	for _, k := range a.Kinds {
		if k == NTStore {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Kind returns the kind assigned to instruction instr of CPU cpu, if
// that instruction is in a's domain.
func (a Assignment) Kind(cpu, instr int) (StoreKind, bool) {
	for i, s := range a.Slots {
		if s.CPU == cpu && s.Instr == instr {
			return a.Kinds[i], true
		}
	}
	return "", false
}

// DecodeAssignment is the inverse of Assignment.Bits.
func DecodeAssignment(slots []Slot, bits string) (Assignment, error) {
	if len(bits) != len(slots) {
		return Assignment{}, fmt.Errorf("bit pattern %q has %d digits for %d stores", bits, len(bits), len(slots))
	}
	a := Assignment{Slots: slots, Kinds: make([]StoreKind, len(slots))}
	for i, c := range []byte(bits) {
		switch c {
		case '0':
			a.Kinds[i] = Store
		case '1':
			a.Kinds[i] = NTStore
		default:
			return Assignment{}, fmt.Errorf("bad digit %q in bit pattern %q", c, bits)
		}
	}
	return a, nil
}

// StoreTypeAssignments returns every assignment of Store or NTStore
// to the relaxed stores of c, 2^k assignments for k relaxed stores.
// They are ordered lexicographically by bit pattern, with the first
// slot as the most significant digit. A test with no relaxed stores
// has exactly one, empty, assignment.
func StoreTypeAssignments(c *Config) []Assignment {
	slots := RelaxedStores(c)
	bits := make([]bool, len(slots))
	var out []Assignment
	for {
		a := Assignment{Slots: slots, Kinds: make([]StoreKind, len(slots))}
		for i, b := range bits {
			if b {
				a.Kinds[i] = NTStore
			} else {
				a.Kinds[i] = Store
			}
		}
		out = append(out, a)

		// Increment bits as a binary number, most significant
		// digit first.
		i := len(bits) - 1
		for i >= 0 && bits[i] {
			bits[i] = false
			i--
		}
		if i < 0 {
			return out
		}
		bits[i] = true
	}
}
