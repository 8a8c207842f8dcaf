// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

// An OverflowProfile is a pair of saturation limits for the
// protocol's timestamp and counter fields.
type OverflowProfile struct {
	Name   string
	TSMax  int
	CntMax int
}

// OverflowProfiles are the profiles every test is instantiated with.
// "of" makes both fields overflow after a single increment; "nof"
// leaves enough room that small tests never overflow.
var OverflowProfiles = []OverflowProfile{
	{Name: "of", TSMax: 1, CntMax: 1},
	{Name: "nof", TSMax: 4, CntMax: 4},
}
