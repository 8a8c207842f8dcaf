// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package harness

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/aclements/go-moremath/stats"
)

// Summary collects the outcomes of a Run.
type Summary struct {
	Passed  []Outcome // including skipped models
	Failed  []Outcome
	Skipped int

	// Durations of the models that were actually checked, in
	// seconds.
	Durations stats.Sample
}

func (s *Summary) add(o Outcome) {
	if o.Passed {
		s.Passed = append(s.Passed, o)
	} else {
		s.Failed = append(s.Failed, o)
	}
	if o.Skipped {
		s.Skipped++
		return
	}
	if o.Step == StepHarness {
		return
	}
	s.Durations.Xs = append(s.Durations.Xs, o.Duration.Seconds())
}

func (s *Summary) sort() {
	byModel := func(a, b Outcome) int { return cmp.Compare(a.Model, b.Model) }
	slices.SortFunc(s.Passed, byModel)
	slices.SortFunc(s.Failed, byModel)
}

// OK reports whether every model passed.
func (s *Summary) OK() bool {
	return len(s.Failed) == 0
}

// Write prints the passed and failed models and duration statistics.
func (s *Summary) Write(w io.Writer) {
	fmt.Fprintf(w, "Passed (%d, %d unchanged):\n", len(s.Passed), s.Skipped)
	for _, o := range s.Passed {
		fmt.Fprintf(w, "\t%s\n", o.Model)
	}
	fmt.Fprintf(w, "Failed (%d):\n", len(s.Failed))
	for _, o := range s.Failed {
		fmt.Fprintf(w, "\t%s (%s)", o.Model, o.Step)
		if o.LogPath != "" {
			fmt.Fprintf(w, " see %s", o.LogPath)
		}
		fmt.Fprintf(w, "\n")
	}

	xs := s.Durations
	if len(xs.Xs) == 0 {
		return
	}
	lo, hi := xs.Bounds()
	fmt.Fprintf(w, "check time: mean %s", seconds(xs.Mean()))
	if len(xs.Xs) > 1 {
		fmt.Fprintf(w, " ± %s", seconds(xs.StdDev()))
	}
	fmt.Fprintf(w, ", min %s, max %s\n", seconds(lo), seconds(hi))
}

func seconds(x float64) time.Duration {
	return time.Duration(x * float64(time.Second)).Round(time.Millisecond)
}
