// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package harness

import (
	"strings"
	"testing"
	"time"

	"github.com/aclements/go-moremath/stats"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(dir)
	require.NoError(t, err)

	_, ok, err := s.Get("src/msi.mp.m")
	require.NoError(t, err)
	require.False(t, ok)

	rec := Record{Hash: 42, Passed: true, Duration: 3 * time.Second, When: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, s.Put("src/msi.mp.m", rec))
	require.NoError(t, s.Close())

	// Records survive reopening.
	s, err = OpenStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Get("src/msi.mp.m")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, rec.When.Equal(got.When))
	got.When = rec.When
	require.Equal(t, rec, got)

	// Records follow the model name, not the directory it was
	// rendered into.
	_, ok, err = s.Get("models/msi.mp.m")
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = s.Get("src/msi.sb.m")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSummaryWrite(t *testing.T) {
	var s Summary
	s.add(Outcome{Model: "b.m", Passed: true, Duration: 2 * time.Second})
	s.add(Outcome{Model: "a.m", Passed: true, Skipped: true, Duration: time.Hour})
	s.add(Outcome{Model: "c.m", Step: StepCompile, LogPath: "logs/000000.log", Duration: 4 * time.Second})
	s.sort()

	require.Equal(t, stats.Sample{Xs: []float64{2, 4}}, s.Durations)
	var buf strings.Builder
	s.Write(&buf)
	require.Equal(t, "Passed (2, 1 unchanged):\n"+
		"\ta.m\n"+
		"\tb.m\n"+
		"Failed (1):\n"+
		"\tc.m (compile) see logs/000000.log\n"+
		"check time: mean 3s ± 1.414s, min 2s, max 4s\n",
		buf.String())
}
