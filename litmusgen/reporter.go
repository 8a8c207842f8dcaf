// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// A reporter shows the progress of one stage (gen, render or run) on a
// status line. Output written to it, such as lint warnings or checker
// failures, is printed above the status line.
type reporter interface {
	io.Writer
	StartStatus()
	Status(format string, a ...any)
	StopStatus()
}

// newReporter returns a reporter for stage writing to stderr. The
// status line is redrawn in place only if stderr is a terminal.
func newReporter(stage string) reporter {
	if os.Getenv("TERM") == "" || os.Getenv("TERM") == "dumb" || !term.IsTerminal(int(os.Stderr.Fd())) {
		return &reporterDumb{w: os.Stderr, stage: stage}
	}
	return &reporterVT100{w: os.Stderr, stage: stage}
}

// reporterDumb prints only the final status, so logs of batch runs
// are not flooded with one line per document.
type reporterDumb struct {
	mu    sync.Mutex
	w     io.Writer
	stage string
	last  string
	start time.Time
}

func (r *reporterDumb) StartStatus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = time.Now()
}

func (r *reporterDumb) StopStatus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != "" {
		fmt.Fprintf(r.w, "%s\n", statusLine(r.stage, r.last, time.Since(r.start)))
	}
}

func (r *reporterDumb) Status(format string, a ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = fmt.Sprintf(format, a...)
}

func (r *reporterDumb) Write(data []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Write(data)
}

// statusLine formats msg for stage, followed by the time the stage has
// been running.
func statusLine(stage, msg string, elapsed time.Duration) string {
	if stage != "" {
		msg = stage + ": " + msg
	}
	return fmt.Sprintf("%s (%s)", msg, elapsed.Round(time.Second))
}

type reporterVT100 struct {
	w      io.Writer
	stage  string
	stop   chan struct{}
	update chan string
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func (r *reporterVT100) StartStatus() {
	r.stop = make(chan struct{})
	r.update = make(chan string)
	r.wg.Add(1)
	go r.run(time.Now())
}

func (r *reporterVT100) StopStatus() {
	close(r.stop)
	r.wg.Wait()
}

func (r *reporterVT100) Status(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	select {
	case r.update <- msg:
	case <-r.stop:
	}
}

// VT100 control sequences
const (
	resetLine = "\r\x1b[2K"
	wrapOff   = "\x1b[?7l"
	moveEOL   = "\x1b[999C"
	wrapOn    = "\x1b[?7h"
)

func (r *reporterVT100) Write(data []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Clear the status line; run redraws it on its next tick.
	fmt.Fprintf(r.w, "%s%s", resetLine, wrapOn)
	return r.w.Write(data)
}

func (r *reporterVT100) run(start time.Time) {
	const ticker = "-\\|/"
	// minUpdate is the minimum time between displaying updates.
	const minUpdate = time.Second / 10

	i := 0
	msg := "starting"
	tick := time.NewTicker(time.Second / 2)
	inhibit, pending := false, false
	deinhibit := time.NewTimer(0)
	defer func() {
		tick.Stop()

		// Leave the final status of the stage on screen.
		r.mu.Lock()
		fmt.Fprintf(r.w, "%s%s%s%s\n", resetLine, wrapOff, statusLine(r.stage, msg, time.Since(start)), wrapOn)
		r.mu.Unlock()

		r.wg.Done()
	}()

	for {
		r.mu.Lock()
		fmt.Fprintf(r.w, "%s%s%s%s%c", resetLine, wrapOff, statusLine(r.stage, msg, time.Since(start)), moveEOL, ticker[i%len(ticker)])
		r.mu.Unlock()
		pending = false

	ignore:
		select {
		case <-tick.C:
			i++

		case msg = <-r.update:
			// Rendering many small documents produces updates
			// far faster than a terminal can show them. Show
			// this one, then hold the rest until minUpdate has
			// passed.
			if inhibit {
				pending = true
				goto ignore
			}
			inhibit = true
			deinhibit.Reset(minUpdate)

		case <-deinhibit.C:
			inhibit = false
			if !pending {
				goto ignore
			}

		case <-r.stop:
			return
		}
	}
}
