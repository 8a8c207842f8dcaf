// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"unicode/utf8"
)

// saveLog writes data to the first unused numbered file in outDir,
// starting at *idx.
func saveLog(outDir string, idx *int, data []byte) (string, error) {
	var name string
	var f *os.File
	for {
		var err error
		name = filepath.Join(outDir, fmt.Sprintf("%06d.log", *idx))
		*idx++
		f, err = os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0666)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		break
	}

	_, err := f.Write(data)
	if err == nil {
		err = f.Close()
	}
	if err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// printTail writes the last few lines of data to w. Checker traces
// can be huge, so this is bounded in both lines and runes.
func printTail(w io.Writer, data []byte) {
	const maxLines = 10
	const maxRunes = maxLines * 100

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data[:len(data):len(data)], '\n')
	}

	// data[start:] is the tail so far; data[start-1] ends the line
	// before it.
	start := len(data)
	lines, runes := 0, 0
	for start > 0 && lines < maxLines {
		prev := bytes.LastIndexByte(data[:start-1], '\n') + 1
		runes += utf8.RuneCount(data[prev:start])
		if runes > maxRunes {
			break
		}
		start = prev
		lines++
	}

	w.Write(data[start:])
}

func formatProcessState(state *os.ProcessState) string {
	s, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return state.String()
	}
	switch {
	case s.Exited():
		return fmt.Sprintf("status %d", s.ExitStatus())
	case s.Signaled():
		extra := ""
		if s.CoreDump() {
			extra = " (dumped core)"
		}
		return fmt.Sprintf("signal %s%s", s.Signal(), extra)
	default:
		return fmt.Sprintf("unknown wait status %v", s)
	}
}
