// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// findFiles expands args into a sorted list of files. Directories are
// walked for files with one of the extensions in exts. Named files
// without such an extension are skipped with a warning.
func findFiles(args []string, exts ...string) ([]string, error) {
	match := func(path string) bool {
		return slices.Contains(exts, filepath.Ext(path))
	}
	var files []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			if !match(arg) {
				log.Printf("skipping %s: want a %s file", arg, strings.Join(exts, " or "))
				continue
			}
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && match(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// baseName returns the file name of path without its extension.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
