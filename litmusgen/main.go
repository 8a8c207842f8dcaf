// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Litmusgen expands litmus tests into model-checker configurations,
// renders Murphi models from them, and runs the model checker.
//
// Usage:
//
//	litmusgen [-config file] [-cpuprofile dir] <subcommand> [flags] args...
//
// The subcommands form a pipeline:
//
//	gen     expands base tests into one configuration per address to
//	        directory mapping, store-kind assignment and overflow
//	        profile
//	render  renders a Murphi template once for each configuration
//	run     translates, compiles and runs each rendered model
//
// A base test named mp.yml with two addresses, two directories and
// one relaxed store expands to eight configurations, from
// mp.a2d01.st0.of.yml to mp.a2d0_1.st1.nof.yml. Rendering template
// msi.m against mp.a2d01.st0.of.yml produces msi.mp.a2d01.st0.of.m.
//
// Directories, sub-template locations and checker flags default to
// the values in the file named by -config, if any. Flags given on the
// command line override the file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/pkg/profile"
)

type subcommand struct {
	name, desc string
	cmd        func() error
	flags      *flag.FlagSet
}

var subcommands = make(map[string]*subcommand)

func registerSubcommand(name, desc string, cmd func() error, flags *flag.FlagSet) {
	subcommands[name] = &subcommand{name, desc, cmd, flags}
}

var (
	configFile string
	cpuProfile string
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <subcommand> [flags] args...\n\nSubcommands:\n", os.Args[0])
	var names []string
	for name := range subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s %s\n", name, subcommands[name].desc)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("litmusgen: ")

	flag.Usage = usage
	flag.StringVar(&configFile, "config", "", "read defaults from tool config `file`")
	flag.StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to `dir`")
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	sub, ok := subcommands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	if configFile != "" {
		if err := tool.load(configFile); err != nil {
			log.Fatal(err)
		}
	}
	sub.flags.Parse(flag.Args()[1:])

	var prof interface{ Stop() }
	if cpuProfile != "" {
		prof = profile.Start(profile.CPUProfile, profile.ProfilePath(cpuProfile), profile.Quiet)
	}
	err := sub.cmd()
	if prof != nil {
		prof.Stop()
	}
	if err != nil {
		log.Fatal(err)
	}
}
