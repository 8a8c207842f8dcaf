// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/litmusgen/litmusgen/internal/harness"
)

// toolConfig holds the settings shared by the subcommands. Each field
// can be set in the tool config file and overridden by a flag.
//
// A tool config file looks like:
//
//	config_dir: configs
//	src_dir: src
//	template_dir: src/template
//	parallelism: 8
//	murphi:
//	  mu: ../CMurphi/src/mu
//	  include: ../CMurphi/include
//	  run_flags: -tv -pr -m4000
//	  timeout: 30m
type toolConfig struct {
	ConfigDir   string `mapstructure:"config_dir"`
	SrcDir      string `mapstructure:"src_dir"`
	TemplateDir string `mapstructure:"template_dir"`
	Parallelism int    `mapstructure:"parallelism"`

	Murphi murphiConfig `mapstructure:"murphi"`
}

type murphiConfig struct {
	Mu         string        `mapstructure:"mu"`
	Include    string        `mapstructure:"include"`
	CXX        string        `mapstructure:"cxx"`
	MuFlags    string        `mapstructure:"mu_flags"`
	CFlags     string        `mapstructure:"cflags"`
	RunFlags   string        `mapstructure:"run_flags"`
	BuildDir   string        `mapstructure:"build_dir"`
	LogDir     string        `mapstructure:"log_dir"`
	ResultsDir string        `mapstructure:"results_dir"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

var tool = defaultToolConfig()

func defaultToolConfig() toolConfig {
	h := harness.DefaultConfig()
	return toolConfig{
		ConfigDir:   "configs",
		SrcDir:      "src",
		TemplateDir: "src/template",
		Parallelism: runtime.GOMAXPROCS(-1),
		Murphi: murphiConfig{
			Mu:         h.Mu,
			CXX:        h.CXX,
			MuFlags:    h.MuFlags,
			CFlags:     h.CFlags,
			RunFlags:   h.RunFlags,
			BuildDir:   h.BuildDir,
			LogDir:     "logs",
			ResultsDir: ".litmusgen",
		},
	}
}

// load reads path into c. Settings missing from the file keep their
// current values.
func (c *toolConfig) load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading tool config: %w", err)
	}
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// harnessConfig returns the checker settings for the harness.
func (c *toolConfig) harnessConfig() harness.Config {
	m := c.Murphi
	return harness.Config{
		Mu:          m.Mu,
		Include:     m.Include,
		CXX:         m.CXX,
		MuFlags:     m.MuFlags,
		CFlags:      m.CFlags,
		RunFlags:    m.RunFlags,
		BuildDir:    m.BuildDir,
		LogDir:      m.LogDir,
		Parallelism: c.Parallelism,
		Timeout:     m.Timeout,
	}
}
