// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package murphi

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names of the sub-templates in a template directory.
const (
	AddCPUInstrFile  = "AddCPUInstr.m"
	AddOneInstrFile  = "AddOneInstr.m"
	CheckOutcomeFile = "CheckOneOutcome.m"
	CheckOneLoadFile = "CheckOneLoad.m"
	CheckOneValFile  = "CheckOneAddrVal.m"
)

// A TemplateSet holds the sub-templates composite placeholders are
// built from.
type TemplateSet struct {
	// AddCPUInstr wraps the instructions of one CPU. It may use
	// {{CPU_IDX}}, {{INSTR_COUNT}} and {{FUNC_BODY_ADD_ONE_INSTR}}.
	AddCPUInstr string

	// AddOneInstr injects one instruction. It may use
	// {{INSTR_IDX}}, {{INSTR_ACC}}, {{INSTR_CST}}, {{INSTR_ADDR}}
	// and {{INSTR_VAL}}.
	AddOneInstr string

	// CheckOutcome tests one outcome clause. It may use
	// {{LOAD_VAL_COND}} and {{ACTION}}.
	CheckOutcome string

	// CheckOneLoad is the condition on one load result. It may use
	// {{CPU_IDX}}, {{INSTR_IDX}} and {{EXP_VAL}}.
	CheckOneLoad string

	// CheckOneVal is the condition on one final memory value. It
	// may use {{ADDR}} and {{VAL}}.
	CheckOneVal string
}

// LoadTemplateSet reads the five sub-templates from dir.
func LoadTemplateSet(dir string) (*TemplateSet, error) {
	var set TemplateSet
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{AddCPUInstrFile, &set.AddCPUInstr},
		{AddOneInstrFile, &set.AddOneInstr},
		{CheckOutcomeFile, &set.CheckOutcome},
		{CheckOneLoadFile, &set.CheckOneLoad},
		{CheckOneValFile, &set.CheckOneVal},
	} {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, fmt.Errorf("loading sub-template: %w", err)
		}
		*f.dst = string(data)
	}
	return &set, nil
}

// fill replaces each "{{KEY}}" in tmpl by vars[KEY]. Tokens not in
// vars are left alone, and replacement text is not rescanned.
func fill(tmpl string, vars map[string]string) string {
	oldnew := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		oldnew = append(oldnew, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(oldnew...).Replace(tmpl)
}

// OutputName returns the file name of the model rendered from
// template file tmplPath and configuration file configPath:
// "<template base>.<config base>.m".
func OutputName(tmplPath, configPath string) string {
	return trimExt(filepath.Base(tmplPath)) + "." + trimExt(filepath.Base(configPath)) + ".m"
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
