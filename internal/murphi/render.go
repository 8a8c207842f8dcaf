// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package murphi renders Murphi model sources from templates and
// litmus-test configurations.
//
// A template is Murphi source containing placeholders of the form
// {{NAME}}. Most names are scalar: they are replaced by the value of
// the configuration key of the same name, for example {{TS_MAX}}.
// A few names are composite: they expand to whole code fragments
// generated from the structure of the configuration using a
// TemplateSet of smaller templates. See Composites for the list.
//
// Rendering is best effort. A placeholder that cannot be resolved is
// left in the output verbatim and reported in Result.Unresolved, so
// the partially rendered model can be inspected. Strict rendering
// turns unresolved placeholders into an error.
package murphi

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/litmusgen/litmusgen/internal/litmus"
)

var placeholderRE = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Options control rendering.
type Options struct {
	// Strict makes Render fail if any placeholder is unresolved.
	Strict bool
}

// Result is a rendered model.
type Result struct {
	Text string

	// Unresolved lists the names of placeholders that were left
	// in Text, in order of first appearance.
	Unresolved []string
}

// A StructuralError reports a configuration that lacks the structure
// a composite placeholder needs. Rendering of the document stops.
type StructuralError struct {
	Placeholder string
	Reason      string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("{{%s}}: %s", e.Placeholder, e.Reason)
}

// An UnresolvedError reports the placeholders a strict render could
// not resolve.
type UnresolvedError struct {
	Names []string
}

func (e *UnresolvedError) Error() string {
	return "unresolved placeholders: " + strings.Join(e.Names, ", ")
}

// Render expands the placeholders of tmpl using cfg and set.
//
// Placeholder occurrences are found in a single pass over tmpl, and
// generated text is never rescanned. Every occurrence of a name
// expands to the same text. Render is deterministic: the same inputs
// always produce the same output.
//
// If a composite placeholder cannot be built, Render returns a
// *StructuralError and no result. In strict mode, if any placeholder
// is unresolved, Render returns the partial result together with an
// *UnresolvedError.
func Render(tmpl string, set *TemplateSet, cfg *litmus.Config, opts Options) (*Result, error) {
	r := &renderer{set: set, cfg: cfg, cache: make(map[string]string)}

	var b strings.Builder
	var res Result
	last := 0
	for _, m := range placeholderRE.FindAllStringSubmatchIndex(tmpl, -1) {
		b.WriteString(tmpl[last:m[0]])
		last = m[1]

		token := tmpl[m[0]:m[1]]
		name := strings.TrimSpace(tmpl[m[2]:m[3]])
		text, ok, err := r.resolve(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			b.WriteString(token)
			if !slices.Contains(res.Unresolved, name) {
				res.Unresolved = append(res.Unresolved, name)
			}
			continue
		}
		b.WriteString(text)
	}
	b.WriteString(tmpl[last:])
	res.Text = b.String()

	if opts.Strict && len(res.Unresolved) > 0 {
		return &res, &UnresolvedError{res.Unresolved}
	}
	return &res, nil
}

type renderer struct {
	set   *TemplateSet
	cfg   *litmus.Config
	doc   map[string]any
	cache map[string]string
}

// resolve returns the text for placeholder name. It returns ok ==
// false if name is neither composite nor a key of the configuration.
func (r *renderer) resolve(name string) (text string, ok bool, err error) {
	if text, ok := r.cache[name]; ok {
		return text, true, nil
	}
	if gen, ok := composites[name]; ok {
		text, err = gen(r.cfg, r.set)
		if err != nil {
			var serr *StructuralError
			if !errors.As(err, &serr) {
				err = &StructuralError{name, err.Error()}
			}
			return "", false, err
		}
	} else {
		if r.doc == nil {
			if r.doc, err = r.cfg.Document(); err != nil {
				return "", false, err
			}
		}
		v, ok := r.doc[name]
		if !ok {
			return "", false, nil
		}
		text = fmt.Sprint(v)
	}
	r.cache[name] = text
	return text, true, nil
}
