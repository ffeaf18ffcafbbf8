// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth

import (
	"regexp"
	"strings"

	"go.pysleuth.net/resolve"
	"go.pysleuth.net/syntax"
)

// SafeInfer returns the single unambiguous value of n, or nil when
// inference fails, is ambiguous, or yields Uninferable (including a
// container holding an Uninferable element).
func (p *Program) SafeInfer(n syntax.Node, ctx *InferenceContext) syntax.Node {
	values, err := p.inferAll(n, ctx)
	if err != nil || len(values) == 0 {
		return nil
	}
	if len(values) > 1 {
		p.reportf(n, "inference is ambiguous")
		return nil
	}
	value := values[0]
	for _, e := range sequenceElts(value) {
		if syntax.Node(e) == Uninferable {
			return nil
		}
	}
	return value
}

// callMarkRx strips a call suffix like "(...)" from a dotted basename.
var callMarkRx = regexp.MustCompile(`\(.*\)`)

// Resolve expands a dotted basename to its qualified name as seen
// from n: an import alias expands to the imported module path, a
// class to its qualified name, an assignment or parameter to
// scope-qualified form. A basename that resolves to nothing is
// returned unchanged (with any call suffix normalized to "()").
func (p *Program) Resolve(n syntax.Node, basename string) (string, error) {
	full := basename
	topLevel := strings.SplitN(callMarkRx.ReplaceAllString(basename, ""), ".", 2)[0]

	_, assigns := resolve.Lookup(n, topLevel, 0)
loop:
	for _, assignment := range assigns {
		switch a := assignment.(type) {
		case *syntax.Alias:
			importName, err := p.fullImportName(a)
			if err != nil {
				return "", err
			}
			full = strings.Replace(basename, topLevel, importName, 1)
			break loop
		case *syntax.ClassDef:
			full = syntax.QName(a)
			break loop
		case *syntax.Name:
			if syntax.IsAssignName(a) {
				full = syntax.QName(syntax.Frame(a)) + "." + a.ID
			}
		case *syntax.Arg:
			full = syntax.QName(syntax.Frame(a)) + "." + a.Name
		}
	}
	return callMarkRx.ReplaceAllString(full, "()"), nil
}

// fullImportName returns the full dotted path an import alias stands
// for.
func (p *Program) fullImportName(a *syntax.Alias) (string, error) {
	origin, err := p.originModule(a)
	if err != nil {
		return "", err
	}
	if _, ok := syntax.Parent(a).(*syntax.ImportFrom); ok {
		return origin + "." + a.Name, nil
	}
	return origin, nil
}
