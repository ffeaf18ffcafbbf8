// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pysleuth is a static semantic-analysis engine for Python
// syntax trees: name binding, scope lookup with flow-sensitive
// statement filtering, and best-effort inference of expression values
// without executing anything.
//
// A Program is one analysis session. Modules are parsed (or built and
// added) into it; the engine then answers questions about any node of
// any module in the session:
//
//	prog := pysleuth.NewProgram()
//	mod, err := prog.Parse("a.py", "a", src)
//	...
//	values, err := prog.Infer(node, nil).Collect()
//
// Inference yields syntax nodes: literal expressions, definitions,
// modules. A nil node is the Uninferable result, meaning a value
// exists but cannot be determined statically. A Program is not safe
// for concurrent use; independent Programs are independent.
package pysleuth

import (
	"fmt"
	"log/slog"
	"strings"

	"go.pysleuth.net/internal/pyparse"
	"go.pysleuth.net/resolve"
	"go.pysleuth.net/syntax"
)

// Uninferable is the inference result for a value that exists but
// cannot be determined. It is the nil Node.
var Uninferable syntax.Node

// A Program is an analysis session: the set of modules under analysis
// plus the shared inference cache and the deferred binding lists.
type Program struct {
	modules map[string]*syntax.Module
	cache   map[syntax.Node][]syntax.Node

	// Bindings the binder defers rather than resolves.
	attrAssigns []*syntax.Attribute
	wildcards   []*syntax.ImportFrom

	maxResults  int // cap on inferred values per node
	maxInferred int // cap on values inferred per context
	log         *slog.Logger
}

// An Option configures a Program.
type Option func(*Program)

// WithMaxResults caps the number of values inferred for a single node
// before the engine truncates with a trailing Uninferable.
func WithMaxResults(n int) Option { return func(p *Program) { p.maxResults = n } }

// WithMaxInferred caps the total number of values inferred within one
// context and its clones.
func WithMaxInferred(n int) Option { return func(p *Program) { p.maxInferred = n } }

// WithLogger directs the engine's diagnostics. The engine never stops
// on an uninferable expression; it logs and carries on.
func WithLogger(log *slog.Logger) Option { return func(p *Program) { p.log = log } }

// NewProgram returns an empty analysis session.
func NewProgram(opts ...Option) *Program {
	p := &Program{
		modules:     make(map[string]*syntax.Module),
		cache:       make(map[syntax.Node][]syntax.Node),
		maxResults:  42,
		maxInferred: 100,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses src as the module named name and adds it to the
// program. filename is used in diagnostics only.
func (p *Program) Parse(filename, name string, src []byte) (*syntax.Module, error) {
	return p.parse(filename, name, src, false)
}

// ParsePackage is Parse for a package (an __init__ module): relative
// imports and submodule attribute lookups treat it as one.
func (p *Program) ParsePackage(filename, name string, src []byte) (*syntax.Module, error) {
	return p.parse(filename, name, src, true)
}

func (p *Program) parse(filename, name string, src []byte, pkg bool) (*syntax.Module, error) {
	mod, err := pyparse.Parse(filename, src)
	if err != nil {
		return nil, err
	}
	mod.Name = name
	mod.Package = pkg
	return p.Add(mod), nil
}

// Add binds an already-built module and registers it in the session.
// The module's Name must be set; its tree must not have been bound
// before. Adding a module invalidates the inference cache, since it
// can change what imports resolve to.
func (p *Program) Add(mod *syntax.Module) *syntax.Module {
	info := resolve.File(mod, p.log)
	p.attrAssigns = append(p.attrAssigns, info.AttrAssigns...)
	p.wildcards = append(p.wildcards, info.Wildcards...)
	p.modules[mod.Name] = mod
	p.InvalidateCache()
	return mod
}

// Module returns the module registered under name, or nil.
func (p *Program) Module(name string) *syntax.Module { return p.modules[name] }

// InvalidateCache clears the inference cache.
func (p *Program) InvalidateCache() {
	for k := range p.cache {
		delete(p.cache, k)
	}
}

// submodule returns the module registered as pack.name, or nil.
func (p *Program) submodule(pack *syntax.Module, name string) *syntax.Module {
	return p.modules[pack.Name+"."+name]
}

// moduleParent returns the module enclosing mod in the dotted
// namespace, or nil for a top-level module.
func (p *Program) moduleParent(mod *syntax.Module) *syntax.Module {
	i := strings.LastIndex(mod.Name, ".")
	if i < 0 {
		return nil
	}
	return p.modules[mod.Name[:i]]
}

// reportf logs a warning about a node as "unit:line: message", where
// unit is the node's module file (or module name) and line is "???"
// when the node has no usable location.
func (p *Program) reportf(n syntax.Node, format string, args ...interface{}) {
	unit := "???"
	if mod := moduleOf(n); mod != nil {
		if mod.Filename != "" {
			unit = mod.Filename
		} else {
			unit = mod.Name
		}
	}
	loc := "???"
	if n != nil {
		if line := n.Pos().Line; line > 0 {
			loc = fmt.Sprintf("%d", line)
		}
	}
	p.log.Warn(fmt.Sprintf("%s:%s: %s", unit, loc, fmt.Sprintf(format, args...)))
}

func moduleOf(n syntax.Node) *syntax.Module {
	for n != nil {
		if m, ok := n.(*syntax.Module); ok {
			return m
		}
		n = syntax.Parent(n)
	}
	return nil
}
