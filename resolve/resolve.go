// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolve binds names in a Python syntax tree.
//
// File walks a freshly parsed module once, stamping parent links,
// registering every binding site in the locals table of its scope, and
// applying a small set of normalizing rewrites. Lookup then answers
// "where may this name have been bound, as seen from this node", using
// a flow-sensitive statement filter to discard bindings that cannot
// reach the reference.
package resolve

import (
	"fmt"
	"log/slog"

	"go.pysleuth.net/syntax"
)

// endOfFrameSentinel is the value of the synthetic constant statement
// appended to every frame body. Lookups that start from the sentinel
// see the whole frame, with line cutoffs disabled, which is how
// attribute access on modules and classes observes "the frame as of
// its end".
const endOfFrameSentinel int64 = 430335967

// Info collects the bindings that File defers rather than resolves:
// attribute-target assignments such as `obj.attr = x`, and wildcard
// imports. Callers may resolve them once all modules are known.
type Info struct {
	AttrAssigns []*syntax.Attribute
	Wildcards   []*syntax.ImportFrom
}

// File binds a parsed module in a single depth-first pass and returns
// the deferred-binding info. It must be called exactly once per
// module, before any lookup or inference touches the tree.
func File(mod *syntax.Module, log *slog.Logger) *Info {
	if log == nil {
		log = slog.Default()
	}
	b := &binder{mod: mod, info: new(Info), log: log}
	b.visit(mod, nil)
	return b.info
}

// EndOfFrame returns the reference point for whole-frame lookups: the
// sentinel statement of a module, class or function body, or the
// lambda itself (a lambda has no body to plant a sentinel in).
func EndOfFrame(frame syntax.Node) (syntax.Node, error) {
	if !syntax.IsFrame(frame) {
		panic(fmt.Sprintf("resolve: EndOfFrame called on %T", frame))
	}
	if l, ok := frame.(*syntax.Lambda); ok {
		return l, nil
	}
	body := frameBody(frame)
	if n := len(body); n > 0 && IsEndOfFrame(body[n-1]) {
		return body[n-1], nil
	}
	return nil, fmt.Errorf("resolve: frame %T has no end-of-frame sentinel; was File run?", frame)
}

// IsEndOfFrame reports whether stmt is a synthetic end-of-frame
// sentinel planted by File.
func IsEndOfFrame(stmt syntax.Stmt) bool {
	es, ok := stmt.(*syntax.ExprStmt)
	if !ok {
		return false
	}
	c, ok := es.Value.(*syntax.Constant)
	if !ok {
		return false
	}
	v, ok := c.Value.(int64)
	return ok && v == endOfFrameSentinel
}

func frameBody(frame syntax.Node) []syntax.Stmt {
	switch frame := frame.(type) {
	case *syntax.Module:
		return frame.Body
	case *syntax.ClassDef:
		return frame.Body
	case *syntax.FunctionDef:
		return frame.Body
	}
	return nil
}

func newSentinel() *syntax.ExprStmt {
	c := &syntax.Constant{Value: endOfFrameSentinel}
	syntax.SetPos(c, syntax.NoPos)
	s := &syntax.ExprStmt{Value: c}
	syntax.SetPos(s, syntax.NoPos)
	return s
}

type binder struct {
	mod  *syntax.Module
	info *Info
	log  *slog.Logger
}

func (b *binder) visit(n, parent syntax.Node) {
	syntax.SetParent(n, parent)
	syntax.InitTypeInfo(n)

	switch n := n.(type) {
	case *syntax.Module:
		n.Body = append(n.Body, newSentinel())

	case *syntax.FunctionDef:
		defineLocal(parent, n.Name, n)
		n.Body = append(n.Body, newSentinel())

	case *syntax.ClassDef:
		defineLocal(parent, n.Name, n)
		n.Body = append(n.Body, newSentinel())

	case *syntax.Import:
		for _, a := range n.Names {
			// `import x.y` binds x; `import x.y as z` binds z to x.y.
			name := a.AsName
			if name == "" {
				name = firstComponent(a.Name)
			}
			defineLocal(parent, name, a)
		}

	case *syntax.ImportFrom:
		wildcard := false
		for _, a := range n.Names {
			if a.Name == "*" {
				wildcard = true
			}
		}
		if wildcard {
			// Wildcard imports are recorded, not resolved: the set of
			// exported names is not known until all modules are bound.
			b.info.Wildcards = append(b.info.Wildcards, n)
		} else {
			for _, a := range n.Names {
				name := a.AsName
				if name == "" {
					name = a.Name
				}
				defineLocal(parent, name, a)
			}
		}

	case *syntax.Arg:
		defineLocal(parent, n.Name, n)

	case *syntax.Name:
		if syntax.IsAssignName(n) || syntax.IsDelName(n) {
			defineLocal(parent, n.ID, n)
		}

	case *syntax.Attribute:
		if syntax.IsAssignName(n) && !inExceptHandler(n) {
			b.info.AttrAssigns = append(b.info.AttrAssigns, n)
		}
	}

	for _, f := range syntax.Fields(n) {
		// Statement lists are walked through the tree's own slices so
		// that rewrites replace the statement in place and bindings
		// made by earlier statements are visible to later rewrites.
		if stmts := stmtSlice(n, f.Name); stmts != nil {
			for i := range stmts {
				if aug := b.rewriteMutatingCall(stmts[i], n); aug != nil {
					stmts[i] = aug
				}
				b.visit(stmts[i], n)
			}
			continue
		}
		for _, c := range f.List {
			b.visit(c, n)
		}
	}
}

func stmtSlice(n syntax.Node, field string) []syntax.Stmt {
	switch n := n.(type) {
	case *syntax.Module:
		return n.Body
	case *syntax.FunctionDef:
		if field == "body" {
			return n.Body
		}
	case *syntax.ClassDef:
		if field == "body" {
			return n.Body
		}
	case *syntax.For:
		switch field {
		case "body":
			return n.Body
		case "orelse":
			return n.Else
		}
	case *syntax.While:
		switch field {
		case "body":
			return n.Body
		case "orelse":
			return n.Else
		}
	case *syntax.If:
		switch field {
		case "body":
			return n.Body
		case "orelse":
			return n.Else
		}
	case *syntax.With:
		if field == "body" {
			return n.Body
		}
	case *syntax.Try:
		switch field {
		case "body":
			return n.Body
		case "orelse":
			return n.Else
		case "finalbody":
			return n.Finally
		}
	case *syntax.ExceptHandler:
		if field == "body" {
			return n.Body
		}
	}
	return nil
}

// defineLocal registers binding under name in the scope enclosing n.
// A walrus target binds in the frame of the walrus expression, not in
// the comprehension scope it may appear in.
func defineLocal(n syntax.Node, name string, binding syntax.Node) {
	for {
		if ne, ok := n.(*syntax.NamedExpr); ok {
			n = syntax.Frame(ne)
			continue
		}
		if !syntax.IsScope(n) {
			n = syntax.Parent(n)
			continue
		}
		break
	}
	switch binding.(type) {
	case *syntax.ClassDef, *syntax.FunctionDef, *syntax.Name, *syntax.Arg, *syntax.Alias:
	default:
		panic(fmt.Sprintf("resolve: cannot register %T as a local binding", binding))
	}
	syntax.DefineLocal(n, name, binding)
}

func inExceptHandler(n syntax.Node) bool {
	for p := syntax.Parent(n); p != nil; p = syntax.Parent(p) {
		if _, ok := p.(*syntax.ExceptHandler); ok {
			return true
		}
	}
	return false
}

func firstComponent(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}

// rewriteMutatingCall turns a statement-level `x.append(v)` into
// `x += [v]` and `x.extend(it)` into `x += it`, when x is a name bound
// at module level. The rewrite makes in-place growth of module
// constants such as __all__ visible to assignment inference.
func (b *binder) rewriteMutatingCall(s syntax.Stmt, owner syntax.Node) syntax.Stmt {
	es, ok := s.(*syntax.ExprStmt)
	if !ok {
		return nil
	}
	call, ok := es.Value.(*syntax.Call)
	if !ok || len(call.Args) != 1 || len(call.Keywords) != 0 {
		return nil
	}
	sel, ok := call.Func.(*syntax.Attribute)
	if !ok {
		return nil
	}
	recv, ok := sel.Value.(*syntax.Name)
	if !ok {
		return nil
	}
	if locals := syntax.Locals(b.mod); len(locals[recv.ID]) == 0 {
		return nil
	}

	var value syntax.Expr
	switch sel.Attr {
	case "append":
		lst := &syntax.List{Elts: []syntax.Expr{call.Args[0]}}
		syntax.SetPos(lst, owner.Pos())
		value = lst
	case "extend":
		value = call.Args[0]
	default:
		return nil
	}

	b.report(s, "rewriting %s.%s() into an augmented assignment", recv.ID, sel.Attr)

	target := &syntax.Name{ID: recv.ID, Ctx: syntax.Store}
	syntax.SetPos(target, owner.Pos())
	aug := &syntax.AugAssign{Target: target, Op: syntax.OpAdd, Value: value}
	syntax.SetPos(aug, owner.Pos())
	return aug
}

func (b *binder) report(n syntax.Node, format string, args ...interface{}) {
	unit := b.mod.Filename
	if unit == "" {
		unit = b.mod.Name
	}
	loc := "???"
	if line := n.Pos().Line; line > 0 {
		loc = fmt.Sprintf("%d", line)
	}
	b.log.Debug(fmt.Sprintf("%s:%s: %s", unit, loc, fmt.Sprintf(format, args...)))
}
