// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// This file defines the navigation helpers of the tree: parents,
// children, siblings, frames, scopes and statements. All of them are
// memoized on the node, so repeated queries are cheap.

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchSibling is returned when a node has no previous or next
	// sibling in the requested direction.
	ErrNoSuchSibling = errors.New("syntax: no such sibling")

	// ErrRoot is returned when a sibling or position query is applied
	// to the module root, which has no parent.
	ErrRoot = errors.New("syntax: the module root has no parent")
)

// A Field is one named child slot of a node, flattened to a list.
// Singular children appear as one-element lists; absent children are
// omitted entirely.
type Field struct {
	Name string
	List []Node
}

// Parent returns the parent of n, or nil for the module root and for
// nodes not yet wired by the binder.
func Parent(n Node) Node { return n.common().parent }

// Root returns the module at the root of n's tree.
func Root(n Node) *Module {
	for {
		if m, ok := n.(*Module); ok {
			return m
		}
		p := Parent(n)
		if p == nil {
			panic(fmt.Sprintf("syntax: detached node %T has no module root", n))
		}
		n = p
	}
}

// Ancestors returns the parent chain of n, nearest first.
func Ancestors(n Node) []Node {
	var out []Node
	for p := Parent(n); p != nil; p = Parent(p) {
		out = append(out, p)
	}
	return out
}

// ParentOf reports whether anc is a (possibly distant) ancestor of n.
func ParentOf(anc, n Node) bool {
	for p := Parent(n); p != nil; p = Parent(p) {
		if p == anc {
			return true
		}
	}
	return false
}

// Children returns the child nodes of n in grammar order.
func Children(n Node) []Node {
	b := n.common()
	if !b.childrenOK {
		var out []Node
		for _, f := range Fields(n) {
			out = append(out, f.List...)
		}
		b.children = out
		b.childrenOK = true
	}
	return b.children
}

// Index returns the position of n among its parent's children.
func Index(n Node) (int, error) {
	p := Parent(n)
	if p == nil {
		return 0, ErrRoot
	}
	for i, c := range Children(p) {
		if c == n {
			return i, nil
		}
	}
	panic(fmt.Sprintf("syntax: %T not found among children of %T", n, p))
}

// PrevSibling returns the sibling immediately before n.
func PrevSibling(n Node) (Node, error) {
	i, err := Index(n)
	if err != nil {
		return nil, err
	}
	if i == 0 {
		return nil, ErrNoSuchSibling
	}
	return Children(Parent(n))[i-1], nil
}

// NextSibling returns the sibling immediately after n.
func NextSibling(n Node) (Node, error) {
	i, err := Index(n)
	if err != nil {
		return nil, err
	}
	siblings := Children(Parent(n))
	if i == len(siblings)-1 {
		return nil, ErrNoSuchSibling
	}
	return siblings[i+1], nil
}

// LocateChild returns the name of the field of parent that holds
// child. The child must be a direct child.
func LocateChild(parent, child Node) (string, error) {
	for _, f := range Fields(parent) {
		for _, c := range f.List {
			if c == child {
				return f.Name, nil
			}
		}
	}
	return "", fmt.Errorf("syntax: %T is not a child of %T", child, parent)
}

// Frame returns the first enclosing module, class, function or lambda,
// including n itself. A walrus expression nested in a parameter list,
// keyword or comprehension clause belongs to the frame enclosing the
// clause's owner.
func Frame(n Node) Node {
	b := n.common()
	if b.frame == nil {
		b.frame = computeFrame(n)
	}
	return b.frame
}

func computeFrame(n Node) Node {
	if _, ok := n.(*Module); ok {
		return n
	}
	p := Parent(n)
	if p == nil {
		panic(fmt.Sprintf("syntax: detached node %T has no frame", n))
	}
	if _, ok := n.(*NamedExpr); ok {
		switch p.(type) {
		case *Arguments, *Keyword, *Comprehension:
			return Frame(Parent(Parent(p)))
		}
	}
	if IsFrame(n) {
		return n
	}
	return Frame(p)
}

// Scope returns the scope in which n is resolved: usually its frame,
// but comprehensions introduce scopes of their own, decorator subtrees
// resolve in the scope enclosing the decorated definition, and walrus
// expressions in parameter lists, keywords and comprehension clauses
// resolve in the scope enclosing the clause's owner.
func Scope(n Node) Node {
	b := n.common()
	if b.scope == nil {
		b.scope = computeScope(n)
	}
	return b.scope
}

func computeScope(n Node) Node {
	if _, ok := n.(*Module); ok {
		return n
	}
	p := Parent(n)
	if p == nil {
		panic(fmt.Sprintf("syntax: detached node %T has no scope", n))
	}
	if IsFromDecorator(n) {
		return Scope(Parent(Frame(n)))
	}
	if _, ok := n.(*NamedExpr); ok {
		switch p.(type) {
		case *Arguments, *Keyword, *Comprehension:
			return Scope(Parent(Parent(p)))
		}
	}
	if IsScope(n) {
		return n
	}
	return Scope(p)
}

// Statement returns the first statement-shaped ancestor of n,
// including n itself. For the module root it returns the module.
func Statement(n Node) Node {
	b := n.common()
	if b.stmt == nil {
		b.stmt = computeStatement(n)
	}
	return b.stmt
}

func computeStatement(n Node) Node {
	if _, ok := n.(Stmt); ok {
		return n
	}
	if _, ok := n.(*Module); ok {
		return n
	}
	p := Parent(n)
	if p == nil {
		panic(fmt.Sprintf("syntax: detached node %T has no statement", n))
	}
	return Statement(p)
}

// IsFromDecorator reports whether n sits inside the decorator list of
// its nearest enclosing function or class definition.
func IsFromDecorator(n Node) bool {
	prev := n
	for p := Parent(n); p != nil; prev, p = p, Parent(p) {
		var decorators []Expr
		switch p := p.(type) {
		case *FunctionDef:
			decorators = p.Decorators
		case *ClassDef:
			decorators = p.Decorators
		default:
			continue
		}
		for _, d := range decorators {
			if Node(d) == prev {
				return true
			}
		}
		return false
	}
	return false
}

// QName returns the dotted qualified name of a module, class or
// function definition. It panics for other kinds.
func QName(n Node) string {
	switch n := n.(type) {
	case *Module:
		return n.Name
	case *ClassDef:
		return QName(Frame(Parent(n))) + "." + n.Name
	case *FunctionDef:
		return QName(Frame(Parent(n))) + "." + n.Name
	}
	panic(fmt.Sprintf("syntax: QName called on %T", n))
}

// Fields returns the named child slots of n in grammar order.
// Absent optional children are omitted.
func Fields(n Node) []Field {
	var fl fieldList
	switch n := n.(type) {
	case *Module:
		fl.stmts("body", n.Body)
	case *FunctionDef:
		fl.node("args", n.Args)
		fl.stmts("body", n.Body)
		fl.exprs("decorator_list", n.Decorators)
		fl.expr("returns", n.Returns)
	case *ClassDef:
		fl.exprs("bases", n.Bases)
		fl.keywords("keywords", n.Keywords)
		fl.stmts("body", n.Body)
		fl.exprs("decorator_list", n.Decorators)
	case *Return:
		fl.expr("value", n.Value)
	case *Delete:
		fl.exprs("targets", n.Targets)
	case *Assign:
		fl.exprs("targets", n.Targets)
		fl.expr("value", n.Value)
	case *AugAssign:
		fl.expr("target", n.Target)
		fl.expr("value", n.Value)
	case *AnnAssign:
		fl.expr("target", n.Target)
		fl.expr("annotation", n.Annotation)
		fl.expr("value", n.Value)
	case *For:
		fl.expr("target", n.Target)
		fl.expr("iter", n.Iter)
		fl.stmts("body", n.Body)
		fl.stmts("orelse", n.Else)
	case *While:
		fl.expr("test", n.Cond)
		fl.stmts("body", n.Body)
		fl.stmts("orelse", n.Else)
	case *If:
		fl.expr("test", n.Cond)
		fl.stmts("body", n.Body)
		fl.stmts("orelse", n.Else)
	case *With:
		fl.items("items", n.Items)
		fl.stmts("body", n.Body)
	case *WithItem:
		fl.expr("context_expr", n.Context)
		fl.expr("optional_vars", n.Vars)
	case *Raise:
		fl.expr("exc", n.Exc)
		fl.expr("cause", n.Cause)
	case *Try:
		fl.stmts("body", n.Body)
		fl.handlers("handlers", n.Handlers)
		fl.stmts("orelse", n.Else)
		fl.stmts("finalbody", n.Finally)
	case *ExceptHandler:
		fl.expr("type", n.Type)
		if n.Name != nil {
			fl.node("name", n.Name)
		}
		fl.stmts("body", n.Body)
	case *Assert:
		fl.expr("test", n.Test)
		fl.expr("msg", n.Msg)
	case *Import:
		fl.aliases("names", n.Names)
	case *ImportFrom:
		fl.aliases("names", n.Names)
	case *ExprStmt:
		fl.expr("value", n.Value)
	case *BoolOp:
		fl.exprs("values", n.Values)
	case *NamedExpr:
		fl.node("target", n.Target)
		fl.expr("value", n.Value)
	case *BinOp:
		fl.expr("left", n.Left)
		fl.expr("right", n.Right)
	case *UnaryOp:
		fl.expr("operand", n.Operand)
	case *Lambda:
		fl.node("args", n.Args)
		fl.expr("body", n.Body)
	case *IfExp:
		fl.expr("test", n.Cond)
		fl.expr("body", n.Body)
		fl.expr("orelse", n.Else)
	case *Dict:
		fl.exprs("keys", n.Keys)
		fl.exprs("values", n.Values)
	case *Set:
		fl.exprs("elts", n.Elts)
	case *ListComp:
		fl.expr("elt", n.Elt)
		fl.comps("generators", n.Generators)
	case *SetComp:
		fl.expr("elt", n.Elt)
		fl.comps("generators", n.Generators)
	case *DictComp:
		fl.expr("key", n.Key)
		fl.expr("value", n.Value)
		fl.comps("generators", n.Generators)
	case *GeneratorExp:
		fl.expr("elt", n.Elt)
		fl.comps("generators", n.Generators)
	case *Comprehension:
		fl.expr("target", n.Target)
		fl.expr("iter", n.Iter)
		fl.exprs("ifs", n.Ifs)
	case *Await:
		fl.expr("value", n.Value)
	case *Yield:
		fl.expr("value", n.Value)
	case *YieldFrom:
		fl.expr("value", n.Value)
	case *Compare:
		fl.expr("left", n.Left)
		fl.exprs("comparators", n.Comparators)
	case *Call:
		fl.expr("func", n.Func)
		fl.exprs("args", n.Args)
		fl.keywords("keywords", n.Keywords)
	case *Keyword:
		fl.expr("value", n.Value)
	case *JoinedStr:
		fl.exprs("values", n.Values)
	case *FormattedValue:
		fl.expr("value", n.Value)
	case *Attribute:
		fl.expr("value", n.Value)
	case *Subscript:
		fl.expr("value", n.Value)
		fl.expr("slice", n.Index)
	case *Starred:
		fl.expr("value", n.Value)
	case *List:
		fl.exprs("elts", n.Elts)
	case *Tuple:
		fl.exprs("elts", n.Elts)
	case *Slice:
		fl.expr("lower", n.Lo)
		fl.expr("upper", n.Hi)
		fl.expr("step", n.Step)
	case *Arguments:
		fl.argList("posonlyargs", n.PosOnly)
		fl.argList("args", n.Args)
		if n.Vararg != nil {
			fl.node("vararg", n.Vararg)
		}
		fl.argList("kwonlyargs", n.KwOnly)
		fl.exprs("kw_defaults", n.KwDefaults)
		if n.Kwarg != nil {
			fl.node("kwarg", n.Kwarg)
		}
		fl.exprs("defaults", n.Defaults)
	case *Arg:
		fl.expr("annotation", n.Annotation)
	case *Constant, *Name, *Alias, *Global, *Nonlocal, *Pass, *Break, *Continue:
		// no children
	default:
		panic(fmt.Sprintf("syntax: Fields called on unknown node %T", n))
	}
	return fl.fields
}

type fieldList struct {
	fields []Field
}

func (fl *fieldList) add(name string, list []Node) {
	if len(list) > 0 {
		fl.fields = append(fl.fields, Field{name, list})
	}
}

func (fl *fieldList) node(name string, n Node) {
	if n != nil {
		fl.add(name, []Node{n})
	}
}

func (fl *fieldList) expr(name string, e Expr) {
	if e != nil {
		fl.add(name, []Node{e})
	}
}

func (fl *fieldList) exprs(name string, es []Expr) {
	var list []Node
	for _, e := range es {
		if e != nil {
			list = append(list, e)
		}
	}
	fl.add(name, list)
}

func (fl *fieldList) stmts(name string, ss []Stmt) {
	var list []Node
	for _, s := range ss {
		if s != nil {
			list = append(list, s)
		}
	}
	fl.add(name, list)
}

func (fl *fieldList) keywords(name string, ks []*Keyword) {
	var list []Node
	for _, k := range ks {
		if k != nil {
			list = append(list, k)
		}
	}
	fl.add(name, list)
}

func (fl *fieldList) handlers(name string, hs []*ExceptHandler) {
	var list []Node
	for _, h := range hs {
		if h != nil {
			list = append(list, h)
		}
	}
	fl.add(name, list)
}

func (fl *fieldList) items(name string, ws []*WithItem) {
	var list []Node
	for _, w := range ws {
		if w != nil {
			list = append(list, w)
		}
	}
	fl.add(name, list)
}

func (fl *fieldList) aliases(name string, as []*Alias) {
	var list []Node
	for _, a := range as {
		if a != nil {
			list = append(list, a)
		}
	}
	fl.add(name, list)
}

func (fl *fieldList) comps(name string, cs []*Comprehension) {
	var list []Node
	for _, c := range cs {
		if c != nil {
			list = append(list, c)
		}
	}
	fl.add(name, list)
}

func (fl *fieldList) argList(name string, as []*Arg) {
	var list []Node
	for _, a := range as {
		if a != nil {
			list = append(list, a)
		}
	}
	fl.add(name, list)
}
