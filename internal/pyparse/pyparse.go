// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pyparse parses Python source files into syntax trees.
//
// The heavy lifting is done by tree-sitter's Python grammar; this
// package converts the resulting concrete syntax tree into the
// abstract tree of the syntax package, preserving 1-based line
// positions. The returned module is unbound: callers pass it to the
// resolve package (normally via Program.Parse) before navigating it.
package pyparse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"go.pysleuth.net/syntax"
)

// An Error describes a problem found while parsing a source file.
type Error struct {
	Filename string
	Pos      syntax.Position
	Msg      string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s:%s: %s", e.Filename, e.Pos, e.Msg)
}

// Parse parses src as a Python source file. filename is used in error
// messages only. The module's Name and Package fields are left for the
// caller to fill in.
func Parse(filename string, src []byte) (mod *syntax.Module, err error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, perr := parser.ParseCtx(context.Background(), nil, src)
	if perr != nil {
		return nil, fmt.Errorf("pyparse: %s: %w", filename, perr)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, Error{filename, syntax.NoPos, "empty parse tree"}
	}
	if root.HasError() {
		return nil, firstSyntaxError(root, filename)
	}

	c := &converter{src: src, filename: filename}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(Error); ok {
				mod, err = nil, e
				return
			}
			panic(r)
		}
	}()

	// A module's position is line 0, the zero Position.
	mod = &syntax.Module{Filename: filename, Body: c.stmts(root)}
	return mod, nil
}

// firstSyntaxError locates the first ERROR or missing node in the
// tree and reports it.
func firstSyntaxError(n *sitter.Node, filename string) error {
	if n.Type() == "ERROR" || n.IsMissing() {
		msg := "invalid syntax"
		if n.IsMissing() {
			msg = fmt.Sprintf("expected %s", n.Type())
		}
		return Error{filename, point(n), msg}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil && child.HasError() {
			return firstSyntaxError(child, filename)
		}
	}
	return Error{filename, point(n), "invalid syntax"}
}

func point(n *sitter.Node) syntax.Position {
	return syntax.Position{
		Line: int32(n.StartPoint().Row) + 1,
		Col:  int32(n.StartPoint().Column),
	}
}

// converter turns a tree-sitter CST into the syntax package's AST.
// Conversion failures panic with an Error; Parse recovers it.
type converter struct {
	src      []byte
	filename string
}

func (c *converter) errorf(n *sitter.Node, format string, args ...interface{}) {
	panic(Error{c.filename, point(n), fmt.Sprintf(format, args...)})
}

func (c *converter) text(n *sitter.Node) string {
	return string(c.src[n.StartByte():n.EndByte()])
}

func (c *converter) at(e syntax.Node, n *sitter.Node) {
	syntax.SetPos(e, point(n))
}

// named returns the named children of n, without comments.
func (c *converter) named(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// hasKeyword reports whether n has an anonymous child token kw, such
// as the "async" of an async def.
func (c *converter) hasKeyword(n *sitter.Node, kw string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil && !child.IsNamed() && child.Type() == kw {
			return true
		}
	}
	return false
}

// Statements.

func (c *converter) stmts(block *sitter.Node) []syntax.Stmt {
	var out []syntax.Stmt
	for _, child := range c.named(block) {
		out = append(out, c.stmt(child))
	}
	return out
}

func (c *converter) stmt(n *sitter.Node) syntax.Stmt {
	switch n.Type() {
	case "expression_statement":
		return c.exprStmt(n)

	case "return_statement":
		s := &syntax.Return{}
		if kids := c.named(n); len(kids) > 0 {
			s.Value = c.expr(kids[0])
		}
		c.at(s, n)
		return s

	case "delete_statement":
		s := &syntax.Delete{}
		for _, kid := range c.named(n) {
			// `del a, b` arrives as one expression_list.
			if kid.Type() == "expression_list" {
				for _, e := range c.named(kid) {
					s.Targets = append(s.Targets, c.target(e, syntax.Del))
				}
				continue
			}
			s.Targets = append(s.Targets, c.target(kid, syntax.Del))
		}
		c.at(s, n)
		return s

	case "raise_statement":
		s := &syntax.Raise{}
		cause := n.ChildByFieldName("cause")
		for _, kid := range c.named(n) {
			if cause != nil && sameNode(kid, cause) {
				continue
			}
			s.Exc = c.expr(kid)
			break
		}
		if cause != nil {
			s.Cause = c.expr(cause)
		}
		c.at(s, n)
		return s

	case "assert_statement":
		kids := c.named(n)
		if len(kids) == 0 {
			c.errorf(n, "assert statement has no condition")
		}
		s := &syntax.Assert{Test: c.expr(kids[0])}
		if len(kids) > 1 {
			s.Msg = c.expr(kids[1])
		}
		c.at(s, n)
		return s

	case "pass_statement":
		s := &syntax.Pass{}
		c.at(s, n)
		return s
	case "break_statement":
		s := &syntax.Break{}
		c.at(s, n)
		return s
	case "continue_statement":
		s := &syntax.Continue{}
		c.at(s, n)
		return s

	case "global_statement":
		s := &syntax.Global{}
		for _, kid := range c.named(n) {
			s.Names = append(s.Names, c.text(kid))
		}
		c.at(s, n)
		return s
	case "nonlocal_statement":
		s := &syntax.Nonlocal{}
		for _, kid := range c.named(n) {
			s.Names = append(s.Names, c.text(kid))
		}
		c.at(s, n)
		return s

	case "import_statement":
		return c.importStmt(n)
	case "import_from_statement", "future_import_statement":
		return c.importFromStmt(n)

	case "if_statement":
		return c.ifStmt(n)
	case "while_statement":
		s := &syntax.While{
			Cond: c.expr(n.ChildByFieldName("condition")),
			Body: c.stmts(n.ChildByFieldName("body")),
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			s.Else = c.stmts(alt.ChildByFieldName("body"))
		}
		c.at(s, n)
		return s
	case "for_statement":
		s := &syntax.For{
			Target: c.target(n.ChildByFieldName("left"), syntax.Store),
			Iter:   c.expr(n.ChildByFieldName("right")),
			Body:   c.stmts(n.ChildByFieldName("body")),
			Async:  c.hasKeyword(n, "async"),
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			s.Else = c.stmts(alt.ChildByFieldName("body"))
		}
		c.at(s, n)
		return s
	case "try_statement":
		return c.tryStmt(n)
	case "with_statement":
		return c.withStmt(n)

	case "function_definition":
		return c.functionDef(n)
	case "class_definition":
		return c.classDef(n)
	case "decorated_definition":
		return c.decoratedDef(n)

	case "match_statement":
		c.errorf(n, "match statements are not supported")
	case "print_statement", "exec_statement":
		c.errorf(n, "Python 2 %s is not supported", strings.TrimSuffix(n.Type(), "_statement"))
	}
	c.errorf(n, "unexpected statement %s", n.Type())
	return nil
}

func (c *converter) exprStmt(n *sitter.Node) syntax.Stmt {
	kids := c.named(n)
	if len(kids) == 1 {
		switch kids[0].Type() {
		case "assignment":
			return c.assignStmt(kids[0])
		case "augmented_assignment":
			return c.augAssignStmt(kids[0])
		}
	}
	var value syntax.Expr
	switch len(kids) {
	case 0:
		c.errorf(n, "empty expression statement")
	case 1:
		value = c.expr(kids[0])
	default:
		// Bare comma expressions form an implicit tuple.
		t := &syntax.Tuple{}
		for _, kid := range kids {
			t.Elts = append(t.Elts, c.expr(kid))
		}
		c.at(t, kids[0])
		value = t
	}
	s := &syntax.ExprStmt{Value: value}
	c.at(s, n)
	return s
}

func (c *converter) assignStmt(n *sitter.Node) syntax.Stmt {
	left := n.ChildByFieldName("left")
	typ := n.ChildByFieldName("type")
	right := n.ChildByFieldName("right")

	if typ != nil {
		s := &syntax.AnnAssign{
			Target:     c.target(left, syntax.Store),
			Annotation: c.annotation(typ),
		}
		if right != nil {
			s.Value = c.expr(right)
		}
		c.at(s, n)
		return s
	}

	// A chain `a = b = v` nests assignments on the right.
	targets := []syntax.Expr{c.target(left, syntax.Store)}
	for right != nil && right.Type() == "assignment" {
		targets = append(targets, c.target(right.ChildByFieldName("left"), syntax.Store))
		right = right.ChildByFieldName("right")
	}
	if right == nil {
		c.errorf(n, "assignment has no value")
	}
	s := &syntax.Assign{Targets: targets, Value: c.expr(right)}
	c.at(s, n)
	return s
}

var augOps = map[string]syntax.Op{
	"+=":  syntax.OpAdd,
	"-=":  syntax.OpSub,
	"*=":  syntax.OpMult,
	"@=":  syntax.OpMatMult,
	"/=":  syntax.OpDiv,
	"//=": syntax.OpFloorDiv,
	"%=":  syntax.OpMod,
	"**=": syntax.OpPow,
	"<<=": syntax.OpLShift,
	">>=": syntax.OpRShift,
	"|=":  syntax.OpBitOr,
	"&=":  syntax.OpBitAnd,
	"^=":  syntax.OpBitXor,
}

func (c *converter) augAssignStmt(n *sitter.Node) syntax.Stmt {
	opNode := n.ChildByFieldName("operator")
	op, ok := augOps[c.text(opNode)]
	if !ok {
		c.errorf(opNode, "unknown augmented operator %s", c.text(opNode))
	}
	s := &syntax.AugAssign{
		Target: c.target(n.ChildByFieldName("left"), syntax.Store),
		Op:     op,
		Value:  c.expr(n.ChildByFieldName("right")),
	}
	c.at(s, n)
	return s
}

func (c *converter) ifStmt(n *sitter.Node) syntax.Stmt {
	s := &syntax.If{
		Cond: c.expr(n.ChildByFieldName("condition")),
		Body: c.stmts(n.ChildByFieldName("consequence")),
	}
	c.at(s, n)

	// An elif chain nests in the Else of the clause before it.
	cur := s
	for _, kid := range c.named(n) {
		switch kid.Type() {
		case "elif_clause":
			elif := &syntax.If{
				Cond: c.expr(kid.ChildByFieldName("condition")),
				Body: c.stmts(kid.ChildByFieldName("consequence")),
			}
			c.at(elif, kid)
			cur.Else = []syntax.Stmt{elif}
			cur = elif
		case "else_clause":
			cur.Else = c.stmts(kid.ChildByFieldName("body"))
		}
	}
	return s
}

func (c *converter) tryStmt(n *sitter.Node) syntax.Stmt {
	s := &syntax.Try{Body: c.stmts(n.ChildByFieldName("body"))}
	for _, kid := range c.named(n) {
		switch kid.Type() {
		case "except_clause":
			s.Handlers = append(s.Handlers, c.exceptClause(kid))
		case "else_clause":
			s.Else = c.stmts(kid.ChildByFieldName("body"))
		case "finally_clause":
			for _, fin := range c.named(kid) {
				if fin.Type() == "block" {
					s.Finally = c.stmts(fin)
				}
			}
		case "except_group_clause":
			c.errorf(kid, "except* groups are not supported")
		}
	}
	c.at(s, n)
	return s
}

func (c *converter) exceptClause(n *sitter.Node) *syntax.ExceptHandler {
	h := &syntax.ExceptHandler{}
	var exprs []*sitter.Node
	for _, kid := range c.named(n) {
		if kid.Type() == "block" {
			h.Body = c.stmts(kid)
			continue
		}
		exprs = append(exprs, kid)
	}
	if len(exprs) > 0 {
		typ := exprs[0]
		if typ.Type() == "as_pattern" {
			h.Type = c.expr(typ.NamedChild(0))
			// The alias field is an as_pattern_target wrapping the
			// identifier.
			alias := typ.ChildByFieldName("alias")
			if alias != nil && alias.Type() == "as_pattern_target" && alias.NamedChildCount() > 0 {
				alias = alias.NamedChild(0)
			}
			h.Name = c.bindingName(alias)
		} else {
			h.Type = c.expr(typ)
			if len(exprs) > 1 {
				h.Name = c.bindingName(exprs[1])
			}
		}
	}
	c.at(h, n)
	return h
}

// bindingName converts a handler or with target that must be a plain
// name into a store-context Name.
func (c *converter) bindingName(n *sitter.Node) *syntax.Name {
	if n == nil {
		return nil
	}
	if n.NamedChildCount() > 0 {
		c.errorf(n, "expected a plain name, got %s", n.Type())
	}
	name := &syntax.Name{ID: c.text(n), Ctx: syntax.Store}
	c.at(name, n)
	return name
}

func (c *converter) withStmt(n *sitter.Node) syntax.Stmt {
	s := &syntax.With{Async: c.hasKeyword(n, "async")}
	for _, kid := range c.named(n) {
		switch kid.Type() {
		case "with_clause":
			for _, itemNode := range c.named(kid) {
				if itemNode.Type() != "with_item" {
					continue
				}
				s.Items = append(s.Items, c.withItem(itemNode))
			}
		case "block":
			s.Body = c.stmts(kid)
		}
	}
	if body := n.ChildByFieldName("body"); body != nil && s.Body == nil {
		s.Body = c.stmts(body)
	}
	c.at(s, n)
	return s
}

func (c *converter) withItem(n *sitter.Node) *syntax.WithItem {
	item := &syntax.WithItem{}
	value := n.ChildByFieldName("value")
	if value != nil && value.Type() == "as_pattern" {
		item.Context = c.expr(value.NamedChild(0))
		item.Vars = c.asPatternTarget(value.ChildByFieldName("alias"))
	} else if value != nil {
		item.Context = c.expr(value)
	}
	c.at(item, n)
	return item
}

// asPatternTarget converts the target of an `... as target` clause.
// tree-sitter renames the target expression node, so its own structure
// must be reconstructed: a leaf is a name, anything nested is treated
// as a tuple of targets.
func (c *converter) asPatternTarget(n *sitter.Node) syntax.Expr {
	if n == nil {
		return nil
	}
	if n.NamedChildCount() == 0 {
		name := &syntax.Name{ID: c.text(n), Ctx: syntax.Store}
		c.at(name, n)
		return name
	}
	// A single wrapped child carries its own structure: converting it
	// directly avoids double-wrapping a parenthesized tuple target.
	if n.NamedChildCount() == 1 {
		return c.target(n.NamedChild(0), syntax.Store)
	}
	t := &syntax.Tuple{Ctx: syntax.Store}
	for _, kid := range c.named(n) {
		t.Elts = append(t.Elts, c.target(kid, syntax.Store))
	}
	c.at(t, n)
	return t
}

func (c *converter) functionDef(n *sitter.Node) syntax.Stmt {
	s := &syntax.FunctionDef{
		Name:  c.text(n.ChildByFieldName("name")),
		Args:  c.params(n.ChildByFieldName("parameters"), n),
		Body:  c.stmts(n.ChildByFieldName("body")),
		Async: c.hasKeyword(n, "async"),
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		s.Returns = c.annotation(ret)
	}
	c.at(s, n)
	return s
}

func (c *converter) classDef(n *sitter.Node) syntax.Stmt {
	s := &syntax.ClassDef{
		Name: c.text(n.ChildByFieldName("name")),
		Body: c.stmts(n.ChildByFieldName("body")),
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, arg := range c.named(supers) {
			switch arg.Type() {
			case "keyword_argument":
				s.Keywords = append(s.Keywords, c.keywordArg(arg))
			case "dictionary_splat":
				kw := &syntax.Keyword{Value: c.expr(arg.NamedChild(0))}
				c.at(kw, arg)
				s.Keywords = append(s.Keywords, kw)
			case "list_splat":
				star := &syntax.Starred{Value: c.expr(arg.NamedChild(0))}
				c.at(star, arg)
				s.Bases = append(s.Bases, star)
			default:
				s.Bases = append(s.Bases, c.expr(arg))
			}
		}
	}
	c.at(s, n)
	return s
}

func (c *converter) decoratedDef(n *sitter.Node) syntax.Stmt {
	var decorators []syntax.Expr
	for _, kid := range c.named(n) {
		if kid.Type() == "decorator" {
			decorators = append(decorators, c.expr(kid.NamedChild(0)))
		}
	}
	def := c.stmt(n.ChildByFieldName("definition"))
	switch def := def.(type) {
	case *syntax.FunctionDef:
		def.Decorators = decorators
	case *syntax.ClassDef:
		def.Decorators = decorators
	default:
		c.errorf(n, "decorators applied to %T", def)
	}
	return def
}

// params converts a parameter list. owner supplies a position when the
// list is absent, as in `lambda: 0`.
func (c *converter) params(n, owner *sitter.Node) *syntax.Arguments {
	args := &syntax.Arguments{}
	if n == nil {
		c.at(args, owner)
		return args
	}
	c.at(args, n)

	kwOnly := false
	place := func(arg *syntax.Arg, dflt syntax.Expr) {
		if kwOnly {
			args.KwOnly = append(args.KwOnly, arg)
			args.KwDefaults = append(args.KwDefaults, dflt)
			return
		}
		args.Args = append(args.Args, arg)
		if dflt != nil {
			args.Defaults = append(args.Defaults, dflt)
		}
	}

	for _, kid := range c.named(n) {
		switch kid.Type() {
		case "identifier":
			place(c.arg(kid, nil), nil)
		case "typed_parameter":
			pattern := kid.NamedChild(0)
			typ := kid.ChildByFieldName("type")
			switch pattern.Type() {
			case "list_splat_pattern":
				args.Vararg = c.arg(pattern.NamedChild(0), typ)
				kwOnly = true
			case "dictionary_splat_pattern":
				args.Kwarg = c.arg(pattern.NamedChild(0), typ)
			default:
				place(c.arg(pattern, typ), nil)
			}
		case "default_parameter":
			place(c.arg(kid.ChildByFieldName("name"), nil), c.expr(kid.ChildByFieldName("value")))
		case "typed_default_parameter":
			arg := c.arg(kid.ChildByFieldName("name"), kid.ChildByFieldName("type"))
			place(arg, c.expr(kid.ChildByFieldName("value")))
		case "list_splat_pattern":
			args.Vararg = c.arg(kid.NamedChild(0), nil)
			kwOnly = true
		case "dictionary_splat_pattern":
			args.Kwarg = c.arg(kid.NamedChild(0), nil)
		case "keyword_separator":
			kwOnly = true
		case "positional_separator":
			// Parameters before a "/" are positional-only.
			args.PosOnly = append(args.PosOnly, args.Args...)
			args.Args = nil
		default:
			c.errorf(kid, "unexpected parameter %s", kid.Type())
		}
	}
	return args
}

func (c *converter) arg(name, typ *sitter.Node) *syntax.Arg {
	arg := &syntax.Arg{Name: c.text(name)}
	if typ != nil {
		arg.Annotation = c.annotation(typ)
	}
	c.at(arg, name)
	return arg
}

func (c *converter) importStmt(n *sitter.Node) syntax.Stmt {
	s := &syntax.Import{}
	for _, kid := range c.named(n) {
		switch kid.Type() {
		case "dotted_name":
			s.Names = append(s.Names, c.alias(kid, c.text(kid), ""))
		case "aliased_import":
			name := c.text(kid.ChildByFieldName("name"))
			as := c.text(kid.ChildByFieldName("alias"))
			s.Names = append(s.Names, c.alias(kid, name, as))
		}
	}
	c.at(s, n)
	return s
}

func (c *converter) importFromStmt(n *sitter.Node) syntax.Stmt {
	s := &syntax.ImportFrom{}
	if n.Type() == "future_import_statement" {
		s.Module = "__future__"
	}

	modNode := n.ChildByFieldName("module_name")
	if modNode != nil {
		if modNode.Type() == "relative_import" {
			for _, kid := range c.named(modNode) {
				switch kid.Type() {
				case "import_prefix":
					s.Level = len(c.text(kid))
				case "dotted_name":
					s.Module = c.text(kid)
				}
			}
		} else {
			s.Module = c.text(modNode)
		}
	}

	for _, kid := range c.named(n) {
		if modNode != nil && sameNode(kid, modNode) {
			continue
		}
		switch kid.Type() {
		case "wildcard_import":
			s.Names = append(s.Names, c.alias(kid, "*", ""))
		case "dotted_name", "identifier":
			s.Names = append(s.Names, c.alias(kid, c.text(kid), ""))
		case "aliased_import":
			name := c.text(kid.ChildByFieldName("name"))
			as := c.text(kid.ChildByFieldName("alias"))
			s.Names = append(s.Names, c.alias(kid, name, as))
		}
	}
	c.at(s, n)
	return s
}

func (c *converter) alias(n *sitter.Node, name, as string) *syntax.Alias {
	a := &syntax.Alias{Name: name, AsName: as}
	c.at(a, n)
	return a
}

// sameNode reports whether two handles refer to the same CST node.
func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// Expressions.

var binOps = map[string]syntax.Op{
	"+":  syntax.OpAdd,
	"-":  syntax.OpSub,
	"*":  syntax.OpMult,
	"@":  syntax.OpMatMult,
	"/":  syntax.OpDiv,
	"%":  syntax.OpMod,
	"**": syntax.OpPow,
	"<<": syntax.OpLShift,
	">>": syntax.OpRShift,
	"|":  syntax.OpBitOr,
	"^":  syntax.OpBitXor,
	"&":  syntax.OpBitAnd,
	"//": syntax.OpFloorDiv,
}

var compareOps = map[string]syntax.Op{
	"<":      syntax.OpLt,
	"<=":     syntax.OpLtE,
	"==":     syntax.OpEq,
	"!=":     syntax.OpNotEq,
	"<>":     syntax.OpNotEq,
	">=":     syntax.OpGtE,
	">":      syntax.OpGt,
	"in":     syntax.OpIn,
	"not in": syntax.OpNotIn,
	"is":     syntax.OpIs,
	"is not": syntax.OpIsNot,
}

func (c *converter) expr(n *sitter.Node) syntax.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "parenthesized_expression":
		return c.expr(n.NamedChild(0))

	case "identifier":
		e := &syntax.Name{ID: c.text(n)}
		c.at(e, n)
		return e

	case "true":
		return c.constant(n, true)
	case "false":
		return c.constant(n, false)
	case "none":
		return c.constant(n, nil)
	case "ellipsis":
		return c.constant(n, syntax.Ellipsis)
	case "integer":
		return c.constant(n, c.intValue(n))
	case "float":
		return c.constant(n, c.floatValue(n))
	case "string":
		return c.stringExpr(n)
	case "concatenated_string":
		return c.concatenatedString(n)

	case "binary_operator":
		opNode := n.ChildByFieldName("operator")
		op, ok := binOps[c.text(opNode)]
		if !ok {
			c.errorf(opNode, "unknown binary operator %s", c.text(opNode))
		}
		e := &syntax.BinOp{
			Left:  c.expr(n.ChildByFieldName("left")),
			Op:    op,
			Right: c.expr(n.ChildByFieldName("right")),
		}
		c.at(e, n)
		return e

	case "boolean_operator":
		op := syntax.OpAnd
		if c.text(n.ChildByFieldName("operator")) == "or" {
			op = syntax.OpOr
		}
		left := c.expr(n.ChildByFieldName("left"))
		right := c.expr(n.ChildByFieldName("right"))
		// `a and b and c` is one chain, not a nest.
		if chain, ok := left.(*syntax.BoolOp); ok && chain.Op == op {
			chain.Values = append(chain.Values, right)
			return chain
		}
		e := &syntax.BoolOp{Op: op, Values: []syntax.Expr{left, right}}
		c.at(e, n)
		return e

	case "not_operator":
		e := &syntax.UnaryOp{Op: syntax.OpNot, Operand: c.expr(n.ChildByFieldName("argument"))}
		c.at(e, n)
		return e

	case "unary_operator":
		var op syntax.Op
		switch c.text(n.ChildByFieldName("operator")) {
		case "-":
			op = syntax.OpUSub
		case "+":
			op = syntax.OpUAdd
		case "~":
			op = syntax.OpInvert
		default:
			c.errorf(n, "unknown unary operator")
		}
		e := &syntax.UnaryOp{Op: op, Operand: c.expr(n.ChildByFieldName("argument"))}
		c.at(e, n)
		return e

	case "comparison_operator":
		return c.comparison(n)

	case "lambda":
		e := &syntax.Lambda{
			Args: c.params(n.ChildByFieldName("parameters"), n),
			Body: c.expr(n.ChildByFieldName("body")),
		}
		c.at(e, n)
		return e

	case "conditional_expression":
		kids := c.named(n)
		if len(kids) != 3 {
			c.errorf(n, "malformed conditional expression")
		}
		e := &syntax.IfExp{Body: c.expr(kids[0]), Cond: c.expr(kids[1]), Else: c.expr(kids[2])}
		c.at(e, n)
		return e

	case "named_expression":
		e := &syntax.NamedExpr{
			Target: c.bindingName(n.ChildByFieldName("name")),
			Value:  c.expr(n.ChildByFieldName("value")),
		}
		c.at(e, n)
		return e

	case "await":
		e := &syntax.Await{Value: c.expr(n.NamedChild(0))}
		c.at(e, n)
		return e

	case "yield":
		if c.hasKeyword(n, "from") {
			e := &syntax.YieldFrom{Value: c.expr(n.NamedChild(0))}
			c.at(e, n)
			return e
		}
		e := &syntax.Yield{}
		if kids := c.named(n); len(kids) > 0 {
			e.Value = c.expr(kids[0])
		}
		c.at(e, n)
		return e

	case "call":
		return c.call(n)

	case "attribute":
		e := &syntax.Attribute{
			Value: c.expr(n.ChildByFieldName("object")),
			Attr:  c.text(n.ChildByFieldName("attribute")),
		}
		c.at(e, n)
		return e

	case "subscript":
		return c.subscript(n, syntax.Load)

	case "slice":
		return c.slice(n)

	case "list":
		e := &syntax.List{Elts: c.elements(n)}
		c.at(e, n)
		return e
	case "set":
		e := &syntax.Set{Elts: c.elements(n)}
		c.at(e, n)
		return e
	case "tuple", "expression_list":
		e := &syntax.Tuple{Elts: c.elements(n)}
		c.at(e, n)
		return e

	case "dictionary":
		e := &syntax.Dict{}
		for _, kid := range c.named(n) {
			switch kid.Type() {
			case "pair":
				e.Keys = append(e.Keys, c.expr(kid.ChildByFieldName("key")))
				e.Values = append(e.Values, c.expr(kid.ChildByFieldName("value")))
			case "dictionary_splat":
				// A `**mapping` item has no key.
				e.Keys = append(e.Keys, nil)
				e.Values = append(e.Values, c.expr(kid.NamedChild(0)))
			}
		}
		c.at(e, n)
		return e

	case "list_splat", "list_splat_pattern":
		e := &syntax.Starred{Value: c.expr(n.NamedChild(0))}
		c.at(e, n)
		return e

	case "list_comprehension":
		e := &syntax.ListComp{
			Elt:        c.expr(n.ChildByFieldName("body")),
			Generators: c.comprehensions(n),
		}
		c.at(e, n)
		return e
	case "set_comprehension":
		e := &syntax.SetComp{
			Elt:        c.expr(n.ChildByFieldName("body")),
			Generators: c.comprehensions(n),
		}
		c.at(e, n)
		return e
	case "generator_expression":
		e := &syntax.GeneratorExp{
			Elt:        c.expr(n.ChildByFieldName("body")),
			Generators: c.comprehensions(n),
		}
		c.at(e, n)
		return e
	case "dictionary_comprehension":
		pair := n.ChildByFieldName("body")
		e := &syntax.DictComp{
			Key:        c.expr(pair.ChildByFieldName("key")),
			Value:      c.expr(pair.ChildByFieldName("value")),
			Generators: c.comprehensions(n),
		}
		c.at(e, n)
		return e
	}
	c.errorf(n, "unexpected expression %s", n.Type())
	return nil
}

func (c *converter) constant(n *sitter.Node, v interface{}) syntax.Expr {
	e := &syntax.Constant{Value: v}
	c.at(e, n)
	return e
}

// elements converts the items of a list, set or tuple display.
func (c *converter) elements(n *sitter.Node) []syntax.Expr {
	var out []syntax.Expr
	for _, kid := range c.named(n) {
		out = append(out, c.expr(kid))
	}
	return out
}

func (c *converter) comparison(n *sitter.Node) syntax.Expr {
	var operands []syntax.Expr
	var ops []syntax.Op
	for i := 0; i < int(n.ChildCount()); i++ {
		kid := n.Child(i)
		if kid == nil || kid.Type() == "comment" {
			continue
		}
		if kid.IsNamed() {
			operands = append(operands, c.expr(kid))
			continue
		}
		op, ok := compareOps[kid.Type()]
		if !ok {
			c.errorf(kid, "unknown comparison operator %s", kid.Type())
		}
		ops = append(ops, op)
	}
	if len(operands) != len(ops)+1 {
		c.errorf(n, "malformed comparison")
	}
	e := &syntax.Compare{Left: operands[0], Ops: ops, Comparators: operands[1:]}
	c.at(e, n)
	return e
}

func (c *converter) call(n *sitter.Node) syntax.Expr {
	e := &syntax.Call{Func: c.expr(n.ChildByFieldName("function"))}
	argsNode := n.ChildByFieldName("arguments")
	if argsNode != nil && argsNode.Type() == "generator_expression" {
		// `f(x for x in xs)` passes the generator directly.
		e.Args = []syntax.Expr{c.expr(argsNode)}
	} else if argsNode != nil {
		for _, arg := range c.named(argsNode) {
			switch arg.Type() {
			case "keyword_argument":
				e.Keywords = append(e.Keywords, c.keywordArg(arg))
			case "dictionary_splat":
				kw := &syntax.Keyword{Value: c.expr(arg.NamedChild(0))}
				c.at(kw, arg)
				e.Keywords = append(e.Keywords, kw)
			default:
				e.Args = append(e.Args, c.expr(arg))
			}
		}
	}
	c.at(e, n)
	return e
}

func (c *converter) keywordArg(n *sitter.Node) *syntax.Keyword {
	kw := &syntax.Keyword{
		Arg:   c.text(n.ChildByFieldName("name")),
		Value: c.expr(n.ChildByFieldName("value")),
	}
	c.at(kw, n)
	return kw
}

func (c *converter) subscript(n *sitter.Node, ctx syntax.ExprContext) syntax.Expr {
	kids := c.named(n)
	if len(kids) < 2 {
		c.errorf(n, "malformed subscript")
	}
	var index syntax.Expr
	if len(kids) == 2 {
		index = c.expr(kids[1])
	} else {
		// Several comma-separated indices form a tuple index.
		t := &syntax.Tuple{}
		for _, kid := range kids[1:] {
			t.Elts = append(t.Elts, c.expr(kid))
		}
		c.at(t, kids[1])
		index = t
	}
	e := &syntax.Subscript{Value: c.expr(kids[0]), Index: index, Ctx: ctx}
	c.at(e, n)
	return e
}

func (c *converter) slice(n *sitter.Node) syntax.Expr {
	e := &syntax.Slice{}
	section := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		kid := n.Child(i)
		if kid == nil || kid.Type() == "comment" {
			continue
		}
		if !kid.IsNamed() {
			if kid.Type() == ":" {
				section++
			}
			continue
		}
		switch section {
		case 0:
			e.Lo = c.expr(kid)
		case 1:
			e.Hi = c.expr(kid)
		default:
			e.Step = c.expr(kid)
		}
	}
	c.at(e, n)
	return e
}

func (c *converter) comprehensions(n *sitter.Node) []*syntax.Comprehension {
	var out []*syntax.Comprehension
	for _, kid := range c.named(n) {
		switch kid.Type() {
		case "for_in_clause":
			comp := &syntax.Comprehension{
				Target: c.target(kid.ChildByFieldName("left"), syntax.Store),
				Iter:   c.expr(kid.ChildByFieldName("right")),
				Async:  c.hasKeyword(kid, "async"),
			}
			c.at(comp, kid)
			out = append(out, comp)
		case "if_clause":
			if len(out) == 0 {
				c.errorf(kid, "comprehension condition before its for clause")
			}
			last := out[len(out)-1]
			last.Ifs = append(last.Ifs, c.expr(kid.NamedChild(0)))
		}
	}
	return out
}

// target converts an assignment or deletion target, stamping ctx on
// the names, attributes and display nodes it contains.
func (c *converter) target(n *sitter.Node, ctx syntax.ExprContext) syntax.Expr {
	switch n.Type() {
	case "identifier":
		e := &syntax.Name{ID: c.text(n), Ctx: ctx}
		c.at(e, n)
		return e

	case "attribute":
		e := &syntax.Attribute{
			Value: c.expr(n.ChildByFieldName("object")),
			Attr:  c.text(n.ChildByFieldName("attribute")),
			Ctx:   ctx,
		}
		c.at(e, n)
		return e

	case "subscript":
		return c.subscript(n, ctx)

	case "pattern_list", "expression_list", "tuple", "tuple_pattern":
		e := &syntax.Tuple{Ctx: ctx}
		for _, kid := range c.named(n) {
			e.Elts = append(e.Elts, c.target(kid, ctx))
		}
		c.at(e, n)
		return e

	case "list", "list_pattern":
		e := &syntax.List{Ctx: ctx}
		for _, kid := range c.named(n) {
			e.Elts = append(e.Elts, c.target(kid, ctx))
		}
		c.at(e, n)
		return e

	case "list_splat", "list_splat_pattern":
		e := &syntax.Starred{Value: c.target(n.NamedChild(0), ctx), Ctx: ctx}
		c.at(e, n)
		return e

	case "parenthesized_expression":
		return c.target(n.NamedChild(0), ctx)

	case "as_pattern_target":
		return c.asPatternTarget(n)
	}
	// Anything else, such as a call in a for target, reads naturally.
	return c.expr(n)
}

// annotation unwraps a tree-sitter type node to the expression inside.
func (c *converter) annotation(n *sitter.Node) syntax.Expr {
	if n.Type() == "type" {
		if inner := n.NamedChild(0); inner != nil {
			return c.expr(inner)
		}
		c.errorf(n, "empty type annotation")
	}
	return c.expr(n)
}

// Literals.

func (c *converter) intValue(n *sitter.Node) interface{} {
	s := strings.ReplaceAll(c.text(n), "_", "")
	if t := strings.TrimSuffix(strings.TrimSuffix(s, "j"), "J"); t != s {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			c.errorf(n, "invalid imaginary literal %s", c.text(n))
		}
		return complex(0, f)
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		// Out of int64 range; fall back to a float approximation.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			c.errorf(n, "invalid integer literal %s", c.text(n))
		}
		return f
	}
	return v
}

func (c *converter) floatValue(n *sitter.Node) interface{} {
	s := strings.ReplaceAll(c.text(n), "_", "")
	if t := strings.TrimSuffix(strings.TrimSuffix(s, "j"), "J"); t != s {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			c.errorf(n, "invalid imaginary literal %s", c.text(n))
		}
		return complex(0, f)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.errorf(n, "invalid float literal %s", c.text(n))
	}
	return v
}

// stringExpr converts a string literal: a Constant holding a string or
// bytes value, or a JoinedStr for f-strings.
func (c *converter) stringExpr(n *sitter.Node) syntax.Expr {
	prefix := ""
	for _, kid := range c.named(n) {
		if kid.Type() == "string_start" {
			prefix = strings.ToLower(strings.TrimRight(c.text(kid), `"'`))
			break
		}
	}
	isBytes := strings.Contains(prefix, "b")
	isRaw := strings.Contains(prefix, "r")
	isFormat := strings.Contains(prefix, "f")

	var buf strings.Builder
	var values []syntax.Expr
	flush := func(at *sitter.Node) {
		if buf.Len() == 0 {
			return
		}
		part := &syntax.Constant{Value: buf.String()}
		c.at(part, at)
		values = append(values, part)
		buf.Reset()
	}

	for _, kid := range c.named(n) {
		switch kid.Type() {
		case "string_content":
			c.stringContent(&buf, kid, isRaw, isBytes)
		case "escape_sequence":
			if isRaw {
				buf.WriteString(c.text(kid))
			} else {
				buf.WriteString(decodeEscape(c.text(kid), isBytes))
			}
		case "interpolation":
			if !isFormat {
				continue
			}
			flush(kid)
			fv := &syntax.FormattedValue{Value: c.expr(kid.ChildByFieldName("expression"))}
			c.at(fv, kid)
			values = append(values, fv)
		}
	}

	if isFormat {
		flush(n)
		e := &syntax.JoinedStr{Values: values}
		c.at(e, n)
		return e
	}
	if isBytes {
		return c.constant(n, []byte(buf.String()))
	}
	return c.constant(n, buf.String())
}

// stringContent writes a string_content node's text with its nested
// escape_sequence children decoded, emitting the raw text between
// escapes verbatim.
func (c *converter) stringContent(buf *strings.Builder, n *sitter.Node, isRaw, isBytes bool) {
	pos := n.StartByte()
	for i := 0; i < int(n.NamedChildCount()); i++ {
		kid := n.NamedChild(i)
		if kid.Type() != "escape_sequence" {
			continue
		}
		buf.Write(c.src[pos:kid.StartByte()])
		if isRaw {
			buf.WriteString(c.text(kid))
		} else {
			buf.WriteString(decodeEscape(c.text(kid), isBytes))
		}
		pos = kid.EndByte()
	}
	buf.Write(c.src[pos:n.EndByte()])
}

// concatenatedString merges adjacent string literals the way the
// language does: plain parts fold into one constant, and any f-string
// part makes the whole expression an f-string.
func (c *converter) concatenatedString(n *sitter.Node) syntax.Expr {
	var parts []syntax.Expr
	for _, kid := range c.named(n) {
		if kid.Type() == "string" {
			parts = append(parts, c.stringExpr(kid))
		}
	}

	anyFormat := false
	for _, p := range parts {
		if _, ok := p.(*syntax.JoinedStr); ok {
			anyFormat = true
			break
		}
	}
	if anyFormat {
		e := &syntax.JoinedStr{}
		for _, p := range parts {
			if js, ok := p.(*syntax.JoinedStr); ok {
				e.Values = append(e.Values, js.Values...)
			} else {
				e.Values = append(e.Values, p)
			}
		}
		c.at(e, n)
		return e
	}

	var str strings.Builder
	var bs []byte
	isBytes := false
	for _, p := range parts {
		con, ok := p.(*syntax.Constant)
		if !ok {
			continue
		}
		switch v := con.Value.(type) {
		case string:
			str.WriteString(v)
		case []byte:
			isBytes = true
			bs = append(bs, v...)
		}
	}
	if isBytes {
		return c.constant(n, bs)
	}
	return c.constant(n, str.String())
}

// decodeEscape decodes one Python escape sequence. Unrecognized
// escapes are kept verbatim, matching the language.
func decodeEscape(s string, isBytes bool) string {
	if len(s) < 2 || s[0] != '\\' {
		return s
	}
	switch s[1] {
	case '\n':
		return "" // line continuation
	case '\\':
		return `\`
	case '\'':
		return "'"
	case '"':
		return `"`
	case 'a':
		return "\a"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'n':
		return "\n"
	case 'r':
		return "\r"
	case 't':
		return "\t"
	case 'v':
		return "\v"
	case '0', '1', '2', '3', '4', '5', '6', '7':
		if v, err := strconv.ParseUint(s[1:], 8, 32); err == nil {
			if isBytes || v < 0x80 {
				return string([]byte{byte(v)})
			}
			return string(rune(v))
		}
	case 'x':
		if v, err := strconv.ParseUint(s[2:], 16, 32); err == nil {
			if isBytes || v < 0x80 {
				return string([]byte{byte(v)})
			}
			return string(rune(v))
		}
	case 'u', 'U':
		if isBytes {
			return s
		}
		if v, err := strconv.ParseUint(s[2:], 16, 32); err == nil && utf8.ValidRune(rune(v)) {
			return string(rune(v))
		}
	}
	return s
}
