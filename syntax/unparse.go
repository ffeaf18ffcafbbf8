// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// Unparse reconstructs Python source from a tree. The output favors
// readability over byte fidelity: it normalizes whitespace and adds
// parentheses freely around nested operations. Diagnostic messages and
// the REPL rely on it.

import (
	"fmt"
	"strconv"
	"strings"
)

// Unparse returns a source representation of the node.
func Unparse(n Node) string {
	var u unparser
	u.node(n)
	return strings.TrimSuffix(u.out.String(), "\n")
}

type unparser struct {
	out    strings.Builder
	indent int
}

func (u *unparser) printf(format string, args ...interface{}) {
	fmt.Fprintf(&u.out, format, args...)
}

func (u *unparser) line(format string, args ...interface{}) {
	u.out.WriteString(strings.Repeat("    ", u.indent))
	u.printf(format, args...)
	u.out.WriteByte('\n')
}

func (u *unparser) node(n Node) {
	switch n := n.(type) {
	case Stmt:
		u.stmt(n)
	case Expr:
		u.printf("%s", u.expr(n))
	case *Module:
		u.stmts(n.Body)
	case *Alias:
		u.printf("%s", aliasStr(n))
	case *Arguments:
		u.printf("%s", u.args(n))
	case *Arg:
		u.printf("%s", u.arg(n))
	case *Keyword:
		u.printf("%s", u.keyword(n))
	case *Comprehension:
		u.printf("%s", u.comp(n))
	case *WithItem:
		u.printf("%s", u.withItem(n))
	default:
		u.printf("<%T>", n)
	}
}

func (u *unparser) stmts(body []Stmt) {
	for _, s := range body {
		u.stmt(s)
	}
}

func (u *unparser) block(body []Stmt) {
	u.indent++
	if len(body) == 0 {
		u.line("pass")
	} else {
		u.stmts(body)
	}
	u.indent--
}

func (u *unparser) stmt(s Stmt) {
	switch s := s.(type) {
	case *FunctionDef:
		u.decorators(s.Decorators)
		kw := "def"
		if s.Async {
			kw = "async def"
		}
		if s.Returns != nil {
			u.line("%s %s(%s) -> %s:", kw, s.Name, u.args(s.Args), u.expr(s.Returns))
		} else {
			u.line("%s %s(%s):", kw, s.Name, u.args(s.Args))
		}
		u.block(s.Body)
	case *ClassDef:
		u.decorators(s.Decorators)
		var parts []string
		for _, b := range s.Bases {
			parts = append(parts, u.expr(b))
		}
		for _, k := range s.Keywords {
			parts = append(parts, u.keyword(k))
		}
		if len(parts) > 0 {
			u.line("class %s(%s):", s.Name, strings.Join(parts, ", "))
		} else {
			u.line("class %s:", s.Name)
		}
		u.block(s.Body)
	case *Return:
		if s.Value != nil {
			u.line("return %s", u.expr(s.Value))
		} else {
			u.line("return")
		}
	case *Delete:
		u.line("del %s", u.exprList(s.Targets))
	case *Assign:
		var targets []string
		for _, t := range s.Targets {
			targets = append(targets, u.expr(t))
		}
		u.line("%s = %s", strings.Join(targets, " = "), u.expr(s.Value))
	case *AugAssign:
		u.line("%s %s= %s", u.expr(s.Target), s.Op, u.expr(s.Value))
	case *AnnAssign:
		if s.Value != nil {
			u.line("%s: %s = %s", u.expr(s.Target), u.expr(s.Annotation), u.expr(s.Value))
		} else {
			u.line("%s: %s", u.expr(s.Target), u.expr(s.Annotation))
		}
	case *For:
		kw := "for"
		if s.Async {
			kw = "async for"
		}
		u.line("%s %s in %s:", kw, u.expr(s.Target), u.expr(s.Iter))
		u.block(s.Body)
		u.orelse(s.Else)
	case *While:
		u.line("while %s:", u.expr(s.Cond))
		u.block(s.Body)
		u.orelse(s.Else)
	case *If:
		u.line("if %s:", u.expr(s.Cond))
		u.block(s.Body)
		u.orelse(s.Else)
	case *With:
		var items []string
		for _, it := range s.Items {
			items = append(items, u.withItem(it))
		}
		kw := "with"
		if s.Async {
			kw = "async with"
		}
		u.line("%s %s:", kw, strings.Join(items, ", "))
		u.block(s.Body)
	case *Raise:
		switch {
		case s.Exc == nil:
			u.line("raise")
		case s.Cause != nil:
			u.line("raise %s from %s", u.expr(s.Exc), u.expr(s.Cause))
		default:
			u.line("raise %s", u.expr(s.Exc))
		}
	case *Try:
		u.line("try:")
		u.block(s.Body)
		for _, h := range s.Handlers {
			u.stmt(h)
		}
		u.orelse(s.Else)
		if len(s.Finally) > 0 {
			u.line("finally:")
			u.block(s.Finally)
		}
	case *ExceptHandler:
		switch {
		case s.Type == nil:
			u.line("except:")
		case s.Name != nil:
			u.line("except %s as %s:", u.expr(s.Type), s.Name.ID)
		default:
			u.line("except %s:", u.expr(s.Type))
		}
		u.block(s.Body)
	case *Assert:
		if s.Msg != nil {
			u.line("assert %s, %s", u.expr(s.Test), u.expr(s.Msg))
		} else {
			u.line("assert %s", u.expr(s.Test))
		}
	case *Import:
		u.line("import %s", aliasListStr(s.Names))
	case *ImportFrom:
		u.line("from %s%s import %s", strings.Repeat(".", s.Level), s.Module, aliasListStr(s.Names))
	case *Global:
		u.line("global %s", strings.Join(s.Names, ", "))
	case *Nonlocal:
		u.line("nonlocal %s", strings.Join(s.Names, ", "))
	case *ExprStmt:
		u.line("%s", u.expr(s.Value))
	case *Pass:
		u.line("pass")
	case *Break:
		u.line("break")
	case *Continue:
		u.line("continue")
	default:
		u.line("<%T>", s)
	}
}

func (u *unparser) decorators(ds []Expr) {
	for _, d := range ds {
		u.line("@%s", u.expr(d))
	}
}

func (u *unparser) orelse(body []Stmt) {
	if len(body) == 0 {
		return
	}
	// Render `elif` chains the way they were written.
	if len(body) == 1 {
		if inner, ok := body[0].(*If); ok {
			u.line("elif %s:", u.expr(inner.Cond))
			u.block(inner.Body)
			u.orelse(inner.Else)
			return
		}
	}
	u.line("else:")
	u.block(body)
}

func (u *unparser) exprList(es []Expr) string {
	var parts []string
	for _, e := range es {
		parts = append(parts, u.expr(e))
	}
	return strings.Join(parts, ", ")
}

func (u *unparser) expr(e Expr) string {
	if e == nil {
		return "<uninferable>"
	}
	switch e := e.(type) {
	case *BoolOp:
		var parts []string
		for _, v := range e.Values {
			parts = append(parts, u.sub(v))
		}
		return strings.Join(parts, " "+e.Op.String()+" ")
	case *NamedExpr:
		return fmt.Sprintf("(%s := %s)", e.Target.ID, u.expr(e.Value))
	case *BinOp:
		return fmt.Sprintf("%s %s %s", u.sub(e.Left), e.Op, u.sub(e.Right))
	case *UnaryOp:
		if e.Op == OpNot {
			return "not " + u.sub(e.Operand)
		}
		return e.Op.String() + u.sub(e.Operand)
	case *Lambda:
		if a := u.args(e.Args); a != "" {
			return fmt.Sprintf("lambda %s: %s", a, u.expr(e.Body))
		}
		return "lambda: " + u.expr(e.Body)
	case *IfExp:
		return fmt.Sprintf("%s if %s else %s", u.sub(e.Body), u.sub(e.Cond), u.sub(e.Else))
	case *Dict:
		var parts []string
		for i, k := range e.Keys {
			if k == nil {
				parts = append(parts, "**"+u.expr(e.Values[i]))
			} else {
				parts = append(parts, u.expr(k)+": "+u.expr(e.Values[i]))
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Set:
		if len(e.Elts) == 0 {
			return "set()"
		}
		return "{" + u.exprList(e.Elts) + "}"
	case *ListComp:
		return "[" + u.expr(e.Elt) + u.compList(e.Generators) + "]"
	case *SetComp:
		return "{" + u.expr(e.Elt) + u.compList(e.Generators) + "}"
	case *DictComp:
		return "{" + u.expr(e.Key) + ": " + u.expr(e.Value) + u.compList(e.Generators) + "}"
	case *GeneratorExp:
		return "(" + u.expr(e.Elt) + u.compList(e.Generators) + ")"
	case *Await:
		return "await " + u.sub(e.Value)
	case *Yield:
		if e.Value != nil {
			return "(yield " + u.expr(e.Value) + ")"
		}
		return "(yield)"
	case *YieldFrom:
		return "(yield from " + u.expr(e.Value) + ")"
	case *Compare:
		s := u.sub(e.Left)
		for i, op := range e.Ops {
			s += " " + op.String() + " " + u.sub(e.Comparators[i])
		}
		return s
	case *Call:
		var parts []string
		for _, a := range e.Args {
			parts = append(parts, u.expr(a))
		}
		for _, k := range e.Keywords {
			parts = append(parts, u.keyword(k))
		}
		return u.sub(e.Func) + "(" + strings.Join(parts, ", ") + ")"
	case *Constant:
		return constantStr(e.Value)
	case *JoinedStr:
		var b strings.Builder
		b.WriteString("f\"")
		for _, v := range e.Values {
			if c, ok := v.(*Constant); ok {
				if s, ok := c.Value.(string); ok {
					b.WriteString(s)
					continue
				}
			}
			b.WriteString("{" + u.expr(v) + "}")
		}
		b.WriteString("\"")
		return b.String()
	case *FormattedValue:
		return "{" + u.expr(e.Value) + "}"
	case *Attribute:
		return u.sub(e.Value) + "." + e.Attr
	case *Subscript:
		return u.sub(e.Value) + "[" + u.expr(e.Index) + "]"
	case *Starred:
		return "*" + u.sub(e.Value)
	case *Name:
		return e.ID
	case *List:
		return "[" + u.exprList(e.Elts) + "]"
	case *Tuple:
		if len(e.Elts) == 1 {
			return "(" + u.expr(e.Elts[0]) + ",)"
		}
		return "(" + u.exprList(e.Elts) + ")"
	case *Slice:
		s := ""
		if e.Lo != nil {
			s += u.expr(e.Lo)
		}
		s += ":"
		if e.Hi != nil {
			s += u.expr(e.Hi)
		}
		if e.Step != nil {
			s += ":" + u.expr(e.Step)
		}
		return s
	}
	return fmt.Sprintf("<%T>", e)
}

// sub renders a subexpression, parenthesizing compound operations so
// the output never misreads regardless of the parent's precedence.
func (u *unparser) sub(e Expr) string {
	switch e.(type) {
	case *BoolOp, *BinOp, *UnaryOp, *IfExp, *Lambda, *Compare, *Await:
		return "(" + u.expr(e) + ")"
	}
	return u.expr(e)
}

func (u *unparser) compList(gens []*Comprehension) string {
	var b strings.Builder
	for _, g := range gens {
		b.WriteString(" " + u.comp(g))
	}
	return b.String()
}

func (u *unparser) comp(g *Comprehension) string {
	kw := "for"
	if g.Async {
		kw = "async for"
	}
	s := fmt.Sprintf("%s %s in %s", kw, u.expr(g.Target), u.sub(g.Iter))
	for _, cond := range g.Ifs {
		s += " if " + u.sub(cond)
	}
	return s
}

func (u *unparser) withItem(w *WithItem) string {
	if w.Vars != nil {
		return u.expr(w.Context) + " as " + u.expr(w.Vars)
	}
	return u.expr(w.Context)
}

func (u *unparser) keyword(k *Keyword) string {
	if k.Arg == "" {
		return "**" + u.expr(k.Value)
	}
	return k.Arg + "=" + u.expr(k.Value)
}

func (u *unparser) arg(a *Arg) string {
	if a.Annotation != nil {
		return a.Name + ": " + u.expr(a.Annotation)
	}
	return a.Name
}

func (u *unparser) args(a *Arguments) string {
	if a == nil {
		return ""
	}
	var parts []string
	positional := append(append([]*Arg{}, a.PosOnly...), a.Args...)
	// Defaults align with the tail of the positional parameters.
	firstDefault := len(positional) - len(a.Defaults)
	for i, p := range positional {
		s := u.arg(p)
		if i >= firstDefault {
			s += "=" + u.expr(a.Defaults[i-firstDefault])
		}
		parts = append(parts, s)
		if len(a.PosOnly) > 0 && i == len(a.PosOnly)-1 {
			parts = append(parts, "/")
		}
	}
	if a.Vararg != nil {
		parts = append(parts, "*"+u.arg(a.Vararg))
	} else if len(a.KwOnly) > 0 {
		parts = append(parts, "*")
	}
	for i, p := range a.KwOnly {
		s := u.arg(p)
		if i < len(a.KwDefaults) && a.KwDefaults[i] != nil {
			s += "=" + u.expr(a.KwDefaults[i])
		}
		parts = append(parts, s)
	}
	if a.Kwarg != nil {
		parts = append(parts, "**"+u.arg(a.Kwarg))
	}
	return strings.Join(parts, ", ")
}

func aliasStr(a *Alias) string {
	if a.AsName != "" {
		return a.Name + " as " + a.AsName
	}
	return a.Name
}

func aliasListStr(as []*Alias) string {
	var parts []string
	for _, a := range as {
		parts = append(parts, aliasStr(a))
	}
	return strings.Join(parts, ", ")
}

func constantStr(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return pyQuote(v)
	case []byte:
		return "b" + pyQuote(string(v))
	case EllipsisValue:
		return "..."
	}
	return fmt.Sprintf("%v", v)
}

// pyQuote renders s as a single-quoted Python string literal.
func pyQuote(s string) string {
	q := strconv.Quote(s)
	q = q[1 : len(q)-1]
	q = strings.ReplaceAll(q, `\"`, `"`)
	q = strings.ReplaceAll(q, `'`, `\'`)
	return "'" + q + "'"
}
