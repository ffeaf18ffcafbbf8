// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pyparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pysleuth.net/syntax"
)

func parse(t *testing.T, src string) *syntax.Module {
	t.Helper()
	mod, err := Parse("test.py", []byte(src))
	require.NoError(t, err)
	return mod
}

func TestModulePosition(t *testing.T) {
	mod := parse(t, "x = 1\n")
	assert.Equal(t, int32(0), mod.Pos().Line)
	assert.Equal(t, "test.py", mod.Filename)
}

func TestAssignments(t *testing.T) {
	mod := parse(t, `
x = 1
a = b = 2
p, q = 1, 2
n: int = 3
m: int
x += 1
`)
	require.Len(t, mod.Body, 6)

	assign := mod.Body[0].(*syntax.Assign)
	require.Len(t, assign.Targets, 1)
	name := assign.Targets[0].(*syntax.Name)
	assert.Equal(t, "x", name.ID)
	assert.Equal(t, syntax.Store, name.Ctx)
	assert.Equal(t, int64(1), assign.Value.(*syntax.Constant).Value)
	assert.Equal(t, int32(2), assign.Pos().Line)

	chain := mod.Body[1].(*syntax.Assign)
	require.Len(t, chain.Targets, 2)
	assert.Equal(t, "a", chain.Targets[0].(*syntax.Name).ID)
	assert.Equal(t, "b", chain.Targets[1].(*syntax.Name).ID)

	unpack := mod.Body[2].(*syntax.Assign)
	target := unpack.Targets[0].(*syntax.Tuple)
	require.Len(t, target.Elts, 2)
	assert.Equal(t, syntax.Store, target.Ctx)
	assert.Equal(t, syntax.Store, target.Elts[0].(*syntax.Name).Ctx)

	ann := mod.Body[3].(*syntax.AnnAssign)
	assert.Equal(t, "n", ann.Target.(*syntax.Name).ID)
	assert.Equal(t, "int", ann.Annotation.(*syntax.Name).ID)
	assert.Equal(t, int64(3), ann.Value.(*syntax.Constant).Value)

	bare := mod.Body[4].(*syntax.AnnAssign)
	assert.Nil(t, bare.Value)

	aug := mod.Body[5].(*syntax.AugAssign)
	assert.Equal(t, syntax.OpAdd, aug.Op)
	assert.Equal(t, syntax.Store, aug.Target.(*syntax.Name).Ctx)
}

func TestFunctionDef(t *testing.T) {
	mod := parse(t, `
def f(a, b=1, *args, c, d=2, **kw):
    return a
`)
	fn := mod.Body[0].(*syntax.FunctionDef)
	assert.Equal(t, "f", fn.Name)
	assert.False(t, fn.Async)

	args := fn.Args
	require.Len(t, args.Args, 2)
	assert.Equal(t, "a", args.Args[0].Name)
	assert.Equal(t, "b", args.Args[1].Name)
	require.Len(t, args.Defaults, 1)
	assert.Equal(t, int64(1), args.Defaults[0].(*syntax.Constant).Value)

	require.NotNil(t, args.Vararg)
	assert.Equal(t, "args", args.Vararg.Name)
	require.Len(t, args.KwOnly, 2)
	assert.Equal(t, "c", args.KwOnly[0].Name)
	require.Len(t, args.KwDefaults, 2)
	assert.Nil(t, args.KwDefaults[0])
	assert.Equal(t, int64(2), args.KwDefaults[1].(*syntax.Constant).Value)
	require.NotNil(t, args.Kwarg)
	assert.Equal(t, "kw", args.Kwarg.Name)

	ret := fn.Body[0].(*syntax.Return)
	assert.Equal(t, "a", ret.Value.(*syntax.Name).ID)
}

func TestPositionalOnlyParams(t *testing.T) {
	mod := parse(t, "def f(a, b, /, c):\n    pass\n")
	args := mod.Body[0].(*syntax.FunctionDef).Args
	require.Len(t, args.PosOnly, 2)
	assert.Equal(t, "a", args.PosOnly[0].Name)
	require.Len(t, args.Args, 1)
	assert.Equal(t, "c", args.Args[0].Name)
}

func TestAsyncDef(t *testing.T) {
	mod := parse(t, "async def g():\n    await h()\n")
	fn := mod.Body[0].(*syntax.FunctionDef)
	assert.True(t, fn.Async)
	expr := fn.Body[0].(*syntax.ExprStmt)
	aw := expr.Value.(*syntax.Await)
	call := aw.Value.(*syntax.Call)
	assert.Equal(t, "h", call.Func.(*syntax.Name).ID)
}

func TestDecorators(t *testing.T) {
	mod := parse(t, `
@deco
@mod.attr
def f():
    pass
`)
	fn := mod.Body[0].(*syntax.FunctionDef)
	require.Len(t, fn.Decorators, 2)
	assert.Equal(t, "deco", fn.Decorators[0].(*syntax.Name).ID)
	attr := fn.Decorators[1].(*syntax.Attribute)
	assert.Equal(t, "attr", attr.Attr)
}

func TestClassDef(t *testing.T) {
	mod := parse(t, `
class C(Base, metaclass=Meta):
    x = 1
    def m(self):
        pass
`)
	cls := mod.Body[0].(*syntax.ClassDef)
	assert.Equal(t, "C", cls.Name)
	require.Len(t, cls.Bases, 1)
	assert.Equal(t, "Base", cls.Bases[0].(*syntax.Name).ID)
	require.Len(t, cls.Keywords, 1)
	assert.Equal(t, "metaclass", cls.Keywords[0].Arg)
	require.Len(t, cls.Body, 2)
	_ = cls.Body[0].(*syntax.Assign)
	_ = cls.Body[1].(*syntax.FunctionDef)
}

func TestIfElifElse(t *testing.T) {
	mod := parse(t, `
if a:
    x = 1
elif b:
    x = 2
else:
    x = 3
`)
	s := mod.Body[0].(*syntax.If)
	assert.Equal(t, "a", s.Cond.(*syntax.Name).ID)
	require.Len(t, s.Else, 1)
	elif := s.Else[0].(*syntax.If)
	assert.Equal(t, "b", elif.Cond.(*syntax.Name).ID)
	require.Len(t, elif.Else, 1)
	_ = elif.Else[0].(*syntax.Assign)
}

func TestForWhile(t *testing.T) {
	mod := parse(t, `
for i, v in pairs:
    break
else:
    pass
while cond:
    continue
`)
	loop := mod.Body[0].(*syntax.For)
	target := loop.Target.(*syntax.Tuple)
	require.Len(t, target.Elts, 2)
	assert.Equal(t, syntax.Store, target.Elts[0].(*syntax.Name).Ctx)
	assert.Equal(t, "pairs", loop.Iter.(*syntax.Name).ID)
	_ = loop.Body[0].(*syntax.Break)
	require.Len(t, loop.Else, 1)

	w := mod.Body[1].(*syntax.While)
	assert.Equal(t, "cond", w.Cond.(*syntax.Name).ID)
	_ = w.Body[0].(*syntax.Continue)
}

func TestTryExcept(t *testing.T) {
	mod := parse(t, `
try:
    f()
except ValueError as e:
    pass
except KeyError:
    pass
else:
    g()
finally:
    h()
`)
	s := mod.Body[0].(*syntax.Try)
	require.Len(t, s.Handlers, 2)

	h := s.Handlers[0]
	assert.Equal(t, "ValueError", h.Type.(*syntax.Name).ID)
	require.NotNil(t, h.Name)
	assert.Equal(t, "e", h.Name.ID)
	assert.Equal(t, syntax.Store, h.Name.Ctx)

	assert.Nil(t, s.Handlers[1].Name)
	require.Len(t, s.Else, 1)
	require.Len(t, s.Finally, 1)
}

func TestWithTargets(t *testing.T) {
	mod := parse(t, `
with open(a) as fh:
    pass
with open(b) as (x, y):
    pass
with open(c) as (z,):
    pass
`)
	name := mod.Body[0].(*syntax.With).Items[0].Vars.(*syntax.Name)
	assert.Equal(t, "fh", name.ID)
	assert.Equal(t, syntax.Store, name.Ctx)

	pair := mod.Body[1].(*syntax.With).Items[0].Vars.(*syntax.Tuple)
	require.Len(t, pair.Elts, 2)
	assert.Equal(t, "x", pair.Elts[0].(*syntax.Name).ID)
	assert.Equal(t, "y", pair.Elts[1].(*syntax.Name).ID)
	assert.Equal(t, syntax.Store, pair.Ctx)

	// A parenthesized single-name target stays a one-element tuple,
	// not a tuple wrapped in another tuple.
	single := mod.Body[2].(*syntax.With).Items[0].Vars.(*syntax.Tuple)
	require.Len(t, single.Elts, 1)
	assert.Equal(t, "z", single.Elts[0].(*syntax.Name).ID)
}

func TestImports(t *testing.T) {
	mod := parse(t, `
import os, sys as system
from pkg.sub import name, other as alias
from . import sibling
from ..up import thing
from mod import *
`)
	imp := mod.Body[0].(*syntax.Import)
	require.Len(t, imp.Names, 2)
	assert.Equal(t, "os", imp.Names[0].Name)
	assert.Equal(t, "", imp.Names[0].AsName)
	assert.Equal(t, "sys", imp.Names[1].Name)
	assert.Equal(t, "system", imp.Names[1].AsName)

	from := mod.Body[1].(*syntax.ImportFrom)
	assert.Equal(t, "pkg.sub", from.Module)
	assert.Equal(t, 0, from.Level)
	require.Len(t, from.Names, 2)
	assert.Equal(t, "name", from.Names[0].Name)
	assert.Equal(t, "alias", from.Names[1].AsName)

	rel := mod.Body[2].(*syntax.ImportFrom)
	assert.Equal(t, "", rel.Module)
	assert.Equal(t, 1, rel.Level)
	assert.Equal(t, "sibling", rel.Names[0].Name)

	up := mod.Body[3].(*syntax.ImportFrom)
	assert.Equal(t, "up", up.Module)
	assert.Equal(t, 2, up.Level)

	wild := mod.Body[4].(*syntax.ImportFrom)
	require.Len(t, wild.Names, 1)
	assert.Equal(t, "*", wild.Names[0].Name)
}

func TestLiterals(t *testing.T) {
	mod := parse(t, `
i = 42
h = 0x1f
big = 1_000_000
f = 2.5
s = "hi"
b = b"raw"
t = True
n = None
e = ...
`)
	value := func(i int) interface{} {
		return mod.Body[i].(*syntax.Assign).Value.(*syntax.Constant).Value
	}
	assert.Equal(t, int64(42), value(0))
	assert.Equal(t, int64(31), value(1))
	assert.Equal(t, int64(1000000), value(2))
	assert.Equal(t, 2.5, value(3))
	assert.Equal(t, "hi", value(4))
	assert.Equal(t, []byte("raw"), value(5))
	assert.Equal(t, true, value(6))
	assert.Nil(t, value(7))
	assert.Equal(t, syntax.Ellipsis, value(8))
}

func TestStringEscapes(t *testing.T) {
	mod := parse(t, "s = \"a\\nb\\tc\\x41\"\nr = r\"a\\nb\"\n")
	s := mod.Body[0].(*syntax.Assign).Value.(*syntax.Constant)
	assert.Equal(t, "a\nb\tcA", s.Value)
	raw := mod.Body[1].(*syntax.Assign).Value.(*syntax.Constant)
	assert.Equal(t, `a\nb`, raw.Value)
}

func TestFString(t *testing.T) {
	mod := parse(t, "s = f\"x={x} done\"\n")
	js := mod.Body[0].(*syntax.Assign).Value.(*syntax.JoinedStr)
	require.NotEmpty(t, js.Values)
	var found bool
	for _, v := range js.Values {
		if fv, ok := v.(*syntax.FormattedValue); ok {
			assert.Equal(t, "x", fv.Value.(*syntax.Name).ID)
			found = true
		}
	}
	assert.True(t, found)
}

func TestOperators(t *testing.T) {
	mod := parse(t, `
a = 1 + 2 * 3
b = x and y and z
c = not x
d = -n
e = 1 < x <= 10
g = v if cond else w
`)
	bin := mod.Body[0].(*syntax.Assign).Value.(*syntax.BinOp)
	assert.Equal(t, syntax.OpAdd, bin.Op)
	inner := bin.Right.(*syntax.BinOp)
	assert.Equal(t, syntax.OpMult, inner.Op)

	boolop := mod.Body[1].(*syntax.Assign).Value.(*syntax.BoolOp)
	assert.Equal(t, syntax.OpAnd, boolop.Op)
	assert.Len(t, boolop.Values, 3)

	not := mod.Body[2].(*syntax.Assign).Value.(*syntax.UnaryOp)
	assert.Equal(t, syntax.OpNot, not.Op)

	neg := mod.Body[3].(*syntax.Assign).Value.(*syntax.UnaryOp)
	assert.Equal(t, syntax.OpUSub, neg.Op)

	cmp := mod.Body[4].(*syntax.Assign).Value.(*syntax.Compare)
	require.Len(t, cmp.Ops, 2)
	assert.Equal(t, syntax.OpLt, cmp.Ops[0])
	assert.Equal(t, syntax.OpLtE, cmp.Ops[1])
	require.Len(t, cmp.Comparators, 2)

	ifexp := mod.Body[5].(*syntax.Assign).Value.(*syntax.IfExp)
	assert.Equal(t, "v", ifexp.Body.(*syntax.Name).ID)
	assert.Equal(t, "cond", ifexp.Cond.(*syntax.Name).ID)
	assert.Equal(t, "w", ifexp.Else.(*syntax.Name).ID)
}

func TestDisplays(t *testing.T) {
	mod := parse(t, `
l = [1, 2]
t = (1, 2)
s = {1, 2}
d = {"k": 1, **extra}
u = 1, 2
`)
	list := mod.Body[0].(*syntax.Assign).Value.(*syntax.List)
	assert.Len(t, list.Elts, 2)
	tup := mod.Body[1].(*syntax.Assign).Value.(*syntax.Tuple)
	assert.Len(t, tup.Elts, 2)
	set := mod.Body[2].(*syntax.Assign).Value.(*syntax.Set)
	assert.Len(t, set.Elts, 2)

	dict := mod.Body[3].(*syntax.Assign).Value.(*syntax.Dict)
	require.Len(t, dict.Keys, 2)
	assert.Equal(t, "k", dict.Keys[0].(*syntax.Constant).Value)
	assert.Nil(t, dict.Keys[1]) // **extra
	assert.Equal(t, "extra", dict.Values[1].(*syntax.Name).ID)

	bare := mod.Body[4].(*syntax.Assign).Value.(*syntax.Tuple)
	assert.Len(t, bare.Elts, 2)
}

func TestComprehensions(t *testing.T) {
	mod := parse(t, `
l = [x * 2 for x in xs if x]
d = {k: v for k, v in items}
g = (y for y in ys)
`)
	lc := mod.Body[0].(*syntax.Assign).Value.(*syntax.ListComp)
	require.Len(t, lc.Generators, 1)
	gen := lc.Generators[0]
	assert.Equal(t, syntax.Store, gen.Target.(*syntax.Name).Ctx)
	assert.Equal(t, "xs", gen.Iter.(*syntax.Name).ID)
	require.Len(t, gen.Ifs, 1)

	dc := mod.Body[1].(*syntax.Assign).Value.(*syntax.DictComp)
	assert.Equal(t, "k", dc.Key.(*syntax.Name).ID)
	assert.Equal(t, "v", dc.Value.(*syntax.Name).ID)
	target := dc.Generators[0].Target.(*syntax.Tuple)
	assert.Len(t, target.Elts, 2)

	ge := mod.Body[2].(*syntax.Assign).Value.(*syntax.GeneratorExp)
	assert.Equal(t, "y", ge.Elt.(*syntax.Name).ID)
}

func TestCalls(t *testing.T) {
	mod := parse(t, "r = f(1, x, key=2, *rest, **kw)\n")
	call := mod.Body[0].(*syntax.Assign).Value.(*syntax.Call)
	assert.Equal(t, "f", call.Func.(*syntax.Name).ID)
	require.Len(t, call.Args, 3)
	_ = call.Args[2].(*syntax.Starred)
	require.Len(t, call.Keywords, 2)
	assert.Equal(t, "key", call.Keywords[0].Arg)
	assert.Equal(t, "", call.Keywords[1].Arg) // **kw
}

func TestSubscriptsAndSlices(t *testing.T) {
	mod := parse(t, `
a = m[k]
b = m[1:2:3]
c = m[i, j]
`)
	sub := mod.Body[0].(*syntax.Assign).Value.(*syntax.Subscript)
	assert.Equal(t, "k", sub.Index.(*syntax.Name).ID)

	sl := mod.Body[1].(*syntax.Assign).Value.(*syntax.Subscript).Index.(*syntax.Slice)
	assert.Equal(t, int64(1), sl.Lo.(*syntax.Constant).Value)
	assert.Equal(t, int64(2), sl.Hi.(*syntax.Constant).Value)
	assert.Equal(t, int64(3), sl.Step.(*syntax.Constant).Value)

	multi := mod.Body[2].(*syntax.Assign).Value.(*syntax.Subscript)
	pair := multi.Index.(*syntax.Tuple)
	assert.Len(t, pair.Elts, 2)
}

func TestWalrus(t *testing.T) {
	mod := parse(t, "if (n := f()):\n    pass\n")
	cond := mod.Body[0].(*syntax.If).Cond.(*syntax.NamedExpr)
	assert.Equal(t, "n", cond.Target.ID)
	assert.Equal(t, syntax.Store, cond.Target.Ctx)
	_ = cond.Value.(*syntax.Call)
}

func TestLambda(t *testing.T) {
	mod := parse(t, "f = lambda a, b=1: a + b\ng = lambda: 0\n")
	lam := mod.Body[0].(*syntax.Assign).Value.(*syntax.Lambda)
	require.Len(t, lam.Args.Args, 2)
	require.Len(t, lam.Args.Defaults, 1)
	_ = lam.Body.(*syntax.BinOp)

	empty := mod.Body[1].(*syntax.Assign).Value.(*syntax.Lambda)
	assert.Empty(t, empty.Args.Args)
	assert.Equal(t, int64(0), empty.Body.(*syntax.Constant).Value)
}

func TestGlobalNonlocalDel(t *testing.T) {
	mod := parse(t, `
def f():
    global a, b
    nonlocal c
    del x, y
`)
	body := mod.Body[0].(*syntax.FunctionDef).Body
	g := body[0].(*syntax.Global)
	assert.Equal(t, []string{"a", "b"}, g.Names)
	nl := body[1].(*syntax.Nonlocal)
	assert.Equal(t, []string{"c"}, nl.Names)
	del := body[2].(*syntax.Delete)
	require.Len(t, del.Targets, 2)
	assert.Equal(t, syntax.Del, del.Targets[0].(*syntax.Name).Ctx)
}

func TestYield(t *testing.T) {
	mod := parse(t, `
def g():
    yield 1
    yield
    yield from other()
`)
	body := mod.Body[0].(*syntax.FunctionDef).Body
	y1 := body[0].(*syntax.ExprStmt).Value.(*syntax.Yield)
	assert.Equal(t, int64(1), y1.Value.(*syntax.Constant).Value)
	y2 := body[1].(*syntax.ExprStmt).Value.(*syntax.Yield)
	assert.Nil(t, y2.Value)
	_ = body[2].(*syntax.ExprStmt).Value.(*syntax.YieldFrom)
}

func TestSyntaxError(t *testing.T) {
	_, err := Parse("bad.py", []byte("def f(:\n"))
	require.Error(t, err)
	var perr Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad.py", perr.Filename)
}

func TestLinePositions(t *testing.T) {
	mod := parse(t, "x = 1\n\ny = 2\n")
	assert.Equal(t, int32(1), mod.Body[0].Pos().Line)
	assert.Equal(t, int32(3), mod.Body[1].Pos().Line)
}
