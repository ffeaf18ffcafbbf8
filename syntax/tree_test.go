// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax_test

import (
	"errors"
	"testing"

	"go.pysleuth.net/internal/pyparse"
	"go.pysleuth.net/resolve"
	"go.pysleuth.net/syntax"
)

func parse(t *testing.T, src string) *syntax.Module {
	t.Helper()
	mod, err := pyparse.Parse("test.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	mod.Name = "test"
	resolve.File(mod, nil)
	return mod
}

func findFunc(t *testing.T, mod *syntax.Module, name string) *syntax.FunctionDef {
	t.Helper()
	var fn *syntax.FunctionDef
	syntax.Walk(mod, func(n syntax.Node) bool {
		if f, ok := n.(*syntax.FunctionDef); ok && f.Name == name {
			fn = f
		}
		return true
	})
	if fn == nil {
		t.Fatalf("no function %q", name)
	}
	return fn
}

func TestPositionString(t *testing.T) {
	if got := syntax.NoPos.String(); got != "???" {
		t.Errorf("NoPos: got %q, want ???", got)
	}
	if got := (syntax.Position{Line: 3, Col: 4}).String(); got != "3:5" {
		t.Errorf("got %q, want 3:5", got)
	}
	if syntax.NoPos.IsValid() {
		t.Error("NoPos is valid")
	}
	if (syntax.Position{}).IsValid() {
		t.Error("the zero position is valid")
	}
}

func TestNavigationBoundaries(t *testing.T) {
	mod := parse(t, `a = 1
b = 2
`)
	if _, err := syntax.Index(mod); !errors.Is(err, syntax.ErrRoot) {
		t.Errorf("Index(module): got %v, want ErrRoot", err)
	}
	if _, err := syntax.PrevSibling(mod); !errors.Is(err, syntax.ErrRoot) {
		t.Errorf("PrevSibling(module): got %v, want ErrRoot", err)
	}

	kids := syntax.Children(mod)
	if _, err := syntax.PrevSibling(kids[0]); !errors.Is(err, syntax.ErrNoSuchSibling) {
		t.Errorf("PrevSibling(first): got %v, want ErrNoSuchSibling", err)
	}
	if _, err := syntax.NextSibling(kids[len(kids)-1]); !errors.Is(err, syntax.ErrNoSuchSibling) {
		t.Errorf("NextSibling(last): got %v, want ErrNoSuchSibling", err)
	}

	next, err := syntax.NextSibling(kids[0])
	if err != nil {
		t.Fatal(err)
	}
	if next != kids[1] {
		t.Error("NextSibling(first) is not the second child")
	}
	prev, err := syntax.PrevSibling(next)
	if err != nil {
		t.Fatal(err)
	}
	if prev != kids[0] {
		t.Error("PrevSibling does not invert NextSibling")
	}
}

func TestAncestry(t *testing.T) {
	mod := parse(t, `def f():
    return 1
`)
	fn := findFunc(t, mod, "f")
	ret := fn.Body[0].(*syntax.Return)

	if syntax.Parent(fn) != syntax.Node(mod) {
		t.Error("function parent is not the module")
	}
	if syntax.Root(ret.Value) != mod {
		t.Error("Root did not reach the module")
	}
	if !syntax.ParentOf(fn, ret.Value) {
		t.Error("ParentOf missed a distant ancestor")
	}
	if syntax.ParentOf(ret, fn) {
		t.Error("ParentOf inverted the relation")
	}
	ancs := syntax.Ancestors(ret.Value)
	if len(ancs) != 3 || ancs[0] != syntax.Node(ret) || ancs[2] != syntax.Node(mod) {
		t.Errorf("Ancestors: got %d entries, want [return, def, module]", len(ancs))
	}
}

func TestFrameAndScope(t *testing.T) {
	mod := parse(t, `class C:
    def m(self):
        return [n for n in self.items]
`)
	fn := findFunc(t, mod, "m")

	var compName *syntax.Name
	syntax.Walk(mod, func(n syntax.Node) bool {
		if name, ok := n.(*syntax.Name); ok && name.ID == "n" && name.Ctx == syntax.Load {
			compName = name
		}
		return true
	})
	if compName == nil {
		t.Fatal("no load of n")
	}

	// A comprehension introduces a scope but not a frame.
	if _, ok := syntax.Scope(compName).(*syntax.ListComp); !ok {
		t.Errorf("scope of n: got %T, want the comprehension", syntax.Scope(compName))
	}
	if syntax.Frame(compName) != syntax.Node(fn) {
		t.Errorf("frame of n: got %T, want the method", syntax.Frame(compName))
	}
	if syntax.Frame(mod) != syntax.Node(mod) {
		t.Error("the module is not its own frame")
	}
}

func TestDecoratorScope(t *testing.T) {
	mod := parse(t, `def dec(f):
    return f
@dec
def g():
    pass
`)
	g := findFunc(t, mod, "g")
	if len(g.Decorators) != 1 {
		t.Fatalf("want 1 decorator, got %d", len(g.Decorators))
	}
	d := g.Decorators[0]
	if !syntax.IsFromDecorator(d) {
		t.Error("decorator not recognized")
	}
	// The decorator resolves in the scope enclosing the definition it
	// decorates, not inside the definition.
	if syntax.Scope(d) != syntax.Node(mod) {
		t.Errorf("decorator scope: got %T, want the module", syntax.Scope(d))
	}
	if syntax.IsFromDecorator(g.Body[0]) {
		t.Error("a body statement is not a decorator")
	}
}

func TestStatement(t *testing.T) {
	mod := parse(t, `x = 1 + 2
`)
	assign := mod.Body[0].(*syntax.Assign)
	binop := assign.Value.(*syntax.BinOp)
	if syntax.Statement(binop.Left) != syntax.Node(assign) {
		t.Error("Statement of an operand is not the assignment")
	}
	if syntax.Statement(assign) != syntax.Node(assign) {
		t.Error("Statement of a statement is not itself")
	}
	if syntax.Statement(mod) != syntax.Node(mod) {
		t.Error("Statement of the module is not itself")
	}
}

func TestQName(t *testing.T) {
	mod := parse(t, `class C:
    def m(self):
        pass
def f():
    pass
`)
	if got := syntax.QName(mod); got != "test" {
		t.Errorf("module: got %q", got)
	}
	cls := mod.Body[0].(*syntax.ClassDef)
	if got := syntax.QName(cls); got != "test.C" {
		t.Errorf("class: got %q, want test.C", got)
	}
	if got := syntax.QName(findFunc(t, mod, "m")); got != "test.C.m" {
		t.Errorf("method: got %q, want test.C.m", got)
	}
	if got := syntax.QName(findFunc(t, mod, "f")); got != "test.f" {
		t.Errorf("function: got %q, want test.f", got)
	}
}

func TestLocateChild(t *testing.T) {
	mod := parse(t, `if a:
    b = 1
else:
    c = 2
`)
	ifStmt := mod.Body[0].(*syntax.If)

	field, err := syntax.LocateChild(ifStmt, ifStmt.Cond)
	if err != nil || field != "test" {
		t.Errorf("cond: got %q, %v", field, err)
	}
	field, err = syntax.LocateChild(ifStmt, ifStmt.Body[0])
	if err != nil || field != "body" {
		t.Errorf("body: got %q, %v", field, err)
	}
	field, err = syntax.LocateChild(ifStmt, ifStmt.Else[0])
	if err != nil || field != "orelse" {
		t.Errorf("orelse: got %q, %v", field, err)
	}
	if _, err := syntax.LocateChild(ifStmt, mod.Body[1]); err == nil {
		t.Error("expected an error for a non-child")
	}
}

func TestLocals(t *testing.T) {
	mod := parse(t, `b = 1
a = 2
b = 3
`)
	locals := syntax.Locals(mod)
	if got := len(locals["b"]); got != 2 {
		t.Errorf("b: %d binding sites, want 2", got)
	}
	// Ordered by first binding, not alphabetically.
	names := syntax.LocalNames(mod)
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("LocalNames: got %v, want [b a]", names)
	}
}

func TestContextPredicates(t *testing.T) {
	mod := parse(t, `x = 1
del x
y = x
`)
	store := mod.Body[0].(*syntax.Assign).Targets[0]
	if !syntax.IsAssignName(store) || syntax.IsDelName(store) {
		t.Error("store target misclassified")
	}
	del := mod.Body[1].(*syntax.Delete).Targets[0]
	if !syntax.IsDelName(del) || syntax.IsAssignName(del) {
		t.Error("del target misclassified")
	}
	load := mod.Body[2].(*syntax.Assign).Value
	if syntax.Context(load) != syntax.Load {
		t.Error("value is not a load")
	}
}

func TestUnparseStatements(t *testing.T) {
	for _, test := range []struct{ src, want string }{
		{"x = 1 + 2\n", "x = 1 + 2"},
		{"y = 1 + 2 * 3\n", "y = 1 + (2 * 3)"},
		{"del a, b\n", "del a, b"},
		{"x += [1]\n", "x += [1]"},
		{"from ..pkg import mod as m\n", "from ..pkg import mod as m"},
		{"t = (1,)\n", "t = (1,)"},
		{"s = 'it\\'s'\n", "s = 'it\\'s'"},
		{"v = x if c else y\n", "v = x if c else y"},
		{"r = [n for n in xs if n]\n", "r = [n for n in xs if n]"},
		{"f = lambda a, b=1: a\n", "f = lambda a, b=1: a"},
	} {
		mod, err := pyparse.Parse("test.py", []byte(test.src))
		if err != nil {
			t.Errorf("%q: %v", test.src, err)
			continue
		}
		if got := syntax.Unparse(mod.Body[0]); got != test.want {
			t.Errorf("Unparse(%q) = %q, want %q", test.src, got, test.want)
		}
	}
}

// TestUnparseRoundTrip checks that unparsed output parses back to a
// tree that unparses identically.
func TestUnparseRoundTrip(t *testing.T) {
	src := `def f(a, b=2, *args, c, **kw):
    if a:
        return [x for x in args]
    elif b:
        while c:
            break
    try:
        d = {1: 'one', **kw}
    except KeyError as e:
        raise ValueError('bad') from e
    finally:
        del d
    with open(b) as fh:
        fh.write(f(a=1))
    return a < b <= c
`
	mod, err := pyparse.Parse("test.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	first := syntax.Unparse(mod)

	mod2, err := pyparse.Parse("test.py", []byte(first+"\n"))
	if err != nil {
		t.Fatalf("unparsed output does not parse: %v\n%s", err, first)
	}
	second := syntax.Unparse(mod2)
	if first != second {
		t.Errorf("round trip diverged:\n--- first ---\n%s\n--- second ---\n%s", first, second)
	}
}
