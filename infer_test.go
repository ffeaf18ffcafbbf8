// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.pysleuth.net"
	"go.pysleuth.net/resolve"
	"go.pysleuth.net/syntax"
)

func mustParse(t *testing.T, prog *pysleuth.Program, name, src string) *syntax.Module {
	t.Helper()
	mod, err := prog.Parse(name+".py", name, []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return mod
}

// lastExpr returns the expression of the last source statement of mod,
// which must be an expression statement.
func lastExpr(t *testing.T, mod *syntax.Module) syntax.Expr {
	t.Helper()
	for i := len(mod.Body) - 1; i >= 0; i-- {
		if resolve.IsEndOfFrame(mod.Body[i]) {
			continue
		}
		es, ok := mod.Body[i].(*syntax.ExprStmt)
		if !ok {
			t.Fatalf("last statement is %T, not an expression", mod.Body[i])
		}
		return es.Value
	}
	t.Fatal("empty module")
	return nil
}

func loadName(t *testing.T, mod *syntax.Module, id string) *syntax.Name {
	t.Helper()
	var found *syntax.Name
	syntax.Walk(mod, func(n syntax.Node) bool {
		if name, ok := n.(*syntax.Name); ok && name.ID == id && name.Ctx == syntax.Load {
			found = name
		}
		return true
	})
	if found == nil {
		t.Fatalf("no load of %q", id)
	}
	return found
}

func TestDefinitionsInferToThemselves(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "defs", `def f():
    pass
class C:
    pass
f
`)
	vals, err := prog.Infer(lastExpr(t, mod), nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 || vals[0] != syntax.Node(mod.Body[0]) {
		t.Errorf("f inferred to %T, want its own definition", vals[0])
	}

	vals, err = prog.Infer(mod.Body[1], nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 || vals[0] != syntax.Node(mod.Body[1]) {
		t.Errorf("a class is not a fixed point of inference: %T", vals[0])
	}
}

func TestIfExpLiteralTruthiness(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "ifexp", `a = 1 if True else 2
b = 1 if '' else 2
`)
	for i, want := range []int64{1, 2} {
		value := mod.Body[i].(*syntax.Assign).Value
		vals, err := prog.Infer(value, nil).Collect()
		if err != nil {
			t.Fatal(err)
		}
		if len(vals) != 1 {
			t.Fatalf("stmt %d: %d values, want 1", i, len(vals))
		}
		got, err := pysleuth.LiteralEval(vals[0])
		if err != nil || got != want {
			t.Errorf("stmt %d: got %v (%v), want %d", i, got, err, want)
		}
	}
}

func TestIfExpUninferableCondition(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "ifexp2", `v = 1 if mystery else 2
`)
	vals, err := prog.Infer(mod.Body[0].(*syntax.Assign).Value, nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 2 {
		t.Fatalf("%d values, want both branches", len(vals))
	}
}

func TestTupleConcatUnpacking(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "unpack", `parts = (1,) + (22,)
a, b = parts
first = a
second = b
`)
	for _, test := range []struct {
		id   string
		want int64
	}{
		{"a", 1},
		{"b", 22},
	} {
		vals, err := prog.Infer(loadName(t, mod, test.id), nil).Collect()
		if err != nil {
			t.Fatalf("%s: %v", test.id, err)
		}
		if len(vals) != 1 {
			t.Fatalf("%s: %d values, want 1", test.id, len(vals))
		}
		got, err := pysleuth.LiteralEval(vals[0])
		if err != nil || got != test.want {
			t.Errorf("%s: got %v (%v), want %d", test.id, got, err, test.want)
		}
	}
}

func TestCycleSafety(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "cycle", `a = b
b = a
a
`)
	vals, err := prog.Infer(lastExpr(t, mod), nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 || vals[0] != pysleuth.Uninferable {
		t.Errorf("got %d values (%v), want a single Uninferable", len(vals), vals)
	}
}

func TestResultCap(t *testing.T) {
	prog := pysleuth.NewProgram(pysleuth.WithMaxResults(2))
	mod := mustParse(t, prog, "cap", `1 if mystery else (2 if mystery else 3)
`)
	vals, err := prog.Infer(lastExpr(t, mod), prog.NewContext()).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 3 {
		t.Fatalf("%d values, want 2 results plus the truncation marker", len(vals))
	}
	if vals[len(vals)-1] != pysleuth.Uninferable {
		t.Error("truncated tail is not Uninferable")
	}
	for i, want := range []int64{1, 2} {
		got, err := pysleuth.LiteralEval(vals[i])
		if err != nil || got != want {
			t.Errorf("value %d: got %v (%v), want %d", i, got, err, want)
		}
	}
}

func TestInferredBudget(t *testing.T) {
	h := &captureHandler{}
	prog := pysleuth.NewProgram(pysleuth.WithMaxInferred(1), pysleuth.WithLogger(newCaptureLogger(h)))
	mod := mustParse(t, prog, "budget", `1 if mystery else (2 if mystery else 3)
`)
	vals, err := prog.Infer(lastExpr(t, mod), prog.NewContext()).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 || vals[0] != pysleuth.Uninferable {
		t.Errorf("got %d values, want the budget to collapse the result", len(vals))
	}
	found := false
	for _, msg := range h.messages {
		if strings.Contains(msg, "too many inference results") {
			found = true
		}
	}
	if !found {
		t.Error("no truncation diagnostic was logged")
	}
}

func TestCachedInferenceIdempotent(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "cache", `x = 1 + 1
x
`)
	e := lastExpr(t, mod)
	first, err := prog.Infer(e, prog.NewContext()).Collect()
	if err != nil {
		t.Fatal(err)
	}
	second, err := prog.Infer(e, prog.NewContext()).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("got %d and %d values, want 1 and 1", len(first), len(second))
	}
	// The cached replay yields the identical node.
	if first[0] != second[0] {
		t.Error("repeated inference produced a different node")
	}

	prog.InvalidateCache()
	third, err := prog.Infer(e, prog.NewContext()).Collect()
	if err != nil {
		t.Fatal(err)
	}
	got, err := pysleuth.LiteralEval(third[0])
	if err != nil || got != int64(2) {
		t.Errorf("after invalidation: got %v (%v), want 2", got, err)
	}
}

func TestNameErrorSuggestion(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "names", `flavor = 1
flavour
`)
	_, err := prog.Infer(lastExpr(t, mod), nil).Collect()
	if err == nil {
		t.Fatal("expected a name error")
	}
	var nameErr *pysleuth.NameError
	if !errors.As(err, &nameErr) {
		t.Fatalf("got %T: %v", err, err)
	}
	if nameErr.Name != "flavour" || nameErr.Suggestion != "flavor" {
		t.Errorf("got name %q, suggestion %q", nameErr.Name, nameErr.Suggestion)
	}
	if !errors.Is(err, pysleuth.ErrResolution) {
		t.Error("name error does not wrap ErrResolution")
	}
	if !strings.Contains(err.Error(), "did you mean flavor?") {
		t.Errorf("message %q lacks the suggestion", err.Error())
	}
}

func TestSafeInferAmbiguity(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "safe", `if mystery:
    x = 1
else:
    x = 2
x
`)
	if v := prog.SafeInfer(lastExpr(t, mod), nil); v != nil {
		t.Errorf("ambiguous value inferred to %T, want nil", v)
	}

	mod = mustParse(t, prog, "safe2", `y = 5
y
`)
	v := prog.SafeInfer(lastExpr(t, mod), nil)
	if v == nil {
		t.Fatal("unambiguous value not inferred")
	}
	if got, err := pysleuth.LiteralEval(v); err != nil || got != int64(5) {
		t.Errorf("got %v (%v), want 5", got, err)
	}
}

func TestSafeInferUninferableElement(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "box", `box = [mystery]
box
`)
	if v := prog.SafeInfer(lastExpr(t, mod), nil); v != nil {
		t.Errorf("container with an uninferable element inferred to %T, want nil", v)
	}
}

func TestImportAliasInference(t *testing.T) {
	prog := pysleuth.NewProgram()
	mustParse(t, prog, "util", `answer = 42
`)
	mod := mustParse(t, prog, "main", `import util as u
x = u.answer
x
`)
	vals, err := prog.Infer(lastExpr(t, mod), nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 {
		t.Fatalf("%d values, want 1", len(vals))
	}
	got, err := pysleuth.LiteralEval(vals[0])
	if err != nil || got != int64(42) {
		t.Errorf("got %v (%v), want 42", got, err)
	}
}

func TestPlainImportInfersModule(t *testing.T) {
	prog := pysleuth.NewProgram()
	util := mustParse(t, prog, "util", `answer = 42
`)
	mod := mustParse(t, prog, "main", `import util
util
`)
	vals, err := prog.Infer(lastExpr(t, mod), nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 || vals[0] != syntax.Node(util) {
		t.Errorf("got %T, want the util module", vals[0])
	}
}

func TestRelativeImportInference(t *testing.T) {
	prog := pysleuth.NewProgram()
	if _, err := prog.ParsePackage("pkg/__init__.py", "pkg", []byte("base = 'b'\n")); err != nil {
		t.Fatal(err)
	}
	mod := mustParse(t, prog, "pkg.mod", `from . import base
v = base
v
`)
	vals, err := prog.Infer(lastExpr(t, mod), nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 {
		t.Fatalf("%d values, want 1", len(vals))
	}
	got, err := pysleuth.LiteralEval(vals[0])
	if err != nil || got != "b" {
		t.Errorf("got %v (%v), want 'b'", got, err)
	}
}

func TestPackageSubmoduleFallback(t *testing.T) {
	prog := pysleuth.NewProgram()
	if _, err := prog.ParsePackage("pkg/__init__.py", "pkg", []byte("")); err != nil {
		t.Fatal(err)
	}
	sub := mustParse(t, prog, "pkg.sub", `thing = 3
`)
	mod := mustParse(t, prog, "main", `from pkg import sub
sub
`)
	vals, err := prog.Infer(lastExpr(t, mod), nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 || vals[0] != syntax.Node(sub) {
		t.Errorf("got %T, want the pkg.sub module", vals[0])
	}
}

func TestDunderAllAccumulation(t *testing.T) {
	prog := pysleuth.NewProgram()
	mustParse(t, prog, "pack1", `__all__ = ['f']
__all__.append('k')
`)
	mod := mustParse(t, prog, "main", `import pack1
__all__ = ['i'] + pack1.__all__
__all__.extend(['j'])
__all__
`)
	vals, err := prog.Infer(lastExpr(t, mod), nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 {
		t.Fatalf("%d values, want 1", len(vals))
	}
	got, err := pysleuth.LiteralEval(vals[0])
	if err != nil {
		t.Fatal(err)
	}
	want := pysleuth.ListValue{"i", "f", "k", "j"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("__all__ mismatch (-want +got):\n%s", diff)
	}
}

func TestGetAttr(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "attrs", `x = 1
y: int
del x
z = 2
`)
	for _, name := range []string{"x", "y", "missing"} {
		_, err := prog.GetAttr(mod, name)
		if err == nil {
			t.Errorf("%s: expected an attribute error", name)
			continue
		}
		var attrErr *pysleuth.AttributeError
		if !errors.As(err, &attrErr) || !errors.Is(err, pysleuth.ErrResolution) {
			t.Errorf("%s: got %T: %v", name, err, err)
		}
	}

	nodes, err := prog.GetAttr(mod, "z")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("z: %d nodes, want 1", len(nodes))
	}
	if _, ok := nodes[0].(*syntax.Name); !ok {
		t.Errorf("z: got %T, want the binding name", nodes[0])
	}
}

func TestClassAttributeInference(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "cfg", `class Cfg:
    retries = 3
n = Cfg.retries
n
`)
	vals, err := prog.Infer(lastExpr(t, mod), nil).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 {
		t.Fatalf("%d values, want 1", len(vals))
	}
	got, err := pysleuth.LiteralEval(vals[0])
	if err != nil || got != int64(3) {
		t.Errorf("got %v (%v), want 3", got, err)
	}
}

func TestResolveQualifiedNames(t *testing.T) {
	prog := pysleuth.NewProgram()
	mod := mustParse(t, prog, "main", `import collections.abc as abc
class C:
    pass
val = 1
def fn(param):
    return param
`)
	for _, test := range []struct {
		ref      syntax.Node
		basename string
		want     string
	}{
		{mod, "abc.ABC", "collections.abc.ABC"},
		{mod, "C()", "main.C"},
		{mod, "val", "main.val"},
		{loadName(t, mod, "param"), "param", "main.fn.param"},
		{mod, "unknown.thing(x)", "unknown.thing()"},
	} {
		got, err := prog.Resolve(test.ref, test.basename)
		if err != nil {
			t.Errorf("%s: %v", test.basename, err)
			continue
		}
		if got != test.want {
			t.Errorf("Resolve(%q) = %q, want %q", test.basename, got, test.want)
		}
	}
}
