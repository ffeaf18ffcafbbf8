// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"go.pysleuth.net/syntax"
)

// Lookup resolves name as seen from ref and returns the scope in which
// it was found together with the binding nodes that may reach ref,
// ordered as bound. A reference that resolves to nothing returns
// (ref, nil); callers turn that into a name error.
//
// offset shifts the line cutoff of the flow filter. Callers pass 0;
// the class and function lookups use -1 internally so that
// `class A(A)` and `def f(x=f)` resolve to an outer binding rather
// than the definition itself.
func Lookup(ref syntax.Node, name string, offset int) (syntax.Node, []syntax.Node) {
	if syntax.IsScope(ref) {
		return scopeLookup(ref, ref, name, offset)
	}
	return scopeLookup(syntax.Scope(ref), ref, name, offset)
}

func scopeLookup(scope, ref syntax.Node, name string, offset int) (syntax.Node, []syntax.Node) {
	switch scope := scope.(type) {
	case *syntax.FunctionDef:
		return functionLookup(scope, ref, name, offset)
	case *syntax.ClassDef:
		return classLookup(scope, ref, name, offset)
	default:
		// Modules, lambdas and comprehension scopes.
		return baseLookup(scope, ref, name, offset)
	}
}

func functionLookup(fn *syntax.FunctionDef, ref syntax.Node, name string, offset int) (syntax.Node, []syntax.Node) {
	if name == "__class__" {
		// __class__ is an implicit closure reference created by the
		// compiler for methods that mention __class__ or super.
		if cls, ok := syntax.Frame(syntax.Parent(fn)).(*syntax.ClassDef); ok {
			return fn, []syntax.Node{cls}
		}
	}

	frame := syntax.Node(fn)
	if fn.Args != nil && (containsExpr(fn.Args.Defaults, ref) || containsExpr(fn.Args.KwDefaults, ref)) {
		// A default value is evaluated outside the function, so
		// `def f(x=f)` must not resolve f to the definition itself.
		frame = syntax.Frame(syntax.Parent(fn))
		offset = -1
	}
	return baseLookup(frame, ref, name, offset)
}

func classLookup(cls *syntax.ClassDef, ref syntax.Node, name string, offset int) (syntax.Node, []syntax.Node) {
	// A decorator that shadows a builtin name is resolved in the scope
	// above the class, like the bases are.
	lookupUpper := false
	if p := syntax.Parent(ref); p != nil && isBuiltinName(name) {
		if field, err := syntax.LocateChild(p, ref); err == nil && field == "decorator_list" {
			lookupUpper = true
		}
	}

	inBases := false
	for _, b := range cls.Bases {
		if syntax.Node(b) == ref || syntax.ParentOf(b, ref) {
			inBases = true
			break
		}
	}

	frame := syntax.Node(cls)
	if inBases || lookupUpper {
		// Bases are evaluated before the class exists, so
		// `class A(A)` must not resolve A to the definition itself.
		frame = syntax.Frame(syntax.Parent(cls))
		offset = -1
	}
	return baseLookup(frame, ref, name, offset)
}

func baseLookup(scope, ref syntax.Node, name string, offset int) (syntax.Node, []syntax.Node) {
	if cands := syntax.Locals(scope)[name]; len(cands) > 0 {
		if stmts := filterStatements(ref, cands, scope, offset); len(stmts) > 0 {
			return scope, stmts
		}
	}

	// Class names do not extend to nested scopes such as methods, so
	// the search continues in the next enclosing non-class scope.
	for pscope := outerScope(scope); pscope != nil; pscope = outerScope(pscope) {
		if _, ok := pscope.(*syntax.ClassDef); !ok {
			return scopeLookup(pscope, ref, name, 0)
		}
	}
	return ref, nil
}

func outerScope(n syntax.Node) syntax.Node {
	p := syntax.Parent(n)
	if p == nil {
		return nil
	}
	return syntax.Scope(p)
}

func containsExpr(es []syntax.Expr, n syntax.Node) bool {
	for _, e := range es {
		if syntax.Node(e) == n {
			return true
		}
	}
	return false
}

// isBuiltinName reports whether name is bound in the Python builtins
// module.
func isBuiltinName(name string) bool {
	_, ok := builtinNames[name]
	return ok
}

var builtinNames = func() map[string]struct{} {
	names := []string{
		"abs", "aiter", "all", "anext", "any", "ascii", "bin", "bool",
		"breakpoint", "bytearray", "bytes", "callable", "chr",
		"classmethod", "compile", "complex", "copyright", "credits",
		"delattr", "dict", "dir", "divmod", "enumerate", "eval", "exec",
		"exit", "filter", "float", "format", "frozenset", "getattr",
		"globals", "hasattr", "hash", "help", "hex", "id", "input",
		"int", "isinstance", "issubclass", "iter", "len", "license",
		"list", "locals", "map", "max", "memoryview", "min", "next",
		"object", "oct", "open", "ord", "pow", "print", "property",
		"quit", "range", "repr", "reversed", "round", "set", "setattr",
		"slice", "sorted", "staticmethod", "str", "sum", "super",
		"tuple", "type", "vars", "zip",

		"True", "False", "None", "NotImplemented", "Ellipsis",
		"__debug__", "__doc__", "__import__", "__name__", "__spec__",
		"__build_class__", "__loader__", "__package__",

		"BaseException", "BaseExceptionGroup", "Exception",
		"ArithmeticError", "AssertionError", "AttributeError",
		"BlockingIOError", "BrokenPipeError", "BufferError",
		"BytesWarning", "ChildProcessError", "ConnectionAbortedError",
		"ConnectionError", "ConnectionRefusedError",
		"ConnectionResetError", "DeprecationWarning", "EOFError",
		"EncodingWarning", "EnvironmentError", "ExceptionGroup",
		"FileExistsError", "FileNotFoundError", "FloatingPointError",
		"FutureWarning", "GeneratorExit", "IOError", "ImportError",
		"ImportWarning", "IndentationError", "IndexError",
		"InterruptedError", "IsADirectoryError", "KeyError",
		"KeyboardInterrupt", "LookupError", "MemoryError",
		"ModuleNotFoundError", "NameError", "NotADirectoryError",
		"NotImplementedError", "OSError", "OverflowError",
		"PendingDeprecationWarning", "PermissionError",
		"ProcessLookupError", "RecursionError", "ReferenceError",
		"ResourceWarning", "RuntimeError", "RuntimeWarning",
		"StopAsyncIteration", "StopIteration", "SyntaxError",
		"SyntaxWarning", "SystemError", "SystemExit", "TabError",
		"TimeoutError", "TypeError", "UnboundLocalError",
		"UnicodeDecodeError", "UnicodeEncodeError", "UnicodeError",
		"UnicodeTranslateError", "UnicodeWarning", "UserWarning",
		"ValueError", "Warning", "ZeroDivisionError",
	}
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}()
