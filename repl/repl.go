// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repl provides a read/analyze/print loop for inspecting
// Python modules.
//
// It supports readline-style command editing, and interrupts through
// Control-C.
//
// Input lines are Python statements, accumulated into a scratch
// module named __main__, or one of the inspection commands:
//
//	lookup <name>     show the visible bindings of a name
//	infer <expr>      show the inferred values of an expression
//	eval <expr>       evaluate an expression to a literal value
//	qname <basename>  expand a dotted basename to a qualified name
//
// A statement ending in a colon opens a block; the block is read until
// a blank line, like the standard interpreter.
package repl

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"

	"go.pysleuth.net"
	"go.pysleuth.net/resolve"
	"go.pysleuth.net/syntax"
)

var interrupted = make(chan os.Signal, 1)

// A File is a source file preloaded into every analysis session.
type File struct {
	Filename string
	Name     string // dotted module name
	Package  bool
	Src      []byte
}

// REPL executes a read, analyze, print loop over the given preloaded
// files plus an accumulating __main__ scratch module.
func REPL(files []File, log *slog.Logger) {
	signal.Notify(interrupted, os.Interrupt)
	defer signal.Stop(interrupted)

	rl, err := readline.New(">>> ")
	if err != nil {
		printError(err)
		return
	}
	defer rl.Close()

	s := &session{files: files, log: log}
	for {
		if err := s.rep(rl); err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println(err)
				continue
			}
			break
		}
	}
	fmt.Println()
}

// A session accumulates the scratch module's statements. Each command
// rebuilds the Program from scratch: analysis is cheap at this scale
// and rebuilding keeps inference results free of stale modules.
type session struct {
	files []File
	lines []string
	log   *slog.Logger
}

// rep reads and processes one item. It returns an error (possibly
// readline.ErrInterrupt) only if readline failed; analysis errors are
// printed.
func (s *session) rep(rl *readline.Instance) error {
	chunk, err := s.read(rl)
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return err
	}

	line := strings.TrimSpace(chunk)
	if line == "" {
		return nil
	}
	verb, rest := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		verb, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	switch verb {
	case "lookup":
		s.lookup(rest)
	case "infer":
		s.infer(rest)
	case "eval":
		s.eval(rest)
	case "qname":
		s.qname(rest)
	default:
		s.exec(chunk)
	}
	return nil
}

// read returns one input chunk: a single line, or a colon-terminated
// statement followed by its block, up to a blank line.
func (s *session) read(rl *readline.Instance) (string, error) {
	rl.SetPrompt(">>> ")
	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(strings.TrimSpace(line), ":") {
		return line + "\n", nil
	}

	var b strings.Builder
	b.WriteString(line + "\n")
	rl.SetPrompt("... ")
	for {
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			return b.String(), nil
		}
		b.WriteString(line + "\n")
	}
}

// program builds a fresh analysis session over the preloaded files and
// the scratch module, extended with extra source.
func (s *session) program(extra string) (*pysleuth.Program, *syntax.Module, error) {
	prog := pysleuth.NewProgram(pysleuth.WithLogger(s.log))
	for _, f := range s.files {
		var err error
		if f.Package {
			_, err = prog.ParsePackage(f.Filename, f.Name, f.Src)
		} else {
			_, err = prog.Parse(f.Filename, f.Name, f.Src)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	src := strings.Join(s.lines, "") + extra
	mod, err := prog.Parse("<stdin>", "__main__", []byte(src))
	if err != nil {
		return nil, nil, err
	}
	return prog, mod, nil
}

// exec appends a chunk of Python statements to the scratch module,
// keeping it only if the whole module still parses.
func (s *session) exec(chunk string) {
	if _, _, err := s.program(chunk); err != nil {
		printError(err)
		return
	}
	s.lines = append(s.lines, chunk)
}

// lastValue parses expr as a trailing statement of the scratch module
// and returns its expression node.
func (s *session) lastValue(expr string) (*pysleuth.Program, syntax.Expr, error) {
	prog, mod, err := s.program(expr + "\n")
	if err != nil {
		return nil, nil, err
	}
	// The binder appends an end-of-frame sentinel after the last
	// source statement.
	for i := len(mod.Body) - 1; i >= 0; i-- {
		if resolve.IsEndOfFrame(mod.Body[i]) {
			continue
		}
		es, ok := mod.Body[i].(*syntax.ExprStmt)
		if !ok {
			return nil, nil, fmt.Errorf("%q is not an expression", expr)
		}
		return prog, es.Value, nil
	}
	return nil, nil, fmt.Errorf("nothing to analyze")
}

func (s *session) infer(expr string) {
	if expr == "" {
		fmt.Println("usage: infer <expr>")
		return
	}
	prog, value, err := s.lastValue(expr)
	if err != nil {
		printError(err)
		return
	}
	values, err := prog.Infer(value, nil).Collect()
	if err != nil {
		printError(err)
		return
	}
	for _, v := range values {
		fmt.Println(describeValue(v))
	}
}

func (s *session) eval(expr string) {
	if expr == "" {
		fmt.Println("usage: eval <expr>")
		return
	}
	prog, value, err := s.lastValue(expr)
	if err != nil {
		printError(err)
		return
	}
	v := prog.SafeInfer(value, nil)
	if v == nil {
		fmt.Println("<uninferable>")
		return
	}
	lit, err := pysleuth.LiteralEval(v)
	if err != nil {
		fmt.Println(describeValue(v))
		return
	}
	fmt.Printf("%v\n", lit)
}

func (s *session) lookup(name string) {
	if name == "" {
		fmt.Println("usage: lookup <name>")
		return
	}
	_, mod, err := s.program("")
	if err != nil {
		printError(err)
		return
	}
	ref, err := resolve.EndOfFrame(mod)
	if err != nil {
		printError(err)
		return
	}
	scope, bindings := resolve.Lookup(ref, name, 0)
	if len(bindings) == 0 {
		fmt.Printf("%s is not bound\n", name)
		return
	}
	fmt.Printf("%s resolves in %s:\n", name, describeValue(scope))
	for _, b := range bindings {
		stmt := syntax.Statement(b)
		fmt.Printf("  %s: %s\n", stmt.Pos(), strings.TrimRight(syntax.Unparse(stmt), "\n"))
	}
}

func (s *session) qname(basename string) {
	if basename == "" {
		fmt.Println("usage: qname <basename>")
		return
	}
	prog, mod, err := s.program("")
	if err != nil {
		printError(err)
		return
	}
	full, err := prog.Resolve(mod, basename)
	if err != nil {
		printError(err)
		return
	}
	fmt.Println(full)
}

func describeValue(n syntax.Node) string {
	switch n := n.(type) {
	case nil:
		return "<uninferable>"
	case *syntax.Module:
		return fmt.Sprintf("module %s", n.Name)
	case *syntax.ClassDef:
		return fmt.Sprintf("class %s", syntax.QName(n))
	case *syntax.FunctionDef:
		return fmt.Sprintf("def %s", syntax.QName(n))
	}
	return strings.TrimRight(syntax.Unparse(n), "\n")
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, err)
}
