// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The pysleuth command analyzes Python source files.
//
// Each file argument is parsed and bound as a module named after its
// base name; an __init__.py binds as a package named after its
// directory. Diagnostics go to stderr. When stdin is a terminal, the
// command then starts an inspection REPL (see the repl package); the
// loaded modules are visible to it, so `from mod import x` works in
// the scratch module.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"go.pysleuth.net"
	"go.pysleuth.net/repl"
)

var logLevel = flag.String("log", "warn", "diagnostic level: debug, info, warn or error")

func main() {
	os.Exit(doMain())
}

func doMain() int {
	log.SetPrefix("pysleuth: ")
	log.SetFlags(0)
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		log.Printf("bad -log level %q", *logLevel)
		return 2
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var files []repl.File
	for _, filename := range flag.Args() {
		src, err := os.ReadFile(filename)
		if err != nil {
			log.Print(err)
			return 1
		}
		name, pkg := moduleName(filename)
		files = append(files, repl.File{
			Filename: filename,
			Name:     name,
			Package:  pkg,
			Src:      src,
		})
	}

	// Parse and bind everything once up front so that syntax errors
	// surface even without a terminal.
	prog := pysleuth.NewProgram(pysleuth.WithLogger(logger))
	failed := false
	for _, f := range files {
		var err error
		if f.Package {
			_, err = prog.ParsePackage(f.Filename, f.Name, f.Src)
		} else {
			_, err = prog.Parse(f.Filename, f.Name, f.Src)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
		}
	}
	if failed {
		return 1
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return 0
	}

	fmt.Println("Welcome to pysleuth (go.pysleuth.net)")
	repl.REPL(files, logger)
	return 0
}

// moduleName derives a dotted module name from a path: the base name
// without its extension, or the directory name for an __init__.py.
func moduleName(filename string) (name string, pkg bool) {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "__init__" {
		return filepath.Base(filepath.Dir(filename)), true
	}
	return stem, false
}
