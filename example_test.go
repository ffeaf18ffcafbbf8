// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth_test

import (
	"fmt"
	"log"

	"go.pysleuth.net"
	"go.pysleuth.net/syntax"
)

// ExampleProgram demonstrates a simple analysis session: parse a
// module, infer the value of an expression, and print it.
func ExampleProgram() {
	const src = `greeting = 'hello' + ' ' + 'world'
greeting
`
	prog := pysleuth.NewProgram()
	mod, err := prog.Parse("example.py", "example", []byte(src))
	if err != nil {
		log.Fatal(err)
	}

	expr := mod.Body[1].(*syntax.ExprStmt).Value
	values, err := prog.Infer(expr, nil).Collect()
	if err != nil {
		log.Fatal(err)
	}
	for _, v := range values {
		fmt.Println(syntax.Unparse(v))
	}
	// Output: 'hello world'
}

// ExampleProgram_Resolve expands an imported basename to its fully
// qualified dotted name.
func ExampleProgram_Resolve() {
	prog := pysleuth.NewProgram()
	mod, err := prog.Parse("example.py", "example", []byte("import collections.abc as abc\n"))
	if err != nil {
		log.Fatal(err)
	}

	full, err := prog.Resolve(mod, "abc.ABC")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(full)
	// Output: collections.abc.ABC
}

// ExampleProgram_GetAttr lists a class attribute's binding sites.
func ExampleProgram_GetAttr() {
	const src = `class Config:
    retries = 3
    retries = 5
`
	prog := pysleuth.NewProgram()
	mod, err := prog.Parse("example.py", "example", []byte(src))
	if err != nil {
		log.Fatal(err)
	}

	cls := mod.Body[0].(*syntax.ClassDef)
	nodes, err := prog.GetAttr(cls, "retries")
	if err != nil {
		log.Fatal(err)
	}
	for _, n := range nodes {
		fmt.Printf("bound at line %d\n", n.Pos().Line)
	}
	// Output: bound at line 3
}
