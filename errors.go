// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth

import (
	"errors"
	"fmt"

	"go.pysleuth.net/syntax"
)

// ErrResolution is the sentinel wrapped by the resolution error kinds.
// errors.Is(err, ErrResolution) matches both NameError and
// AttributeError.
var ErrResolution = errors.New("pysleuth: resolution failed")

// Done is returned by Seq.Next when the sequence of inferred values is
// exhausted.
var Done = errors.New("pysleuth: no more inference results")

// A NameError reports that a name could not be resolved from the
// reference point of the lookup. Suggestion, when non-empty, names a
// visible binding with a similar spelling.
type NameError struct {
	Name       string
	Scope      syntax.Node
	Suggestion string
}

func (e *NameError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("name %q is not defined (did you mean %s?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("name %q is not defined", e.Name)
}

func (e *NameError) Unwrap() error { return ErrResolution }

// An AttributeError reports that a frame has no attribute of the given
// name.
type AttributeError struct {
	Target    syntax.Node
	Attribute string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", describe(e.Target), e.Attribute)
}

func (e *AttributeError) Unwrap() error { return ErrResolution }

// An InferenceError reports that inference produced no usable result
// for a node. It is an error about the analysis, distinct from the
// Uninferable value, which is a result.
type InferenceError struct {
	Node syntax.Node
	Msg  string
}

func (e *InferenceError) Error() string { return e.Msg }

func inferencef(n syntax.Node, format string, args ...interface{}) *InferenceError {
	return &InferenceError{Node: n, Msg: fmt.Sprintf(format, args...)}
}

func describe(n syntax.Node) string {
	switch n := n.(type) {
	case nil:
		return "<uninferable>"
	case *syntax.Module:
		return "module " + n.Name
	case *syntax.ClassDef:
		return "class " + n.Name
	case *syntax.FunctionDef:
		return "function " + n.Name
	case *syntax.Lambda:
		return "lambda"
	}
	return fmt.Sprintf("%T", n)
}
