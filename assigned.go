// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth

// Assignment unpacking: given a binding node, find the value
// expressions assigned to it. This understands statements like
//
//	a, b, (c, d) = 1, 2, [3, 4]
//
// by tracking the index path from the target name up through the
// nested target sequences, then walking the same path down the
// inferred value.

import (
	"errors"

	"go.pysleuth.net/syntax"
)

// assignedStmts returns the value nodes assigned through n. node is
// the child the call climbed from (nil at the start); path is the
// accumulated sequence-index path.
func (p *Program) assignedStmts(n, node syntax.Node, ctx *InferenceContext, path []int) ([]syntax.Node, error) {
	switch n := n.(type) {
	case *syntax.For:
		return p.forAssignedStmts(n, ctx, path)

	case *syntax.Tuple:
		return p.sequenceAssignedStmts(n, n.Elts, node, ctx, path)
	case *syntax.List:
		return p.sequenceAssignedStmts(n, n.Elts, node, ctx, path)

	case *syntax.Name, *syntax.Attribute:
		// A target name defers to the assignment above it.
		return p.assignedStmts(syntax.Parent(n), n, ctx, nil)

	case *syntax.Assign:
		return p.valueAssignedStmts(n, n.Value, ctx, path)
	case *syntax.AugAssign:
		return p.valueAssignedStmts(n, n.Value, ctx, path)
	case *syntax.AnnAssign:
		// An annotation without a value binds the name but carries
		// nothing inferable.
		if n.Value == nil && len(path) == 0 {
			return []syntax.Node{Uninferable}, nil
		}
		return p.valueAssignedStmts(n, n.Value, ctx, path)
	}
	return nil, inferencef(n, "assignment unpacking is not supported for %T", n)
}

// forAssignedStmts enumerates the values a loop target may take: the
// elements of the iterated value, when it infers to a concrete list
// or tuple.
func (p *Program) forAssignedStmts(f *syntax.For, ctx *InferenceContext, path []int) ([]syntax.Node, error) {
	if f.Async {
		return nil, inferencef(f, "async loop targets are not inferred")
	}
	if path != nil {
		// Unpacking inside a loop target is not supported.
		return []syntax.Node{Uninferable}, nil
	}
	iters, err := p.inferAll(f.Iter, ctx)
	if err != nil {
		return nil, err
	}
	var out []syntax.Node
	for _, it := range iters {
		for _, e := range sequenceElts(it) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, inferencef(f, "loop iterable is not a concrete sequence")
	}
	return out, nil
}

// sequenceAssignedStmts records the position of node within a target
// sequence and climbs to the assignment with the extended path.
func (p *Program) sequenceAssignedStmts(seq syntax.Node, elts []syntax.Expr, node syntax.Node, ctx *InferenceContext, path []int) ([]syntax.Node, error) {
	index := -1
	for i, e := range elts {
		if syntax.Node(e) == node {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, inferencef(seq, "node is not an element of its target sequence")
	}
	return p.assignedStmts(syntax.Parent(seq), seq, ctx, append([]int{index}, path...))
}

// valueAssignedStmts resolves the assigned value of an assignment
// statement: the plain value when no unpacking is involved, or the
// parts of the value selected by path.
func (p *Program) valueAssignedStmts(stmt syntax.Node, value syntax.Expr, ctx *InferenceContext, path []int) ([]syntax.Node, error) {
	if len(path) == 0 {
		if value == nil {
			return []syntax.Node{Uninferable}, nil
		}
		return []syntax.Node{value}, nil
	}
	out, err := p.resolveParts(value, path, ctx)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, inferencef(stmt, "cannot unpack %s", syntax.Unparse(value))
	}
	return out, nil
}

// resolveParts infers node and walks path down the result. Target
// sequences are inferred in assignment context so that unpacking does
// not loop back into the target names.
func (p *Program) resolveParts(node syntax.Node, path []int, ctx *InferenceContext) ([]syntax.Node, error) {
	var parts []syntax.Node
	var err error
	switch node.(type) {
	case *syntax.List, *syntax.Tuple:
		parts, err = p.inferSequence(node, ctx, true)
	default:
		parts, err = p.inferAll(node, ctx)
	}
	if err != nil {
		return nil, err
	}
	return p.walkParts(parts, path, ctx)
}

// walkParts selects path[0] from every concrete sequence in parts,
// recursing for the rest of the path. The final selected part is
// yielded unevaluated; a part that is not a sequence, or too short,
// aborts quietly with what was collected so far.
func (p *Program) walkParts(parts []syntax.Node, path []int, ctx *InferenceContext) ([]syntax.Node, error) {
	index, rest := path[0], path[1:]
	var out []syntax.Node

	for _, part := range parts {
		var assigned syntax.Node
		switch part := part.(type) {
		case *syntax.Tuple:
			if index < len(part.Elts) {
				assigned = part.Elts[index]
			}
		case *syntax.List:
			if index < len(part.Elts) {
				assigned = part.Elts[index]
			}
		}
		if assigned == nil {
			return out, nil
		}
		if len(rest) == 0 {
			out = append(out, assigned)
			continue
		}
		sub, err := p.resolveParts(assigned, rest, ctx)
		if err != nil {
			var infErr *InferenceError
			var nameErr *NameError
			if errors.As(err, &infErr) || errors.As(err, &nameErr) {
				p.reportf(assigned, "%v", err)
				return out, nil
			}
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}
