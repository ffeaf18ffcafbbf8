// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth

import (
	"go.pysleuth.net/syntax"
)

// An InferenceContext carries the state of one inference walk: the
// path of nodes currently being inferred, used to cut recursion, and
// a counter of values produced so far, shared with every clone so the
// whole walk observes one budget. The result cache lives on the
// Program, so results are shared across contexts of the same session.
type InferenceContext struct {
	prog     *Program
	path     []syntax.Node
	inferred *int
}

// NewContext returns a fresh context for p with an empty path and a
// zero inferred counter.
func (p *Program) NewContext() *InferenceContext {
	return &InferenceContext{prog: p, inferred: new(int)}
}

// clone copies the path so the two sides of a fork (the branches of a
// conditional, the operands of a binary operation) do not pollute each
// other, while still sharing the inferred counter.
func (ctx *InferenceContext) clone() *InferenceContext {
	path := make([]syntax.Node, len(ctx.path))
	copy(path, ctx.path)
	return &InferenceContext{prog: ctx.prog, path: path, inferred: ctx.inferred}
}

// push records n on the inference path and reports whether it was
// already there, in which case the caller must stop to avoid a cycle.
func (ctx *InferenceContext) push(n syntax.Node) bool {
	for _, x := range ctx.path {
		if x == n {
			return true
		}
	}
	ctx.path = append(ctx.path, n)
	return false
}

func (ctx *InferenceContext) nodesInferred() int  { return *ctx.inferred }
func (ctx *InferenceContext) countInferred(n int) { *ctx.inferred += n }

// copyContext clones ctx, or makes a fresh context when ctx is nil.
func (p *Program) copyContext(ctx *InferenceContext) *InferenceContext {
	if ctx == nil {
		return p.NewContext()
	}
	return ctx.clone()
}
