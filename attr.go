// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth

import (
	"go.pysleuth.net/resolve"
	"go.pysleuth.net/syntax"
)

// GetAttr returns the local binding nodes of name in a frame (module,
// class, function or lambda), as seen from the end of the frame's
// body. Deleted names and valueless annotated names are not
// attributes; for packages, a missing name falls back to the
// registered submodule. A miss is an *AttributeError.
func (p *Program) GetAttr(frame syntax.Node, name string) ([]syntax.Node, error) {
	return p.getAttr(frame, name, false)
}

func (p *Program) getAttr(frame syntax.Node, name string, ignoreLocals bool) ([]syntax.Node, error) {
	if name == "" || !syntax.IsFrame(frame) {
		return nil, &AttributeError{Target: frame, Attribute: name}
	}

	var values []syntax.Node
	if !ignoreLocals {
		// The lookup runs from the end-of-frame sentinel so the whole
		// frame body is visible, not just the lines above some
		// reference point.
		ref, err := resolve.EndOfFrame(frame)
		if err != nil {
			return nil, err
		}
		_, values = resolve.Lookup(ref, name, 0)
	}

	if len(values) == 0 {
		if mod, ok := frame.(*syntax.Module); ok && mod.Package {
			if sub := p.submodule(mod, name); sub != nil {
				return []syntax.Node{sub}, nil
			}
		}
	}

	var out []syntax.Node
	for _, v := range values {
		if syntax.IsDelName(v) {
			continue
		}
		if valuelessAnnAssign(v) {
			continue
		}
		out = append(out, v)
	}
	if len(out) > 0 {
		return out, nil
	}
	return nil, &AttributeError{Target: frame, Attribute: name}
}

// valuelessAnnAssign reports whether v binds a name through an
// annotation with no value, such as `x: int`. The name is potentially
// unbound at runtime and is not treated as an attribute.
func valuelessAnnAssign(v syntax.Node) bool {
	if !syntax.IsAssignName(v) {
		return false
	}
	if _, ok := v.(*syntax.Name); !ok {
		return false
	}
	ann, ok := syntax.Statement(v).(*syntax.AnnAssign)
	return ok && ann.Value == nil
}

// InferAttr infers the possible values of the attribute name on an
// inferred owner node.
func (p *Program) InferAttr(owner syntax.Node, name string, ctx *InferenceContext) ([]syntax.Node, error) {
	ctx = p.copyContext(ctx)
	stmts, err := p.getAttr(owner, name, false)
	if err != nil {
		return nil, inferencef(owner, "cannot infer attribute %q on %s: %v", name, describe(owner), err)
	}
	return p.inferStmts(stmts, ctx, owner)
}
