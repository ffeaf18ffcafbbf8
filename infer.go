// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth

// This file is the core of the inference engine: the entry point with
// its caching and caps, the rule combinators, and the per-kind rules.

import (
	"errors"
	"strings"

	"go.pysleuth.net/resolve"
	"go.pysleuth.net/syntax"
)

// Infer returns the possible values of n as a Seq. With a nil context
// a fresh one is used and neither the cache nor the caps apply, which
// is the right mode for one-shot queries; pass a context to share the
// budget across related queries.
func (p *Program) Infer(n syntax.Node, ctx *InferenceContext) *Seq {
	return newSeq(p.inferAll(n, ctx))
}

// inferAll produces every value of n, consulting and filling the
// session cache and enforcing the result caps when a context is
// given.
func (p *Program) inferAll(n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
	if ctx == nil {
		return p.dispatch(n, nil)
	}

	if cached, ok := p.cache[n]; ok {
		return cached, nil
	}

	results, err := p.dispatch(n, ctx)
	if err != nil {
		return nil, err
	}

	// Bound exponentially exploding result sets: past either cap the
	// tail collapses into one Uninferable.
	out := make([]syntax.Node, 0, len(results))
	for i, r := range results {
		if i >= p.maxResults || ctx.nodesInferred() > p.maxInferred {
			p.reportf(n, "too many inference results")
			out = append(out, Uninferable)
			break
		}
		out = append(out, r)
		ctx.countInferred(1)
	}
	p.cache[n] = out
	return out, nil
}

// An inferFunc is one inference rule: all possible values of n, or an
// inference error.
type inferFunc func(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error)

// pathGuard wraps a rule to stop cyclic inference: a node already on
// the context path yields nothing. It also deduplicates the rule's
// results by identity.
func pathGuard(f inferFunc) inferFunc {
	return func(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
		if ctx == nil {
			ctx = p.NewContext()
		}
		if ctx.push(n) {
			return nil, nil
		}
		results, err := f(p, n, ctx)
		if err != nil {
			return nil, err
		}
		seen := make(map[syntax.Node]bool, len(results))
		out := results[:0]
		for _, r := range results {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
		return out, nil
	}
}

// errorIfEmpty wraps a rule to turn an empty result into an
// InferenceError.
func errorIfEmpty(f inferFunc) inferFunc {
	return func(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
		results, err := f(p, n, ctx)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, inferencef(n, "nothing inferred for %s", syntax.Unparse(n))
		}
		return results, nil
	}
}

// uninferableIfEmpty wraps a rule to turn an empty result into a
// single Uninferable.
func uninferableIfEmpty(f inferFunc) inferFunc {
	return func(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
		results, err := f(p, n, ctx)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return []syntax.Node{Uninferable}, nil
		}
		return results, nil
	}
}

// The rule variables are assigned in init, not declared with their
// values, because the rules and dispatch refer to each other and would
// otherwise form an initialization cycle.
var (
	inferNameRule      inferFunc
	inferAttributeRule inferFunc
	inferIfExpRule     inferFunc
	inferSeqRule       inferFunc
	inferBinOpRule     inferFunc
	inferAugAssignRule inferFunc
	inferAliasRule     inferFunc
)

func init() {
	inferNameRule = pathGuard(errorIfEmpty(inferName))
	inferAttributeRule = pathGuard(errorIfEmpty(inferAttribute))
	inferIfExpRule = errorIfEmpty(inferIfExp)
	inferSeqRule = errorIfEmpty(inferSeqLiteral)
	inferBinOpRule = uninferableIfEmpty(pathGuard(inferBinOp))
	inferAugAssignRule = errorIfEmpty(pathGuard(inferAugAssign))
	inferAliasRule = errorIfEmpty(pathGuard(inferAlias))
}

// dispatch routes a node to its inference rule.
func (p *Program) dispatch(n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
	switch n.(type) {
	case *syntax.Name:
		return inferNameRule(p, n, ctx)
	case *syntax.Attribute:
		return inferAttributeRule(p, n, ctx)

	// Frames and constants are fixed points of inference.
	case *syntax.Module, *syntax.ClassDef, *syntax.FunctionDef, *syntax.Lambda,
		*syntax.Constant, *syntax.Slice:
		return []syntax.Node{n}, nil

	case *syntax.IfExp:
		return inferIfExpRule(p, n, ctx)
	case *syntax.List, *syntax.Tuple, *syntax.Set:
		return inferSeqRule(p, n, ctx)
	case *syntax.BinOp:
		return inferBinOpRule(p, n, ctx)
	case *syntax.AugAssign:
		return inferAugAssignRule(p, n, ctx)
	case *syntax.ExprStmt:
		return p.inferAll(n.(*syntax.ExprStmt).Value, ctx)
	case *syntax.Alias:
		return inferAliasRule(p, n, ctx)
	}
	return nil, inferencef(n, "no inference rule for %T", n)
}

// inferStmts infers every candidate in stmts and concatenates the
// values. A candidate failing with a name error is skipped; one
// failing with an inference error contributes Uninferable; if every
// candidate fails, the whole inference fails.
func (p *Program) inferStmts(stmts []syntax.Node, ctx *InferenceContext, frame syntax.Node) ([]syntax.Node, error) {
	if len(stmts) == 0 {
		return nil, nil
	}

	inferred := false
	ctx = p.copyContext(ctx)
	var out []syntax.Node

	for _, stmt := range stmts {
		if stmt == Uninferable {
			out = append(out, Uninferable)
			inferred = true
			continue
		}
		vals, err := p.inferAll(stmt, ctx)
		if err != nil {
			var nameErr *NameError
			if errors.As(err, &nameErr) {
				p.reportf(stmt, "skipping candidate: %v", err)
				continue
			}
			var infErr *InferenceError
			if errors.As(err, &infErr) {
				p.reportf(stmt, "candidate is uninferable: %v", err)
				out = append(out, Uninferable)
				inferred = true
				continue
			}
			return nil, err
		}
		if len(vals) > 0 {
			inferred = true
		}
		out = append(out, vals...)
	}

	if !inferred {
		return nil, inferencef(frame, "inference failed for all candidates")
	}
	return out, nil
}

func inferName(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
	name := n.(*syntax.Name)
	if syntax.IsAssignName(name) {
		return p.inferAssignedName(name, ctx)
	}
	if syntax.IsDelName(name) {
		return nil, inferencef(name, "cannot infer a deleted name")
	}
	return p.inferNameLoad(name, ctx)
}

// inferAssignedName infers a name in store context through the
// assignment that binds it.
func (p *Program) inferAssignedName(name *syntax.Name, ctx *InferenceContext) ([]syntax.Node, error) {
	if aug, ok := syntax.Parent(name).(*syntax.AugAssign); ok {
		return p.inferAll(aug, ctx)
	}
	stmts, err := p.assignedStmts(name, nil, ctx, nil)
	if err != nil {
		return nil, err
	}
	return p.inferStmts(stmts, ctx, nil)
}

// inferNameLoad infers a name in load context through scope lookup.
// When the lookup from the reference point fails, the nearest
// enclosing function scope is tried, for names closed over by nested
// functions.
func (p *Program) inferNameLoad(name *syntax.Name, ctx *InferenceContext) ([]syntax.Node, error) {
	frame, stmts := resolve.Lookup(name, name.ID, 0)
	if len(stmts) == 0 {
		if fn := higherFunctionScope(syntax.Scope(name)); fn != nil {
			frame, stmts = resolve.Lookup(fn, name.ID, 0)
		}
		if len(stmts) == 0 {
			return nil, &NameError{
				Name:       name.ID,
				Scope:      syntax.Scope(name),
				Suggestion: p.suggest(name),
			}
		}
	}
	return p.inferStmts(stmts, p.copyContext(ctx), frame)
}

// higherFunctionScope returns the first function enclosing scope, or
// nil.
func higherFunctionScope(scope syntax.Node) syntax.Node {
	cur := scope
	for {
		parent := syntax.Parent(cur)
		if parent == nil {
			return nil
		}
		if _, ok := parent.(*syntax.FunctionDef); ok {
			return parent
		}
		cur = parent
	}
}

func inferAttribute(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
	attr := n.(*syntax.Attribute)
	owners, err := p.inferAll(attr.Value, ctx)
	if err != nil {
		return nil, err
	}
	var out []syntax.Node
	for _, owner := range owners {
		if owner == Uninferable {
			p.reportf(attr, "uninferable attribute owner: %s", syntax.Unparse(attr.Value))
			out = append(out, Uninferable)
			continue
		}
		ctx = p.copyContext(ctx)
		vals, err := p.InferAttr(owner, attr.Attr, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

func inferIfExp(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
	ife := n.(*syntax.IfExp)
	if ctx == nil {
		ctx = p.NewContext()
	}
	// The two branches get separate contexts: inferring one must not
	// leave path entries that block the other.
	lhsCtx := ctx.clone()
	rhsCtx := ctx.clone()

	bothBranches := false
	testVals, err := p.inferAll(ife.Cond, ctx.clone())
	if err != nil || len(testVals) == 0 {
		bothBranches = true
	} else if test := testVals[0]; test == Uninferable {
		bothBranches = true
	} else if lit, err := LiteralEval(test); err != nil {
		bothBranches = true
	} else if truthy(lit) {
		return p.inferAll(ife.Body, lhsCtx)
	} else {
		return p.inferAll(ife.Else, rhsCtx)
	}

	if bothBranches {
		body, err := p.inferAll(ife.Body, lhsCtx)
		if err != nil {
			return nil, err
		}
		orelse, err := p.inferAll(ife.Else, rhsCtx)
		if err != nil {
			return nil, err
		}
		return append(body, orelse...), nil
	}
	return nil, nil
}

func inferSeqLiteral(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
	return p.inferSequence(n, ctx, false)
}

// inferSequence infers a list, tuple or set literal. In assignment
// context only starred and walrus elements are expanded, so that
// unpacking does not recursively infer target names; otherwise every
// element is inferred. The node itself is yielded when nothing
// changed.
func (p *Program) inferSequence(n syntax.Node, ctx *InferenceContext, assignContext bool) ([]syntax.Node, error) {
	elts := sequenceElts(n)

	hasStarredOrNamed := false
	for _, e := range elts {
		switch e.(type) {
		case *syntax.Starred, *syntax.NamedExpr:
			hasStarredOrNamed = true
		}
	}
	if !hasStarredOrNamed && assignContext {
		return []syntax.Node{n}, nil
	}

	values, err := p.inferSequenceElements(n, elts, ctx, !assignContext)
	if err != nil {
		return nil, err
	}
	if sameAsElts(values, elts) {
		return []syntax.Node{n}, nil
	}

	seq := sequenceLike(n, values)
	syntax.SetPos(seq, n.Pos())
	fixNode(seq, syntax.Parent(n))
	return []syntax.Node{seq}, nil
}

// inferSequenceElements resolves the elements of a sequence literal:
// starred elements are flattened from their safely inferred value,
// walrus elements become their value, and the rest are inferred in
// full only when inferAll is set.
func (p *Program) inferSequenceElements(seq syntax.Node, elts []syntax.Expr, ctx *InferenceContext, inferAll bool) ([]syntax.Node, error) {
	var values []syntax.Node
	for i, elt := range elts {
		switch elt := elt.(type) {
		case *syntax.Starred:
			starred := p.SafeInfer(elt.Value, ctx)
			if starred == nil {
				return nil, inferencef(elt, "ambiguous star expression")
			}
			inner := sequenceElts(starred)
			if inner == nil {
				return nil, inferencef(elt, "inferred star expression is not iterable")
			}
			sub, err := p.inferSequenceElements(starred, inner, nil, true)
			if err != nil {
				return nil, err
			}
			values = append(values, sub...)

		case *syntax.NamedExpr:
			value := p.SafeInfer(elt.Value, ctx)
			if value == nil {
				return nil, inferencef(seq, "ambiguous named expression value")
			}
			values = append(values, value)

		default:
			if inferAll {
				value := p.SafeInfer(elt, ctx)
				if value == nil {
					p.reportf(seq, "sequence element %d is not inferable", i)
				}
				values = append(values, value)
			} else {
				values = append(values, elt)
			}
		}
	}
	return values, nil
}

func sequenceElts(n syntax.Node) []syntax.Expr {
	switch n := n.(type) {
	case *syntax.List:
		return n.Elts
	case *syntax.Tuple:
		return n.Elts
	case *syntax.Set:
		return n.Elts
	}
	return nil
}

// sequenceLike builds a new node of n's kind holding values as its
// elements.
func sequenceLike(n syntax.Node, values []syntax.Node) syntax.Node {
	elts := make([]syntax.Expr, len(values))
	for i, v := range values {
		if v != nil {
			elts[i] = v.(syntax.Expr)
		}
	}
	switch n.(type) {
	case *syntax.List:
		return &syntax.List{Elts: elts}
	case *syntax.Tuple:
		return &syntax.Tuple{Elts: elts}
	case *syntax.Set:
		return &syntax.Set{Elts: elts}
	}
	panic("pysleuth: not a sequence literal")
}

func sameAsElts(values []syntax.Node, elts []syntax.Expr) bool {
	if len(values) != len(elts) {
		return false
	}
	for i, v := range values {
		if v != syntax.Node(elts[i]) {
			return false
		}
	}
	return true
}

func inferBinOp(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
	b := n.(*syntax.BinOp)
	if ctx == nil {
		ctx = p.NewContext()
	}
	lhsVals, err := p.inferAll(b.Left, ctx.clone())
	if err != nil {
		return nil, err
	}
	rhsVals, err := p.inferAll(b.Right, ctx.clone())
	if err != nil {
		return nil, err
	}

	var out []syntax.Node
	for _, lhs := range lhsVals {
		for _, rhs := range rhsVals {
			if lhs == Uninferable || rhs == Uninferable {
				p.reportf(b, "uninferable binary operation")
				return append(out, Uninferable), nil
			}
			vals, err := p.invokeBinOp(lhs, b, b.Op, rhs, false)
			if err != nil {
				return nil, err
			}
			out = append(out, vals...)
		}
	}
	return out, nil
}

func inferAugAssign(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
	aug := n.(*syntax.AugAssign)
	if ctx == nil {
		ctx = p.NewContext()
	}
	lhsVals, err := p.inferLHS(aug.Target, ctx.clone())
	if err != nil {
		return nil, err
	}
	rhsVals, err := p.inferAll(aug.Value, ctx.clone())
	if err != nil {
		return nil, err
	}

	var out []syntax.Node
	for _, lhs := range lhsVals {
		for _, rhs := range rhsVals {
			if lhs == Uninferable || rhs == Uninferable {
				p.reportf(aug, "uninferable augmented assignment")
				return append(out, Uninferable), nil
			}
			vals, err := p.invokeBinOp(lhs, aug, aug.Op, rhs, true)
			if err != nil {
				return nil, err
			}
			out = append(out, vals...)
		}
	}
	return out, nil
}

// inferLHS infers the target of an augmented assignment: the previous
// value of the name, before this statement. Only plain names are
// supported.
func (p *Program) inferLHS(target syntax.Expr, ctx *InferenceContext) ([]syntax.Node, error) {
	if name, ok := target.(*syntax.Name); ok {
		return p.inferNameLoad(name, ctx)
	}
	p.reportf(target, "unsupported augmented assignment target %T", target)
	return []syntax.Node{Uninferable}, nil
}

// invokeBinOp applies one binary operation to two inferred operands.
// Operations outside the literal tables and non-literal operands give
// Uninferable; an operation failing on its values (wrong types, zero
// division) is an inference error.
func (p *Program) invokeBinOp(left syntax.Node, opnode syntax.Node, op syntax.Op, right syntax.Node, augmented bool) ([]syntax.Node, error) {
	table := binaryOps
	if augmented {
		table = augmentedOps
	}
	apply, ok := table[op]
	if !ok {
		p.reportf(opnode, "unsupported operation %s", op)
		return []syntax.Node{Uninferable}, nil
	}

	leftVal, lerr := LiteralEval(left)
	rightVal, rerr := LiteralEval(right)
	if lerr != nil || rerr != nil {
		p.reportf(opnode, "operands of %s are not literals", op)
		return []syntax.Node{Uninferable}, nil
	}

	result, err := apply(leftVal, rightVal)
	if err != nil {
		p.reportf(opnode, "operation failed: %v", err)
		return nil, inferencef(opnode, "operation %s failed: %v", op, err)
	}
	return []syntax.Node{fixNode(literalNode(result), syntax.Parent(opnode))}, nil
}

func inferAlias(p *Program, n syntax.Node, ctx *InferenceContext) ([]syntax.Node, error) {
	a := n.(*syntax.Alias)
	modname, err := p.originModule(a)
	if err != nil {
		return nil, err
	}
	mod, ok := p.modules[modname]
	if !ok {
		p.reportf(a, "no module named %q in the program", modname)
		return []syntax.Node{Uninferable}, nil
	}

	if _, ok := syntax.Parent(a).(*syntax.ImportFrom); ok {
		// A from-import of the module's own root (a circular import)
		// must not look into the locals being built.
		ignoreLocals := syntax.Node(mod) == syntax.Node(syntax.Root(a))
		stmts, err := p.getAttr(mod, a.Name, ignoreLocals)
		if err != nil {
			return nil, inferencef(a, "cannot infer import of %q from %s: %v", a.Name, modname, err)
		}
		return p.inferStmts(stmts, p.copyContext(ctx), nil)
	}
	return []syntax.Node{mod}, nil
}

// originModule returns the name of the module an import alias draws
// from: the (possibly relative-resolved) source module of a
// from-import, the first dotted component of a plain import, or the
// full dotted path when aliased.
func (p *Program) originModule(a *syntax.Alias) (string, error) {
	if imp, ok := syntax.Parent(a).(*syntax.ImportFrom); ok {
		if imp.Level > 0 {
			return p.relativeToAbsolute(imp)
		}
		return imp.Module, nil
	}
	if a.AsName == "" {
		if i := strings.IndexByte(a.Name, '.'); i >= 0 {
			return a.Name[:i], nil
		}
		return a.Name, nil
	}
	return a.Name, nil
}

// relativeToAbsolute resolves the source module of a relative
// from-import against the importing module's dotted name.
func (p *Program) relativeToAbsolute(imp *syntax.ImportFrom) (string, error) {
	parent := syntax.Root(imp)
	level := imp.Level
	if parent.Package {
		level--
	}
	for i := 0; i < level && parent != nil; i++ {
		parent = p.moduleParent(parent)
	}
	if parent == nil {
		return "", inferencef(imp, "failed to resolve relative import")
	}
	if imp.Module == "" {
		return parent.Name, nil
	}
	return parent.Name + "." + imp.Module, nil
}

// fixNode wires a synthesized node into the tree at parent: position
// is borrowed from parent where missing, parent links and instance
// metadata are stamped throughout.
func fixNode(n syntax.Node, parent syntax.Node) syntax.Node {
	if parent != nil {
		syntax.SetPos(n, parent.Pos())
	}
	var fix func(c, par syntax.Node)
	fix = func(c, par syntax.Node) {
		syntax.SetParent(c, par)
		syntax.InitTypeInfo(c)
		if !c.Pos().IsValid() && par != nil {
			syntax.SetPos(c, par.Pos())
		}
		for _, child := range syntax.Children(c) {
			fix(child, c)
		}
	}
	fix(n, parent)
	return n
}
