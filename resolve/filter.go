// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"go.pysleuth.net/syntax"
)

// filterStatements discards the binding candidates for a name that
// cannot reach base: bindings on later lines, bindings superseded by a
// later unconditional rebinding in the same block, bindings on
// branches exclusive with base's, bindings local to an exception
// handler base is outside of, and everything bound before a delete.
//
// base is the node the lookup started from, candidates come from the
// locals table of frame, and offset shifts base's line cutoff (see
// Lookup).
func filterStatements(base syntax.Node, candidates []syntax.Node, frame syntax.Node, offset int) []syntax.Node {
	// With offset -1 the effective frame is not base's own frame but
	// the one above it, so that `class A(B)` resolves B outside A.
	var myframe syntax.Node
	if offset == -1 {
		myframe = syntax.Frame(syntax.Parent(syntax.Frame(base)))
	} else {
		myframe = syntax.Frame(base)
		// When base's statement is its own frame, base sits in a class
		// or function header (a default value, say) and is evaluated
		// in the frame above the definition.
		if syntax.Parent(base) != nil && syntax.Statement(base) == myframe && syntax.Parent(myframe) != nil {
			myframe = syntax.Frame(syntax.Parent(myframe))
		}
	}

	var mystmt syntax.Node
	if syntax.Parent(base) != nil {
		mystmt = syntax.Statement(base)
	}

	// Line filtering applies only within a single frame, and only when
	// base has a real location. Synthetic nodes have line -1 and
	// observe the frame without a cutoff.
	mylineno := 0
	if myframe == frame && mystmt != nil && mystmt.Pos().Line != -1 {
		mylineno = int(mystmt.Pos().Line) + offset
	}

	var kept []syntax.Node
	var keptParents []syntax.Node

	for _, c := range nodeStatements(base, candidates) {
		node, stmt := c.node, c.stmt

		if line := int(stmt.Pos().Line); line != 0 && line > mylineno && mylineno > 0 {
			break
		}
		// A decorator with the same name as the function it decorates
		// refers to an earlier binding, not to the decorated function.
		if mystmt == stmt && syntax.IsFromDecorator(base) {
			continue
		}
		if hasBase(node, base) {
			break
		}

		assignType := getAssignType(node)
		var done bool
		kept, done = filterByAssignType(assignType, base, node, kept, mystmt)
		if done {
			break
		}

		optionalAssign := optionallyAssigns(assignType)
		if optionalAssign && syntax.ParentOf(assignType, base) {
			// base is inside the loop, so the loop variable hides any
			// previous assignment.
			kept = []syntax.Node{node}
			keptParents = []syntax.Node{syntax.Parent(stmt)}
			continue
		}

		if _, ok := assignType.(*syntax.NamedExpr); ok {
			// A walrus under an if gets rudimentary control-flow
			// treatment: a first-level if not in an orelse block is
			// known to evaluate its test, anything deeper merely adds
			// a possibility.
			if ifParent := ifAncestor(assignType); ifParent != nil {
				switch {
				case ifAncestor(ifParent) != nil:
					optionalAssign = false
					kept = append(kept, node)
					keptParents = append(keptParents, syntax.Parent(stmt))
				case !isOrElse(ifParent):
					kept = []syntax.Node{node}
					keptParents = []syntax.Node{syntax.Parent(stmt)}
				default:
					kept = append(kept, node)
					keptParents = append(keptParents, syntax.Parent(stmt))
				}
			} else {
				kept = []syntax.Node{node}
				keptParents = []syntax.Node{syntax.Parent(stmt)}
			}
		}

		if pindex := indexOf(keptParents, syntax.Parent(stmt)); pindex >= 0 {
			// The current node is at the same block level as a kept
			// one.
			if syntax.ParentOf(getAssignType(kept[pindex]), assignType) {
				// Not actually the same block, skip the nested one.
				continue
			}
			// A later assignment in the same block supersedes an
			// earlier one, unless the earlier one may not execute
			// (loops) or the two sit on exclusive branches.
			if !(optionalAssign || areExclusive(kept[pindex], node)) {
				kept = append(kept[:pindex], kept[pindex+1:]...)
				keptParents = append(keptParents[:pindex], keptParents[pindex+1:]...)
			}
		}

		if areExclusive(base, node) {
			continue
		}

		if isAssignLike(node) {
			if eh, ok := stmt.(*syntax.ExceptHandler); ok {
				// The name bound to a caught exception is local to the
				// handler block: inside it, the handler binding wins;
				// outside it, the binding is invisible.
				if syntax.ParentOf(eh, base) {
					kept, keptParents = nil, nil
				} else {
					continue
				}
			} else if !optionalAssign && mystmt != nil && syntax.Parent(stmt) == syntax.Parent(mystmt) {
				kept, keptParents = nil, nil
			}
		} else if isDelLike(node) {
			kept, keptParents = nil, nil
			continue
		}

		kept = append(kept, node)

		if isParamLike(node) {
			// For a function parameter, stmt is the enclosing
			// definition, which is the block marker we want.
			keptParents = append(keptParents, stmt)
		} else {
			keptParents = append(keptParents, syntax.Parent(stmt))
		}
	}
	return kept
}

type nodeStatement struct {
	node syntax.Node // the binding node from the locals table
	stmt syntax.Node // its enclosing statement
}

// nodeStatements pairs each candidate with its statement. When every
// candidate is bound by an exception handler, only the handlers
// enclosing base are considered.
func nodeStatements(base syntax.Node, candidates []syntax.Node) []nodeStatement {
	out := make([]nodeStatement, 0, len(candidates))
	for _, n := range candidates {
		out = append(out, nodeStatement{n, syntax.Statement(n)})
	}
	if len(out) > 1 {
		allHandlers := true
		for _, c := range out {
			if _, ok := c.stmt.(*syntax.ExceptHandler); !ok {
				allHandlers = false
				break
			}
		}
		if allHandlers {
			var enclosing []nodeStatement
			for _, c := range out {
				if syntax.ParentOf(c.stmt, base) {
					enclosing = append(enclosing, c)
				}
			}
			out = enclosing
		}
	}
	return out
}

// getAssignType returns the node that performs the assignment a
// binding node takes part in: the Assign above a target name, the For
// above a loop variable, the Arguments above a parameter.
func getAssignType(n syntax.Node) syntax.Node {
	for usesParentAssignType(n) {
		n = syntax.Parent(n)
	}
	return n
}

func usesParentAssignType(n syntax.Node) bool {
	switch n.(type) {
	case *syntax.Name, *syntax.Attribute:
		return syntax.IsAssignName(n) || syntax.IsDelName(n)
	case *syntax.Arg, *syntax.List, *syntax.Tuple, *syntax.Set, *syntax.Starred, *syntax.Alias:
		return true
	}
	return false
}

// optionallyAssigns reports whether the assignment may not happen at
// runtime, as with loop variables when the loop has no iterations.
func optionallyAssigns(n syntax.Node) bool {
	switch n.(type) {
	case *syntax.NamedExpr, *syntax.Comprehension, *syntax.For:
		return true
	}
	return false
}

// filterByAssignType applies the per-kind filtering rule of an
// assignment node. The second result reports that filtering is done
// and the candidate loop must stop.
func filterByAssignType(assignType, base, node syntax.Node, kept []syntax.Node, mystmt syntax.Node) ([]syntax.Node, bool) {
	switch assignType.(type) {
	case *syntax.ImportFrom, *syntax.Import, *syntax.ClassDef, *syntax.Lambda, *syntax.FunctionDef:
		if syntax.Statement(assignType) == mystmt {
			return []syntax.Node{node}, true
		}
		return kept, false

	case *syntax.Comprehension:
		if assignType == mystmt {
			switch base.(type) {
			case *syntax.Constant, *syntax.Name:
				return []syntax.Node{base}, true
			}
		} else if syntax.Statement(assignType) == mystmt {
			return []syntax.Node{node}, true
		}
		return kept, false

	default:
		if assignType == mystmt {
			return kept, true
		}
		if syntax.Statement(assignType) == mystmt {
			// base's own statement is the assignment: keep only the
			// binding node itself.
			return []syntax.Node{node}, true
		}
		return kept, false
	}
}

// areExclusive reports whether two nodes sit on mutually exclusive
// branches: different arms of the same if statement, different except
// clauses of the same try, or a handler against the try's else block.
func areExclusive(node1, node2 syntax.Node) bool {
	// Index node1's ancestors, remembering which child each was
	// reached through.
	children := make(map[syntax.Node]syntax.Node)
	prev := node1
	for _, anc := range syntax.Ancestors(node1) {
		children[anc] = prev
		prev = anc
	}

	// Climb from node2 to the first common ancestor.
	prev = node2
	for _, anc := range syntax.Ancestors(node2) {
		if c1, ok := children[anc]; ok {
			switch anc.(type) {
			case *syntax.If:
				f1, err1 := syntax.LocateChild(anc, c1)
				f2, err2 := syntax.LocateChild(anc, prev)
				if err1 == nil && err2 == nil && f1 != f2 {
					return true
				}
			case *syntax.Try:
				f1, err1 := syntax.LocateChild(anc, c1)
				f2, err2 := syntax.LocateChild(anc, prev)
				if err1 != nil || err2 != nil {
					return false
				}
				if f1 != f2 {
					if (f2 == "handlers" && f1 == "orelse") || (f2 == "orelse" && f1 == "handlers") {
						return true
					}
				} else if f1 == "handlers" {
					// Distinct except clauses of one try are
					// exclusive.
					return prev != c1
				}
			}
			return false
		}
		prev = anc
	}
	return false
}

func hasBase(node, base syntax.Node) bool {
	cls, ok := node.(*syntax.ClassDef)
	if !ok {
		return false
	}
	for _, b := range cls.Bases {
		if syntax.Node(b) == base {
			return true
		}
	}
	return false
}

func isAssignLike(n syntax.Node) bool {
	if _, ok := n.(*syntax.NamedExpr); ok {
		return true
	}
	return syntax.IsAssignName(n)
}

func isDelLike(n syntax.Node) bool {
	return syntax.IsDelName(n)
}

func isParamLike(n syntax.Node) bool {
	switch n.(type) {
	case *syntax.Arguments, *syntax.Keyword:
		return true
	}
	switch syntax.Parent(n).(type) {
	case *syntax.Arguments, *syntax.Keyword:
		return true
	}
	return false
}

func ifAncestor(n syntax.Node) *syntax.If {
	for _, p := range syntax.Ancestors(n) {
		if ifStmt, ok := p.(*syntax.If); ok {
			return ifStmt
		}
	}
	return nil
}

func isOrElse(n syntax.Node) bool {
	ifp, ok := syntax.Parent(n).(*syntax.If)
	if !ok {
		return false
	}
	for _, s := range ifp.Else {
		if syntax.Node(s) == n {
			return true
		}
	}
	return false
}

func indexOf(nodes []syntax.Node, n syntax.Node) int {
	for i, x := range nodes {
		if x == n {
			return i
		}
	}
	return -1
}
