// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth

// Literal evaluation and the literal operator tables. The engine
// reasons about Python values only as far as literals go: numbers,
// strings, bytes, booleans, None, Ellipsis, and containers of those.

import (
	"fmt"
	"math"

	"go.pysleuth.net/syntax"
)

// Literal container values produced by LiteralEval. Elements are the
// same domain recursively: nil (None), bool, int64, float64, string,
// []byte, syntax.EllipsisValue, or another container value.
type (
	TupleValue []interface{}
	ListValue  []interface{}
	SetValue   []interface{}

	// DictValue keeps keys and values in source order; the engine
	// never evaluates dict contents beyond this.
	DictValue struct {
		Keys   []interface{}
		Values []interface{}
	}
)

// LiteralEval evaluates a node consisting solely of literals to its
// value. Anything else is an error, including Uninferable elements
// inside containers.
func LiteralEval(n syntax.Node) (interface{}, error) {
	switch n := n.(type) {
	case *syntax.Constant:
		return n.Value, nil

	case *syntax.Tuple:
		elts, err := literalElts(n.Elts)
		return TupleValue(elts), err
	case *syntax.List:
		elts, err := literalElts(n.Elts)
		return ListValue(elts), err
	case *syntax.Set:
		elts, err := literalElts(n.Elts)
		return SetValue(elts), err

	case *syntax.Dict:
		d := DictValue{}
		for i, k := range n.Keys {
			if k == nil {
				// A `**mapping` entry is not a literal.
				return nil, fmt.Errorf("pysleuth: dict unpacking is not a literal")
			}
			kv, err := LiteralEval(k)
			if err != nil {
				return nil, err
			}
			vv, err := LiteralEval(n.Values[i])
			if err != nil {
				return nil, err
			}
			d.Keys = append(d.Keys, kv)
			d.Values = append(d.Values, vv)
		}
		return d, nil

	case *syntax.UnaryOp:
		v, err := LiteralEval(n.Operand)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case syntax.OpUAdd:
			switch v := v.(type) {
			case int64:
				return v, nil
			case float64:
				return v, nil
			}
		case syntax.OpUSub:
			switch v := v.(type) {
			case int64:
				return -v, nil
			case float64:
				return -v, nil
			}
		}
		return nil, fmt.Errorf("pysleuth: %s is not a literal operation", n.Op)
	}
	return nil, fmt.Errorf("pysleuth: %s is not a literal", describeExpr(n))
}

func literalElts(elts []syntax.Expr) ([]interface{}, error) {
	out := make([]interface{}, 0, len(elts))
	for _, e := range elts {
		if e == nil {
			return nil, fmt.Errorf("pysleuth: container holds an uninferable element")
		}
		v, err := LiteralEval(e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func describeExpr(n syntax.Node) string {
	if n == nil {
		return "<uninferable>"
	}
	return syntax.Unparse(n)
}

// literalNode rebuilds the syntax tree of a literal value. The caller
// wires it into a tree with fixNode.
func literalNode(v interface{}) syntax.Expr {
	switch v := v.(type) {
	case TupleValue:
		return &syntax.Tuple{Elts: literalNodes(v)}
	case ListValue:
		return &syntax.List{Elts: literalNodes(v)}
	case SetValue:
		return &syntax.Set{Elts: literalNodes(v)}
	case DictValue:
		d := &syntax.Dict{}
		for i := range v.Keys {
			d.Keys = append(d.Keys, literalNode(v.Keys[i]))
			d.Values = append(d.Values, literalNode(v.Values[i]))
		}
		return d
	}
	return &syntax.Constant{Value: v}
}

func literalNodes(vs []interface{}) []syntax.Expr {
	out := make([]syntax.Expr, len(vs))
	for i, v := range vs {
		out[i] = literalNode(v)
	}
	return out
}

// truthy applies Python truthiness to a literal value.
func truthy(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return len(v) > 0
	case []byte:
		return len(v) > 0
	case TupleValue:
		return len(v) > 0
	case ListValue:
		return len(v) > 0
	case SetValue:
		return len(v) > 0
	case DictValue:
		return len(v.Keys) > 0
	}
	return true
}

// A binOpFunc applies one operator to two literal values. A nil error
// with any result means success; an error means the operation does
// not apply to those values.
type binOpFunc func(a, b interface{}) (interface{}, error)

// binaryOps is the plain operator table. Matrix multiplication has no
// literal semantics and is deliberately absent: using it makes the
// result Uninferable rather than an error.
var binaryOps = map[syntax.Op]binOpFunc{
	syntax.OpAdd:      addValues,
	syntax.OpSub:      arithOp("-", func(a, b int64) (int64, error) { return a - b, nil }, func(a, b float64) float64 { return a - b }),
	syntax.OpMult:     mulValues,
	syntax.OpDiv:      divValues,
	syntax.OpFloorDiv: floorDivValues,
	syntax.OpMod:      modValues,
	syntax.OpPow:      powValues,
	syntax.OpLShift:   shiftOp(false),
	syntax.OpRShift:   shiftOp(true),
	syntax.OpBitOr:    intOp("|", func(a, b int64) int64 { return a | b }),
	syntax.OpBitAnd:   intOp("&", func(a, b int64) int64 { return a & b }),
	syntax.OpBitXor:   intOp("^", func(a, b int64) int64 { return a ^ b }),
}

// augmentedOps is the in-place operator table. It differs from the
// plain table in one place: += on a list extends it with the elements
// of any sequence, the way list.__iadd__ accepts any iterable.
var augmentedOps = map[syntax.Op]binOpFunc{
	syntax.OpAdd:      iaddValues,
	syntax.OpSub:      binaryOps[syntax.OpSub],
	syntax.OpMult:     binaryOps[syntax.OpMult],
	syntax.OpDiv:      binaryOps[syntax.OpDiv],
	syntax.OpFloorDiv: binaryOps[syntax.OpFloorDiv],
	syntax.OpMod:      binaryOps[syntax.OpMod],
	syntax.OpPow:      binaryOps[syntax.OpPow],
	syntax.OpLShift:   binaryOps[syntax.OpLShift],
	syntax.OpRShift:   binaryOps[syntax.OpRShift],
	syntax.OpBitOr:    binaryOps[syntax.OpBitOr],
	syntax.OpBitAnd:   binaryOps[syntax.OpBitAnd],
	syntax.OpBitXor:   binaryOps[syntax.OpBitXor],
}

func opError(op string, a, b interface{}) error {
	return fmt.Errorf("unsupported operand types for %s: %T and %T", op, a, b)
}

// asFloats promotes a pair of numbers to float64 when either side is
// a float.
func asFloats(a, b interface{}) (x, y float64, ok bool) {
	switch a := a.(type) {
	case int64:
		x = float64(a)
	case float64:
		x = a
	default:
		return 0, 0, false
	}
	switch b := b.(type) {
	case int64:
		y = float64(b)
	case float64:
		y = b
	default:
		return 0, 0, false
	}
	return x, y, true
}

func bothInts(a, b interface{}) (x, y int64, ok bool) {
	x, okA := a.(int64)
	y, okB := b.(int64)
	return x, y, okA && okB
}

func arithOp(name string, ints func(a, b int64) (int64, error), floats func(a, b float64) float64) binOpFunc {
	return func(a, b interface{}) (interface{}, error) {
		if x, y, ok := bothInts(a, b); ok {
			return ints(x, y)
		}
		if x, y, ok := asFloats(a, b); ok {
			return floats(x, y), nil
		}
		return nil, opError(name, a, b)
	}
}

func intOp(name string, f func(a, b int64) int64) binOpFunc {
	return func(a, b interface{}) (interface{}, error) {
		if x, y, ok := bothInts(a, b); ok {
			return f(x, y), nil
		}
		return nil, opError(name, a, b)
	}
}

func addValues(a, b interface{}) (interface{}, error) {
	if x, y, ok := bothInts(a, b); ok {
		return x + y, nil
	}
	if x, y, ok := asFloats(a, b); ok {
		return x + y, nil
	}
	switch a := a.(type) {
	case string:
		if b, ok := b.(string); ok {
			return a + b, nil
		}
	case []byte:
		if b, ok := b.([]byte); ok {
			return append(append([]byte(nil), a...), b...), nil
		}
	case ListValue:
		if b, ok := b.(ListValue); ok {
			return append(append(ListValue(nil), a...), b...), nil
		}
	case TupleValue:
		if b, ok := b.(TupleValue); ok {
			return append(append(TupleValue(nil), a...), b...), nil
		}
	}
	return nil, opError("+", a, b)
}

// iaddValues is addValues except that a list on the left extends with
// the elements of a list, tuple or set on the right.
func iaddValues(a, b interface{}) (interface{}, error) {
	if list, ok := a.(ListValue); ok {
		var elems []interface{}
		switch b := b.(type) {
		case ListValue:
			elems = b
		case TupleValue:
			elems = b
		case SetValue:
			elems = b
		default:
			return nil, opError("+=", a, b)
		}
		return append(append(ListValue(nil), list...), elems...), nil
	}
	return addValues(a, b)
}

func mulValues(a, b interface{}) (interface{}, error) {
	if x, y, ok := bothInts(a, b); ok {
		return x * y, nil
	}
	if x, y, ok := asFloats(a, b); ok {
		return x * y, nil
	}
	// Sequence repetition: the int may be on either side.
	if n, ok := b.(int64); ok {
		if r, ok2 := repeatValue(a, n); ok2 {
			return r, nil
		}
	}
	if n, ok := a.(int64); ok {
		if r, ok2 := repeatValue(b, n); ok2 {
			return r, nil
		}
	}
	return nil, opError("*", a, b)
}

func repeatValue(v interface{}, n int64) (interface{}, bool) {
	if n < 0 {
		n = 0
	}
	switch v := v.(type) {
	case string:
		var out []byte
		for i := int64(0); i < n; i++ {
			out = append(out, v...)
		}
		return string(out), true
	case []byte:
		var out []byte
		for i := int64(0); i < n; i++ {
			out = append(out, v...)
		}
		return out, true
	case ListValue:
		var out ListValue
		for i := int64(0); i < n; i++ {
			out = append(out, v...)
		}
		return out, true
	case TupleValue:
		var out TupleValue
		for i := int64(0); i < n; i++ {
			out = append(out, v...)
		}
		return out, true
	}
	return nil, false
}

func divValues(a, b interface{}) (interface{}, error) {
	x, y, ok := asFloats(a, b)
	if !ok {
		return nil, opError("/", a, b)
	}
	if y == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return x / y, nil
}

func floorDivValues(a, b interface{}) (interface{}, error) {
	if x, y, ok := bothInts(a, b); ok {
		if y == 0 {
			return nil, fmt.Errorf("integer division by zero")
		}
		q := x / y
		if (x%y != 0) && ((x < 0) != (y < 0)) {
			q--
		}
		return q, nil
	}
	if x, y, ok := asFloats(a, b); ok {
		if y == 0 {
			return nil, fmt.Errorf("float floor division by zero")
		}
		return math.Floor(x / y), nil
	}
	return nil, opError("//", a, b)
}

func modValues(a, b interface{}) (interface{}, error) {
	if x, y, ok := bothInts(a, b); ok {
		if y == 0 {
			return nil, fmt.Errorf("integer modulo by zero")
		}
		m := x % y
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m, nil
	}
	if x, y, ok := asFloats(a, b); ok {
		if y == 0 {
			return nil, fmt.Errorf("float modulo by zero")
		}
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m, nil
	}
	return nil, opError("%", a, b)
}

func powValues(a, b interface{}) (interface{}, error) {
	if x, y, ok := bothInts(a, b); ok {
		if y < 0 {
			return math.Pow(float64(x), float64(y)), nil
		}
		result := int64(1)
		for i := int64(0); i < y; i++ {
			result *= x
		}
		return result, nil
	}
	if x, y, ok := asFloats(a, b); ok {
		return math.Pow(x, y), nil
	}
	return nil, opError("**", a, b)
}

func shiftOp(right bool) binOpFunc {
	name := "<<"
	if right {
		name = ">>"
	}
	return func(a, b interface{}) (interface{}, error) {
		x, y, ok := bothInts(a, b)
		if !ok {
			return nil, opError(name, a, b)
		}
		if y < 0 {
			return nil, fmt.Errorf("negative shift count")
		}
		if right {
			return x >> uint(y), nil
		}
		return x << uint(y), nil
	}
}
