// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syntax defines a Python abstract syntax tree.
//
// The tree mirrors the shape of Python's published ast grammar: a Node
// interface with a concrete struct per construct, and Stmt/Expr marker
// interfaces for the two major categories. Nodes are produced by a
// front end (see internal/pyparse) and wired together by the resolve
// package, which stamps parent links, fills the locals tables of scope
// nodes, and initializes instance type descriptors.
//
// Navigation helpers (Parent, Children, Frame, Scope, Statement and
// friends) live in tree.go and are memoized per node.
package syntax

import "fmt"

// A Position describes the location of a node in a source file.
// The zero Col is the start of a line.
type Position struct {
	Line int32 // 1-based line number; 0 for a module; -1 if synthetic
	Col  int32 // 0-based byte offset within the line
}

// NoPos marks nodes created by analysis rather than by a parser.
var NoPos = Position{Line: -1}

// IsValid reports whether the position refers to a real source location.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if p.Line < 0 {
		return "???"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col+1)
}

// Node is implemented by all syntax tree nodes.
type Node interface {
	// Pos returns the position of the first token of the node.
	Pos() Position

	common() *base
}

// A Stmt is a statement-shaped node.
type Stmt interface {
	Node
	stmt()
}

// An Expr is an expression-shaped node.
type Expr interface {
	Node
	expr()
}

// base holds the bookkeeping shared by all nodes: position, the parent
// link stamped by the binder, and the memo slots for the navigation
// helpers. It is embedded in every concrete node type.
type base struct {
	pos    Position
	parent Node

	children   []Node
	childrenOK bool
	frame      Node
	scope      Node
	stmt       Node

	// locals is non-nil only on scope nodes once the binder has run.
	// It maps a name to its binding sites in source order.
	locals     map[string][]Node
	localNames []string
}

func (b *base) common() *base { return b }
func (b *base) Pos() Position { return b.pos }

// SetPos records the source position of a node.
// Front ends call it once per node; analysis-created nodes keep NoPos
// unless restamped.
func SetPos(n Node, pos Position) { n.common().pos = pos }

// SetParent records the parent of a node. It is called by the binder
// for parsed trees and by the inference engine for synthesized ones.
func SetParent(n, parent Node) {
	b := n.common()
	b.parent = parent
	// Parent-derived memos are no longer valid.
	b.frame = nil
	b.scope = nil
	b.stmt = nil
}

// An ExprContext tells whether an expression loads, stores or deletes
// a value. The zero value is Load, so synthesized nodes read naturally.
type ExprContext int

const (
	Load ExprContext = iota
	Store
	Del
)

func (ctx ExprContext) String() string {
	switch ctx {
	case Load:
		return "load"
	case Store:
		return "store"
	case Del:
		return "del"
	}
	return fmt.Sprintf("context(%d)", int(ctx))
}

// An Op identifies a unary, binary, boolean or comparison operator.
type Op int

const (
	OpInvalid Op = iota

	// binary operators
	OpAdd      // +
	OpSub      // -
	OpMult     // *
	OpMatMult  // @
	OpDiv      // /
	OpMod      // %
	OpPow      // **
	OpLShift   // <<
	OpRShift   // >>
	OpBitOr    // |
	OpBitXor   // ^
	OpBitAnd   // &
	OpFloorDiv // //

	// unary operators
	OpInvert // ~
	OpNot    // not
	OpUAdd   // +x
	OpUSub   // -x

	// boolean operators
	OpAnd // and
	OpOr  // or

	// comparison operators
	OpEq    // ==
	OpNotEq // !=
	OpLt    // <
	OpLtE   // <=
	OpGt    // >
	OpGtE   // >=
	OpIs    // is
	OpIsNot // is not
	OpIn    // in
	OpNotIn // not in
)

var opNames = map[Op]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMult:     "*",
	OpMatMult:  "@",
	OpDiv:      "/",
	OpMod:      "%",
	OpPow:      "**",
	OpLShift:   "<<",
	OpRShift:   ">>",
	OpBitOr:    "|",
	OpBitXor:   "^",
	OpBitAnd:   "&",
	OpFloorDiv: "//",
	OpInvert:   "~",
	OpNot:      "not",
	OpUAdd:     "+",
	OpUSub:     "-",
	OpAnd:      "and",
	OpOr:       "or",
	OpEq:       "==",
	OpNotEq:    "!=",
	OpLt:       "<",
	OpLtE:      "<=",
	OpGt:       ">",
	OpGtE:      ">=",
	OpIs:       "is",
	OpIsNot:    "is not",
	OpIn:       "in",
	OpNotIn:    "not in",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// EllipsisValue is the value held by a `...` Constant.
type EllipsisValue struct{}

// Ellipsis is the singleton `...` constant value.
var Ellipsis = EllipsisValue{}

func (EllipsisValue) String() string { return "..." }

// A Module is the root of a parsed source file. Its Pos has Line 0 and
// its parent is always nil.
type Module struct {
	base
	Name     string // dotted module name, e.g. "pack.mod"
	Filename string // source path, if known
	Package  bool   // whether the module is a package __init__
	Body     []Stmt
}

// A FunctionDef is a def or async def statement.
type FunctionDef struct {
	base
	Name       string
	Args       *Arguments
	Body       []Stmt
	Decorators []Expr
	Returns    Expr // or nil
	Async      bool
}

// A ClassDef is a class statement.
type ClassDef struct {
	base
	Name       string
	Bases      []Expr
	Keywords   []*Keyword
	Body       []Stmt
	Decorators []Expr
}

// A Return is a return statement.
type Return struct {
	base
	Value Expr // or nil
}

// A Delete is a del statement.
type Delete struct {
	base
	Targets []Expr
}

// An Assign is an assignment statement: Targets[0] = ... = Value.
type Assign struct {
	base
	Targets []Expr
	Value   Expr
}

// An AugAssign is an augmented assignment: Target op= Value.
type AugAssign struct {
	base
	Target Expr
	Op     Op
	Value  Expr
}

// An AnnAssign is an annotated assignment: Target: Annotation [= Value].
type AnnAssign struct {
	base
	Target     Expr
	Annotation Expr
	Value      Expr // or nil
}

// A For is a for or async for statement.
type For struct {
	base
	Target Expr
	Iter   Expr
	Body   []Stmt
	Else   []Stmt
	Async  bool
}

// A While is a while statement.
type While struct {
	base
	Cond Expr
	Body []Stmt
	Else []Stmt
}

// An If is an if statement. An elif chain is nested in Else.
type If struct {
	base
	Cond Expr
	Body []Stmt
	Else []Stmt
}

// A WithItem is one `expr [as target]` clause of a with statement.
type WithItem struct {
	base
	Context Expr
	Vars    Expr // or nil
}

// A With is a with or async with statement.
type With struct {
	base
	Items []*WithItem
	Body  []Stmt
	Async bool
}

// A Raise is a raise statement.
type Raise struct {
	base
	Exc   Expr // or nil
	Cause Expr // or nil
}

// A Try is a try statement.
type Try struct {
	base
	Body     []Stmt
	Handlers []*ExceptHandler
	Else     []Stmt
	Finally  []Stmt
}

// An ExceptHandler is one except clause of a try statement.
// Name, if non-nil, is a store-context Name binding the caught
// exception; the binding is local to the handler block.
type ExceptHandler struct {
	base
	Type Expr  // or nil (bare except)
	Name *Name // or nil
	Body []Stmt
}

// An Assert is an assert statement.
type Assert struct {
	base
	Test Expr
	Msg  Expr // or nil
}

// An Import is an import statement.
type Import struct {
	base
	Names []*Alias
}

// An ImportFrom is a from ... import statement.
// Level counts the leading dots of a relative import.
type ImportFrom struct {
	base
	Module string // "" for `from . import x`
	Names  []*Alias
	Level  int
}

// An Alias is one name binding of an import statement.
type Alias struct {
	base
	Name   string // possibly dotted
	AsName string // "" if no `as` clause
}

// A Global is a global statement.
type Global struct {
	base
	Names []string
}

// A Nonlocal is a nonlocal statement.
type Nonlocal struct {
	base
	Names []string
}

// An ExprStmt is an expression used as a statement.
type ExprStmt struct {
	base
	Value Expr
}

// A Pass is a pass statement.
type Pass struct{ base }

// A Break is a break statement.
type Break struct{ base }

// A Continue is a continue statement.
type Continue struct{ base }

// A BoolOp is an `and`/`or` chain: Values[0] op Values[1] op ...
type BoolOp struct {
	base
	Op     Op
	Values []Expr
}

// A NamedExpr is a walrus assignment expression: Target := Value.
type NamedExpr struct {
	base
	Target *Name
	Value  Expr
}

// A BinOp is a binary operation.
type BinOp struct {
	base
	Left  Expr
	Op    Op
	Right Expr
}

// A UnaryOp is a unary operation.
type UnaryOp struct {
	base
	Op      Op
	Operand Expr
}

// A Lambda is a lambda expression. It is a frame whose only locals are
// its parameters.
type Lambda struct {
	base
	Args *Arguments
	Body Expr
}

// An IfExp is a conditional expression: Body if Cond else Else.
type IfExp struct {
	base
	Cond Expr
	Body Expr
	Else Expr
}

// A Dict is a dictionary display. A nil key marks a `**mapping` item.
type Dict struct {
	base
	Keys     []Expr
	Values   []Expr
	TypeInfo *TypeInfo
}

// A Set is a set display.
type Set struct {
	base
	Elts     []Expr
	TypeInfo *TypeInfo
}

// A Comprehension is one `for target in iter [if cond]*` clause.
type Comprehension struct {
	base
	Target Expr
	Iter   Expr
	Ifs    []Expr
	Async  bool
}

// A ListComp is a list comprehension.
type ListComp struct {
	base
	Elt        Expr
	Generators []*Comprehension
}

// A SetComp is a set comprehension.
type SetComp struct {
	base
	Elt        Expr
	Generators []*Comprehension
}

// A DictComp is a dict comprehension.
type DictComp struct {
	base
	Key        Expr
	Value      Expr
	Generators []*Comprehension
}

// A GeneratorExp is a generator expression.
type GeneratorExp struct {
	base
	Elt        Expr
	Generators []*Comprehension
}

// An Await is an await expression.
type Await struct {
	base
	Value Expr
}

// A Yield is a yield expression.
type Yield struct {
	base
	Value Expr // or nil
}

// A YieldFrom is a yield from expression.
type YieldFrom struct {
	base
	Value Expr
}

// A Compare is a comparison chain: Left Ops[0] Comparators[0] ...
type Compare struct {
	base
	Left        Expr
	Ops         []Op
	Comparators []Expr
}

// A Call is a call expression.
type Call struct {
	base
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

// A Keyword is one keyword argument of a call, or a keyword in a class
// definition header. An empty Arg marks a `**kwargs` argument.
type Keyword struct {
	base
	Arg   string
	Value Expr
}

// A Constant is a literal. Value is one of nil, bool, int64, float64,
// complex128, string, []byte, or Ellipsis.
type Constant struct {
	base
	Value    interface{}
	TypeInfo *TypeInfo
}

// A JoinedStr is an f-string.
type JoinedStr struct {
	base
	Values []Expr
}

// A FormattedValue is one {expr} interpolation of an f-string.
type FormattedValue struct {
	base
	Value Expr
}

// An Attribute is an attribute access: Value.Attr.
type Attribute struct {
	base
	Value Expr
	Attr  string
	Ctx   ExprContext
}

// A Subscript is a subscription: Value[Index].
type Subscript struct {
	base
	Value Expr
	Index Expr
	Ctx   ExprContext
}

// A Starred is a *expr in a call, display or assignment target.
type Starred struct {
	base
	Value Expr
	Ctx   ExprContext
}

// A Name is an identifier reference or binding.
type Name struct {
	base
	ID  string
	Ctx ExprContext
}

// A List is a list display.
type List struct {
	base
	Elts     []Expr
	Ctx      ExprContext
	TypeInfo *TypeInfo
}

// A Tuple is a tuple display.
type Tuple struct {
	base
	Elts     []Expr
	Ctx      ExprContext
	TypeInfo *TypeInfo
}

// A Slice is the lo:hi:step form of a subscript index.
type Slice struct {
	base
	Lo   Expr // or nil
	Hi   Expr // or nil
	Step Expr // or nil
}

// Arguments describes the parameter list of a function or lambda.
type Arguments struct {
	base
	PosOnly    []*Arg
	Args       []*Arg
	Vararg     *Arg // or nil
	KwOnly     []*Arg
	KwDefaults []Expr // parallel to KwOnly; nil entries mean no default
	Kwarg      *Arg   // or nil
	Defaults   []Expr // defaults for the trailing PosOnly+Args
}

// An Arg is a single parameter.
type Arg struct {
	base
	Name       string
	Annotation Expr // or nil
}

func (*FunctionDef) stmt()   {}
func (*ClassDef) stmt()      {}
func (*Return) stmt()        {}
func (*Delete) stmt()        {}
func (*Assign) stmt()        {}
func (*AugAssign) stmt()     {}
func (*AnnAssign) stmt()     {}
func (*For) stmt()           {}
func (*While) stmt()         {}
func (*If) stmt()            {}
func (*With) stmt()          {}
func (*Raise) stmt()         {}
func (*Try) stmt()           {}
func (*ExceptHandler) stmt() {}
func (*Assert) stmt()        {}
func (*Import) stmt()        {}
func (*ImportFrom) stmt()    {}
func (*Global) stmt()        {}
func (*Nonlocal) stmt()      {}
func (*ExprStmt) stmt()      {}
func (*Pass) stmt()          {}
func (*Break) stmt()         {}
func (*Continue) stmt()      {}

func (*BoolOp) expr()         {}
func (*NamedExpr) expr()      {}
func (*BinOp) expr()          {}
func (*UnaryOp) expr()        {}
func (*Lambda) expr()         {}
func (*IfExp) expr()          {}
func (*Dict) expr()           {}
func (*Set) expr()            {}
func (*ListComp) expr()       {}
func (*SetComp) expr()        {}
func (*DictComp) expr()       {}
func (*GeneratorExp) expr()   {}
func (*Await) expr()          {}
func (*Yield) expr()          {}
func (*YieldFrom) expr()      {}
func (*Compare) expr()        {}
func (*Call) expr()           {}
func (*Constant) expr()       {}
func (*JoinedStr) expr()      {}
func (*FormattedValue) expr() {}
func (*Attribute) expr()      {}
func (*Subscript) expr()      {}
func (*Starred) expr()        {}
func (*Name) expr()           {}
func (*List) expr()           {}
func (*Tuple) expr()          {}
func (*Slice) expr()          {}

// Context returns the expression context of nodes that carry one, and
// Load for all others. Synthesized nodes read as loads.
func Context(n Node) ExprContext {
	switch n := n.(type) {
	case *Name:
		return n.Ctx
	case *Attribute:
		return n.Ctx
	case *Subscript:
		return n.Ctx
	case *Starred:
		return n.Ctx
	case *List:
		return n.Ctx
	case *Tuple:
		return n.Ctx
	}
	return Load
}

// IsAssignName reports whether n is a Name or Attribute in store context.
func IsAssignName(n Node) bool {
	switch n.(type) {
	case *Name, *Attribute:
		return Context(n) == Store
	}
	return false
}

// IsDelName reports whether n is a Name or Attribute in delete context.
func IsDelName(n Node) bool {
	switch n.(type) {
	case *Name, *Attribute:
		return Context(n) == Del
	}
	return false
}

// IsFrame reports whether n is a frame: a module, class, function or
// lambda. Frames own locals that name lookup consults directly.
func IsFrame(n Node) bool {
	switch n.(type) {
	case *Module, *ClassDef, *FunctionDef, *Lambda:
		return true
	}
	return false
}

// IsScope reports whether n introduces a scope: a frame or a
// comprehension expression.
func IsScope(n Node) bool {
	switch n.(type) {
	case *Module, *ClassDef, *FunctionDef, *Lambda,
		*ListComp, *SetComp, *DictComp, *GeneratorExp:
		return true
	}
	return false
}

// Locals returns the binding-site table of a scope node: a map from
// name to the nodes that bind it, in source order. It panics if n is
// not a scope. The table is nil until the binder has run.
func Locals(n Node) map[string][]Node {
	if !IsScope(n) {
		panic(fmt.Sprintf("syntax: Locals called on %T", n))
	}
	return n.common().locals
}

// LocalNames returns the names bound in a scope, ordered by first
// binding.
func LocalNames(n Node) []string {
	if !IsScope(n) {
		panic(fmt.Sprintf("syntax: LocalNames called on %T", n))
	}
	return n.common().localNames
}

// DefineLocal records that binding binds name within the scope n.
// It panics if the same binding node is registered twice for one name,
// which indicates a binder bug.
func DefineLocal(n Node, name string, binding Node) {
	if !IsScope(n) {
		panic(fmt.Sprintf("syntax: DefineLocal called on %T", n))
	}
	b := n.common()
	if b.locals == nil {
		b.locals = make(map[string][]Node)
	}
	for _, prev := range b.locals[name] {
		if prev == binding {
			panic(fmt.Sprintf("syntax: duplicate binding of %q in %T", name, n))
		}
	}
	if _, ok := b.locals[name]; !ok {
		b.localNames = append(b.localNames, name)
	}
	b.locals[name] = append(b.locals[name], binding)
}

// A TypeInfo describes the runtime type of a value node: the qualified
// name of its class, and the class definition itself when one is known.
type TypeInfo struct {
	TypeName string
	Class    *ClassDef
}

func (ti *TypeInfo) String() string {
	if ti == nil || ti.TypeName == "" {
		return "??"
	}
	return ti.TypeName
}

// InitTypeInfo fills in the type descriptor of literal and collection
// nodes. It is a no-op for other kinds and for nodes already stamped.
func InitTypeInfo(n Node) {
	switch n := n.(type) {
	case *Constant:
		if n.TypeInfo == nil {
			n.TypeInfo = &TypeInfo{TypeName: constantTypeName(n.Value)}
		}
	case *List:
		if n.TypeInfo == nil {
			n.TypeInfo = &TypeInfo{TypeName: "list"}
		}
	case *Tuple:
		if n.TypeInfo == nil {
			n.TypeInfo = &TypeInfo{TypeName: "tuple"}
		}
	case *Set:
		if n.TypeInfo == nil {
			n.TypeInfo = &TypeInfo{TypeName: "set"}
		}
	case *Dict:
		if n.TypeInfo == nil {
			n.TypeInfo = &TypeInfo{TypeName: "dict"}
		}
	}
}

func constantTypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []byte:
		return "bytes"
	case EllipsisValue:
		return "" // `...` has no useful type descriptor
	}
	return ""
}
