// Package ir defines the logic-expression tree shared by every authoring surface.
//
// The tree is JSONLogic-shaped: a single-key object is an operation, `{"var": path}` is a
// variable reference, arrays are array literals and everything else is a literal value.
// Nodes are immutable once built; transformations always construct new trees.
package ir

// Kind identifies the variant of a Node.
type Kind int

const (
	KindLiteral Kind = iota
	KindVariable
	KindArray
	KindOperation
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindVariable:
		return "var"
	case KindArray:
		return "array"
	case KindOperation:
		return "operation"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Node is one of Literal, VariableRef, ArrayLiteral, Operation or ObjectLiteral.
// A nil Node stands for missing ("undefined") logic.
type Node interface {
	Kind() Kind
	node()
}

// Literal holds nil, a bool, a float64 or a string.
type Literal struct {
	Value any
}

// VariableRef addresses a dot-separated path in the data object. Paths starting
// with "$." address the outputs of earlier pipeline steps.
type VariableRef struct {
	Path string
	// Default is returned by evaluators when the path does not resolve. Optional.
	Default Node
}

// ArrayLiteral is an ordered list of nodes.
type ArrayLiteral struct {
	Items []Node
}

// Operation is an operator applied to an ordered argument list.
type Operation struct {
	Op   string
	Args []Node
	// Bare marks the single-argument form whose argument is not wrapped in an
	// array, e.g. {"!": x}.
	Bare bool
}

// ObjectLiteral is a multi-key mapping treated as data, not as an operation.
type ObjectLiteral struct {
	Fields map[string]Node
}

func (Literal) Kind() Kind       { return KindLiteral }
func (VariableRef) Kind() Kind   { return KindVariable }
func (ArrayLiteral) Kind() Kind  { return KindArray }
func (Operation) Kind() Kind     { return KindOperation }
func (ObjectLiteral) Kind() Kind { return KindObject }

func (Literal) node()       {}
func (VariableRef) node()   {}
func (ArrayLiteral) node()  {}
func (Operation) node()     {}
func (ObjectLiteral) node() {}

// True is the literal true, also used as the "matches anything" condition.
func True() Literal { return Literal{Value: true} }

// Null is the literal null.
func Null() Literal { return Literal{Value: nil} }

// Bool returns a boolean literal.
func Bool(b bool) Literal { return Literal{Value: b} }

// Number returns a numeric literal.
func Number(f float64) Literal { return Literal{Value: f} }

// String returns a string literal.
func String(s string) Literal { return Literal{Value: s} }

// Var returns a variable reference to path.
func Var(path string) VariableRef { return VariableRef{Path: path} }

// Array returns an array literal.
func Array(items ...Node) ArrayLiteral {
	if items == nil {
		items = []Node{}
	}
	return ArrayLiteral{Items: items}
}

// Op returns an operation with array-wrapped arguments.
func Op(op string, args ...Node) Operation {
	if args == nil {
		args = []Node{}
	}
	return Operation{Op: op, Args: args}
}

// Unary returns an operation whose single argument is not array-wrapped.
func Unary(op string, arg Node) Operation {
	return Operation{Op: op, Args: []Node{arg}, Bare: true}
}

// Object returns an object literal.
func Object(fields map[string]Node) ObjectLiteral {
	if fields == nil {
		fields = map[string]Node{}
	}
	return ObjectLiteral{Fields: fields}
}

// IsTrue reports whether n is the literal true.
func IsTrue(n Node) bool {
	lit, ok := n.(Literal)
	if !ok {
		return false
	}
	b, ok := lit.Value.(bool)
	return ok && b
}

// IsNull reports whether n is missing or the literal null.
func IsNull(n Node) bool {
	if n == nil {
		return true
	}
	lit, ok := n.(Literal)
	return ok && lit.Value == nil
}

// IsOperation reports whether n is an operation named op.
func IsOperation(n Node, op string) bool {
	o, ok := n.(Operation)
	return ok && o.Op == op
}

// VarPath returns the path read by a variable reference. Besides VariableRef it
// accepts the long form {"var": ["path", default, ...]}, which decodes as an
// Operation because of its extra elements.
func VarPath(n Node) (string, bool) {
	switch t := n.(type) {
	case VariableRef:
		return t.Path, true
	case Operation:
		if t.Op != "var" || t.Bare || len(t.Args) == 0 {
			return "", false
		}
		lit, ok := t.Args[0].(Literal)
		if !ok {
			return "", false
		}
		path, ok := lit.Value.(string)
		return path, ok
	}
	return "", false
}
