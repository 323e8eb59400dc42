package expression

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

// Binding strength of rendered constructs; higher binds tighter. "and" ranks above
// "or" because the parser gives it higher precedence.
const (
	precOr         = 0
	precAnd        = 5
	precEquality   = 10
	precComparison = 20
	precAdditive   = 30
	precFactor     = 40
	precUnary      = 90
	precAtom       = 100
)

var infixPrecedence = map[string]int{
	"*": precFactor, "/": precFactor, "%": precFactor,
	"+": precAdditive, "-": precAdditive,
	">": precComparison, ">=": precComparison, "<": precComparison, "<=": precComparison, "in": precComparison,
	"==": precEquality, "!=": precEquality,
	"and": precAnd, "or": precOr,
}

// associative operators may chain without parentheses on either side
var associative = map[string]bool{"+": true, "*": true, "and": true, "or": true}

// Decompile renders a logic tree as expression text. The literal true at the
// root renders as the empty string, the "matches anything" convention.
//
// The output intentionally differs from a plain precedence-table rendering:
// "and" binds tighter than "or", an equal-precedence right operand of a
// non-associative operator is parenthesized, and a true nested below the root
// renders as "true". The text therefore parses back to the same tree.
func Decompile(n ir.Node) string {
	if ir.IsTrue(n) {
		return ""
	}
	return render(n)
}

func render(n ir.Node) string {
	switch t := n.(type) {
	case nil:
		return "null"
	case ir.Literal:
		return renderLiteral(t.Value)
	case ir.VariableRef:
		if t.Default != nil {
			return fmt.Sprintf("var(%q, %s)", t.Path, render(t.Default))
		}
		return t.Path
	case ir.ArrayLiteral:
		items := make([]string, len(t.Items))
		for i, item := range t.Items {
			items[i] = render(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case ir.ObjectLiteral:
		return ir.Canonical(t)
	case ir.Operation:
		return renderOperation(t)
	}
	return fmt.Sprintf("%v", n)
}

func renderLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		// strings are not escaped; fall back to single quotes when that keeps them lexable
		if strings.Contains(t, `"`) && !strings.Contains(t, "'") {
			return "'" + t + "'"
		}
		return `"` + t + `"`
	}
	return fmt.Sprintf("%v", v)
}

func renderOperation(o ir.Operation) string {
	args := o.Args

	if v, low, high, ok := betweenPattern(o); ok {
		return renderBetween(v, low, high)
	}

	switch o.Op {
	case "between":
		if len(args) == 3 {
			return renderBetween(args[0], args[1], args[2])
		}
	case "!", "not":
		if len(args) == 1 {
			if precedence(args[0]) >= precUnary {
				return "not " + render(args[0])
			}
			return "not(" + render(args[0]) + ")"
		}
	case "-":
		if operand, ok := negation(o); ok {
			return "-" + wrap(operand, precedence(operand) < precUnary)
		}
	}

	if prec, ok := infixPrecedence[o.Op]; ok && !o.Bare {
		if len(args) == 2 || (len(args) > 2 && associative[o.Op]) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = renderOperand(o.Op, prec, a, i == 0)
			}
			return strings.Join(parts, " "+o.Op+" ")
		}
	}

	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = render(a)
	}
	return o.Op + "(" + strings.Join(parts, ", ") + ")"
}

// renderOperand parenthesizes a child whose binding is weaker than its parent's.
// Comparisons do not chain, and a right operand of equal strength only stays
// bare when it continues the same associative operator.
func renderOperand(parentOp string, parent int, child ir.Node, left bool) string {
	p := precedence(child)
	needs := p < parent
	switch {
	case parent == precComparison:
		needs = p <= parent
	case !left && p == parent:
		needs = !(associative[parentOp] && ir.IsOperation(child, parentOp))
	}
	return wrap(child, needs)
}

func renderBetween(v, low, high ir.Node) string {
	return fmt.Sprintf("%s between %s and %s",
		wrap(v, precedence(v) < precAdditive),
		wrap(low, precedence(low) < precAdditive),
		wrap(high, precedence(high) < precAdditive))
}

func wrap(n ir.Node, parens bool) string {
	if parens {
		return "(" + render(n) + ")"
	}
	return render(n)
}

// negation matches {"-": [x]} and {"-": [0, x]}.
func negation(o ir.Operation) (ir.Node, bool) {
	if o.Op != "-" {
		return nil, false
	}
	if len(o.Args) == 1 {
		return o.Args[0], true
	}
	if len(o.Args) == 2 {
		if lit, ok := o.Args[0].(ir.Literal); ok {
			if f, ok := lit.Value.(float64); ok && f == 0 {
				return o.Args[1], true
			}
		}
	}
	return nil, false
}

// betweenPattern matches {"and": [{">=": [v, low]}, {"<=": [v, high]}]} with the
// comparisons in either order and structurally identical left operands.
func betweenPattern(o ir.Operation) (v, low, high ir.Node, ok bool) {
	if o.Op != "and" || o.Bare || len(o.Args) != 2 {
		return nil, nil, nil, false
	}
	first, ok1 := o.Args[0].(ir.Operation)
	second, ok2 := o.Args[1].(ir.Operation)
	if !ok1 || !ok2 || first.Bare || second.Bare || len(first.Args) != 2 || len(second.Args) != 2 {
		return nil, nil, nil, false
	}

	var lower, upper ir.Operation
	switch {
	case first.Op == ">=" && second.Op == "<=":
		lower, upper = first, second
	case first.Op == "<=" && second.Op == ">=":
		lower, upper = second, first
	default:
		return nil, nil, nil, false
	}

	if ir.Canonical(lower.Args[0]) != ir.Canonical(upper.Args[0]) {
		return nil, nil, nil, false
	}
	return lower.Args[0], lower.Args[1], upper.Args[1], true
}

// precedence mirrors the branches of renderOperation.
func precedence(n ir.Node) int {
	o, ok := n.(ir.Operation)
	if !ok {
		return precAtom
	}
	if _, _, _, ok := betweenPattern(o); ok {
		return precComparison
	}
	switch o.Op {
	case "between":
		if len(o.Args) == 3 {
			return precComparison
		}
	case "!", "not":
		if len(o.Args) == 1 {
			return precUnary
		}
	case "-":
		if _, ok := negation(o); ok {
			return precUnary
		}
	}
	if prec, ok := infixPrecedence[o.Op]; ok && !o.Bare {
		if len(o.Args) == 2 || (len(o.Args) > 2 && associative[o.Op]) {
			return prec
		}
	}
	return precAtom
}
