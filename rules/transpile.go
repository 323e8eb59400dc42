package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

// dataVar is the CEL variable bound to the evaluation data.
const dataVar = "input"

// Transpile renders a logic tree as CEL source over the variable "input".
// Every sub-expression is parenthesized, so operator precedence never leaks
// between translated nodes.
func Transpile(n ir.Node) (string, error) {
	var sb strings.Builder
	if err := transpile(&sb, n); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func transpile(sb *strings.Builder, n ir.Node) error {
	switch t := n.(type) {
	case nil:
		sb.WriteString("null")
	case ir.Literal:
		writeLiteral(sb, t.Value)
	case ir.VariableRef:
		return writeLookup(sb, t)
	case ir.ArrayLiteral:
		return writeList(sb, t.Items)
	case ir.ObjectLiteral:
		sb.WriteString("{")
		for i, k := range t.SortedKeys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			if err := transpile(sb, t.Fields[k]); err != nil {
				return err
			}
		}
		sb.WriteString("}")
	case ir.Operation:
		return transpileOperation(sb, t)
	default:
		return fmt.Errorf("%w: unsupported node %T", ErrMalformedLogic, n)
	}
	return nil
}

func writeLiteral(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(t))
	case float64:
		sb.WriteString(formatDouble(t))
	case string:
		sb.WriteString(strconv.Quote(t))
	default:
		sb.WriteString(strconv.Quote(fmt.Sprint(v)))
	}
}

// formatDouble always yields a CEL double literal, never an int.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return `double("NaN")`
	case math.IsInf(f, 1):
		return `double("Inf")`
	case math.IsInf(f, -1):
		return `double("-Inf")`
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	if f < 0 {
		return "(" + s + ")"
	}
	return s
}

func writeLookup(sb *strings.Builder, v ir.VariableRef) error {
	if v.Default == nil {
		fmt.Fprintf(sb, "lookup(%s, %s)", dataVar, strconv.Quote(v.Path))
		return nil
	}
	fmt.Fprintf(sb, "lookup_or(%s, %s, ", dataVar, strconv.Quote(v.Path))
	if err := transpile(sb, v.Default); err != nil {
		return err
	}
	sb.WriteString(")")
	return nil
}

func writeList(sb *strings.Builder, items []ir.Node) error {
	sb.WriteString("[")
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := transpile(sb, item); err != nil {
			return err
		}
	}
	sb.WriteString("]")
	return nil
}

// JSONLogic strict and loose equality coincide once all numbers are doubles.
var celComparison = map[string]string{
	"==": "==", "===": "==",
	"!=": "!=", "!==": "!=",
	">": ">", ">=": ">=",
}

// joined writes args separated by sep, each wrapped by format (which must contain one %s).
func joined(sb *strings.Builder, args []ir.Node, sep, format string) error {
	sb.WriteString("(")
	for i, a := range args {
		if i > 0 {
			sb.WriteString(sep)
		}
		s, err := Transpile(a)
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, format, s)
	}
	sb.WriteString(")")
	return nil
}

func arity(o ir.Operation, want ...int) error {
	for _, n := range want {
		if len(o.Args) == n {
			return nil
		}
	}
	return fmt.Errorf("%w: operator %q does not take %d arguments", ErrMalformedLogic, o.Op, len(o.Args))
}

func transpileOperation(sb *strings.Builder, o ir.Operation) error {
	args := o.Args

	switch o.Op {
	case "==", "===", "!=", "!==", ">", ">=":
		if err := arity(o, 2); err != nil {
			return err
		}
		return joined(sb, args, " "+celComparison[o.Op]+" ", "%s")

	case "<", "<=":
		if err := arity(o, 2, 3); err != nil {
			return err
		}
		if len(args) == 3 {
			// a < b < c
			sb.WriteString("(")
			if err := joined(sb, args[:2], " "+o.Op+" ", "%s"); err != nil {
				return err
			}
			sb.WriteString(" && ")
			if err := joined(sb, args[1:], " "+o.Op+" ", "%s"); err != nil {
				return err
			}
			sb.WriteString(")")
			return nil
		}
		return joined(sb, args, " "+o.Op+" ", "%s")

	case "between":
		if err := arity(o, 3); err != nil {
			return err
		}
		v, err := Transpile(args[0])
		if err != nil {
			return err
		}
		low, err := Transpile(args[1])
		if err != nil {
			return err
		}
		high, err := Transpile(args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "(%s >= %s && %s <= %s)", v, low, v, high)
		return nil

	case "+":
		if len(args) == 0 {
			sb.WriteString("0.0")
			return nil
		}
		return joined(sb, args, " + ", "%s")

	case "*":
		if len(args) == 0 {
			return arity(o, 1)
		}
		return joined(sb, args, " * ", "%s")

	case "-":
		if len(args) == 1 {
			return joined(sb, args, "", "-%s")
		}
		if err := arity(o, 2); err != nil {
			return err
		}
		return joined(sb, args, " - ", "%s")

	case "/":
		if err := arity(o, 2); err != nil {
			return err
		}
		return joined(sb, args, " / ", "%s")

	case "%":
		if err := arity(o, 2); err != nil {
			return err
		}
		sb.WriteString("fmod")
		return joined(sb, args, ", ", "%s")

	case "and", "or":
		if len(args) == 0 {
			return arity(o, 1)
		}
		sep := " && "
		if o.Op == "or" {
			sep = " || "
		}
		return joined(sb, args, sep, "truthy(%s)")

	case "!":
		if err := arity(o, 1); err != nil {
			return err
		}
		return joined(sb, args, "", "!truthy(%s)")

	case "!!":
		if err := arity(o, 1); err != nil {
			return err
		}
		return joined(sb, args, "", "truthy(%s)")

	case "if", "?:":
		return writeIf(sb, args)

	case "in":
		if err := arity(o, 2); err != nil {
			return err
		}
		sb.WriteString("member")
		return joined(sb, args, ", ", "%s")

	case "cat":
		sb.WriteString("cat(")
		if err := writeList(sb, args); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil

	case "min", "max":
		fmt.Fprintf(sb, "%s_of(", o.Op)
		if err := writeList(sb, args); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil

	case "collect_table":
		return writeCollect(sb, o)

	case "var":
		// {"var": [path, default, ...]}: elements past the default are ignored
		if path, ok := ir.VarPath(o); ok {
			ref := ir.VariableRef{Path: path}
			if len(args) > 1 {
				ref.Default = args[1]
			}
			return writeLookup(sb, ref)
		}
		return fmt.Errorf("%w: var expects a path string or [path, default]", ErrMalformedLogic)
	}

	return fmt.Errorf("%w: %q", ErrUnknownOperator, o.Op)
}

// writeIf renders [c1, v1, c2, v2, ..., else] as nested ternaries.
// A missing else yields null.
func writeIf(sb *strings.Builder, args []ir.Node) error {
	switch len(args) {
	case 0:
		sb.WriteString("null")
		return nil
	case 1:
		return transpile(sb, args[0])
	}

	sb.WriteString("(")
	cond, err := Transpile(args[0])
	if err != nil {
		return err
	}
	then, err := Transpile(args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, "truthy(%s) ? %s : ", cond, then)
	if len(args) == 2 {
		sb.WriteString("null")
	} else if err := writeIf(sb, args[2:]); err != nil {
		return err
	}
	sb.WriteString(")")
	return nil
}

// writeCollect renders {"collect_table": [[[cond, out], ...]]} as one flat list
// of guarded one-element lists joined by flatten, so the nesting depth of the
// CEL source does not grow with the row count.
func writeCollect(sb *strings.Builder, o ir.Operation) error {
	if len(o.Args) != 1 {
		return fmt.Errorf("%w: collect_table expects a single list of [condition, output] pairs", ErrMalformedLogic)
	}
	pairs, ok := o.Args[0].(ir.ArrayLiteral)
	if !ok {
		return fmt.Errorf("%w: collect_table expects a list of pairs", ErrMalformedLogic)
	}

	sb.WriteString("flatten([")
	for i, p := range pairs.Items {
		pair, ok := p.(ir.ArrayLiteral)
		if !ok || len(pair.Items) != 2 {
			return fmt.Errorf("%w: collect_table pair %d is not [condition, output]", ErrMalformedLogic, i)
		}
		cond, err := Transpile(pair.Items[0])
		if err != nil {
			return err
		}
		out, err := Transpile(pair.Items[1])
		if err != nil {
			return err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "truthy(%s) ? [%s] : []", cond, out)
	}
	sb.WriteString("])")
	return nil
}
