package decisiontable

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

var (
	rangePattern      = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*\.\.\s*(-?\d+(?:\.\d+)?)$`)
	comparisonPattern = regexp.MustCompile(`^(>=|<=|>|<|==|!=)\s*(.+)$`)
	numberPrefix      = regexp.MustCompile(`^[+-]?(?:Infinity|\d+\.?\d*(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)`)
)

// comparisonOperators in match order; two-character operators first.
var comparisonOperators = []string{">=", "<=", "==", "!=", ">", "<"}

// CellResult is a compiled input cell.
type CellResult struct {
	Logic      ir.Node
	IsWildcard bool
}

// CompileCell compiles input cell text into a condition on the column's field.
// Cell syntax, first match wins:
//
//	""  or  *        wildcard, compiles to true
//	18..65           inclusive range
//	>= 18            comparison (>=, <=, >, <, ==, !=)
//	US, CA, UK       membership
//	true / false     boolean equality, any case
//	anything else    equality with the parsed value
//
// CompileCell never fails; malformed numbers compile as 0. Use
// ValidateCellExpression to report them.
func CompileCell(text string, col Column) CellResult {
	t := strings.TrimSpace(text)
	if t == "" || t == "*" {
		return CellResult{Logic: ir.True(), IsWildcard: true}
	}

	field := ir.Var(col.FieldPath)

	if m := rangePattern.FindStringSubmatch(t); m != nil {
		return CellResult{Logic: ir.Op("between", field, ir.Number(parseNumber(m[1])), ir.Number(parseNumber(m[2])))}
	}

	if m := comparisonPattern.FindStringSubmatch(t); m != nil {
		return CellResult{Logic: ir.Op(m[1], field, literal(ParseValue(strings.TrimSpace(m[2]), col.ValueType)))}
	}

	if strings.Contains(t, ",") {
		parts := strings.Split(t, ",")
		items := make([]ir.Node, len(parts))
		for i, p := range parts {
			items[i] = literal(ParseValue(strings.TrimSpace(p), col.ValueType))
		}
		return CellResult{Logic: ir.Op("in", field, ir.Array(items...))}
	}

	if strings.EqualFold(t, "true") || strings.EqualFold(t, "false") {
		return CellResult{Logic: ir.Op("==", field, ir.Bool(strings.EqualFold(t, "true")))}
	}

	return CellResult{Logic: ir.Op("==", field, literal(ParseValue(t, col.ValueType)))}
}

// CompileOutputCell compiles output cell text into a value:
// empty is null, text starting with "{" is decoded as logic (or kept as a
// string when it does not decode), "$name" reads the data field name, and
// anything else is parsed according to the column type.
func CompileOutputCell(text string, col Column) ir.Node {
	t := strings.TrimSpace(text)
	switch {
	case t == "":
		return ir.Null()
	case strings.HasPrefix(t, "{"):
		n, err := ir.Decode([]byte(t))
		if err != nil {
			return ir.String(t)
		}
		return n
	case strings.HasPrefix(t, "$"):
		return ir.Var(t[1:])
	}
	return literal(ParseValue(t, col.ValueType))
}

// ParseValue converts cell text into a typed value after stripping one layer
// of matching quotes. Numbers parse like JavaScript's parseFloat, with
// unparsable text yielding 0. Dates stay strings.
func ParseValue(text string, vt ValueType) any {
	s := unquote(text)
	switch vt {
	case TypeNumber:
		return parseNumber(s)
	case TypeBoolean:
		return strings.EqualFold(s, "true")
	}
	return s
}

// ValidateCellExpression reports problems CompileCell silently tolerates.
func ValidateCellExpression(text string, col Column) error {
	t := strings.TrimSpace(text)
	if t == "" || t == "*" {
		return nil
	}

	if strings.Contains(t, "..") {
		m := rangePattern.FindStringSubmatch(t)
		if m == nil {
			return fmt.Errorf("invalid range syntax %q, expected <min>..<max>", t)
		}
		low, high := parseNumber(m[1]), parseNumber(m[2])
		if low > high {
			return fmt.Errorf("range minimum %s must be less than or equal to maximum %s", m[1], m[2])
		}
		return nil
	}

	for _, op := range comparisonOperators {
		if !strings.HasPrefix(t, op) {
			continue
		}
		rest := strings.TrimSpace(t[len(op):])
		if rest == "" {
			return fmt.Errorf("comparison %q is missing a value", op)
		}
		return checkNumber(rest, col)
	}

	if strings.Contains(t, ",") {
		for _, p := range strings.Split(t, ",") {
			if err := checkNumber(strings.TrimSpace(p), col); err != nil {
				return err
			}
		}
		return nil
	}

	if strings.EqualFold(t, "true") || strings.EqualFold(t, "false") {
		return nil
	}
	return checkNumber(t, col)
}

func checkNumber(text string, col Column) error {
	if col.ValueType != TypeNumber {
		return nil
	}
	f, err := strconv.ParseFloat(unquote(text), 64)
	if err != nil || math.IsNaN(f) {
		return fmt.Errorf("%q is not a valid number", text)
	}
	return nil
}

func literal(v any) ir.Node {
	return ir.Literal{Value: v}
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// parseNumber reads the longest numeric prefix of s, returning 0 when there is none.
func parseNumber(s string) float64 {
	m := numberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.Replace(m, "Infinity", "Inf", 1), 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}
