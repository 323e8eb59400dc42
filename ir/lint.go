package ir

import (
	"fmt"
	"sort"
)

// Operator families checked by Lint.
var (
	listOperators = map[string]bool{
		"and": true, "or": true, "+": true, "*": true, "cat": true, "merge": true,
	}
	binaryOperators = map[string]bool{
		"==": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
		"-": true, "/": true, "%": true, "in": true,
	}
)

// Lint checks the shape of a logic tree and returns one message per problem.
// A nil result means the tree is well formed.
func Lint(n Node) []string {
	if IsNull(n) {
		return []string{"Logic is null or undefined"}
	}
	var problems []string
	lint(n, "root", &problems)
	return problems
}

func lint(n Node, path string, problems *[]string) {
	report := func(format string, args ...any) {
		*problems = append(*problems, fmt.Sprintf("%s: %s", path, fmt.Sprintf(format, args...)))
	}

	switch t := n.(type) {
	case VariableRef:
		if t.Default != nil {
			lint(t.Default, path+".var[1]", problems)
		}
	case ArrayLiteral:
		for i, item := range t.Items {
			lint(item, fmt.Sprintf("%s[%d]", path, i), problems)
		}
	case ObjectLiteral:
		if len(t.Fields) == 0 {
			report("empty object is not valid logic")
			return
		}
		for _, k := range t.SortedKeys() {
			lint(t.Fields[k], path+"."+k, problems)
		}
	case Operation:
		lintOperation(t, report)
		for i, a := range t.Args {
			lint(a, fmt.Sprintf("%s.%s[%d]", path, t.Op, i), problems)
		}
	}
}

func lintOperation(o Operation, report func(string, ...any)) {
	switch {
	case listOperators[o.Op]:
		if o.Bare && (o.Op == "and" || o.Op == "or") {
			report("operator %q expects an array of arguments", o.Op)
		}
	case binaryOperators[o.Op]:
		if o.Bare || len(o.Args) != 2 {
			report("operator %q expects exactly 2 arguments, got %d", o.Op, argCount(o))
		}
	case o.Op == "between":
		if o.Bare || len(o.Args) != 3 {
			report("operator \"between\" expects exactly 3 arguments, got %d", argCount(o))
		}
	case o.Op == "if":
		if o.Bare || len(o.Args) < 2 {
			report("operator \"if\" expects at least 2 arguments, got %d", argCount(o))
		}
	case o.Op == "var":
		if _, ok := VarPath(o); !ok {
			report("operator \"var\" expects a string path or an array starting with a string path")
		}
	}
}

func argCount(o Operation) int {
	if o.Bare {
		return 1
	}
	return len(o.Args)
}

// Variables returns every variable path referenced anywhere in the tree,
// including "$." step references, sorted and de-duplicated.
func Variables(n Node) []string {
	seen := map[string]struct{}{}
	Walk(n, func(n Node) bool {
		if path, ok := VarPath(n); ok {
			seen[path] = struct{}{}
		}
		return true
	})
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
