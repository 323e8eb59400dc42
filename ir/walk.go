package ir

// Walk visits n and its descendants depth-first in argument order. Children of a
// node are skipped when fn returns false for it.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch t := n.(type) {
	case VariableRef:
		Walk(t.Default, fn)
	case ArrayLiteral:
		for _, item := range t.Items {
			Walk(item, fn)
		}
	case Operation:
		for _, a := range t.Args {
			Walk(a, fn)
		}
	case ObjectLiteral:
		for _, k := range t.SortedKeys() {
			Walk(t.Fields[k], fn)
		}
	}
}
