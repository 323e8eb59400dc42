package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidLogic is returned when a value cannot be represented as a logic tree.
var ErrInvalidLogic = errors.New("invalid logic")

// FromValue converts a decoded JSON value (nil, bool, number, string, []any,
// map[string]any) into a Node.
func FromValue(v any) (Node, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Node:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q: %v", ErrInvalidLogic, t.String(), err)
		}
		return Number(f), nil
	case []any:
		items := make([]Node, 0, len(t))
		for i, e := range t {
			n, err := FromValue(e)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, n)
		}
		return Array(items...), nil
	case map[string]any:
		return fromMap(t)
	}

	if f, ok := toFloat(v); ok {
		return Number(f), nil
	}
	return nil, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidLogic, v)
}

func fromMap(m map[string]any) (Node, error) {
	if len(m) != 1 {
		fields := make(map[string]Node, len(m))
		for k, e := range m {
			n, err := FromValue(e)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = n
		}
		return Object(fields), nil
	}

	var op string
	var raw any
	for k, e := range m {
		op, raw = k, e
	}

	if op == "var" {
		if ref, ok := varRef(raw); ok {
			return ref, nil
		}
	}

	if list, ok := raw.([]any); ok {
		args := make([]Node, 0, len(list))
		for i, e := range list {
			n, err := FromValue(e)
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", op, i, err)
			}
			args = append(args, n)
		}
		return Op(op, args...), nil
	}

	arg, err := FromValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%s argument: %w", op, err)
	}
	return Unary(op, arg), nil
}

// varRef recognizes {"var": "path"} and {"var": ["path", default]}.
func varRef(raw any) (VariableRef, bool) {
	switch t := raw.(type) {
	case string:
		return Var(t), true
	case []any:
		if len(t) == 0 || len(t) > 2 {
			return VariableRef{}, false
		}
		path, ok := t[0].(string)
		if !ok {
			return VariableRef{}, false
		}
		ref := Var(path)
		if len(t) == 2 {
			def, err := FromValue(t[1])
			if err != nil {
				return VariableRef{}, false
			}
			ref.Default = def
		}
		return ref, true
	}
	return VariableRef{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// ToValue converts n into plain JSON-compatible Go values.
func ToValue(n Node) any {
	switch t := n.(type) {
	case nil:
		return nil
	case Literal:
		return t.Value
	case VariableRef:
		if t.Default != nil {
			return map[string]any{"var": []any{t.Path, ToValue(t.Default)}}
		}
		return map[string]any{"var": t.Path}
	case ArrayLiteral:
		out := make([]any, len(t.Items))
		for i, item := range t.Items {
			out[i] = ToValue(item)
		}
		return out
	case Operation:
		if t.Bare && len(t.Args) == 1 {
			return map[string]any{t.Op: ToValue(t.Args[0])}
		}
		args := make([]any, len(t.Args))
		for i, a := range t.Args {
			args[i] = ToValue(a)
		}
		return map[string]any{t.Op: args}
	case ObjectLiteral:
		out := make(map[string]any, len(t.Fields))
		for k, v := range t.Fields {
			out[k] = ToValue(v)
		}
		return out
	}
	return nil
}

// Decode parses JSON into a Node.
func Decode(data []byte) (Node, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLogic, err)
	}
	return FromValue(v)
}

// Encode renders n as compact JSON with sorted object keys and no HTML escaping.
func Encode(n Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ToValue(n)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Canonical returns the stable JSON text of n, suitable for structural comparison.
func Canonical(n Node) string {
	b, err := Encode(n)
	if err != nil {
		return fmt.Sprintf("%#v", n)
	}
	return string(b)
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Node) bool {
	return Canonical(a) == Canonical(b)
}

func (l Literal) MarshalJSON() ([]byte, error)       { return Encode(l) }
func (v VariableRef) MarshalJSON() ([]byte, error)   { return Encode(v) }
func (a ArrayLiteral) MarshalJSON() ([]byte, error)  { return Encode(a) }
func (o Operation) MarshalJSON() ([]byte, error)     { return Encode(o) }
func (o ObjectLiteral) MarshalJSON() ([]byte, error) { return Encode(o) }

// SortedKeys returns the field names of o in lexical order.
func (o ObjectLiteral) SortedKeys() []string {
	keys := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
