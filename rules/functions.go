package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// logicFunctions declares the Go-bound helpers emitted by Transpile.
func logicFunctions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Variable(dataVar, cel.DynType),
		cel.Function("lookup",
			cel.Overload("lookup_dyn_string", []*cel.Type{cel.DynType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(func(data, path ref.Val) ref.Val {
					v, _ := resolve(data, path)
					return v
				}))),
		cel.Function("lookup_or",
			cel.Overload("lookup_or_dyn_string_dyn", []*cel.Type{cel.DynType, cel.StringType, cel.DynType}, cel.DynType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					v, ok := resolve(args[0], args[1])
					if !ok || v == types.NullValue {
						return args[2]
					}
					return v
				}))),
		cel.Function("truthy",
			cel.Overload("truthy_dyn", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return types.Bool(isTruthy(v))
				}))),
		cel.Function("member",
			cel.Overload("member_dyn_dyn", []*cel.Type{cel.DynType, cel.DynType}, cel.BoolType,
				cel.BinaryBinding(member))),
		cel.Function("fmod",
			cel.Overload("fmod_dyn_dyn", []*cel.Type{cel.DynType, cel.DynType}, cel.DoubleType,
				cel.BinaryBinding(func(a, b ref.Val) ref.Val {
					x, ok1 := number(a)
					y, ok2 := number(b)
					if !ok1 || !ok2 {
						return types.NewErr("%%: operands must be numbers")
					}
					return types.Double(math.Mod(x, y))
				}))),
		cel.Function("cat",
			cel.Overload("cat_dyn", []*cel.Type{cel.DynType}, cel.StringType,
				cel.UnaryBinding(concat))),
		cel.Function("flatten",
			cel.Overload("flatten_dyn", []*cel.Type{cel.DynType}, cel.DynType,
				cel.UnaryBinding(flatten))),
		cel.Function("min_of",
			cel.Overload("min_of_dyn", []*cel.Type{cel.DynType}, cel.DynType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return extreme(v, func(a, b float64) bool { return a < b })
				}))),
		cel.Function("max_of",
			cel.Overload("max_of_dyn", []*cel.Type{cel.DynType}, cel.DynType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return extreme(v, func(a, b float64) bool { return a > b })
				}))),
	}
}

// resolve walks a dotted path through the data object. Numeric segments index
// lists. The empty path resolves to the whole object.
func resolve(data, path ref.Val) (ref.Val, bool) {
	p, ok := path.(types.String)
	if !ok {
		return types.NewErr("lookup: path must be a string"), false
	}

	cur := data.Value()
	if p != "" {
		for _, seg := range strings.Split(string(p), ".") {
			next, found := step(cur, seg)
			if !found {
				return types.NullValue, false
			}
			cur = next
		}
	}

	cur = normalize(cur)
	if cur == nil {
		return types.NullValue, true
	}
	return types.DefaultTypeAdapter.NativeToValue(cur), true
}

func step(cur any, seg string) (any, bool) {
	switch t := cur.(type) {
	case map[string]any:
		v, ok := t[seg]
		return v, ok
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(t) {
			return nil, false
		}
		return t[i], true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(cur)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

// normalize converts data values into the JSON value space: every number
// becomes float64, slices become []any and string-keyed maps map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	return v
}

// isTruthy follows JSONLogic truthiness: false, null, 0, NaN, "" and [] are false.
func isTruthy(v ref.Val) bool {
	switch t := v.(type) {
	case types.Null:
		return false
	case types.Bool:
		return bool(t)
	case types.Double:
		f := float64(t)
		return f != 0 && !math.IsNaN(f)
	case types.Int:
		return t != 0
	case types.Uint:
		return t != 0
	case types.String:
		return t != ""
	case traits.Lister:
		size, ok := t.Size().(types.Int)
		return ok && size > 0
	}
	return true
}

// member implements "in": list membership or substring containment.
func member(needle, haystack ref.Val) ref.Val {
	switch h := haystack.(type) {
	case types.String:
		s, ok := needle.(types.String)
		if !ok {
			return types.False
		}
		return types.Bool(strings.Contains(string(h), string(s)))
	case traits.Lister:
		if found, ok := h.Contains(needle).(types.Bool); ok {
			return found
		}
	}
	return types.False
}

func number(v ref.Val) (float64, bool) {
	switch t := v.(type) {
	case types.Double:
		return float64(t), true
	case types.Int:
		return float64(t), true
	case types.Uint:
		return float64(t), true
	}
	return 0, false
}

func concat(list ref.Val) ref.Val {
	l, ok := list.(traits.Lister)
	if !ok {
		return types.NewErr("cat: expected a list")
	}
	var sb strings.Builder
	for it := l.Iterator(); it.HasNext() == types.True; {
		switch t := it.Next().(type) {
		case types.String:
			sb.WriteString(string(t))
		case types.Double:
			sb.WriteString(strconv.FormatFloat(float64(t), 'f', -1, 64))
		case types.Bool:
			sb.WriteString(strconv.FormatBool(bool(t)))
		case types.Null:
			sb.WriteString("null")
		default:
			native, err := toNative(t)
			if err != nil {
				return types.NewErr("cat: %v", err)
			}
			b, err := json.Marshal(native)
			if err != nil {
				return types.NewErr("cat: %v", err)
			}
			sb.Write(b)
		}
	}
	return types.String(sb.String())
}

// flatten joins a list of lists into one list.
func flatten(lists ref.Val) ref.Val {
	outer, ok := lists.(traits.Lister)
	if !ok {
		return types.NewErr("flatten: expected a list")
	}
	var out []ref.Val
	for it := outer.Iterator(); it.HasNext() == types.True; {
		inner, ok := it.Next().(traits.Lister)
		if !ok {
			return types.NewErr("flatten: expected a list of lists")
		}
		for in := inner.Iterator(); in.HasNext() == types.True; {
			out = append(out, in.Next())
		}
	}
	return types.NewRefValList(types.DefaultTypeAdapter, out)
}

// extreme returns the element preferred by better, or null for an empty list.
func extreme(list ref.Val, better func(a, b float64) bool) ref.Val {
	l, ok := list.(traits.Lister)
	if !ok {
		return types.NewErr("min/max: expected a list")
	}
	var (
		best  float64
		found bool
	)
	for it := l.Iterator(); it.HasNext() == types.True; {
		f, ok := number(it.Next())
		if !ok {
			return types.NewErr("min/max: operands must be numbers")
		}
		if !found || better(f, best) {
			best, found = f, true
		}
	}
	if !found {
		return types.NullValue
	}
	return types.Double(best)
}

// toNative converts a CEL result back into the JSON value space.
func toNative(v ref.Val) (any, error) {
	switch t := v.(type) {
	case types.Null:
		return nil, nil
	case types.Bool:
		return bool(t), nil
	case types.Double:
		return float64(t), nil
	case types.Int:
		return float64(t), nil
	case types.Uint:
		return float64(t), nil
	case types.String:
		return string(t), nil
	case traits.Mapper:
		out := map[string]any{}
		for it := t.Iterator(); it.HasNext() == types.True; {
			k := it.Next()
			e, err := toNative(t.Get(k))
			if err != nil {
				return nil, err
			}
			key, ok := k.(types.String)
			if !ok {
				return nil, fmt.Errorf("map key %v is not a string", k.Value())
			}
			out[string(key)] = e
		}
		return out, nil
	case traits.Lister:
		out := []any{}
		for it := t.Iterator(); it.HasNext() == types.True; {
			e, err := toNative(it.Next())
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	}
	if types.IsError(v) {
		if err, ok := v.Value().(error); ok {
			return nil, err
		}
	}
	return v.Value(), nil
}
