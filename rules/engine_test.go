package rules

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

func logic(t *testing.T, js string) ir.Node {
	t.Helper()
	n, err := ir.Decode([]byte(js))
	require.NoError(t, err)
	return n
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine()
	require.NoError(t, err)
	return engine
}

func TestApply(t *testing.T) {
	engine := newTestEngine(t)

	data := map[string]any{
		"a":        1,
		"price":    20,
		"quantity": 10,
		"s":        200.0,
		"d":        0.1,
		"x":        5,
		"flag":     true,
		"country":  "CA",
		"age":      30,
		"patient": map[string]any{
			"address": map[string]any{"zip": "12345"},
		},
		"items": []string{"a", "b"},
	}

	testCases := []struct {
		name  string
		logic string
		want  any
	}{
		{"equality with int data", `{"==":[{"var":"a"},1]}`, true},
		{"strict equality alias", `{"===":[{"var":"country"},"CA"]}`, true},
		{"inequality", `{"!=":[{"var":"country"},"US"]}`, true},
		{"multiply", `{"*":[{"var":"price"},{"var":"quantity"}]}`, 200.0},
		{"subtract product", `{"-":[{"var":"s"},{"*":[{"var":"s"},{"var":"d"}]}]}`, 180.0},
		{"n-ary add", `{"+":[1,2,3]}`, 6.0},
		{"negative literal", `{"+":[-5,2]}`, -3.0},
		{"unary minus", `{"-":[{"var":"x"}]}`, -5.0},
		{"zero subtraction", `{"-":[0,{"var":"x"}]}`, -5.0},
		{"divide", `{"/":[1,4]}`, 0.25},
		{"modulo", `{"%":[7,3]}`, 1.0},
		{"if then", `{"if":[{">":[{"var":"s"},100]},0.1,0.05]}`, 0.1},
		{"if else", `{"if":[{">":[{"var":"x"},100]},0.1,0.05]}`, 0.05},
		{"if without else", `{"if":[false,1]}`, nil},
		{"multi-branch if", `{"if":[{"<":[{"var":"x"},0]},"neg",{"<":[{"var":"x"},10]},"small","large"]}`, "small"},
		{"and", `{"and":[true,{"var":"flag"}]}`, true},
		{"or with falsy values", `{"or":[0,"",{"var":"missing"}]}`, false},
		{"not missing", `{"!":{"var":"missing"}}`, true},
		{"double negation", `{"!!":[[]]}`, false},
		{"in list", `{"in":[{"var":"country"},["US","CA"]]}`, true},
		{"not in list", `{"in":["UK",["US","CA"]]}`, false},
		{"substring", `{"in":["ell","hello"]}`, true},
		{"between inside", `{"between":[{"var":"age"},18,65]}`, true},
		{"between outside", `{"between":[70,18,65]}`, false},
		{"exclusive between", `{"<":[1,{"var":"x"},10]}`, true},
		{"inclusive between", `{"<=":[1,10,10]}`, true},
		{"variable default", `{"var":["missing",5]}`, 5.0},
		{"variable default unused", `{"var":["x",0]}`, 5.0},
		{"variable default with extra elements", `{"var":["missing",5,"extra"]}`, 5.0},
		{"nested path", `{"var":"patient.address.zip"}`, "12345"},
		{"list index", `{"var":"items.1"}`, "b"},
		{"missing path", `{"var":"patient.name"}`, nil},
		{"cat", `{"cat":["a",1,"b"]}`, "a1b"},
		{"max", `{"max":[1,3,2]}`, 3.0},
		{"min", `{"min":[4,{"var":"x"}]}`, 4.0},
		{"null literal", `null`, nil},
		{"array literal", `[1,"two",{"var":"flag"}]`, []any{1.0, "two", true}},
		{"object literal", `{"total":{"var":"price"},"currency":"USD"}`, map[string]any{"total": 20.0, "currency": "USD"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Apply(logic(t, tc.logic), data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApplyCollectTable(t *testing.T) {
	engine := newTestEngine(t)

	compiled := `{"collect_table":[[
		[{">":[{"var":"x"},0]},{"if":[{">":[{"var":"x"},0]},"A",null]}],
		[{">":[{"var":"x"},10]},{"if":[{">":[{"var":"x"},10]},"B",null]}],
		[{"<":[{"var":"x"},100]},{"if":[{"<":[{"var":"x"},100]},"C",null]}]
	]]}`

	got, err := engine.Apply(logic(t, compiled), map[string]any{"x": 5})
	require.NoError(t, err)
	assert.Equal(t, []any{"A", "C"}, got)

	got, err = engine.Apply(logic(t, `{"collect_table":[[]]}`), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)
}

func TestApplyStepReferences(t *testing.T) {
	engine := newTestEngine(t)

	data := map[string]any{
		"price": 20,
		"$":     map[string]any{"subtotal": 200.0},
	}
	got, err := engine.Apply(logic(t, `{"if":[{">":[{"var":"$.subtotal"},100]},0.1,0.05]}`), data)
	require.NoError(t, err)
	assert.Equal(t, 0.1, got)
}

func TestApplyErrors(t *testing.T) {
	engine := newTestEngine(t)

	testCases := []struct {
		name    string
		logic   string
		wantErr error
	}{
		{"unknown operator", `{"frobnicate":[1,2]}`, ErrUnknownOperator},
		{"nested unknown operator", `{"and":[true,{"nope":[]}]}`, ErrUnknownOperator},
		{"malformed var", `{"var":5}`, ErrMalformedLogic},
		{"binary arity", `{"==":[1]}`, ErrMalformedLogic},
		{"between arity", `{"between":[1,2]}`, ErrMalformedLogic},
		{"collect without pairs", `{"collect_table":[[1]]}`, ErrMalformedLogic},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Apply(logic(t, tc.logic), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	t.Run("type mismatch at runtime", func(t *testing.T) {
		_, err := engine.Apply(logic(t, `{"<":["a",1]}`), nil)
		assert.Error(t, err)
	})
}

func TestCompileCaching(t *testing.T) {
	engine := newTestEngine(t)
	rule := logic(t, `{">=":[{"var":"age"},18]}`)

	_, err := engine.Compile(rule)
	require.NoError(t, err)
	_, err = engine.Compile(rule)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.CacheSize())

	_, err = engine.Compile(logic(t, `{"<":[{"var":"age"},18]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, engine.CacheSize())
}

func TestWithCache(t *testing.T) {
	cache := NewInMemoryProgramCache(CacheConfig{MaxEntries: 1})
	engine, err := NewEngine(WithCache(cache), WithCostLimit(0))
	require.NoError(t, err)

	_, err = engine.Apply(logic(t, `{"+":[1,1]}`), nil)
	require.NoError(t, err)
	_, err = engine.Apply(logic(t, `{"+":[2,2]}`), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Len())
}

// longIf builds {"if": [{"==": [x, 0]}, 0, {"==": [x, 1]}, 1, ..., -1]}.
func longIf(n int) ir.Node {
	var args []ir.Node
	for i := 0; i < n; i++ {
		args = append(args, ir.Op("==", ir.Var("x"), ir.Number(float64(i))), ir.Number(float64(i)))
	}
	return ir.Op("if", append(args, ir.Number(-1))...)
}

// longCollect builds a collect_table whose row i matches x <= i.
func longCollect(n int) ir.Node {
	var pairs []ir.Node
	for i := 0; i < n; i++ {
		cond := ir.Op("<=", ir.Var("x"), ir.Number(float64(i)))
		pairs = append(pairs, ir.Array(cond, ir.Op("if", cond, ir.Number(float64(i)), ir.Null())))
	}
	return ir.Op("collect_table", ir.Array(pairs...))
}

func TestApplyLongChains(t *testing.T) {
	engine := newTestEngine(t)

	got, err := engine.Apply(longIf(600), map[string]any{"x": 598})
	require.NoError(t, err)
	assert.Equal(t, 598.0, got)

	got, err = engine.Apply(longCollect(800), map[string]any{"x": 798})
	require.NoError(t, err)
	assert.Equal(t, []any{798.0, 799.0}, got)
}

func TestWithParserLimits(t *testing.T) {
	engine, err := NewEngine(WithParserLimits(50, 0))
	require.NoError(t, err)

	_, err = engine.Compile(longIf(100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile error")

	// A flat collect list stays within a shallow limit.
	got, err := engine.Apply(longCollect(100), map[string]any{"x": 99})
	require.NoError(t, err)
	assert.Equal(t, []any{99.0}, got)

	engine, err = NewEngine(WithParserLimits(0, 64))
	require.NoError(t, err)
	_, err = engine.Compile(longIf(10))
	require.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	engine := newTestEngine(t)
	facts := map[string]any{"user": map[string]any{"age": 20}}

	result, err := engine.Evaluate(&Rule{ID: "adult", Name: "Adult", Logic: logic(t, `{">=":[{"var":"user.age"},18]}`), Active: true}, facts)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "adult", result.RuleID)
	assert.Equal(t, "Adult", result.RuleName)

	// non-boolean results never match
	result, err = engine.Evaluate(&Rule{ID: "age", Logic: logic(t, `{"var":"user.age"}`)}, facts)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, 20.0, result.Value)

	result, err = engine.Evaluate(&Rule{ID: "broken", Logic: logic(t, `{"bogus":[]}`)}, facts)
	require.Error(t, err)
	assert.False(t, result.Matched)
	assert.ErrorIs(t, result.Error, ErrUnknownOperator)
}

func TestEvaluateAllContinuesOnError(t *testing.T) {
	engine := newTestEngine(t)

	rules := []*Rule{
		{ID: "r1", Logic: logic(t, `{">":[{"var":"amount"},1000]}`), Active: true},
		{ID: "r2", Logic: logic(t, `{"bogus":[]}`), Active: true},
		{ID: "r3", Logic: logic(t, `true`), Active: false},
		{ID: "r4", Logic: logic(t, `{"==":[{"var":"currency"},"CAD"]}`), Active: true},
	}

	results := engine.EvaluateAll(rules, map[string]any{"amount": 1500, "currency": "CAD"})
	require.Len(t, results, 3)

	assert.Equal(t, "r1", results[0].RuleID)
	assert.True(t, results[0].Matched)
	assert.Equal(t, "r2", results[1].RuleID)
	assert.Error(t, results[1].Error)
	assert.Equal(t, "r4", results[2].RuleID)
	assert.True(t, results[2].Matched)
}

func TestEngineConcurrentApply(t *testing.T) {
	engine := newTestEngine(t)
	rule := logic(t, `{"*":[{"var":"n"},2]}`)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := engine.Apply(rule, map[string]any{"n": n})
			if err != nil {
				errs <- err
				return
			}
			if got != float64(n*2) {
				errs <- assert.AnError
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Apply failed: %v", err)
	}
}

func TestEvaluatorFunc(t *testing.T) {
	var ev Evaluator = EvaluatorFunc(func(n ir.Node, data map[string]any) (any, error) {
		return data["k"], nil
	})
	got, err := ev.Apply(ir.True(), map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
