package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/expression"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/rules"
)

func newExecutor(t *testing.T) *Executor {
	t.Helper()
	engine, err := rules.NewEngine()
	require.NoError(t, err)
	return NewExecutor(engine)
}

func step(t *testing.T, key, expr string) Step {
	t.Helper()
	logic, err := expression.ParseStrict(expr)
	require.NoError(t, err, "parse %q", expr)
	return Step{Key: key, Name: key, Logic: logic}
}

func pricingPipeline(t *testing.T) *Pipeline {
	return &Pipeline{
		ID:   "pricing",
		Name: "Pricing",
		Steps: []Step{
			step(t, "subtotal", "price * quantity"),
			step(t, "discount", "if($.subtotal > 100, 0.1, 0.05)"),
			step(t, "total", "$.subtotal - $.subtotal * $.discount"),
		},
	}
}

func TestExecuteChainsSteps(t *testing.T) {
	executor := newExecutor(t)
	p := pricingPipeline(t)

	testCases := []struct {
		name         string
		input        map[string]any
		wantSubtotal float64
		wantDiscount float64
		wantOutput   float64
	}{
		{"large order", map[string]any{"price": 20, "quantity": 10}, 200, 0.1, 180},
		{"small order", map[string]any{"price": 10, "quantity": 5}, 50, 0.05, 47.5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := executor.Execute(p, tc.input)
			require.True(t, result.Success, "error: %s", result.Error)
			assert.Equal(t, tc.wantSubtotal, result.StepOutputs["subtotal"])
			assert.Equal(t, tc.wantDiscount, result.StepOutputs["discount"])
			assert.Equal(t, tc.wantOutput, result.Output)
			assert.Equal(t, tc.wantOutput, result.StepOutputs["total"])
			assert.Empty(t, result.FailedStep)
		})
	}
}

func TestExecuteSkipsDisabledSteps(t *testing.T) {
	executor := newExecutor(t)
	disabled := false

	p := &Pipeline{
		ID:   "p",
		Name: "p",
		Steps: []Step{
			step(t, "base", "amount * 2"),
			step(t, "bonus", "$.base + 1000"),
			step(t, "final", "$.base + 1"),
		},
	}
	p.Steps[1].Enabled = &disabled

	result := executor.Execute(p, map[string]any{"amount": 5})
	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, map[string]any{"base": 10.0, "final": 11.0}, result.StepOutputs)
	assert.Equal(t, 11.0, result.Output)
}

func TestExecuteStopsAtFailingStep(t *testing.T) {
	executor := newExecutor(t)

	p := &Pipeline{
		ID:   "p",
		Name: "p",
		Steps: []Step{
			step(t, "first", "1 + 1"),
			{Key: "broken", Name: "Broken", Logic: ir.Op("frobnicate", ir.Number(1))},
			step(t, "never", "$.first * 10"),
		},
	}

	result := executor.Execute(p, nil)
	assert.False(t, result.Success)
	assert.Nil(t, result.Output)
	assert.Equal(t, "broken", result.FailedStep)
	assert.Contains(t, result.Error, "unknown operator")
	assert.Equal(t, map[string]any{"first": 2.0}, result.StepOutputs)
}

func TestExecuteEmptyPipeline(t *testing.T) {
	executor := newExecutor(t)
	off := false

	for _, p := range []*Pipeline{
		{ID: "empty", Name: "empty"},
		{ID: "all-off", Name: "all-off", Steps: []Step{{Key: "a", Name: "a", Logic: ir.Number(1), Enabled: &off}}},
	} {
		result := executor.Execute(p, map[string]any{"x": 1})
		assert.True(t, result.Success, p.ID)
		assert.Nil(t, result.Output, p.ID)
		assert.Empty(t, result.StepOutputs, p.ID)
	}
}

func TestExecuteMergesStepOutputs(t *testing.T) {
	var seen []map[string]any
	executor := NewExecutor(rules.EvaluatorFunc(func(logic ir.Node, data map[string]any) (any, error) {
		seen = append(seen, data)
		return len(seen), nil
	}))

	p := &Pipeline{ID: "p", Name: "p", Steps: []Step{
		{Key: "a", Name: "a", Logic: ir.True()},
		{Key: "b", Name: "b", Logic: ir.True()},
	}}
	input := map[string]any{"x": "y", "$": "shadowed"}

	result := executor.Execute(p, input)
	require.True(t, result.Success)
	require.Len(t, seen, 2)

	assert.Equal(t, "y", seen[0]["x"])
	assert.Equal(t, map[string]any{}, seen[0]["$"])
	assert.Equal(t, map[string]any{"a": 1}, seen[1]["$"])
	assert.Equal(t, "shadowed", input["$"], "input must not be modified")
}

func TestExecuteRecoversPanics(t *testing.T) {
	executor := NewExecutor(rules.EvaluatorFunc(func(ir.Node, map[string]any) (any, error) {
		panic("boom")
	}))

	p := &Pipeline{ID: "p", Name: "p", Steps: []Step{{Key: "a", Name: "a", Logic: ir.True()}}}
	result := executor.Execute(p, nil)
	assert.False(t, result.Success)
	assert.Equal(t, "a", result.FailedStep)
	assert.Contains(t, result.Error, "boom")
}

func TestExecuteRule(t *testing.T) {
	executor := newExecutor(t)
	logic, err := expression.ParseExpression("age between 18 and 65")
	require.NoError(t, err)

	got, err := executor.ExecuteRule(logic, map[string]any{"age": 30})
	require.NoError(t, err)
	assert.Equal(t, true, got)

	sentinel := errors.New("evaluator down")
	failing := NewExecutor(rules.EvaluatorFunc(func(ir.Node, map[string]any) (any, error) {
		return nil, sentinel
	}))
	_, err = failing.ExecuteRule(logic, nil)
	assert.ErrorIs(t, err, sentinel)
}
