package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/internal/logger"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

// DefaultCostLimit bounds the runtime cost of a single evaluation.
const DefaultCostLimit uint64 = 1000000

// Parser limits applied to generated CEL. A first-hit table nests one ternary
// per row, so CEL's own defaults (250 levels, 100000 code points) cap tables
// at roughly a hundred rows.
const (
	DefaultParserRecursionLimit = 4096
	DefaultExpressionSizeLimit  = 4 << 20
)

// Engine evaluates logic trees by transpiling them to CEL.
// Programs are cached by source, so repeated evaluation of the same logic
// skips parsing and planning. An Engine is safe for concurrent use.
type Engine struct {
	env       *cel.Env
	cache     ProgramCache
	costLimit uint64
}

// EngineOptions holds the settings applied by Option functions.
type EngineOptions struct {
	Cache      ProgramCache
	CostLimit  uint64
	EnvOptions []cel.EnvOption

	ParserRecursionLimit int
	ExpressionSizeLimit  int
}

// Option configures an Engine.
type Option func(*EngineOptions)

// WithCache replaces the default in-memory program cache.
func WithCache(c ProgramCache) Option {
	return func(o *EngineOptions) { o.Cache = c }
}

// WithCostLimit sets the per-evaluation cost limit. Zero disables the limit.
func WithCostLimit(limit uint64) Option {
	return func(o *EngineOptions) { o.CostLimit = limit }
}

// WithParserLimits sets the CEL parser's nesting depth and source size
// limits. Zero keeps the engine default and -1 removes the limit.
func WithParserLimits(recursion, size int) Option {
	return func(o *EngineOptions) {
		if recursion != 0 {
			o.ParserRecursionLimit = recursion
		}
		if size != 0 {
			o.ExpressionSizeLimit = size
		}
	}
}

// WithEnvOptions adds CEL environment options, e.g. extra function libraries.
func WithEnvOptions(opts ...cel.EnvOption) Option {
	return func(o *EngineOptions) { o.EnvOptions = append(o.EnvOptions, opts...) }
}

// NewEngine creates an engine with the logic helper functions declared.
func NewEngine(opts ...Option) (*Engine, error) {
	o := &EngineOptions{
		CostLimit:            DefaultCostLimit,
		ParserRecursionLimit: DefaultParserRecursionLimit,
		ExpressionSizeLimit:  DefaultExpressionSizeLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Cache == nil {
		o.Cache = NewInMemoryProgramCache(DefaultCacheConfig())
	}

	envOpts := append(logicFunctions(),
		cel.ParserRecursionLimit(o.ParserRecursionLimit),
		cel.ParserExpressionSizeLimit(o.ExpressionSizeLimit))
	env, err := cel.NewEnv(append(envOpts, o.EnvOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:       env,
		cache:     o.Cache,
		costLimit: o.CostLimit,
	}, nil
}

// Compile returns the planned program for logic, from cache when possible.
func (en *Engine) Compile(logic ir.Node) (cel.Program, error) {
	source, err := Transpile(logic)
	if err != nil {
		return nil, err
	}
	if prog, ok := en.cache.Get(source); ok {
		return prog, nil
	}

	// The CEL source is generated with dynamically typed helpers, so it is
	// parsed but not type-checked.
	ast, issues := en.env.Parse(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	var progOpts []cel.ProgramOption
	if en.costLimit > 0 {
		progOpts = append(progOpts, cel.CostLimit(en.costLimit))
	}
	prog, err := en.env.Program(ast, progOpts...)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	en.cache.Set(source, prog)
	logger.Trace("compiled logic", "source", source)
	return prog, nil
}

// Apply evaluates logic against data and returns a JSON-compatible value:
// nil, bool, float64, string, []any or map[string]any.
func (en *Engine) Apply(logic ir.Node, data map[string]any) (any, error) {
	prog, err := en.Compile(logic)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}

	out, _, err := prog.Eval(map[string]any{dataVar: data})
	if err != nil {
		return nil, fmt.Errorf("evaluation error: %w", err)
	}
	return toNative(out)
}

// Evaluate evaluates a single rule against the provided facts.
// Non-boolean results are treated as not matched. Evaluation errors are
// returned and also recorded on the result.
func (en *Engine) Evaluate(rule *Rule, facts map[string]any) (*EvaluationResult, error) {
	result := &EvaluationResult{RuleID: rule.ID, RuleName: rule.Name}

	value, err := en.Apply(rule.Logic, facts)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Value = value
	if matched, ok := value.(bool); ok {
		result.Matched = matched
	}
	return result, nil
}

// EvaluateAll evaluates every active rule, in order, continuing past failures.
func (en *Engine) EvaluateAll(rules []*Rule, facts map[string]any) []*EvaluationResult {
	results := make([]*EvaluationResult, 0, len(rules))
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		result, err := en.Evaluate(rule, facts)
		if err != nil {
			logger.Debug("rule evaluation failed", "rule", rule.ID, "error", err)
		}
		results = append(results, result)
	}
	return results
}

// CacheSize returns the number of cached programs.
func (en *Engine) CacheSize() int {
	return en.cache.Len()
}
