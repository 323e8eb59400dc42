package pipeline

import (
	"fmt"
	"maps"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/internal/logger"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/rules"
)

// StepOutputsKey is the data key under which earlier step outputs are exposed.
const StepOutputsKey = "$"

// ExecutionResult is the outcome of running a pipeline. On failure, StepOutputs
// holds the outputs of the steps that completed before FailedStep.
type ExecutionResult struct {
	Success     bool           `json:"success"`
	Output      any            `json:"output"`
	StepOutputs map[string]any `json:"stepOutputs"`
	Error       string         `json:"error,omitempty"`
	FailedStep  string         `json:"failedStep,omitempty"`
}

// Executor runs pipelines with an Evaluator. It keeps no state between calls
// and is safe for concurrent use when the evaluator is.
type Executor struct {
	evaluator rules.Evaluator
}

// NewExecutor returns an executor backed by ev.
func NewExecutor(ev rules.Evaluator) *Executor {
	return &Executor{evaluator: ev}
}

// Execute runs the enabled steps in order. Each step sees the input merged
// with "$", a snapshot of the outputs so far. Execution stops at the first
// failing step; failures are reported in the result, never returned.
func (e *Executor) Execute(p *Pipeline, input map[string]any) *ExecutionResult {
	stepOutputs := map[string]any{}
	var output any

	for _, step := range p.EnabledSteps() {
		data := make(map[string]any, len(input)+1)
		maps.Copy(data, input)
		data[StepOutputsKey] = maps.Clone(stepOutputs)

		value, err := e.ExecuteRule(step.Logic, data)
		if err != nil {
			logger.StepFailed(p.ID, step.Key, err)
			return &ExecutionResult{
				Success:     false,
				StepOutputs: stepOutputs,
				Error:       err.Error(),
				FailedStep:  step.Key,
			}
		}

		stepOutputs[step.Key] = value
		output = value
	}

	return &ExecutionResult{
		Success:     true,
		Output:      output,
		StepOutputs: stepOutputs,
	}
}

// ExecuteRule evaluates a single logic tree. A panicking evaluator is reported as an error.
func (e *Executor) ExecuteRule(logic ir.Node, data map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("evaluator panic: %v", r)
		}
	}()
	return e.evaluator.Apply(logic, data)
}
