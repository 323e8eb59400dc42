package rules

import (
	"errors"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

var (
	// ErrUnknownOperator is returned for operations the evaluator does not implement.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrMalformedLogic is returned when an operation has the wrong shape or arity.
	ErrMalformedLogic = errors.New("malformed logic")
)

// Evaluator executes a logic tree against a data object.
type Evaluator interface {
	Apply(logic ir.Node, data map[string]any) (any, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(logic ir.Node, data map[string]any) (any, error)

func (f EvaluatorFunc) Apply(logic ir.Node, data map[string]any) (any, error) {
	return f(logic, data)
}
