package rules

import "github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"

// Rule is a named condition evaluated by Engine.Evaluate.
type Rule struct {
	ID     string
	Name   string
	Logic  ir.Node
	Active bool
}

// EvaluationResult contains the outcome of evaluating a rule.
// Matched is true only when the logic produced the boolean true.
type EvaluationResult struct {
	RuleID   string
	RuleName string
	Matched  bool
	Value    any   // raw evaluation result
	Error    error // evaluation failure, if any
}
