package main

import (
	"encoding/json"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/decisiontable"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/pipeline"
)

// API request and response models

// ParseRequest is the body for parsing an expression
type ParseRequest struct {
	Expression string `json:"expression" example:"age >= 18 and country in [\"US\", \"CA\"]"`
	Strict     bool   `json:"strict,omitempty"`
}

// ParseResponse carries the logic tree produced for an expression
type ParseResponse struct {
	Logic     ir.Node  `json:"logic"`
	Variables []string `json:"variables"`
	Warnings  []string `json:"warnings"`
}

// SyntaxErrorResponse describes where an expression failed to parse
type SyntaxErrorResponse struct {
	Error    string `json:"error"`
	Details  string `json:"details"`
	Position int    `json:"position"`
	Token    string `json:"token,omitempty"`
}

// DecompileRequest is the body for rendering a logic tree as text
type DecompileRequest struct {
	Logic json.RawMessage `json:"logic"`
}

// DecompileResponse holds the rendered expression
type DecompileResponse struct {
	Expression string `json:"expression"`
}

// TableRequest wraps a decision table definition
type TableRequest struct {
	Table *decisiontable.Table `json:"table"`
}

// TableValidationResponse lists table definition and cell problems
type TableValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// CompileTableResponse is a compiled table with any cell problems found in it
type CompileTableResponse struct {
	*decisiontable.CompiledTable
	Problems []string `json:"problems,omitempty"`
}

// PipelineRequest wraps a pipeline definition
type PipelineRequest struct {
	Pipeline *pipeline.Pipeline `json:"pipeline"`
}

// ExecutePipelineRequest is the body for running a pipeline
type ExecutePipelineRequest struct {
	Pipeline *pipeline.Pipeline `json:"pipeline"`
	Data     map[string]any     `json:"data"`
}

// ExecutePipelineResponse reports a single pipeline run
type ExecutePipelineResponse struct {
	ExecutionID string `json:"executionId"`
	*pipeline.ExecutionResult
	Duration string `json:"duration"`
}

// RuleRequest is a rule given either as a logic tree or as expression text
type RuleRequest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Logic      json.RawMessage `json:"logic,omitempty"`
	Expression string          `json:"expression,omitempty"`
	Active     *bool           `json:"active,omitempty"`
}

// EvaluateRequest is the body for evaluating a batch of rules against facts
type EvaluateRequest struct {
	Rules []RuleRequest  `json:"rules"`
	Facts map[string]any `json:"facts"`
}

// EvaluationResultResponse is a single rule evaluation result
type EvaluationResultResponse struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Matched  bool   `json:"matched"`
	Value    any    `json:"value"`
	Error    string `json:"error,omitempty"`
}

// EvaluateResponse holds the results of a batch evaluation
type EvaluateResponse struct {
	Results        []EvaluationResultResponse `json:"results"`
	EvaluationTime string                     `json:"evaluationTime"`
}

// ErrorResponse is returned for failed requests
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
