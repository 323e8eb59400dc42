package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

var stepKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationResult holds blocking errors and advisory warnings.
// Valid is false exactly when Errors is non-empty.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Validate checks a pipeline before execution. A step may only reference
// steps declared before it.
func Validate(p *Pipeline) *ValidationResult {
	res := &ValidationResult{Errors: []string{}, Warnings: []string{}}
	defer func() { res.Valid = len(res.Errors) == 0 }()

	if strings.TrimSpace(p.ID) == "" {
		res.errorf("Pipeline id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		res.errorf("Pipeline name is required")
	}
	if len(p.Steps) == 0 {
		res.errorf("Pipeline must have at least one step")
		return res
	}

	declared := map[string]bool{}
	for i, s := range p.Steps {
		label := stepLabel(i, s)
		switch {
		case s.Key == "":
			res.errorf("%s: key is required", label)
		case !stepKeyPattern.MatchString(s.Key):
			res.errorf("%s: key must be a valid identifier (letters, digits and underscores, not starting with a digit)", label)
		}
		if strings.TrimSpace(s.Name) == "" {
			res.errorf("%s: name is required", label)
		}
		if ir.IsNull(s.Logic) {
			res.errorf("%s: logic is required", label)
		} else {
			for _, msg := range ValidateStepReferences(s.Logic, declared) {
				res.errorf("%s: %s", label, msg)
			}
		}
		if s.Key != "" {
			declared[s.Key] = true
		}
	}

	seen := map[string]bool{}
	for _, s := range p.Steps {
		if s.Key == "" {
			continue
		}
		if seen[s.Key] {
			res.errorf("Duplicate step key: %q", s.Key)
		}
		seen[s.Key] = true
	}

	for _, cycle := range findCycles(p.Steps) {
		res.errorf("Circular dependency detected: %s", strings.Join(cycle, " -> "))
	}

	referenced := map[string]bool{}
	for _, s := range p.Steps {
		for key := range referenceSet(s.Logic) {
			referenced[key] = true
		}
	}
	for _, s := range p.Steps[:len(p.Steps)-1] {
		if s.Key != "" && !referenced[s.Key] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Step %q output is never used by another step", s.Key))
		}
	}

	return res
}

func stepLabel(i int, s Step) string {
	if s.Key != "" {
		return fmt.Sprintf("Step %q", s.Key)
	}
	return fmt.Sprintf("Step %d", i+1)
}

// findCycles runs a depth-first search over step references and returns the
// path of every back edge it finds, closed with the repeated key.
func findCycles(steps []Step) [][]string {
	graph := map[string][]string{}
	var order []string
	for _, s := range steps {
		if s.Key == "" {
			continue
		}
		if _, ok := graph[s.Key]; !ok {
			order = append(order, s.Key)
			graph[s.Key] = nil
		}
		graph[s.Key] = append(graph[s.Key], ReferencedSteps(s.Logic)...)
	}

	var (
		cycles  [][]string
		visited = map[string]bool{}
		onStack = map[string]bool{}
		path    []string
	)

	var visit func(key string)
	visit = func(key string) {
		visited[key] = true
		onStack[key] = true
		path = append(path, key)

		for _, next := range graph[key] {
			if _, known := graph[next]; !known {
				continue
			}
			if onStack[next] {
				start := indexOf(path, next)
				cycle := append(append([]string{}, path[start:]...), next)
				cycles = append(cycles, cycle)
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}

		path = path[:len(path)-1]
		onStack[key] = false
	}

	for _, key := range order {
		if !visited[key] {
			visit(key)
		}
	}
	return cycles
}

func indexOf(path []string, key string) int {
	for i, k := range path {
		if k == key {
			return i
		}
	}
	return 0
}
