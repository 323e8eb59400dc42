// Package pipeline runs ordered sequences of named logic steps, where later
// steps read earlier results through "$.<key>" variable paths.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

// Step is one named calculation. A nil Enabled means enabled.
type Step struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Logic       ir.Node `json:"logic"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// IsEnabled reports whether the step takes part in execution.
func (s Step) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// UnmarshalJSON decodes the logic field into a logic tree. A missing logic
// field leaves Logic nil.
func (s *Step) UnmarshalJSON(data []byte) error {
	type plain Step
	var raw struct {
		plain
		Logic json.RawMessage `json:"logic"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Step(raw.plain)
	s.Logic = nil

	if len(bytes.TrimSpace(raw.Logic)) == 0 {
		return nil
	}
	logic, err := ir.Decode(raw.Logic)
	if err != nil {
		return fmt.Errorf("step %q logic: %w", s.Key, err)
	}
	s.Logic = logic
	return nil
}

// Pipeline is an ordered list of steps.
type Pipeline struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
}

// EnabledSteps returns the enabled steps in declared order.
func (p *Pipeline) EnabledSteps() []Step {
	var steps []Step
	for _, s := range p.Steps {
		if s.IsEnabled() {
			steps = append(steps, s)
		}
	}
	return steps
}
