// Package decisiontable compiles spreadsheet-style decision tables into logic trees.
package decisiontable

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// HitPolicy selects how matching rows produce a result.
type HitPolicy string

const (
	// HitPolicyFirst returns the output of the first matching row.
	HitPolicyFirst HitPolicy = "first"
	// HitPolicyCollect returns the outputs of every matching row, in row order.
	HitPolicyCollect HitPolicy = "collect"
)

// Role tells whether a column is a condition or a result.
type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

// ValueType is the declared type of a column's cell values.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeDate    ValueType = "date"
)

// Column describes one table column. FieldPath is the data path tested by an
// input column, or the result key written by an output column.
type Column struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	FieldPath string    `json:"field"`
	Label     string    `json:"label,omitempty"`
	ValueType ValueType `json:"valueType,omitempty"`
}

// DisplayName returns the label, falling back to the id.
func (c Column) DisplayName() string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

// Row holds cell texts keyed by column id. Missing cells behave as wildcards.
type Row struct {
	ID    string            `json:"id,omitempty"`
	Cells map[string]string `json:"cells"`
}

// UnmarshalJSON accepts numbers and booleans as cell text, so a YAML cell
// written as 42 reads the same as "42". A null cell is empty.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string         `json:"id"`
		Cells map[string]any `json:"cells"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = raw.ID
	r.Cells = make(map[string]string, len(raw.Cells))
	for col, v := range raw.Cells {
		switch t := v.(type) {
		case nil:
			r.Cells[col] = ""
		case string:
			r.Cells[col] = t
		case float64:
			r.Cells[col] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			r.Cells[col] = strconv.FormatBool(t)
		default:
			return fmt.Errorf("cell %q must be a scalar, got %T", col, v)
		}
	}
	return nil
}

// Table is a decision table definition.
type Table struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	HitPolicy   HitPolicy `json:"hitPolicy,omitempty"`
	Columns     []Column  `json:"columns"`
	Rows        []Row     `json:"rows"`
}

// Policy returns the hit policy, defaulting to first.
func (t *Table) Policy() HitPolicy {
	if t.HitPolicy == "" {
		return HitPolicyFirst
	}
	return t.HitPolicy
}

// split returns the input and output columns in declared order.
func (t *Table) split() (inputs, outputs []Column) {
	for _, c := range t.Columns {
		switch c.Role {
		case RoleInput:
			inputs = append(inputs, c)
		case RoleOutput:
			outputs = append(outputs, c)
		}
	}
	return inputs, outputs
}
