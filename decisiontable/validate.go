package decisiontable

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks the table's structure and returns one message per problem.
// An empty result means the table is well formed.
func Validate(t *Table) []string {
	errs := []string{}

	if strings.TrimSpace(t.ID) == "" {
		errs = append(errs, "Table id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, "Table name is required")
	}
	switch t.HitPolicy {
	case "", HitPolicyFirst, HitPolicyCollect:
	default:
		errs = append(errs, fmt.Sprintf("Unknown hit policy %q", t.HitPolicy))
	}

	if len(t.Columns) == 0 {
		errs = append(errs, "Table must have at least one column")
	}
	inputs, outputs := t.split()
	if len(inputs) == 0 {
		errs = append(errs, "Table must have at least one input column")
	}
	if len(outputs) == 0 {
		errs = append(errs, "Table must have at least one output column")
	}

	declared := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if declared[c.ID] {
			errs = append(errs, fmt.Sprintf("Duplicate column id: %q", c.ID))
		}
		declared[c.ID] = true

		if c.Role != RoleInput && c.Role != RoleOutput {
			errs = append(errs, fmt.Sprintf("Column %q has unknown role %q", c.ID, c.Role))
		}
		// A lone output column yields a bare value, so only input columns and
		// the keys of multi-output results need a field.
		needsField := c.Role == RoleInput || (c.Role == RoleOutput && len(outputs) > 1)
		if needsField && strings.TrimSpace(c.FieldPath) == "" {
			errs = append(errs, fmt.Sprintf("Column %q field is required", c.ID))
		}
	}

	for i, row := range t.Rows {
		keys := make([]string, 0, len(row.Cells))
		for k := range row.Cells {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !declared[k] {
				errs = append(errs, fmt.Sprintf("Row %d: Unknown column id %q", i+1, k))
			}
		}
	}

	return errs
}

// ValidateCells checks every input cell with ValidateCellExpression.
func ValidateCells(t *Table) []string {
	errs := []string{}
	inputs, _ := t.split()
	for i, row := range t.Rows {
		for _, col := range inputs {
			if err := ValidateCellExpression(row.Cells[col.ID], col); err != nil {
				errs = append(errs, fmt.Sprintf("Row %d, column %q: %s", i+1, col.DisplayName(), err))
			}
		}
	}
	return errs
}
