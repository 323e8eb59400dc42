package decisiontable

import (
	"fmt"

	"github.com/minio/highwayhash"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

var fingerprintKey = []byte("jsonlogic-decision-table-key-v1!")

// Meta summarizes a compilation.
type Meta struct {
	TableID       string    `json:"tableId"`
	HitPolicy     HitPolicy `json:"hitPolicy"`
	RowCount      int       `json:"rowCount"`
	InputColumns  []string  `json:"inputColumns"`
	OutputColumns []string  `json:"outputColumns"`
	WildcardRows  int       `json:"wildcardRows"`
	Fingerprint   string    `json:"fingerprint"`
}

// CompiledTable is the logic tree produced for a table.
type CompiledTable struct {
	Logic ir.Node `json:"logic"`
	Meta  Meta    `json:"meta"`
}

// Compile turns a table into a single logic tree.
//
// With the first hit policy the rows become a nested if chain evaluated top
// to bottom. A row whose inputs are all wildcards becomes the default for
// every row above it, so it belongs last.
//
// With the collect hit policy every row becomes a [condition, guarded output]
// pair passed to collect_table, which gathers the outputs of the rows whose
// conditions hold. The output is wrapped in an if on the same condition so an
// evaluator that evaluates arguments eagerly never computes unmatched outputs.
func Compile(t *Table) *CompiledTable {
	inputs, outputs := t.split()
	meta := Meta{
		TableID:       t.ID,
		HitPolicy:     t.Policy(),
		RowCount:      len(t.Rows),
		InputColumns:  fieldPaths(inputs),
		OutputColumns: fieldPaths(outputs),
	}

	var logic ir.Node = ir.Null()
	if len(t.Rows) > 0 {
		conds := make([]ir.Node, len(t.Rows))
		outs := make([]ir.Node, len(t.Rows))
		for i, row := range t.Rows {
			conds[i] = rowCondition(row, inputs)
			outs[i] = rowOutput(row, outputs)
			if ir.IsTrue(conds[i]) {
				meta.WildcardRows++
			}
		}

		if meta.HitPolicy == HitPolicyCollect {
			logic = collect(conds, outs)
		} else {
			logic = firstMatch(conds, outs)
		}
	}

	meta.Fingerprint = Fingerprint(logic)
	return &CompiledTable{Logic: logic, Meta: meta}
}

func firstMatch(conds, outs []ir.Node) ir.Node {
	var acc ir.Node = ir.Null()
	for i := len(conds) - 1; i >= 0; i-- {
		if ir.IsTrue(conds[i]) {
			acc = outs[i]
			continue
		}
		acc = ir.Op("if", conds[i], outs[i], acc)
	}
	return acc
}

func collect(conds, outs []ir.Node) ir.Node {
	pairs := make([]ir.Node, len(conds))
	for i := range conds {
		pairs[i] = ir.Array(conds[i], ir.Op("if", conds[i], outs[i], ir.Null()))
	}
	return ir.Op("collect_table", ir.Array(pairs...))
}

func rowCondition(row Row, inputs []Column) ir.Node {
	var conds []ir.Node
	for _, col := range inputs {
		cell := CompileCell(row.Cells[col.ID], col)
		if !cell.IsWildcard {
			conds = append(conds, cell.Logic)
		}
	}
	switch len(conds) {
	case 0:
		return ir.True()
	case 1:
		return conds[0]
	}
	return ir.Op("and", conds...)
}

func rowOutput(row Row, outputs []Column) ir.Node {
	switch len(outputs) {
	case 0:
		return ir.Null()
	case 1:
		return CompileOutputCell(row.Cells[outputs[0].ID], outputs[0])
	}
	fields := make(map[string]ir.Node, len(outputs))
	for _, col := range outputs {
		fields[col.FieldPath] = CompileOutputCell(row.Cells[col.ID], col)
	}
	return ir.Object(fields)
}

func fieldPaths(cols []Column) []string {
	paths := make([]string, len(cols))
	for i, c := range cols {
		paths[i] = c.FieldPath
	}
	return paths
}

// Fingerprint returns the hex HighwayHash-64 of the canonical JSON of logic.
func Fingerprint(logic ir.Node) string {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return ""
	}
	_, _ = h.Write([]byte(ir.Canonical(logic)))
	return fmt.Sprintf("%016x", h.Sum64())
}
