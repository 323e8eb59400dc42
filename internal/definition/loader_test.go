package definition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/decisiontable"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

const tableYAML = `
id: discounts
name: Age discounts
hitPolicy: first
columns:
  - id: age
    role: input
    field: customer.age
    valueType: number
  - id: discount
    role: output
    field: discount
    valueType: number
rows:
  - id: r1
    cells:
      age: "<18"
      discount: 20
  - id: r2
    cells:
      age: 18..64
      discount: 5
  - id: r3
    cells:
      age: "*"
      discount: 0
`

const pipelineYAML = `
id: pricing
name: Pricing
steps:
  - key: subtotal
    name: Subtotal
    logic:
      "*": [{var: price}, {var: quantity}]
  - key: total
    name: Total
    enabled: true
    logic: {"-": [{var: $.subtotal}, 5]}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTable(t *testing.T) {
	path := writeFile(t, "table.yaml", tableYAML)

	table, err := NewLoader().LoadTable(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "discounts", table.ID)
	assert.Equal(t, decisiontable.HitPolicyFirst, table.HitPolicy)
	require.Len(t, table.Columns, 2)
	assert.Equal(t, "customer.age", table.Columns[0].FieldPath)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "20", table.Rows[0].Cells["discount"])
	assert.Equal(t, "18..64", table.Rows[1].Cells["age"])
	assert.Empty(t, decisiontable.Validate(table))
}

func TestLoadPipeline(t *testing.T) {
	path := writeFile(t, "pipeline.yml", pipelineYAML)

	p, err := NewLoader().LoadPipeline(context.Background(), "file://"+filepath.ToSlash(path))
	require.NoError(t, err)

	require.Len(t, p.Steps, 2)
	assert.True(t, ir.IsOperation(p.Steps[0].Logic, "*"))
	assert.Equal(t, []string{"price", "quantity"}, ir.Variables(p.Steps[0].Logic))
	assert.True(t, p.Steps[1].IsEnabled())
	assert.Equal(t, `{"-":[{"var":"$.subtotal"},5]}`, ir.Canonical(p.Steps[1].Logic))
}

func TestLoadDataJSON(t *testing.T) {
	path := writeFile(t, "data.json", `{"price": 20, "quantity": 10, "customer": {"tier": "gold"}}`)

	data, err := NewLoader().LoadData(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"price":    20.0,
		"quantity": 10.0,
		"customer": map[string]any{"tier": "gold"},
	}, data)
}

func TestLoadDataEmpty(t *testing.T) {
	path := writeFile(t, "empty.yaml", "")

	data, err := NewLoader().LoadData(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.NotNil(t, data)
}

func TestLoadLogic(t *testing.T) {
	path := writeFile(t, "logic.yaml", "and:\n  - {'>': [{var: age}, 18]}\n  - {in: [{var: country}, [US, CA]]}\n")

	logic, err := NewLoader().LoadLogic(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, `{"and":[{">":[{"var":"age"},18]},{"in":[{"var":"country"},["US","CA"]]}]}`, ir.Canonical(logic))
}

func TestLoadErrors(t *testing.T) {
	loader := NewLoader()
	ctx := context.Background()

	_, err := loader.LoadTable(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loader.LoadTable(ctx, "")
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "id: [unterminated")
	_, err = loader.LoadTable(ctx, bad)
	assert.ErrorContains(t, err, "invalid YAML")

	wrongShape := writeFile(t, "shape.yaml", "columns: nope")
	_, err = loader.LoadTable(ctx, wrongShape)
	assert.ErrorContains(t, err, "invalid definition")
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON([]byte("1: one\ntrue: yes\nlist: [1, two]\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":"one","true":"yes","list":[1,"two"]}`, string(out))
}
