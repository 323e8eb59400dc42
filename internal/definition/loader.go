// Package definition loads decision tables, pipelines and data documents
// written in YAML or JSON from local paths or any afs-supported URL.
package definition

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/decisiontable"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/pipeline"
)

// Loader reads definition documents through an afs file service.
type Loader struct {
	fs afs.Service
}

// NewLoader creates a Loader backed by the default afs service.
func NewLoader() *Loader {
	return &Loader{fs: afs.New()}
}

// Read downloads the raw document at location. Locations without a scheme are
// treated as local paths.
func (l *Loader) Read(ctx context.Context, location string) ([]byte, error) {
	URL, err := normalizeURL(location)
	if err != nil {
		return nil, err
	}
	data, err := l.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	return data, nil
}

// LoadTable reads and decodes a decision table.
func (l *Loader) LoadTable(ctx context.Context, location string) (*decisiontable.Table, error) {
	var t decisiontable.Table
	if err := l.load(ctx, location, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadPipeline reads and decodes a pipeline, including each step's logic tree.
func (l *Loader) LoadPipeline(ctx context.Context, location string) (*pipeline.Pipeline, error) {
	var p pipeline.Pipeline
	if err := l.load(ctx, location, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadData reads a data object used as evaluation input.
func (l *Loader) LoadData(ctx context.Context, location string) (map[string]any, error) {
	var data map[string]any
	if err := l.load(ctx, location, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// LoadLogic reads a single logic tree.
func (l *Loader) LoadLogic(ctx context.Context, location string) (ir.Node, error) {
	raw, err := l.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	doc, err := ToJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	n, err := ir.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return n, nil
}

func (l *Loader) load(ctx context.Context, location string, v any) error {
	raw, err := l.Read(ctx, location)
	if err != nil {
		return err
	}
	if err := Decode(raw, v); err != nil {
		return fmt.Errorf("%s: %w", location, err)
	}
	return nil
}

// Decode unmarshals a YAML or JSON document into v using v's JSON mapping.
func Decode(data []byte, v any) error {
	doc, err := ToJSON(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}
	return nil
}

// ToJSON converts a YAML (or JSON, which YAML accepts) document to JSON.
func ToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	doc, err := jsonCompatible(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// jsonCompatible rewrites the generic maps yaml produces for non-string keys.
func jsonCompatible(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			c, err := jsonCompatible(e)
			if err != nil {
				return nil, err
			}
			t[k] = c
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			c, err := jsonCompatible(e)
			if err != nil {
				return nil, err
			}
			switch k.(type) {
			case string, int, int64, uint64, float64, bool:
				out[fmt.Sprint(k)] = c
			default:
				return nil, fmt.Errorf("unsupported map key %v", k)
			}
		}
		return out, nil
	case []any:
		for i, e := range t {
			c, err := jsonCompatible(e)
			if err != nil {
				return nil, err
			}
			t[i] = c
		}
		return t, nil
	}
	return v, nil
}

func normalizeURL(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("location is required")
	}
	if strings.Contains(location, "://") {
		return location, nil
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", location, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}
