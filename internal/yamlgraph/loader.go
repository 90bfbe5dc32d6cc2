// Package yamlgraph loads graph files written in YAML into the
// format-agnostic config.Model.
//
//	nodes:
//	  - id: reader
//	    operator: const
//	    params:
//	      value: {name: demo, sizes: [1, 2, 3]}
//	  - id: copy
//	    operator: passthrough
//	    sources:
//	      in: reader
//
// Parameters and sources keep their declaration order. Parameter values are
// converted to cty values through their JSON form.
package yamlgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/opgraph/internal/config"
	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/node"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new YAML graph loader.
func NewLoader() *Loader {
	return &Loader{}
}

type document struct {
	Nodes []nodeDoc `yaml:"nodes"`
}

type nodeDoc struct {
	ID       string    `yaml:"id"`
	Operator string    `yaml:"operator"`
	Params   yaml.Node `yaml:"params"`
	Sources  yaml.Node `yaml:"sources"`

	line int
}

var nodeKeys = map[string]bool{"id": true, "operator": true, "params": true, "sources": true}

// UnmarshalYAML records the declaration line and rejects unknown keys, which
// the decoder's KnownFields setting does not reach inside custom unmarshalers.
func (d *nodeDoc) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: node must be a mapping", value.Line)
	}
	for i := 0; i < len(value.Content); i += 2 {
		if key := value.Content[i]; !nodeKeys[key.Value] {
			return fmt.Errorf("line %d: unknown node field %q", key.Line, key.Value)
		}
	}

	type plain nodeDoc
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = nodeDoc(p)
	d.line = value.Line
	return nil
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string { return []string{".yaml", ".yml"} }

// LoadFile parses one YAML graph file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*config.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}
	return l.Parse(ctx, data, path)
}

// Parse decodes YAML source held in memory; filename is used in origins and
// error messages.
func (l *Loader) Parse(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", filename, err)
	}

	model := &config.Model{}
	for _, nd := range doc.Nodes {
		origin := fmt.Sprintf("%s:%d", filename, nd.line)
		spec := &config.NodeSpec{ID: nd.ID, Operator: nd.Operator, Origin: origin}

		params, err := decodeParams(&nd.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: node %q: %w", origin, nd.ID, err)
		}
		spec.Params = params

		sources, err := decodeSources(&nd.Sources)
		if err != nil {
			return nil, fmt.Errorf("%s: node %q: %w", origin, nd.ID, err)
		}
		spec.Sources = sources

		model.Nodes = append(model.Nodes, spec)
	}

	ctxlog.FromContext(ctx).Debug("YAML graph decoded.", "file", filename, "nodes", len(model.Nodes))
	return model, nil
}

func decodeParams(n *yaml.Node) (node.Params, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: params must be a mapping", n.Line)
	}

	params := make(node.Params, 0, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		key, raw := n.Content[i], n.Content[i+1]
		var v any
		if err := raw.Decode(&v); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key.Value, err)
		}
		val, err := toCty(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key.Value, err)
		}
		params = append(params, node.Param{Key: key.Value, Value: val})
	}
	return params, nil
}

func decodeSources(n *yaml.Node) ([]config.SourceSpec, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: sources must map input names to node ids", n.Line)
	}

	sources := make([]config.SourceSpec, 0, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		key, from := n.Content[i], n.Content[i+1]
		if from.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: source %q must name a node id", from.Line, key.Value)
		}
		sources = append(sources, config.SourceSpec{Input: key.Value, From: from.Value})
	}
	return sources, nil
}

// toCty converts a decoded YAML value to cty through JSON, which covers the
// scalars, sequences and string-keyed mappings a parameter can hold.
func toCty(v any) (cty.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, err
	}
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(data, ty)
}
