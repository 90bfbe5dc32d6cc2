// Package hclgraph loads graph files written in HCL into the format-agnostic
// config.Model.
//
// A graph file contains `node` blocks:
//
//	node "reader" {
//	  operator = "const"
//	  params {
//	    value = { name = "demo", sizes = [1, 2, 3] }
//	  }
//	}
//
//	node "copy" {
//	  operator = "passthrough"
//	  source "in" {
//	    from = "reader"
//	  }
//	}
//
// Parameter expressions are evaluated without variables or functions, so they
// must be literal values. Parameters keep their declaration order.
package hclgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/opgraph/internal/config"
	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/node"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL graph loader.
func NewLoader() *Loader {
	return &Loader{}
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{{Type: "node", LabelNames: []string{"id"}}},
}

// nodeBlock is the body of one `node` block.
type nodeBlock struct {
	Operator string         `hcl:"operator"`
	Params   *paramsBlock   `hcl:"params,block"`
	Sources  []*sourceBlock `hcl:"source,block"`
}

type paramsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type sourceBlock struct {
	Input string `hcl:"input,label"`
	From  string `hcl:"from"`
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string { return []string{".hcl"} }

// LoadFile parses one HCL graph file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*config.Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decode(ctx, file.Body)
}

// Parse decodes HCL source held in memory; filename is used in diagnostics.
func (l *Loader) Parse(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(ctx, file.Body)
}

func decode(ctx context.Context, body hcl.Body) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	content, diags := body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL graph: %w", diags)
	}

	model := &config.Model{}
	for _, block := range content.Blocks {
		var nb nodeBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &nb); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode node %q: %w", block.Labels[0], diags)
		}

		spec := &config.NodeSpec{
			ID:       block.Labels[0],
			Operator: nb.Operator,
			Origin:   block.DefRange.String(),
		}
		if nb.Params != nil {
			params, err := decodeParams(nb.Params.Body)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", spec.ID, err)
			}
			spec.Params = params
		}
		for _, src := range nb.Sources {
			spec.Sources = append(spec.Sources, config.SourceSpec{Input: src.Input, From: src.From})
		}
		model.Nodes = append(model.Nodes, spec)
	}

	logger.Debug("HCL graph decoded.", "nodes", len(model.Nodes))
	return model, nil
}

// decodeParams evaluates every attribute of a params block as a literal, in
// source order.
func decodeParams(body hcl.Body) (node.Params, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	params := make(node.Params, 0, len(ordered))
	for _, attr := range ordered {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parameter %q: %w", attr.Name, diags)
		}
		params = append(params, node.Param{Key: attr.Name, Value: val})
	}
	return params, nil
}
