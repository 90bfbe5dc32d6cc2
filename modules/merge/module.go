// Package merge provides the "merge" operator. It accepts any number of
// inputs and outputs one cty object with an attribute per input name.
package merge

import (
	"context"
	"fmt"

	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Spec declares that any input name is accepted.
var Spec = registry.OperatorSpec{
	Description: "Combines all inputs into one object keyed by input name.",
	AnyInputs:   true,
}

type operator struct {
	attrs map[string]cty.Value
}

// New creates a merge operator.
func New(context.Context, node.Params) (registry.Operator, error) {
	return &operator{attrs: make(map[string]cty.Value)}, nil
}

func (o *operator) SetInput(name string, artifact node.Artifact) error {
	v, err := ToCty(artifact)
	if err != nil {
		return fmt.Errorf("input %q: %w", name, err)
	}
	o.attrs[name] = v
	return nil
}

func (o *operator) Output(context.Context) (node.Artifact, error) {
	if len(o.attrs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(o.attrs), nil
}

// ToCty returns artifact as a cty value. cty values are returned as is; nil
// becomes a dynamic null; other Go values are converted by their implied
// type.
func ToCty(artifact node.Artifact) (cty.Value, error) {
	switch a := artifact.(type) {
	case cty.Value:
		return a, nil
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	ty, err := gocty.ImpliedType(artifact)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot convert %T to a cty value: %w", artifact, err)
	}
	return gocty.ToCtyValue(artifact, ty)
}

// Register registers the operator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("merge", registry.Described{Factory: registry.FactoryFunc(New), Spec: Spec})
}
