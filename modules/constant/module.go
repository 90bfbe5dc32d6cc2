// Package constant provides the "const" operator: a root node whose output is
// its own "value" parameter.
package constant

import (
	"context"
	"errors"

	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Spec declares the operator's configuration.
var Spec = registry.OperatorSpec{
	Description: "Emits the value of its 'value' parameter.",
	Params: []registry.ParamSpec{
		{Name: "value", Type: cty.DynamicPseudoType, Required: true, Description: "Any literal value."},
	},
}

type operator struct {
	value cty.Value
}

// New creates a const operator.
func New(_ context.Context, params node.Params) (registry.Operator, error) {
	v, ok := params.Get("value")
	if !ok {
		return nil, errors.New("parameter 'value' is required")
	}
	return &operator{value: v}, nil
}

func (o *operator) SetInput(name string, _ node.Artifact) error {
	return errors.New("const takes no inputs")
}

func (o *operator) Output(context.Context) (node.Artifact, error) {
	return o.value, nil
}

// Register registers the operator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("const", registry.Described{Factory: registry.FactoryFunc(New), Spec: Spec})
}
