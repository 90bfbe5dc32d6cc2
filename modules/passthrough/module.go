// Package passthrough provides the "passthrough" operator, which outputs the
// artifact bound to its "in" input unchanged.
package passthrough

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Spec declares the operator's inputs.
var Spec = registry.OperatorSpec{
	Description: "Forwards its input unchanged.",
	Inputs:      []registry.InputSpec{{Name: "in", Required: true}},
}

type operator struct {
	in    node.Artifact
	bound bool
}

// New creates a passthrough operator.
func New(context.Context, node.Params) (registry.Operator, error) {
	return &operator{}, nil
}

func (o *operator) SetInput(name string, artifact node.Artifact) error {
	if name != "in" {
		return fmt.Errorf("unknown input %q", name)
	}
	o.in, o.bound = artifact, true
	return nil
}

func (o *operator) Output(context.Context) (node.Artifact, error) {
	if !o.bound {
		return nil, errors.New("input 'in' is not bound")
	}
	return o.in, nil
}

// Register registers the operator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("passthrough", registry.Described{Factory: registry.FactoryFunc(New), Spec: Spec})
}
