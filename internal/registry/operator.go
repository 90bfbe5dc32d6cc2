package registry

import (
	"context"

	"github.com/vk/opgraph/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// Operator is one instantiated processing step. Inputs are bound first, then
// the output is requested exactly once per instance.
type Operator interface {
	// SetInput binds the artifact produced upstream to the named input.
	SetInput(name string, artifact node.Artifact) error
	// Output computes the operator's single output artifact.
	Output(ctx context.Context) (node.Artifact, error)
}

// Factory instantiates operators from a node's configuration. Create should
// fail when required configuration is missing or malformed.
type Factory interface {
	Create(ctx context.Context, params node.Params) (Operator, error)
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc func(ctx context.Context, params node.Params) (Operator, error)

// Create calls f.
func (f FactoryFunc) Create(ctx context.Context, params node.Params) (Operator, error) {
	return f(ctx, params)
}

// Lookup resolves an operator type name to its factory.
type Lookup interface {
	Lookup(operatorType string) (Factory, bool)
}

// Describer is implemented by factories that declare their configuration and
// inputs. Validation uses it; evaluation does not require it.
type Describer interface {
	Describe() OperatorSpec
}

// OperatorSpec declares what an operator expects.
type OperatorSpec struct {
	Description string
	Params      []ParamSpec
	Inputs      []InputSpec
	// AnyInputs accepts inputs under any name in addition to the declared ones.
	AnyInputs bool
}

// ParamSpec declares one configuration parameter.
type ParamSpec struct {
	Name string
	// Type is the cty type the value must convert to. cty.DynamicPseudoType
	// accepts anything.
	Type        cty.Type
	Required    bool
	Description string
}

// InputSpec declares one named input.
type InputSpec struct {
	Name     string
	Required bool
}

// Param returns the declaration for name.
func (s OperatorSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Input returns the declaration for name.
func (s OperatorSpec) Input(name string) (InputSpec, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return InputSpec{}, false
}

// Described pairs a factory with a static OperatorSpec.
type Described struct {
	Factory
	Spec OperatorSpec
}

// Describe returns the static spec.
func (d Described) Describe() OperatorSpec { return d.Spec }
