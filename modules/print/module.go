// Package print provides the "print" operator: it writes its input to an
// output stream and passes it through unchanged, so it can sit anywhere in a
// chain.
package print

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Nil means os.Stdout.
	Out io.Writer

	mu sync.Mutex
}

// Spec declares the operator's configuration and inputs.
var Spec = registry.OperatorSpec{
	Description: "Prints its input and forwards it unchanged.",
	Params: []registry.ParamSpec{
		{Name: "label", Type: cty.String, Description: "Prefix for the printed line."},
	},
	Inputs: []registry.InputSpec{{Name: "in", Required: true}},
}

type operator struct {
	module *Module
	label  string
	in     node.Artifact
	bound  bool
}

func (m *Module) create(_ context.Context, params node.Params) (registry.Operator, error) {
	op := &operator{module: m}
	if v, ok := params.Get("label"); ok && !v.IsNull() {
		if v.Type() != cty.String {
			return nil, fmt.Errorf("parameter 'label' must be a string, got %s", v.Type().FriendlyName())
		}
		op.label = v.AsString()
	}
	return op, nil
}

func (o *operator) SetInput(name string, artifact node.Artifact) error {
	if name != "in" {
		return fmt.Errorf("unknown input %q", name)
	}
	o.in, o.bound = artifact, true
	return nil
}

func (o *operator) Output(ctx context.Context) (node.Artifact, error) {
	if !o.bound {
		return nil, errors.New("input 'in' is not bound")
	}
	ctxlog.FromContext(ctx).Info("Printing input.", "label", o.label)

	text, err := Render(o.in)
	if err != nil {
		return nil, err
	}
	if o.label != "" {
		text = o.label + ": " + text
	}
	if err := o.module.writeLine(text); err != nil {
		return nil, err
	}
	return o.in, nil
}

func (m *Module) writeLine(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	_, err := fmt.Fprintln(out, text)
	return err
}

// Render formats an artifact for display. cty values are rendered as JSON
// with object keys sorted; anything else uses its default format.
func Render(artifact node.Artifact) (string, error) {
	switch a := artifact.(type) {
	case nil:
		return "(null)", nil
	case cty.Value:
		if a.IsNull() {
			return "(null)", nil
		}
		if !a.IsWhollyKnown() {
			return "(unknown)", nil
		}
		b, err := ctyjson.Marshal(a, a.Type())
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprintf("%v", a), nil
	}
}

// Register registers the operator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("print", registry.Described{Factory: registry.FactoryFunc(m.create), Spec: Spec})
}
