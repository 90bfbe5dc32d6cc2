// Package envvars provides the "env_vars" operator, a root node that outputs
// the process environment as a map of strings.
package envvars

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Spec declares the operator's configuration.
var Spec = registry.OperatorSpec{
	Description: "Emits environment variables as a map of strings.",
	Params: []registry.ParamSpec{
		{Name: "prefix", Type: cty.String, Description: "Only variables starting with this prefix are kept."},
		{Name: "strip_prefix", Type: cty.Bool, Description: "Remove the prefix from the emitted names."},
	},
}

type operator struct {
	prefix string
	strip  bool
}

// New creates an env_vars operator.
func New(_ context.Context, params node.Params) (registry.Operator, error) {
	op := &operator{}
	if err := param(params, "prefix", cty.String, &op.prefix); err != nil {
		return nil, err
	}
	if err := param(params, "strip_prefix", cty.Bool, &op.strip); err != nil {
		return nil, err
	}
	return op, nil
}

// param decodes an optional parameter into target.
func param(params node.Params, key string, ty cty.Type, target any) error {
	v, ok := params.Get(key)
	if !ok || v.IsNull() {
		return nil
	}
	v, err := convert.Convert(v, ty)
	if err != nil {
		return fmt.Errorf("parameter '%s': %w", key, err)
	}
	return gocty.FromCtyValue(v, target)
}

func (o *operator) SetInput(string, node.Artifact) error {
	return errors.New("env_vars takes no inputs")
}

func (o *operator) Output(context.Context) (node.Artifact, error) {
	envMap := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], o.prefix) {
			continue
		}
		name := pair[0]
		if o.strip {
			name = strings.TrimPrefix(name, o.prefix)
		}
		if name != "" {
			envMap[name] = cty.StringVal(pair[1])
		}
	}

	if len(envMap) == 0 {
		return cty.MapValEmpty(cty.String), nil
	}
	return cty.MapVal(envMap), nil
}

// Register registers the operator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("env_vars", registry.Described{Factory: registry.FactoryFunc(New), Spec: Spec})
}
