package binder

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/metrics"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
	"github.com/vk/opgraph/internal/registry"
	tu "github.com/vk/opgraph/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func newBinder(t *testing.T, factories tu.StubModule, opts ...Option) *Binder {
	t.Helper()
	return New(registry.New(factories), opts...)
}

func TestBind_Success(t *testing.T) {
	counter := tu.NewCounter("passthrough")
	b := newBinder(t, tu.StubModule{"passthrough": counter})

	n := tu.Node("P", "passthrough", "R")
	out, err := b.Bind(context.Background(), n, map[string]node.Artifact{"in": "hello"})

	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, 1, counter.Creates())
	assert.Equal(t, 1, counter.Outputs())
}

func TestBind_PassesParamsToFactory(t *testing.T) {
	counter := tu.NewCounter("const")
	b := newBinder(t, tu.StubModule{"const": counter})

	n := tu.WithParam(tu.Node("R", "const"), "value", cty.NumberIntVal(42))
	out, err := b.Bind(context.Background(), n, nil)

	require.NoError(t, err)
	assert.True(t, cty.NumberIntVal(42).RawEquals(out.(cty.Value)))
}

func TestBind_InputsBoundInSortedOrder(t *testing.T) {
	counter := tu.NewCounter("merge")
	b := newBinder(t, tu.StubModule{"merge": counter})

	sources := map[string]node.Artifact{"zeta": 1, "alpha": 2, "mid": 3}
	_, err := b.Bind(context.Background(), tu.Node("M", "merge"), sources)

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, counter.BoundInputs(1))
}

func TestBind_Failures(t *testing.T) {
	testCases := []struct {
		name     string
		operator string
		factory  registry.Factory
		sentinel error
		cause    string
	}{
		{
			name:     "operator not registered",
			operator: "missing",
			sentinel: grapherr.ErrOperatorNotFound,
		},
		{
			name:     "constructor returns error",
			operator: "broken",
			factory:  &tu.Failing{At: tu.FailCreate},
			sentinel: grapherr.ErrOperatorConstructionFailed,
			cause:    "injected failure",
		},
		{
			name:     "constructor panics",
			operator: "broken",
			factory:  &tu.Failing{At: tu.PanicCreate},
			sentinel: grapherr.ErrOperatorConstructionFailed,
			cause:    "panic: constructor exploded",
		},
		{
			name:     "constructor returns nil operator",
			operator: "broken",
			factory: registry.FactoryFunc(func(context.Context, node.Params) (registry.Operator, error) {
				return nil, nil
			}),
			sentinel: grapherr.ErrOperatorConstructionFailed,
			cause:    "factory returned no operator",
		},
		{
			name:     "set input fails",
			operator: "broken",
			factory:  &tu.Failing{At: tu.FailSetInput},
			sentinel: grapherr.ErrNodeExecutionFailed,
			cause:    `binding input "in": injected failure`,
		},
		{
			name:     "output fails",
			operator: "broken",
			factory:  &tu.Failing{At: tu.FailOutput},
			sentinel: grapherr.ErrNodeExecutionFailed,
			cause:    "injected failure",
		},
		{
			name:     "output panics",
			operator: "broken",
			factory:  &tu.Failing{At: tu.PanicOutput},
			sentinel: grapherr.ErrNodeExecutionFailed,
			cause:    "panic: output exploded",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mod := tu.StubModule{}
			if tc.factory != nil {
				mod[tc.operator] = tc.factory
			}
			b := newBinder(t, mod)

			n := tu.Node("Y", tc.operator, "X")
			out, err := b.Bind(context.Background(), n, map[string]node.Artifact{"in": "x"})

			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tc.sentinel)

			id, ok := grapherr.NodeOf(err)
			require.True(t, ok, "error must be attributable to a node")
			assert.Equal(t, nodeid.ID("Y"), id)
			assert.Contains(t, err.Error(), tc.operator)

			if tc.cause != "" {
				cause := errors.Unwrap(err)
				require.NotNil(t, cause)
				assert.Equal(t, tc.cause, cause.Error())
			}
		})
	}
}

func TestBind_NotFoundCarriesOperator(t *testing.T) {
	b := newBinder(t, tu.StubModule{})

	_, err := b.Bind(context.Background(), tu.Node("Y", "nope"), nil)

	var notFound *grapherr.OperatorNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, nodeid.ID("Y"), notFound.NodeID)
	assert.Equal(t, "nope", notFound.Operator)
}

func TestBind_ExecutionErrorPreservesCause(t *testing.T) {
	b := newBinder(t, tu.StubModule{"broken": &tu.Failing{At: tu.FailOutput}})

	_, err := b.Bind(context.Background(), tu.Node("Y", "broken"), nil)

	assert.ErrorIs(t, err, tu.ErrInjected)
}

func TestBind_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	b := newBinder(t, tu.StubModule{
		"const":  tu.NewCounter("const"),
		"broken": &tu.Failing{At: tu.FailOutput},
	}, WithMetrics(m))

	ctx := context.Background()
	_, err := b.Bind(ctx, tu.Node("A", "const"), nil)
	require.NoError(t, err)
	_, err = b.Bind(ctx, tu.Node("B", "const"), nil)
	require.NoError(t, err)
	_, err = b.Bind(ctx, tu.Node("C", "broken"), nil)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "opgraph_binder_bind_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per operator/result pair")
}

func TestBind_LogsThroughContextLogger(t *testing.T) {
	logger, buf := tu.NewLogger()
	ctx := ctxlog.WithLogger(context.Background(), logger)
	b := newBinder(t, tu.StubModule{"const": tu.NewCounter("const")})

	_, err := b.Bind(ctx, tu.Node("R", "const"), nil)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Node binding succeeded.")
	assert.Contains(t, buf.String(), "node=R")
	assert.Contains(t, buf.String(), "operator=const")
}
