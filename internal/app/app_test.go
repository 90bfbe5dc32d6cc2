package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
	"github.com/vk/opgraph/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

const pipelineHCL = `
node "R" {
  operator = "const"
  params {
    value = "seed"
  }
}

node "P" {
  operator = "passthrough"
  source "in" {
    from = "R"
  }
}

node "Q" {
  operator = "print"
  params {
    label = "final"
  }
  source "in" {
    from = "P"
  }
}
`

func TestRun_EvaluatesWholeGraph(t *testing.T) {
	path := writeGraph(t, "pipeline.hcl", pipelineHCL)
	a, buf := setupApp(t, Config{GraphPaths: []string{path}, FailOnError: true})

	res, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Report.Complete())
	assert.Equal(t, []nodeid.ID{"P", "Q", "R"}, res.Report.Computed)
	for _, id := range []nodeid.ID{"R", "P", "Q"} {
		got, ok := res.Evaluation.Artifact(id)
		require.True(t, ok, id)
		assert.Equal(t, cty.StringVal("seed"), got, id)
	}
	assert.Equal(t, 3, res.Validation.Count(node.Validated))
	assert.Contains(t, buf.String(), `final: "seed"`)
	assert.Contains(t, buf.String(), "Evaluation run finished.")
}

const brokenYAML = `nodes:
  - id: R
    operator: const
    params:
      value: 1
  - id: bad
    operator: no_such_operator
  - id: after_bad
    operator: passthrough
    sources:
      in: bad
  - id: ok
    operator: passthrough
    sources:
      in: R
`

func TestRun_PartialFailure(t *testing.T) {
	path := writeGraph(t, "broken.yaml", brokenYAML)

	t.Run("tolerated", func(t *testing.T) {
		a, _ := setupApp(t, Config{GraphPaths: []string{path}})

		res, err := a.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []nodeid.ID{"R", "ok"}, res.Report.Computed)
		require.Contains(t, res.Report.Failed, nodeid.ID("bad"))
		assert.ErrorIs(t, res.Report.Failed["bad"], grapherr.ErrOperatorNotFound)
		assert.Equal(t, []nodeid.ID{"after_bad"}, res.Report.Blocked)
	})

	t.Run("skip invalid", func(t *testing.T) {
		a, _ := setupApp(t, Config{GraphPaths: []string{path}, SkipInvalid: true})

		res, err := a.Run(context.Background())

		require.NoError(t, err)
		assert.Empty(t, res.Report.Failed)
		assert.Equal(t, []nodeid.ID{"bad"}, res.Report.Skipped)
	})

	t.Run("fail on error", func(t *testing.T) {
		a, _ := setupApp(t, Config{GraphPaths: []string{path}, FailOnError: true})

		res, err := a.Run(context.Background())

		require.ErrorIs(t, err, ErrIncomplete)
		assert.ErrorIs(t, err, grapherr.ErrOperatorNotFound)
		require.NotNil(t, res)
	})
}

func TestRun_RejectsStructuralErrors(t *testing.T) {
	path := writeGraph(t, "dangling.yaml", "nodes:\n  - id: X\n    operator: passthrough\n    sources:\n      in: ghost\n")
	a, _ := setupApp(t, Config{GraphPaths: []string{path}})

	_, err := a.Run(context.Background())

	assert.ErrorIs(t, err, grapherr.ErrDanglingSourceReference)
}

func TestRun_UsesGivenModules(t *testing.T) {
	path := writeGraph(t, "one.yaml", "nodes:\n  - id: R\n    operator: counted\n")
	counter := testutil.NewCounter("counted")
	a, _ := setupApp(t, Config{GraphPaths: []string{path}}, testutil.StubModule{"counted": counter})

	_, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, counter.Creates())
	assert.Equal(t, []string{"counted"}, a.Registry().List())
}

func TestValidate(t *testing.T) {
	path := writeGraph(t, "broken.yaml", brokenYAML)
	a, _ := setupApp(t, Config{GraphPaths: []string{path}})

	v, err := a.Validate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, node.Error, v.Results["bad"].Status)
	assert.Equal(t, node.Validated, v.Results["after_bad"].Status)
	assert.Equal(t, 1, v.Count(node.Error))
}

func TestInspect(t *testing.T) {
	path := writeGraph(t, "pipeline.hcl", pipelineHCL)
	a, _ := setupApp(t, Config{GraphPaths: []string{path}})

	in, err := a.Inspect(context.Background(), "P")

	require.NoError(t, err)
	assert.Equal(t, "passthrough", in.Node.Operator)
	assert.Equal(t, []nodeid.ID{"R"}, in.Ancestors)
	assert.Equal(t, []nodeid.ID{"Q"}, in.Descendants)
	assert.Equal(t, [][]nodeid.ID{{"R"}, {"P"}, {"Q"}}, in.Levels)

	_, err = a.Inspect(context.Background(), "missing")
	assert.ErrorIs(t, err, grapherr.ErrUnknownNode)
}

func TestHealthMux(t *testing.T) {
	path := writeGraph(t, "pipeline.hcl", pipelineHCL)
	a, _ := setupApp(t, Config{GraphPaths: []string{path}})
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	rec := httptest.NewRecorder()
	a.healthMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "opgraph_binder_bind_total")
	assert.Contains(t, rec.Body.String(), `opgraph_evaluator_cache_entries{state="computed"} 3`)
}
