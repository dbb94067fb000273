package dispatch

import (
	"encoding/json"
	"errors"
	"testing"

	"asksource-be/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int) *int { return &v }

func TestBuildRequestDefaults(t *testing.T) {
	tests := []struct {
		strategy Strategy
		endpoint string
		body     string
	}{
		{StrategySimple, "answer_search/proj1", `{"text":"q","limit":2}`},
		{StrategyHybrid, "answer_hybrid/proj1", `{"text":"q","dense_limit":10,"sparse_limit":3,"limit":3}`},
		{StrategyAdvanced, "answer_hybrid_cross/proj1", `{"text":"q","dense_limit":10,"sparse_limit":5,"limit":5}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			req, err := BuildRequest(tt.strategy, "proj1", "q", Overrides{})
			require.NoError(t, err)

			assert.Equal(t, tt.strategy, req.Strategy)
			assert.Equal(t, tt.endpoint, req.Endpoint)

			raw, err := json.Marshal(req.Body)
			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(raw))
		})
	}
}

func TestSimpleStrategyScenario(t *testing.T) {
	req, err := BuildRequest(StrategySimple, "proj1", "What is the capital?", Overrides{})
	require.NoError(t, err)

	raw, _ := json.Marshal(req.Body)
	assert.JSONEq(t, `{"text":"What is the capital?","limit":2}`, string(raw))
	assert.Equal(t, "answer_search/proj1", req.Endpoint)
}

func TestAdvancedStrategyWithDenseOverride(t *testing.T) {
	req, err := BuildRequest(StrategyAdvanced, "proj1", "Summarize section 2", Overrides{DenseLimit: ptr(7)})
	require.NoError(t, err)

	raw, _ := json.Marshal(req.Body)
	assert.JSONEq(t, `{"text":"Summarize section 2","dense_limit":7,"sparse_limit":5,"limit":5}`, string(raw))
	assert.Equal(t, "answer_hybrid_cross/proj1", req.Endpoint)
}

func TestOverridesReplaceFieldByField(t *testing.T) {
	req, err := BuildRequest(StrategyHybrid, "p", "q", Overrides{Limit: ptr(8), SparseLimit: ptr(4)})
	require.NoError(t, err)

	assert.Equal(t, 8, req.Body.Limit)
	assert.Equal(t, 10, *req.Body.DenseLimit)
	assert.Equal(t, 4, *req.Body.SparseLimit)
}

func TestSimpleIgnoresHybridOverrides(t *testing.T) {
	req, err := BuildRequest(StrategySimple, "p", "q", Overrides{DenseLimit: ptr(12), SparseLimit: ptr(6)})
	require.NoError(t, err)

	assert.Nil(t, req.Body.DenseLimit)
	assert.Nil(t, req.Body.SparseLimit)
}

func TestProjectIdIsPathEscaped(t *testing.T) {
	req, err := BuildRequest(StrategySimple, "Projet Alpha", "q", Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "answer_search/Projet%20Alpha", req.Endpoint)
}

func TestBuildRequestErrors(t *testing.T) {
	tests := []struct {
		name      string
		strategy  Strategy
		project   string
		overrides Overrides
		want      error
	}{
		{"unknown strategy", Strategy("fuzzy"), "p", Overrides{}, apperror.ErrInvalidStrategy},
		{"empty strategy", Strategy(""), "p", Overrides{}, apperror.ErrInvalidStrategy},
		{"missing project", StrategyHybrid, "", Overrides{}, apperror.ErrMissingProject},
		{"blank project", StrategyHybrid, "   ", Overrides{}, apperror.ErrMissingProject},
		{"zero limit", StrategySimple, "p", Overrides{Limit: ptr(0)}, apperror.ErrInvalidParameter},
		{"negative dense", StrategyHybrid, "p", Overrides{DenseLimit: ptr(-3)}, apperror.ErrInvalidParameter},
		{"zero sparse", StrategyAdvanced, "p", Overrides{SparseLimit: ptr(0)}, apperror.ErrInvalidParameter},
		{"negative dense on simple", StrategySimple, "p", Overrides{DenseLimit: ptr(-1)}, apperror.ErrInvalidParameter},
		{"zero sparse on simple", StrategySimple, "p", Overrides{SparseLimit: ptr(0)}, apperror.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRequest(tt.strategy, tt.project, "q", tt.overrides)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseStrategy(t *testing.T) {
	st, err := ParseStrategy(" Hybrid ")
	require.NoError(t, err)
	assert.Equal(t, StrategyHybrid, st)

	_, err = ParseStrategy("semantic")
	assert.True(t, errors.Is(err, apperror.ErrInvalidStrategy))
}

func TestDefaults(t *testing.T) {
	o, err := Defaults(StrategySimple)
	require.NoError(t, err)
	assert.Equal(t, 2, *o.Limit)
	assert.Nil(t, o.DenseLimit)

	o, err = Defaults(StrategyAdvanced)
	require.NoError(t, err)
	assert.Equal(t, 5, *o.Limit)
	assert.Equal(t, 10, *o.DenseLimit)
	assert.Equal(t, 5, *o.SparseLimit)
}
