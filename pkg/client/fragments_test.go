package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appFrag "github.com/turtacn/molfrag/internal/application/fragmentation"
	"github.com/turtacn/molfrag/internal/config"
	domainFrag "github.com/turtacn/molfrag/internal/domain/fragmentation"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/molfrag/internal/interfaces/http"
	"github.com/turtacn/molfrag/internal/interfaces/http/handlers"
)

func TestFragment_SendsRequest(t *testing.T) {
	ph := 3.0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/fragments", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CCO", body["smiles"])
		assert.Equal(t, []interface{}{"oxh"}, body["rules"])
		assert.Equal(t, 3.0, body["ph"])
		_, hasPolicy := body["error_policy"]
		assert.False(t, hasPolicy)

		writeJSON(w, http.StatusOK, FragmentResult{
			Input: Molecule{SMILES: "CCO"},
			Rules: []string{"oxh"},
			Sets: []FragmentSet{{Rule: "oxh", Site: []int{1, 2}, Fragments: []Molecule{
				{SMILES: "C=C", ExactMass: 28.0313},
				{SMILES: "O", ExactMass: 18.01056},
			}}},
		})
	})

	res, err := c.Fragment(context.Background(), &FragmentRequest{SMILES: "CCO", Rules: []string{"oxh"}, PH: &ph})
	require.NoError(t, err)
	require.Len(t, res.Sets, 1)
	assert.Equal(t, []float64{28.0313, 18.01056}, res.Masses())
}

func TestFragment_RejectsEmptySMILES(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.Fragment(context.Background(), &FragmentRequest{SMILES: "  "})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = c.Fragment(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFragmentBatch_Validation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.FragmentBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.FragmentBatch(context.Background(), make([]FragmentRequest, MaxBatchSize+1))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.FragmentBatch(context.Background(), []FragmentRequest{{SMILES: "CCO"}, {}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "molecule 1")
}

func TestRules_Decodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/rules", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"rules": []Rule{{Name: "cod", Description: "carbonyl-oxygen dump"}},
		})
	})
	rules, err := c.Rules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Rule{{Name: "cod", Description: "carbonyl-oxygen dump"}}, rules)
}

// ---------------------------------------------------------------------------
// Against the real router
// ---------------------------------------------------------------------------

func newRealServer(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logging.NewNopLogger()
	svc := appFrag.NewService(domainFrag.NewFragmenter(logger), config.NewDefaultConfig().Fragmentation, logger)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		FragmentHandler: handlers.NewFragmentHandler(svc, logger),
		HealthHandler:   handlers.NewHealthHandler("test"),
		Logger:          logger,
		MaxBodySize:     1 << 20,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithRetryMax(0))
	require.NoError(t, err)
	return c
}

func TestIntegration_Fragment(t *testing.T) {
	c := newRealServer(t)

	res, err := c.Fragment(context.Background(), &FragmentRequest{SMILES: "NCC(O)CC", Rules: []string{"cod"}})
	require.NoError(t, err)
	assert.Equal(t, "CCC(CN)O", res.Input.SMILES)
	require.Len(t, res.Sets, 2)
	assert.Equal(t, "C[NH3+]", res.Sets[0].Fragments[0].SMILES)
	assert.Len(t, res.Masses(), 4)
}

func TestIntegration_Errors(t *testing.T) {
	c := newRealServer(t)

	_, err := c.Fragment(context.Background(), &FragmentRequest{SMILES: "CCO", Rules: []string{"bogus"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "FRG_001", apiErr.Code)
	assert.True(t, apiErr.IsInvalidInput())

	_, err = c.Fragment(context.Background(), &FragmentRequest{SMILES: "CCO", ErrorPolicy: "fix"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "FRG_002", apiErr.Code)
	assert.Equal(t, http.StatusNotImplemented, apiErr.StatusCode)
}

func TestIntegration_BatchRulesReady(t *testing.T) {
	c := newRealServer(t)

	batch, err := c.FragmentBatch(context.Background(), []FragmentRequest{
		{SMILES: "NCC(O)CC", Rules: []string{"cod"}},
		{SMILES: "C(C"},
	})
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, 1, batch.Failed)
	assert.NotNil(t, batch.Results[0].Result)
	require.NotNil(t, batch.Results[1].Error)
	assert.Equal(t, "MOL_001", batch.Results[1].Error.Code)

	rules, err := c.Rules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, 6)

	assert.NoError(t, c.Ready(context.Background()))
}
