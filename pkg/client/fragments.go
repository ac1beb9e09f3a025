package client

import (
	"context"
	"fmt"
	"strings"
)

// MaxBatchSize is the largest batch the server accepts.
const MaxBatchSize = 100

// FragmentRequest asks for the fragments of one molecule. Unset fields use
// the server's configured defaults.
type FragmentRequest struct {
	SMILES      string   `json:"smiles"`
	Rules       []string `json:"rules,omitempty"`
	ErrorPolicy string   `json:"error_policy,omitempty"`
	UniqueOnly  bool     `json:"unique_only,omitempty"`
	PH          *float64 `json:"ph,omitempty"`
	Parallel    bool     `json:"parallel,omitempty"`
}

// Molecule summarises one structure.
type Molecule struct {
	SMILES    string  `json:"smiles"`
	Formula   string  `json:"formula"`
	ExactMass float64 `json:"exact_mass"`
	Charge    int     `json:"charge"`
}

// FragmentSet is the group of fragments produced by one rule application.
type FragmentSet struct {
	Rule      string     `json:"rule"`
	Site      []int      `json:"site"`
	Fragments []Molecule `json:"fragments"`
}

// FragmentResult is the server's answer for one molecule.
type FragmentResult struct {
	RequestID  string        `json:"request_id"`
	Input      Molecule      `json:"input"`
	Normalized string        `json:"normalized"`
	Rules      []string      `json:"rules"`
	Sets       []FragmentSet `json:"sets"`
	Rejected   int           `json:"rejected"`
	Cached     bool          `json:"cached"`
	ElapsedMS  float64       `json:"elapsed_ms"`
}

// Masses returns the exact masses of every fragment in set order.
func (r *FragmentResult) Masses() []float64 {
	var out []float64
	for _, set := range r.Sets {
		for _, f := range set.Fragments {
			out = append(out, f.ExactMass)
		}
	}
	return out
}

// BatchError is the error of one failed batch item.
type BatchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchItem holds exactly one of Result and Error.
type BatchItem struct {
	Result *FragmentResult `json:"result,omitempty"`
	Error  *BatchError     `json:"error,omitempty"`
}

type BatchResult struct {
	Results []BatchItem `json:"results"`
	Failed  int         `json:"failed"`
}

// Rule describes one fragmentation rule offered by the server.
type Rule struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Fragment fragments a single molecule.
func (c *Client) Fragment(ctx context.Context, req *FragmentRequest) (*FragmentResult, error) {
	if err := validateFragmentRequest(req); err != nil {
		return nil, err
	}
	var out FragmentResult
	if err := c.post(ctx, "/api/v1/fragments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FragmentBatch fragments up to MaxBatchSize molecules in one round trip.
// Per-molecule failures are reported in the items, not as an error.
func (c *Client) FragmentBatch(ctx context.Context, reqs []FragmentRequest) (*BatchResult, error) {
	if len(reqs) == 0 || len(reqs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch size must be between 1 and %d, got %d", ErrInvalidRequest, MaxBatchSize, len(reqs))
	}
	for i := range reqs {
		if err := validateFragmentRequest(&reqs[i]); err != nil {
			return nil, fmt.Errorf("molecule %d: %w", i, err)
		}
	}
	body := struct {
		Molecules []FragmentRequest `json:"molecules"`
	}{Molecules: reqs}

	var out BatchResult
	if err := c.post(ctx, "/api/v1/fragments/batch", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rules lists the rules the server supports.
func (c *Client) Rules(ctx context.Context) ([]Rule, error) {
	var out struct {
		Rules []Rule `json:"rules"`
	}
	if err := c.get(ctx, "/api/v1/rules", &out); err != nil {
		return nil, err
	}
	return out.Rules, nil
}

// Ready reports whether the server and its dependencies are ready.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(ctx, "/readyz", nil)
}

func validateFragmentRequest(req *FragmentRequest) error {
	if req == nil || strings.TrimSpace(req.SMILES) == "" {
		return fmt.Errorf("%w: smiles is required", ErrInvalidRequest)
	}
	return nil
}
