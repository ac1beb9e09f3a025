// Package fragmentation provides the application-level fragmentation service
// shared by the CLI, the REST API and the Kafka worker. It turns a SMILES
// request into a response and optionally memoises responses in a cache.
package fragmentation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/molfrag/internal/config"
	domainFrag "github.com/turtacn/molfrag/internal/domain/fragmentation"
	"github.com/turtacn/molfrag/internal/domain/molecule"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molfrag/pkg/errors"
)

// Service defines the fragmentation use cases.
type Service interface {
	Fragment(ctx context.Context, req *FragmentRequest) (*FragmentResponse, error)
	Rules() []RuleInfo
}

// FragmentRequest asks for the fragments of one molecule. Zero-valued options
// fall back to the configured defaults.
type FragmentRequest struct {
	SMILES      string   `json:"smiles"`
	Rules       []string `json:"rules,omitempty"`
	ErrorPolicy string   `json:"error_policy,omitempty"`
	UniqueOnly  bool     `json:"unique_only,omitempty"`
	PH          *float64 `json:"ph,omitempty"`
	Parallel    bool     `json:"parallel,omitempty"`
	// Source labels metrics: cli, api or worker.
	Source string `json:"-"`
}

// MoleculeView is the serialisable summary of one structure.
type MoleculeView struct {
	SMILES    string  `json:"smiles"`
	Formula   string  `json:"formula"`
	ExactMass float64 `json:"exact_mass"`
	Charge    int     `json:"charge"`
}

// FragmentSetView is one accepted fragment set.
type FragmentSetView struct {
	Rule      string         `json:"rule"`
	Site      []int          `json:"site"`
	Fragments []MoleculeView `json:"fragments"`
}

// FragmentResponse carries the accepted fragment sets of a request.
type FragmentResponse struct {
	RequestID  string            `json:"request_id"`
	Input      MoleculeView      `json:"input"`
	Normalized string            `json:"normalized"`
	Rules      []string          `json:"rules"`
	Sets       []FragmentSetView `json:"sets"`
	Rejected   int               `json:"rejected"`
	Cached     bool              `json:"cached"`
	ElapsedMS  float64           `json:"elapsed_ms"`
}

// RuleInfo describes one rule of the catalog.
type RuleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ResultCache memoises responses. The Redis cache satisfies it; a miss is
// reported as a NotFound error.
type ResultCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// Option customises the service.
type Option func(*serviceImpl)

// WithCache enables response caching for ttl (0 uses the cache default).
func WithCache(cache ResultCache, ttl time.Duration) Option {
	return func(s *serviceImpl) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithMetrics records request and cache metrics.
func WithMetrics(m *prometheus.FragmentationMetrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

type serviceImpl struct {
	fragmenter *domainFrag.Fragmenter
	defaults   config.FragmentationConfig
	cache      ResultCache
	cacheTTL   time.Duration
	metrics    *prometheus.FragmentationMetrics
	logger     logging.Logger
}

// NewService creates the fragmentation application service.
func NewService(fragmenter *domainFrag.Fragmenter, defaults config.FragmentationConfig, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		fragmenter: fragmenter,
		defaults:   defaults,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) Rules() []RuleInfo {
	rules := domainFrag.AllRules()
	out := make([]RuleInfo, len(rules))
	for i, r := range rules {
		out[i] = RuleInfo{Name: string(r), Description: r.Description()}
	}
	return out
}

func (s *serviceImpl) Fragment(ctx context.Context, req *FragmentRequest) (resp *FragmentResponse, err error) {
	start := time.Now()
	source := "api"
	if req != nil && req.Source != "" {
		source = req.Source
	}
	timer := s.metrics.FragmentTimer(source)
	defer func() {
		timer.ObserveDuration()
		s.metrics.RecordFragmentation(source, err)
	}()

	if req == nil || strings.TrimSpace(req.SMILES) == "" {
		return nil, errors.New(errors.ErrCodeValidation, "smiles is required")
	}
	opts, err := s.resolveOptions(req)
	if err != nil {
		return nil, err
	}

	resp, err = s.fragmentCached(ctx, strings.TrimSpace(req.SMILES), opts)
	if err != nil {
		s.logger.Warn("fragmentation request failed",
			logging.String("smiles", req.SMILES),
			logging.String("source", source),
			logging.Err(err))
		return nil, err
	}
	resp.RequestID = uuid.NewString()
	resp.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000
	s.logger.Info("fragmentation request served",
		logging.String("request_id", resp.RequestID),
		logging.String("source", source),
		logging.Int("sets", len(resp.Sets)),
		logging.Bool("cached", resp.Cached))
	return resp, nil
}

// resolveOptions merges req over the configured defaults and validates the
// result, so that unknown rules and the fix policy fail before any parsing.
func (s *serviceImpl) resolveOptions(req *FragmentRequest) (domainFrag.Options, error) {
	names := req.Rules
	if len(names) == 0 {
		names = s.defaults.Rules
	}
	rules, err := domainFrag.ParseRules(names)
	if err != nil {
		return domainFrag.Options{}, err
	}

	policyName := req.ErrorPolicy
	if policyName == "" {
		policyName = s.defaults.ErrorPolicy
	}
	policy, err := domainFrag.ParseErrorPolicy(policyName)
	if err != nil {
		return domainFrag.Options{}, err
	}

	ph := s.defaults.PH
	if req.PH != nil {
		ph = *req.PH
	}
	if ph == 0 && req.PH == nil {
		ph = molecule.DefaultPhysiologicalPH
	}

	opts := domainFrag.Options{
		Rules:       rules,
		ErrorPolicy: policy,
		UniqueOnly:  req.UniqueOnly || s.defaults.UniqueOnly,
		PH:          ph,
		Parallel:    req.Parallel || s.defaults.Parallel,
	}
	if err := opts.Validate(); err != nil {
		return domainFrag.Options{}, err
	}
	return opts, nil
}

func (s *serviceImpl) fragmentCached(ctx context.Context, smiles string, opts domainFrag.Options) (*FragmentResponse, error) {
	if s.cache == nil {
		return s.compute(ctx, smiles, opts)
	}

	var (
		computed bool
		cached   FragmentResponse
	)
	key := CacheKey(smiles, opts)
	err := s.cache.GetOrSet(ctx, key, &cached, s.cacheTTL, func(ctx context.Context) (interface{}, error) {
		computed = true
		resp, err := s.compute(ctx, smiles, opts)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	switch {
	case err != nil && !isCacheFailure(err):
		// Callers sharing an in-flight load see the loader's error too.
		return nil, err
	case err != nil:
		// The cache is an optimisation; a broken cache never fails a request.
		s.metrics.RecordCacheAccess("error")
		s.logger.Warn("result cache unavailable", logging.String("key", key), logging.Err(err))
		return s.compute(ctx, smiles, opts)
	case computed:
		s.metrics.RecordCacheAccess("miss")
	default:
		s.metrics.RecordCacheAccess("hit")
		cached.Cached = true
	}
	return &cached, nil
}

// isCacheFailure reports whether err came from the cache itself rather than
// from computing the response.
func isCacheFailure(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeCacheError, errors.ErrCodeSerialization, errors.ErrCodeNotFound, errors.CodeUnknown:
		return true
	}
	return false
}

func (s *serviceImpl) compute(ctx context.Context, smiles string, opts domainFrag.Options) (*FragmentResponse, error) {
	g, err := molecule.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	input := viewOf(g)

	report, err := s.fragmenter.FragmentWithReport(ctx, g, opts)
	if err != nil {
		return nil, err
	}

	resp := &FragmentResponse{
		Input:      input,
		Normalized: report.Normalized,
		Rules:      ruleNames(opts.Rules),
		Sets:       make([]FragmentSetView, 0, len(report.Accepted)),
		Rejected:   len(report.Rejected),
	}
	for _, set := range report.Accepted {
		view := FragmentSetView{
			Rule:      string(set.Rule),
			Site:      make([]int, len(set.Site)),
			Fragments: make([]MoleculeView, len(set.Fragments)),
		}
		for i, id := range set.Site {
			view.Site[i] = int(id)
		}
		for i, f := range set.Fragments {
			view.Fragments[i] = viewOf(f)
		}
		resp.Sets = append(resp.Sets, view)
	}
	return resp, nil
}

func viewOf(g *molecule.Graph) MoleculeView {
	return MoleculeView{
		SMILES:    g.SMILES(),
		Formula:   g.Formula(),
		ExactMass: g.ExactMass(),
		Charge:    g.TotalCharge(),
	}
}

// ruleNames lists the requested rules in catalog order.
func ruleNames(rules []domainFrag.Rule) []string {
	want := make(map[domainFrag.Rule]bool, len(rules))
	for _, r := range rules {
		want[r] = true
	}
	var out []string
	for _, r := range domainFrag.AllRules() {
		if want[r] {
			out = append(out, string(r))
		}
	}
	return out
}

// CacheKey derives the cache key of a request from everything that affects
// its output. Rule order and Parallel do not.
func CacheKey(smiles string, opts domainFrag.Options) string {
	raw := fmt.Sprintf("%s|%s|%s|%t|%.4f",
		strings.TrimSpace(smiles),
		strings.Join(ruleNames(opts.Rules), ","),
		opts.ErrorPolicy,
		opts.UniqueOnly,
		opts.PH)
	sum := sha256.Sum256([]byte(raw))
	return CacheKeyPrefix + hex.EncodeToString(sum[:])
}

// CacheKeyPrefix starts every key CacheKey returns.
const CacheKeyPrefix = "fragments:"

// CachePurger deletes cached entries by key prefix.
type CachePurger interface {
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// PurgeCache drops every cached fragmentation response, for use after a rule
// or chemistry change has made them stale. It returns how many were removed.
func PurgeCache(ctx context.Context, p CachePurger) (int64, error) {
	n, err := p.DeleteByPrefix(ctx, CacheKeyPrefix)
	if err != nil {
		return n, errors.Wrap(err, errors.ErrCodeCacheError, "purge cached fragment results")
	}
	return n, nil
}
