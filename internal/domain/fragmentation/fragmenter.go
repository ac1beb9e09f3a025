// Package fragmentation predicts bond-cleavage products of a molecule by
// applying a fixed catalog of rewrite rules to its graph. Each rule pairs a
// substructure pattern with a rewrite run on a private copy of the molecule;
// the resulting fragment sets are checked for atom conservation and filtered
// by an error policy.
package fragmentation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/molfrag/internal/domain/molecule"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/prometheus"
	pkgerrors "github.com/turtacn/molfrag/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Report
// ─────────────────────────────────────────────────────────────────────────────

// Report is the full outcome of one fragmentation run.
type Report struct {
	// Normalized is the SMILES the rules were matched against, after
	// protonation and hydrogen stripping.
	Normalized string
	Accepted   []FragmentSet
	// Rejected holds sets dropped by PolicyRemove.
	Rejected []FragmentSet
	Duration time.Duration
}

// ─────────────────────────────────────────────────────────────────────────────
// Fragmenter
// ─────────────────────────────────────────────────────────────────────────────

// Fragmenter runs the rule catalog over molecules. It holds no per-call state
// and is safe for concurrent use on distinct graphs.
type Fragmenter struct {
	logger  logging.Logger
	metrics *prometheus.FragmentationMetrics
}

// FragmenterOption customises a Fragmenter.
type FragmenterOption func(*Fragmenter)

// WithMetrics records per-rule fragment set counts.
func WithMetrics(m *prometheus.FragmentationMetrics) FragmenterOption {
	return func(f *Fragmenter) { f.metrics = m }
}

// NewFragmenter creates a Fragmenter. A nil logger is replaced by a no-op one.
func NewFragmenter(logger logging.Logger, opts ...FragmenterOption) *Fragmenter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	f := &Fragmenter{logger: logger.Named("fragmenter")}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fragment returns the accepted fragment sets for g.
func (f *Fragmenter) Fragment(ctx context.Context, g *molecule.Graph, opts Options) ([]FragmentSet, error) {
	report, err := f.FragmentWithReport(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	return report.Accepted, nil
}

// FragmentWithReport runs every requested rule against g and applies the
// error policy.
//
// Options are validated before g is touched. Inputs without explicit
// hydrogens are protonated for opts.PH; matching always happens on the
// hydrogen-implicit form. Whatever the outcome, g leaves with the hydrogen
// layout it came in with.
func (f *Fragmenter) FragmentWithReport(ctx context.Context, g *molecule.Graph, opts Options) (*Report, error) {
	if g == nil {
		return nil, pkgerrors.InvalidParam("nil molecule")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rules := opts.orderedRules()
	start := time.Now()

	// Normalizing
	hadExplicit := g.HasExplicitHydrogens()
	snapshot := g.HydrogenState()
	defer g.RestoreHydrogenState(snapshot)

	if !hadExplicit {
		g.AddHydrogens()
		if n := g.CorrectForPH(opts.PH); n > 0 {
			f.logger.Debug("protonation adjusted", logging.Int("atoms", n), logging.Float64("ph", opts.PH))
		}
	}
	g.RemoveHydrogens()
	normalized := g.SMILES()

	// Matching and rewriting
	sets, err := f.collect(ctx, g, rules, opts)
	if err != nil {
		f.logger.Warn("fragmentation failed", logging.String("molecule", normalized), logging.Err(err))
		return nil, err
	}

	// Validating
	accepted, rejected, err := ApplyPolicy(g, sets, opts.ErrorPolicy)
	if err != nil {
		return nil, err
	}
	f.record(rules, accepted, rejected)

	report := &Report{
		Normalized: normalized,
		Accepted:   accepted,
		Rejected:   rejected,
		Duration:   time.Since(start),
	}
	f.logger.Debug("fragmentation complete",
		logging.String("molecule", normalized),
		logging.Int("accepted", len(accepted)),
		logging.Int("rejected", len(rejected)),
		logging.Duration("duration", report.Duration))
	return report, nil
}

// collect runs rules in order, or concurrently with one buffer per rule.
func (f *Fragmenter) collect(ctx context.Context, g *molecule.Graph, rules []Rule, opts Options) ([]FragmentSet, error) {
	buffers := make([][]FragmentSet, len(rules))

	if opts.Parallel && len(rules) > 1 {
		eg, egCtx := errgroup.WithContext(ctx)
		for i, r := range rules {
			i, r := i, r
			eg.Go(func() error {
				sets, err := f.applyRule(egCtx, g, r, opts.UniqueOnly)
				if err != nil {
					return err
				}
				buffers[i] = sets
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, r := range rules {
			sets, err := f.applyRule(ctx, g, r, opts.UniqueOnly)
			if err != nil {
				return nil, err
			}
			buffers[i] = sets
		}
	}

	var out []FragmentSet
	for _, b := range buffers {
		out = append(out, b...)
	}
	return out, nil
}

// applyRule matches rule's pattern on g and rewrites each match. g is only
// read.
func (f *Fragmenter) applyRule(ctx context.Context, g *molecule.Graph, rule Rule, unique bool) ([]FragmentSet, error) {
	entry, ok := ruleTable[rule]
	if !ok {
		return nil, pkgerrors.InvalidRule(string(rule))
	}
	matches, err := g.Matches(entry.pattern, unique)
	if err != nil {
		return nil, err
	}

	var out []FragmentSet
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeFragmentationAbort, "fragmentation cancelled")
		}
		sets, err := entry.handle(g, m)
		if err != nil {
			return nil, err
		}
		for i := range sets {
			sets[i].Rule = rule
		}
		out = append(out, sets...)
	}
	f.logger.Debug("rule applied",
		logging.String("rule", string(rule)),
		logging.Int("matches", len(matches)),
		logging.Int("sets", len(out)))
	return out, nil
}

func (f *Fragmenter) record(rules []Rule, accepted, rejected []FragmentSet) {
	if f.metrics == nil {
		return
	}
	acc := make(map[Rule]int, len(rules))
	rej := make(map[Rule]int, len(rules))
	for _, s := range accepted {
		acc[s.Rule]++
	}
	for _, s := range rejected {
		rej[s.Rule]++
	}
	for _, r := range rules {
		f.metrics.RecordFragmentSets(string(r), acc[r], rej[r])
	}
}
