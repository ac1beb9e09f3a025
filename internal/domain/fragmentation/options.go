package fragmentation

import (
	"fmt"
	"strings"

	"github.com/turtacn/molfrag/internal/domain/molecule"
	pkgerrors "github.com/turtacn/molfrag/pkg/errors"
)

// ErrorPolicy decides what happens to fragment sets that do not conserve
// atoms.
type ErrorPolicy string

const (
	// PolicyRemove drops non-conserving sets.
	PolicyRemove ErrorPolicy = "remove"
	// PolicyFix is reserved for repair logic and always rejected.
	PolicyFix ErrorPolicy = "fix"
	// PolicyIgnore keeps every set.
	PolicyIgnore ErrorPolicy = "ignore"
)

// ParseErrorPolicy resolves a policy name; the empty string means remove.
func ParseErrorPolicy(name string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PolicyRemove, nil
	case PolicyRemove, PolicyFix, PolicyIgnore:
		return p, nil
	default:
		return "", pkgerrors.New(pkgerrors.ErrCodeValidation, "unknown error policy").
			WithDetail(fmt.Sprintf("%q is not one of remove, fix, ignore", name))
	}
}

// Options configures one Fragment call.
type Options struct {
	Rules       []Rule
	ErrorPolicy ErrorPolicy
	// UniqueOnly drops pattern matches covering an atom set already matched.
	// No built-in rule pattern maps onto itself, so on acyclic molecules it
	// leaves the output unchanged; it only matters where a small ring lets one
	// atom set be matched twice.
	UniqueOnly bool
	// PH drives protonation of inputs given without explicit hydrogens.
	PH float64
	// Parallel evaluates rules concurrently. Output is identical to the
	// sequential run.
	Parallel bool
}

// DefaultOptions enables every rule with the remove policy at pH 7.4.
func DefaultOptions() Options {
	return Options{
		Rules:       AllRules(),
		ErrorPolicy: PolicyRemove,
		PH:          molecule.DefaultPhysiologicalPH,
	}
}

// Validate checks o before any work is done on a graph.
func (o Options) Validate() error {
	if len(o.Rules) == 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidRule, "no fragmentation rules requested")
	}
	for _, r := range o.Rules {
		if !r.IsValid() {
			return pkgerrors.InvalidRule(string(r))
		}
	}
	switch o.ErrorPolicy {
	case PolicyRemove, PolicyIgnore:
	case PolicyFix:
		return errUnsupportedPolicy(o.ErrorPolicy)
	default:
		return pkgerrors.New(pkgerrors.ErrCodeValidation, "unknown error policy").
			WithDetail(fmt.Sprintf("%q", o.ErrorPolicy))
	}
	if o.PH < 0 || o.PH > 14 {
		return pkgerrors.New(pkgerrors.ErrCodeValidation, "pH out of range").
			WithDetail(fmt.Sprintf("%g is outside [0, 14]", o.PH))
	}
	return nil
}

// orderedRules returns the requested rules without duplicates, in the order
// of AllRules.
func (o Options) orderedRules() []Rule {
	want := make(map[Rule]bool, len(o.Rules))
	for _, r := range o.Rules {
		want[r] = true
	}
	out := make([]Rule, 0, len(want))
	for _, r := range AllRules() {
		if want[r] {
			out = append(out, r)
		}
	}
	return out
}

func errUnsupportedPolicy(p ErrorPolicy) error {
	return pkgerrors.New(pkgerrors.ErrCodeUnsupportedPolicy, "error policy not supported").
		WithDetail(fmt.Sprintf("policy %q is not implemented", p))
}
