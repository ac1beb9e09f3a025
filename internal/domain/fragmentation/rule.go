package fragmentation

import (
	"strings"

	pkgerrors "github.com/turtacn/molfrag/pkg/errors"
)

// Rule names one fragmentation mechanism.
type Rule string

const (
	// RuleCOD is the carbonyl-oxygen dump.
	RuleCOD Rule = "cod"
	// RuleCODOO is the carbonyl-oxygen dump across a peroxide.
	RuleCODOO Rule = "codoo"
	// RuleOXE is the oxygen electron steal.
	RuleOXE Rule = "oxe"
	// RuleOXEPD is the oxygen electron steal on a phosphodiester.
	RuleOXEPD Rule = "oxepd"
	// RuleOXH is the oxygen hydrogen steal.
	RuleOXH Rule = "oxh"
	// RuleOXHPD is the oxygen hydrogen steal on a phosphodiester.
	RuleOXHPD Rule = "oxhpd"
)

// AllRules returns every rule in application order.
func AllRules() []Rule {
	return []Rule{RuleCOD, RuleCODOO, RuleOXE, RuleOXEPD, RuleOXH, RuleOXHPD}
}

// IsValid reports whether r is one of the known rules.
func (r Rule) IsValid() bool {
	switch r {
	case RuleCOD, RuleCODOO, RuleOXE, RuleOXEPD, RuleOXH, RuleOXHPD:
		return true
	default:
		return false
	}
}

func (r Rule) String() string { return string(r) }

// Description returns a one-line summary of the mechanism.
func (r Rule) Description() string {
	switch r {
	case RuleCOD:
		return "carbonyl-oxygen dump: C-OH becomes C=O, ejecting a neighbouring carbon that takes the hydrogen or charge"
	case RuleCODOO:
		return "carbonyl-oxygen dump across a peroxide: the O-O substituent moves to the ejected carbon"
	case RuleOXE:
		return "oxygen electron steal: heterolytic C-O cleavage giving a carbocation and an alkoxide"
	case RuleOXEPD:
		return "phosphodiester electron steal: P-O cleavage followed by dative bond normalisation"
	case RuleOXH:
		return "oxygen hydrogen steal: elimination of an OH group with a neighbouring hydrogen, forming a double bond"
	case RuleOXHPD:
		return "phosphodiester hydrogen steal: O-P cleavage forming P=O, followed by dative bond normalisation"
	default:
		return ""
	}
}

var rulesByName = func() map[string]Rule {
	m := make(map[string]Rule)
	for _, r := range AllRules() {
		m[string(r)] = r
	}
	return m
}()

// ParseRule resolves a rule name, ignoring case and surrounding whitespace.
func ParseRule(name string) (Rule, error) {
	r, ok := rulesByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", pkgerrors.InvalidRule(name)
	}
	return r, nil
}

// ParseRules resolves every name, failing on the first unknown one.
func ParseRules(names []string) ([]Rule, error) {
	out := make([]Rule, 0, len(names))
	for _, n := range names {
		r, err := ParseRule(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
