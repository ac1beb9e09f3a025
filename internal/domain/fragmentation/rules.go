package fragmentation

import (
	"github.com/turtacn/molfrag/internal/domain/molecule"
)

// ruleHandler rewrites one pattern match into zero or more fragment sets.
// Handlers fill Site and Fragments; the driver stamps the rule.
type ruleHandler func(g *molecule.Graph, match []molecule.AtomID) ([]FragmentSet, error)

type ruleEntry struct {
	pattern molecule.Pattern
	handle  ruleHandler
}

var (
	elemC = []string{"C"}
	elemO = []string{"O"}
	elemP = []string{"P"}
)

// protic matches an atom that can give up a proton or already has.
func protic(g *molecule.Graph, id molecule.AtomID) bool {
	return g.HydrogenCount(id) > 0 || g.Charge(id) < 0
}

// ruleTable is the single dispatch point from rule to pattern and rewrite.
var ruleTable = map[Rule]ruleEntry{
	RuleCOD: {
		// C-O where the oxygen carries nothing heavy besides the carbon.
		pattern: molecule.Pattern{
			Name: string(RuleCOD),
			Atoms: []molecule.AtomQuery{
				{Elements: elemC},
				{Elements: elemO, Where: func(g *molecule.Graph, id molecule.AtomID) bool {
					return g.HeavyDegree(id) == 1 && protic(g, id)
				}},
			},
			Bonds: []molecule.BondQuery{{A: 0, B: 1, Order: 1}},
		},
		handle: dumpEachCarbonNeighbor,
	},
	RuleCODOO: {
		// C-O-O: the peroxide half is the appendage.
		pattern: molecule.Pattern{
			Name: string(RuleCODOO),
			Atoms: []molecule.AtomQuery{
				{Elements: elemC},
				{Elements: elemO, Where: func(g *molecule.Graph, id molecule.AtomID) bool {
					return g.HeavyDegree(id) == 2
				}},
				{Elements: elemO},
			},
			Bonds: []molecule.BondQuery{{A: 0, B: 1, Order: 1}, {A: 1, B: 2, Order: 1}},
		},
		handle: dumpEachCarbonNeighbor,
	},
	RuleOXE: {
		pattern: molecule.Pattern{
			Name:  string(RuleOXE),
			Atoms: []molecule.AtomQuery{{Elements: elemC}, {Elements: elemO}},
			Bonds: []molecule.BondQuery{{A: 0, B: 1, Order: 1}},
		},
		handle: func(g *molecule.Graph, m []molecule.AtomID) ([]FragmentSet, error) {
			frags, err := carbonOxygenESteal(g, m[0], m[1])
			if err != nil {
				return nil, err
			}
			return []FragmentSet{{Site: m, Fragments: frags}}, nil
		},
	},
	RuleOXEPD: {
		// P-O-C; the P-O bond is the one that breaks.
		pattern: molecule.Pattern{
			Name:  string(RuleOXEPD),
			Atoms: []molecule.AtomQuery{{Elements: elemP}, {Elements: elemO}, {Elements: elemC}},
			Bonds: []molecule.BondQuery{{A: 0, B: 1, Order: 1}, {A: 1, B: 2, Order: 1}},
		},
		handle: func(g *molecule.Graph, m []molecule.AtomID) ([]FragmentSet, error) {
			frags, err := carbonOxygenESteal(g, m[0], m[1])
			if err != nil {
				return nil, err
			}
			return []FragmentSet{{Site: m, Fragments: normalizeDative(frags)}}, nil
		},
	},
	RuleOXH: {
		// C(H)-[C,O]-O: the oxygen leaves, the hydrogen-bearing carbon
		// ends up double bonded to the center.
		pattern: molecule.Pattern{
			Name: string(RuleOXH),
			Atoms: []molecule.AtomQuery{
				{Elements: elemC, MinHydrogens: 1},
				{Elements: []string{"C", "O"}},
				{Elements: elemO},
			},
			Bonds: []molecule.BondQuery{{A: 0, B: 1, Order: 1}, {A: 1, B: 2, Order: 1}},
		},
		handle: func(g *molecule.Graph, m []molecule.AtomID) ([]FragmentSet, error) {
			frags, err := breakWithDoubleBond(g, m[2], m[1], m[0])
			if err != nil {
				return nil, err
			}
			return []FragmentSet{{Site: m, Fragments: frags}}, nil
		},
	},
	RuleOXHPD: {
		// C(H)-O-P-O(H or -): the ester oxygen leaves and takes the proton
		// (or charge) of the far oxygen, which becomes P=O.
		pattern: molecule.Pattern{
			Name: string(RuleOXHPD),
			Atoms: []molecule.AtomQuery{
				{Elements: elemC, MinHydrogens: 1},
				{Elements: elemO},
				{Elements: elemP},
				{Elements: elemO, Where: protic},
			},
			Bonds: []molecule.BondQuery{
				{A: 0, B: 1, Order: 1},
				{A: 1, B: 2, Order: 1},
				{A: 2, B: 3, Order: 1},
			},
		},
		handle: func(g *molecule.Graph, m []molecule.AtomID) ([]FragmentSet, error) {
			frags, err := breakWithDoubleBond(g, m[1], m[2], m[3])
			if err != nil {
				return nil, err
			}
			return []FragmentSet{{Site: m, Fragments: normalizeDative(frags)}}, nil
		},
	},
}

// dumpEachCarbonNeighbor applies the carbonyl-oxygen dump once per carbon
// bonded to the matched carbon, in identifier order.
func dumpEachCarbonNeighbor(g *molecule.Graph, m []molecule.AtomID) ([]FragmentSet, error) {
	c, o := m[0], m[1]
	var out []FragmentSet
	for _, nb := range g.HeavyNeighbors(c) {
		if a, _ := g.Atom(nb); a.Element != "C" {
			continue
		}
		frags, err := carbonylOxygenDump(g, c, o, nb)
		if err != nil {
			return nil, err
		}
		site := append(append([]molecule.AtomID(nil), m...), nb)
		out = append(out, FragmentSet{Site: site, Fragments: frags})
	}
	return out, nil
}
