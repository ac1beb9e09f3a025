package fragmentation

import (
	"github.com/turtacn/molfrag/internal/domain/molecule"
	pkgerrors "github.com/turtacn/molfrag/pkg/errors"
)

// FragmentSet is the output of one rule at one match site.
type FragmentSet struct {
	Rule Rule
	// Site is the matched atoms in pattern order; for cod and codoo the
	// ejected carbon neighbour is appended.
	Site      []molecule.AtomID
	Fragments []*molecule.Graph
}

// AtomCount sums the atom counts of the fragments, implicit hydrogens
// included.
func (s FragmentSet) AtomCount() int {
	n := 0
	for _, f := range s.Fragments {
		n += f.AtomCount(true)
	}
	return n
}

// SMILES returns the SMILES of every fragment in order.
func (s FragmentSet) SMILES() []string {
	out := make([]string, len(s.Fragments))
	for i, f := range s.Fragments {
		out[i] = f.SMILES()
	}
	return out
}

// Allowable reports whether set conserves the atoms of original.
func Allowable(original *molecule.Graph, set FragmentSet) bool {
	return set.AtomCount() == original.AtomCount(true)
}

// ApplyPolicy splits sets into accepted and rejected according to policy,
// preserving order. It never modifies sets, so applying it again to its own
// output gives the same result.
func ApplyPolicy(original *molecule.Graph, sets []FragmentSet, policy ErrorPolicy) (accepted, rejected []FragmentSet, err error) {
	switch policy {
	case PolicyIgnore:
		return append([]FragmentSet(nil), sets...), nil, nil
	case PolicyRemove, "":
		for _, s := range sets {
			if Allowable(original, s) {
				accepted = append(accepted, s)
			} else {
				rejected = append(rejected, s)
			}
		}
		return accepted, rejected, nil
	case PolicyFix:
		return nil, nil, errUnsupportedPolicy(policy)
	default:
		return nil, nil, pkgerrors.New(pkgerrors.ErrCodeValidation, "unknown error policy").WithDetail(string(policy))
	}
}
