package fragmentation

import (
	"fmt"

	"github.com/turtacn/molfrag/internal/domain/molecule"
	pkgerrors "github.com/turtacn/molfrag/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Transformation primitives
//
// Every primitive works on a private duplicate of its input, never on the
// caller's graph, and returns the duplicate's connected components.
// ─────────────────────────────────────────────────────────────────────────────

// duplicateWithCorrespondence copies g and returns the copy's counterparts of
// atoms. Identifiers are stable across Duplicate, so the mapping only has to
// confirm every atom made it across.
func duplicateWithCorrespondence(g *molecule.Graph, atoms ...molecule.AtomID) (*molecule.Graph, []molecule.AtomID, error) {
	dup := g.Duplicate()
	mapped := make([]molecule.AtomID, len(atoms))
	for i, id := range atoms {
		if !dup.HasAtom(id) {
			return nil, nil, pkgerrors.GraphOperation("duplicate", fmt.Sprintf("atom %d has no counterpart in the copy", id))
		}
		mapped[i] = id
	}
	return dup, mapped, nil
}

// breakWithDoubleBond detaches leaving from center and raises the
// center-retaining bond by one. The retaining atom hands one hydrogen (or,
// lacking one, a negative charge) to the leaving atom.
func breakWithDoubleBond(g *molecule.Graph, leaving, center, retaining molecule.AtomID) ([]*molecule.Graph, error) {
	dup, ids, err := duplicateWithCorrespondence(g, leaving, center, retaining)
	if err != nil {
		return nil, err
	}
	leaving, center, retaining = ids[0], ids[1], ids[2]

	if err := dup.DeleteBond(leaving, center); err != nil {
		return nil, err
	}
	order, ok := dup.BondOrder(center, retaining)
	if !ok {
		return nil, pkgerrors.GraphOperation("break_with_double_bond",
			fmt.Sprintf("no bond between center %d and retaining atom %d", center, retaining))
	}
	if err := dup.SetBondOrder(center, retaining, order+1); err != nil {
		return nil, err
	}
	if err := transferProton(dup, retaining, leaving); err != nil {
		return nil, err
	}
	return dup.Components(), nil
}

// carbonylOxygenDump cuts carbon from neighbor and turns carbon-oxygen into a
// carbonyl. Whatever oxygen carried besides carbon (a heavy substituent, or
// else a hydrogen) moves onto neighbor, and so does oxygen's charge.
func carbonylOxygenDump(g *molecule.Graph, carbon, oxygen, neighbor molecule.AtomID) ([]*molecule.Graph, error) {
	dup, ids, err := duplicateWithCorrespondence(g, carbon, oxygen, neighbor)
	if err != nil {
		return nil, err
	}
	carbon, oxygen, neighbor = ids[0], ids[1], ids[2]

	if err := dup.DeleteBond(carbon, neighbor); err != nil {
		return nil, err
	}

	moved := false
	for _, x := range dup.HeavyNeighbors(oxygen) {
		if x == carbon {
			continue
		}
		order, _ := dup.BondOrder(oxygen, x)
		if err := dup.DeleteBond(oxygen, x); err != nil {
			return nil, err
		}
		if err := dup.AddBond(neighbor, x, order); err != nil {
			return nil, err
		}
		moved = true
		break
	}
	if !moved {
		if h := dup.ImplicitHydrogens(oxygen); h > 0 {
			if err := dup.SetHydrogenCount(oxygen, h-1); err != nil {
				return nil, err
			}
			if err := dup.SetHydrogenCount(neighbor, dup.ImplicitHydrogens(neighbor)+1); err != nil {
				return nil, err
			}
		}
	}
	if q := dup.Charge(oxygen); q != 0 {
		if err := dup.SetCharge(neighbor, dup.Charge(neighbor)+q); err != nil {
			return nil, err
		}
		if err := dup.SetCharge(oxygen, 0); err != nil {
			return nil, err
		}
	}

	if err := dup.SetBondOrder(carbon, oxygen, 2); err != nil {
		return nil, err
	}
	return dup.Components(), nil
}

// carbonOxygenESteal cleaves carbon-oxygen heterolytically: carbon becomes a
// cation one hydrogen short of its neutral valence, oxygen keeps the pair
// and a negative charge.
func carbonOxygenESteal(g *molecule.Graph, carbon, oxygen molecule.AtomID) ([]*molecule.Graph, error) {
	dup, ids, err := duplicateWithCorrespondence(g, carbon, oxygen)
	if err != nil {
		return nil, err
	}
	carbon, oxygen = ids[0], ids[1]

	if err := dup.DeleteBond(carbon, oxygen); err != nil {
		return nil, err
	}
	if err := dup.SetCharge(carbon, dup.Charge(carbon)+1); err != nil {
		return nil, err
	}
	if err := dup.SetCharge(oxygen, dup.Charge(oxygen)-1); err != nil {
		return nil, err
	}
	return dup.Components(), nil
}

// transferProton moves one implicit hydrogen from donor to acceptor. A donor
// without hydrogens passes on a negative charge instead.
func transferProton(g *molecule.Graph, donor, acceptor molecule.AtomID) error {
	if h := g.ImplicitHydrogens(donor); h > 0 {
		if err := g.SetHydrogenCount(donor, h-1); err != nil {
			return err
		}
		return g.SetHydrogenCount(acceptor, g.ImplicitHydrogens(acceptor)+1)
	}
	if q := g.Charge(donor); q < 0 {
		if err := g.SetCharge(donor, q+1); err != nil {
			return err
		}
		return g.SetCharge(acceptor, g.Charge(acceptor)-1)
	}
	return pkgerrors.GraphOperation("transfer_proton",
		fmt.Sprintf("atom %d has neither a hydrogen nor a negative charge to give", donor))
}

// normalizeDative applies dative bond normalisation to every fragment.
func normalizeDative(fragments []*molecule.Graph) []*molecule.Graph {
	for _, f := range fragments {
		f.ConvertDativeBonds()
	}
	return fragments
}
