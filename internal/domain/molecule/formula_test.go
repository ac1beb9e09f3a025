package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormula(t *testing.T) {
	cases := map[string]string{
		"C[CH2+]":      "C2H5",
		"[O-]CC[NH3+]": "C2H7NO",
		"O":            "H2O",
		"CCO":          "C2H6O",
		"ClCBr":        "CH2BrCl",
		"[Na+].[Cl-]":  "ClNa",
		"C":            "CH4",
		"[C]":          "C",
	}
	for smiles, want := range cases {
		assert.Equal(t, want, MustParseSMILES(smiles).Formula(), smiles)
	}
}

func TestExactMass(t *testing.T) {
	assert.InDelta(t, 29.03912516, MustParseSMILES("C[CH2+]").ExactMass(), 1e-6)
	assert.InDelta(t, 61.052763849, MustParseSMILES("[O-]CC[NH3+]").ExactMass(), 1e-6)
	assert.InDelta(t, 18.010564684, MustParseSMILES("O").ExactMass(), 1e-6)
}

func TestMolecularWeight(t *testing.T) {
	assert.InDelta(t, 18.01528, MustParseSMILES("O").MolecularWeight(), 1e-4)
}

func TestElementCounts_ExplicitHydrogens(t *testing.T) {
	g := MustParseSMILES("CO")
	before := g.ElementCounts()
	g.AddHydrogens()
	assert.Equal(t, before, g.ElementCounts())
	assert.Equal(t, 4, before["H"])
}
