package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfrag/pkg/errors"
)

func hydrogens(g *Graph) []int {
	var out []int
	for _, a := range g.Atoms() {
		out = append(out, a.HCount)
	}
	return out
}

func TestParseSMILES_ImplicitHydrogens(t *testing.T) {
	cases := []struct {
		smiles string
		want   []int
	}{
		{"CCO", []int{3, 2, 1}},
		{"C=C", []int{2, 2}},
		{"C#N", []int{1, 0}},
		{"CC(=O)O", []int{3, 0, 0, 1}},
		{"OP(=O)(O)O", []int{1, 0, 0, 1, 1}},
		{"CS(=O)(=O)C", []int{3, 0, 0, 0, 3}},
		{"ClCBr", []int{0, 2, 0}},
		{"NCC(O)CC", []int{2, 2, 1, 1, 2, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.smiles, func(t *testing.T) {
			g, err := ParseSMILES(tc.smiles)
			require.NoError(t, err)
			assert.Equal(t, tc.want, hydrogens(g))
		})
	}
}

func TestParseSMILES_BracketAtoms(t *testing.T) {
	g, err := ParseSMILES("[13CH3+]")
	require.NoError(t, err)
	a, _ := g.Atom(0)
	assert.Equal(t, Atom{ID: 0, Element: "C", Charge: 1, HCount: 3, Isotope: 13}, a)

	cases := map[string]struct {
		charge, h int
		element   string
	}{
		"[O-]":      {-1, 0, "O"},
		"[O--]":     {-2, 0, "O"},
		"[Fe+2]":    {2, 0, "Fe"},
		"[NH4+]":    {1, 4, "N"},
		"[C@@H](C)": {0, 1, "C"},
		"[Na+:1]":   {1, 0, "Na"},
		"[Cl-]":     {-1, 0, "Cl"},
		"[H]":       {0, 0, "H"},
		"[P+]":      {1, 0, "P"},
	}
	for smiles, want := range cases {
		g, err := ParseSMILES(smiles)
		require.NoError(t, err, smiles)
		a, _ := g.Atom(0)
		assert.Equal(t, want.element, a.Element, smiles)
		assert.Equal(t, want.charge, a.Charge, smiles)
		assert.Equal(t, want.h, a.HCount, smiles)
	}
}

func TestParseSMILES_Rings(t *testing.T) {
	g, err := ParseSMILES("C1CC1")
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumBonds())
	assert.Equal(t, []int{2, 2, 2}, hydrogens(g))

	g, err = ParseSMILES("C=1CC1")
	require.NoError(t, err)
	order, ok := g.BondOrder(0, 2)
	require.True(t, ok)
	assert.Equal(t, 2, order)

	g, err = ParseSMILES("C%12CC%12")
	require.NoError(t, err)
	_, ok = g.BondOrder(0, 2)
	assert.True(t, ok)
}

func TestParseSMILES_TitleIgnored(t *testing.T) {
	g, err := ParseSMILES("CCO ethanol")
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumAtoms())
}

func TestParseSMILES_Errors(t *testing.T) {
	bad := []string{
		"",
		"c1ccccc1",
		"C(C",
		"C)C",
		"C1CC",
		"[Xx]",
		"C==C",
		"[C",
		"C%1",
		"=C",
		"C=",
		"C.=C",
		"Xe",
		"C:C",
		"C=1CC#1",
		"[CH3+]x",
		"C11",
	}
	for _, s := range bad {
		_, err := ParseSMILES(s)
		require.Error(t, err, s)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES), s)
	}
}

func TestMustParseSMILES_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseSMILES("C(") })
}

func TestSMILES_Writer(t *testing.T) {
	cases := map[string]string{
		"CCO":           "CCO",
		"OCC":           "CCO",
		"CC(=O)[O-]":    "CC(=O)[O-]",
		"C1CC1":         "C1CC1",
		"CC(C)C":        "CC(C)C",
		"C[NH3+]":       "C[NH3+]",
		"[NH3+]C":       "C[NH3+]",
		"CC.O":          "CC.O",
		"C#N":           "C#N",
		"O=C=O":         "O=C=O",
		"[13CH4]":       "[13CH4]",
		"[Fe+2]":        "[Fe+2]",
		"[O--]":         "[O-2]",
		"NCC(O)CC":      "CCC(CN)O",
		"C=1CC1":        "C=1CC1",
		"OCCO[P](=O)=O": "OCCOP(=O)=O",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, MustParseSMILES(in).SMILES())
		})
	}
}

func TestSMILES_RoundTripPreservesStructure(t *testing.T) {
	for _, s := range []string{"CC(=O)OCC[NH3+]", "C1CCC2CC2C1", "O=P([O-])(OC)OCC[N+](C)(C)C", "[2H]C"} {
		g := MustParseSMILES(s)
		back := MustParseSMILES(g.SMILES())
		assert.Equal(t, g.Formula(), back.Formula(), s)
		assert.Equal(t, g.TotalCharge(), back.TotalCharge(), s)
		assert.Equal(t, g.NumBonds(), back.NumBonds(), s)
	}
}

func TestSMILES_RadicalCarbocation(t *testing.T) {
	g := NewGraph()
	c1, _ := g.AddAtom(Atom{Element: "C", HCount: 3})
	c2, _ := g.AddAtom(Atom{Element: "C", HCount: 2, Charge: 1})
	require.NoError(t, g.AddBond(c1, c2, 1))
	assert.Equal(t, "C[CH2+]", g.SMILES())
	assert.Equal(t, "C[CH2+]", g.String())
}
