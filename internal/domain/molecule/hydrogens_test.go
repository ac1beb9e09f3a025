package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRemoveHydrogens_RoundTrip(t *testing.T) {
	g := MustParseSMILES("CCO")
	assert.False(t, g.HasExplicitHydrogens())

	g.AddHydrogens()
	assert.True(t, g.HasExplicitHydrogens())
	assert.Equal(t, 9, g.NumAtoms())
	assert.Equal(t, 9, g.AtomCount(true))
	assert.Equal(t, 3, g.HydrogenCount(0))
	assert.Equal(t, 0, g.ImplicitHydrogens(0))

	g.RemoveHydrogens()
	assert.False(t, g.HasExplicitHydrogens())
	assert.Equal(t, 3, g.NumAtoms())
	assert.Equal(t, []int{3, 2, 1}, hydrogens(g))
	assert.Equal(t, "CCO", g.SMILES())
}

func TestRemoveHydrogens_FoldsBracketHydrogens(t *testing.T) {
	g := MustParseSMILES("[H]C([H])([H])[H]")
	assert.True(t, g.HasExplicitHydrogens())

	g.RemoveHydrogens()
	assert.Equal(t, 1, g.NumAtoms())
	assert.Equal(t, "CH4", g.Formula())
}

func TestRemoveHydrogens_KeepsSpecialHydrogens(t *testing.T) {
	cases := map[string]int{
		"[2H]C":  2, // isotope
		"[H+]":   1, // charged and unbonded
		"[H][H]": 2,
	}
	for smiles, atoms := range cases {
		g := MustParseSMILES(smiles)
		g.RemoveHydrogens()
		assert.Equal(t, atoms, g.NumAtoms(), smiles)
	}
}

func TestHydrogenState_Restore(t *testing.T) {
	g := MustParseSMILES("NCC(=O)O")
	snap := g.HydrogenState()

	g.CorrectForPH(DefaultPhysiologicalPH)
	require.Equal(t, 1, g.Charge(0))
	require.Equal(t, -1, g.Charge(4))

	g.RestoreHydrogenState(snap)
	assert.Equal(t, 0, g.TotalCharge())
	assert.Equal(t, "NCC(=O)O", g.SMILES())
}

func TestHydrogenState_SkipsDeletedAtoms(t *testing.T) {
	g := MustParseSMILES("CO")
	snap := g.HydrogenState()
	require.NoError(t, g.DeleteAtom(1))
	g.RestoreHydrogenState(snap)
	assert.Equal(t, 1, g.NumAtoms())
}

func TestHydrogenState_RestoresExplicitHydrogens(t *testing.T) {
	g := MustParseSMILES("CO")
	g.AddHydrogens()
	ids := g.AtomIDs()
	bonds := g.Bonds()
	snap := g.HydrogenState()

	g.RemoveHydrogens()
	g.CorrectForPH(DefaultPhysiologicalPH)
	g.AddHydrogens()
	require.NotEqual(t, ids, g.AtomIDs())

	g.RestoreHydrogenState(snap)
	assert.Equal(t, ids, g.AtomIDs())
	assert.Equal(t, bonds, g.Bonds())
	assert.True(t, g.HasExplicitHydrogens())
}

func TestHydrogenState_RewindsIdentifierCounter(t *testing.T) {
	g := MustParseSMILES("CO")
	snap := g.HydrogenState()
	g.AddHydrogens()
	require.Greater(t, g.NumAtoms(), 2)

	g.RestoreHydrogenState(snap)
	id, err := g.AddAtom(Atom{Element: "C"})
	require.NoError(t, err)
	assert.Equal(t, AtomID(2), id)
}
