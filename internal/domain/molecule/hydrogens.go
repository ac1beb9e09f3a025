package molecule

// HasExplicitHydrogens reports whether any hydrogen is stored as an atom.
func (g *Graph) HasExplicitHydrogens() bool {
	for _, a := range g.atoms {
		if a.IsHydrogen() {
			return true
		}
	}
	return false
}

// AddHydrogens converts every implicit hydrogen into an explicit H atom bonded
// to its parent. New atoms receive fresh identifiers.
func (g *Graph) AddHydrogens() {
	for _, id := range g.AtomIDs() {
		parent := g.atoms[id]
		for parent.HCount > 0 {
			hid, _ := g.AddAtom(Atom{Element: "H"})
			g.adj[id][hid] = 1
			g.adj[hid][id] = 1
			parent.HCount--
		}
	}
}

// RemoveHydrogens folds removable explicit hydrogens back into their parent's
// implicit count. A hydrogen is kept when it is charged, isotopically labelled,
// unbonded, or bonded to another hydrogen.
func (g *Graph) RemoveHydrogens() {
	for _, id := range g.AtomIDs() {
		h := g.atoms[id]
		if !h.IsHydrogen() || h.Charge != 0 || h.Isotope != 0 || len(g.adj[id]) != 1 {
			continue
		}
		var parent AtomID
		for nb := range g.adj[id] {
			parent = nb
		}
		if g.atoms[parent].IsHydrogen() || g.adj[id][parent] != 1 {
			continue
		}
		_ = g.DeleteAtom(id)
		g.atoms[parent].HCount++
	}
}

// HydrogenState is a snapshot of every heavy atom's charge and implicit
// hydrogen count together with the explicit hydrogens and their bonds. It is
// taken before normalisation and replayed afterwards.
type HydrogenState struct {
	heavy     map[AtomID]hydrogenEntry
	hydrogens map[AtomID]Atom
	bonds     map[AtomID]map[AtomID]int
	nextID    AtomID
}

type hydrogenEntry struct {
	Charge int
	HCount int
}

// HydrogenState captures the hydrogen layout of g.
func (g *Graph) HydrogenState() HydrogenState {
	s := HydrogenState{
		heavy:     make(map[AtomID]hydrogenEntry, len(g.atoms)),
		hydrogens: make(map[AtomID]Atom),
		bonds:     make(map[AtomID]map[AtomID]int),
		nextID:    g.nextID,
	}
	for id, a := range g.atoms {
		if !a.IsHydrogen() {
			s.heavy[id] = hydrogenEntry{Charge: a.Charge, HCount: a.HCount}
			continue
		}
		s.hydrogens[id] = *a
		nbs := make(map[AtomID]int, len(g.adj[id]))
		for nb, order := range g.adj[id] {
			nbs[nb] = order
		}
		s.bonds[id] = nbs
	}
	return s
}

// RestoreHydrogenState puts g back into the hydrogen layout recorded in s:
// explicit hydrogens added since are dropped, recorded ones are reinstated
// under their old identifiers, and heavy-atom charges and implicit counts are
// reset. The identifier counter is rewound so that atoms added afterwards get
// the ids they would have had. Atoms deleted since the snapshot are left alone.
func (g *Graph) RestoreHydrogenState(s HydrogenState) {
	for id, a := range g.atoms {
		if a.IsHydrogen() {
			_ = g.DeleteAtom(id)
		}
	}
	for _, h := range s.hydrogens {
		g.insertAtom(h)
	}
	for id, nbs := range s.bonds {
		for nb, order := range nbs {
			if g.HasAtom(nb) {
				g.adj[id][nb] = order
				g.adj[nb][id] = order
			}
		}
	}
	for id, e := range s.heavy {
		if a, ok := g.atoms[id]; ok {
			a.Charge = e.Charge
			a.HCount = e.HCount
		}
	}
	g.nextID = s.nextID
	for id := range g.atoms {
		if id >= g.nextID {
			g.nextID = id + 1
		}
	}
}

// addHydrogen attaches one hydrogen to id, explicitly when explicit is set.
func (g *Graph) addHydrogen(id AtomID, explicit bool) {
	if !explicit {
		g.atoms[id].HCount++
		return
	}
	hid, _ := g.AddAtom(Atom{Element: "H"})
	g.adj[id][hid] = 1
	g.adj[hid][id] = 1
}

// removeHydrogen detaches one hydrogen from id, preferring an explicit one.
func (g *Graph) removeHydrogen(id AtomID) bool {
	nbs := g.Neighbors(id)
	for i := len(nbs) - 1; i >= 0; i-- {
		if g.atoms[nbs[i]].IsHydrogen() && len(g.adj[nbs[i]]) == 1 {
			_ = g.DeleteAtom(nbs[i])
			return true
		}
	}
	if g.atoms[id].HCount > 0 {
		g.atoms[id].HCount--
		return true
	}
	return false
}
