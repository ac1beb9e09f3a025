// Package molecule is the molecular graph engine used by the fragmentation
// rules: an undirected multigraph of atoms and bond orders with stable atom
// identifiers, implicit hydrogen counts, SMILES input and output, substructure
// matching, formula and mass calculation and a simple pH model.
//
// Identifiers survive Duplicate and Components, so an atom located in one
// graph can be located again in any copy or fragment derived from it.
package molecule

import (
	"fmt"
	"sort"

	"github.com/turtacn/molfrag/pkg/errors"
)

// AtomID identifies an atom within a graph and every graph derived from it.
type AtomID int

// Atom is a vertex of the graph. HCount is the number of implicit hydrogens;
// explicit hydrogens are separate atoms with Element "H".
type Atom struct {
	ID      AtomID `json:"id"`
	Element string `json:"element"`
	Charge  int    `json:"charge"`
	HCount  int    `json:"h_count"`
	Isotope int    `json:"isotope,omitempty"`
}

// IsHydrogen reports whether the atom is an explicit hydrogen.
func (a Atom) IsHydrogen() bool { return a.Element == "H" }

// Bond is an edge with From < To.
type Bond struct {
	From  AtomID `json:"from"`
	To    AtomID `json:"to"`
	Order int    `json:"order"`
}

// Graph is a molecular graph. The zero value is not usable; call NewGraph.
// A Graph is not safe for concurrent mutation.
type Graph struct {
	atoms  map[AtomID]*Atom
	adj    map[AtomID]map[AtomID]int
	nextID AtomID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		atoms: make(map[AtomID]*Atom),
		adj:   make(map[AtomID]map[AtomID]int),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Atoms
// ─────────────────────────────────────────────────────────────────────────────

// AddAtom appends a copy of a with a fresh identifier and returns it.
// a.ID is ignored.
func (g *Graph) AddAtom(a Atom) (AtomID, error) {
	if !IsKnownElement(a.Element) {
		return 0, errors.GraphOperation("add_atom", fmt.Sprintf("unknown element %q", a.Element))
	}
	if a.HCount < 0 {
		return 0, errors.GraphOperation("add_atom", "negative hydrogen count")
	}
	id := g.nextID
	g.nextID++
	a.ID = id
	g.atoms[id] = &a
	g.adj[id] = make(map[AtomID]int)
	return id, nil
}

// insertAtom stores a with its own identifier; used when copying.
func (g *Graph) insertAtom(a Atom) {
	cp := a
	g.atoms[a.ID] = &cp
	g.adj[a.ID] = make(map[AtomID]int)
	if a.ID >= g.nextID {
		g.nextID = a.ID + 1
	}
}

// DeleteAtom removes the atom and all its bonds.
func (g *Graph) DeleteAtom(id AtomID) error {
	if _, ok := g.atoms[id]; !ok {
		return errors.GraphOperation("delete_atom", fmt.Sprintf("atom %d not found", id))
	}
	for nb := range g.adj[id] {
		delete(g.adj[nb], id)
	}
	delete(g.adj, id)
	delete(g.atoms, id)
	return nil
}

// Atom returns a copy of the atom with identifier id.
func (g *Graph) Atom(id AtomID) (Atom, bool) {
	a, ok := g.atoms[id]
	if !ok {
		return Atom{}, false
	}
	return *a, true
}

// HasAtom reports whether id is present.
func (g *Graph) HasAtom(id AtomID) bool {
	_, ok := g.atoms[id]
	return ok
}

// AtomIDs returns all identifiers in ascending order.
func (g *Graph) AtomIDs() []AtomID {
	ids := make([]AtomID, 0, len(g.atoms))
	for id := range g.atoms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Atoms returns copies of all atoms ordered by identifier.
func (g *Graph) Atoms() []Atom {
	ids := g.AtomIDs()
	out := make([]Atom, len(ids))
	for i, id := range ids {
		out[i] = *g.atoms[id]
	}
	return out
}

// NumAtoms returns the number of vertices, explicit hydrogens included.
func (g *Graph) NumAtoms() int { return len(g.atoms) }

// AtomCount returns the number of atoms, adding implicit hydrogens when
// countImplicit is set.
func (g *Graph) AtomCount(countImplicit bool) int {
	n := len(g.atoms)
	if countImplicit {
		for _, a := range g.atoms {
			n += a.HCount
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Charge and hydrogens
// ─────────────────────────────────────────────────────────────────────────────

// Charge returns the formal charge of id, or 0 when absent.
func (g *Graph) Charge(id AtomID) int {
	if a, ok := g.atoms[id]; ok {
		return a.Charge
	}
	return 0
}

// SetCharge sets the formal charge of id.
func (g *Graph) SetCharge(id AtomID, charge int) error {
	a, ok := g.atoms[id]
	if !ok {
		return errors.GraphOperation("set_charge", fmt.Sprintf("atom %d not found", id))
	}
	a.Charge = charge
	return nil
}

// ImplicitHydrogens returns the implicit hydrogen count of id.
func (g *Graph) ImplicitHydrogens(id AtomID) int {
	if a, ok := g.atoms[id]; ok {
		return a.HCount
	}
	return 0
}

// HydrogenCount returns implicit plus explicit hydrogens attached to id.
func (g *Graph) HydrogenCount(id AtomID) int {
	a, ok := g.atoms[id]
	if !ok {
		return 0
	}
	n := a.HCount
	for nb := range g.adj[id] {
		if g.atoms[nb].IsHydrogen() {
			n++
		}
	}
	return n
}

// SetHydrogenCount sets the implicit hydrogen count of id.
func (g *Graph) SetHydrogenCount(id AtomID, n int) error {
	a, ok := g.atoms[id]
	if !ok {
		return errors.GraphOperation("set_hydrogen_count", fmt.Sprintf("atom %d not found", id))
	}
	if n < 0 {
		return errors.GraphOperation("set_hydrogen_count", fmt.Sprintf("atom %d: negative count %d", id, n))
	}
	a.HCount = n
	return nil
}

// TotalCharge returns the sum of formal charges.
func (g *Graph) TotalCharge() int {
	total := 0
	for _, a := range g.atoms {
		total += a.Charge
	}
	return total
}

// ─────────────────────────────────────────────────────────────────────────────
// Bonds
// ─────────────────────────────────────────────────────────────────────────────

func validOrder(order int) bool { return order >= 1 && order <= 3 }

// AddBond connects a and b with the given order (1-3).
func (g *Graph) AddBond(a, b AtomID, order int) error {
	if a == b {
		return errors.GraphOperation("add_bond", fmt.Sprintf("self bond on atom %d", a))
	}
	if !g.HasAtom(a) || !g.HasAtom(b) {
		return errors.GraphOperation("add_bond", fmt.Sprintf("atoms %d-%d not both present", a, b))
	}
	if !validOrder(order) {
		return errors.GraphOperation("add_bond", fmt.Sprintf("invalid bond order %d", order))
	}
	if _, exists := g.adj[a][b]; exists {
		return errors.GraphOperation("add_bond", fmt.Sprintf("bond %d-%d already exists", a, b))
	}
	g.adj[a][b] = order
	g.adj[b][a] = order
	return nil
}

// DeleteBond removes the bond between a and b.
func (g *Graph) DeleteBond(a, b AtomID) error {
	if _, ok := g.BondOrder(a, b); !ok {
		return errors.GraphOperation("delete_bond", fmt.Sprintf("no bond between %d and %d", a, b))
	}
	delete(g.adj[a], b)
	delete(g.adj[b], a)
	return nil
}

// BondOrder returns the order of the bond a-b.
func (g *Graph) BondOrder(a, b AtomID) (int, bool) {
	nbs, ok := g.adj[a]
	if !ok {
		return 0, false
	}
	order, ok := nbs[b]
	return order, ok
}

// SetBondOrder changes the order of an existing bond.
func (g *Graph) SetBondOrder(a, b AtomID, order int) error {
	if _, ok := g.BondOrder(a, b); !ok {
		return errors.GraphOperation("set_bond_order", fmt.Sprintf("no bond between %d and %d", a, b))
	}
	if !validOrder(order) {
		return errors.GraphOperation("set_bond_order", fmt.Sprintf("bond %d-%d: invalid order %d", a, b, order))
	}
	g.adj[a][b] = order
	g.adj[b][a] = order
	return nil
}

// Bonds returns all bonds ordered by (From, To).
func (g *Graph) Bonds() []Bond {
	var out []Bond
	for _, a := range g.AtomIDs() {
		for _, b := range g.Neighbors(a) {
			if a < b {
				out = append(out, Bond{From: a, To: b, Order: g.adj[a][b]})
			}
		}
	}
	return out
}

// NumBonds returns the number of bonds.
func (g *Graph) NumBonds() int {
	n := 0
	for _, nbs := range g.adj {
		n += len(nbs)
	}
	return n / 2
}

// Neighbors returns the neighbours of id in ascending order.
func (g *Graph) Neighbors(id AtomID) []AtomID {
	nbs := g.adj[id]
	out := make([]AtomID, 0, len(nbs))
	for nb := range nbs {
		out = append(out, nb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HeavyNeighbors returns the non-hydrogen neighbours of id in ascending order.
func (g *Graph) HeavyNeighbors(id AtomID) []AtomID {
	var out []AtomID
	for _, nb := range g.Neighbors(id) {
		if !g.atoms[nb].IsHydrogen() {
			out = append(out, nb)
		}
	}
	return out
}

// HeavyDegree returns the number of non-hydrogen neighbours.
func (g *Graph) HeavyDegree(id AtomID) int {
	n := 0
	for nb := range g.adj[id] {
		if !g.atoms[nb].IsHydrogen() {
			n++
		}
	}
	return n
}

// BondOrderSum returns the sum of bond orders at id.
func (g *Graph) BondOrderSum(id AtomID) int {
	sum := 0
	for _, order := range g.adj[id] {
		sum += order
	}
	return sum
}

// ─────────────────────────────────────────────────────────────────────────────
// Copies and components
// ─────────────────────────────────────────────────────────────────────────────

// Duplicate returns a deep copy sharing every atom identifier with g.
func (g *Graph) Duplicate() *Graph {
	cp := NewGraph()
	for _, a := range g.atoms {
		cp.insertAtom(*a)
	}
	for a, nbs := range g.adj {
		for b, order := range nbs {
			cp.adj[a][b] = order
		}
	}
	cp.nextID = g.nextID
	return cp
}

// Components splits g into connected components. Each component keeps the
// original identifiers; components are ordered by their smallest identifier.
// g itself is not modified.
func (g *Graph) Components() []*Graph {
	visited := make(map[AtomID]bool, len(g.atoms))
	var out []*Graph

	for _, start := range g.AtomIDs() {
		if visited[start] {
			continue
		}
		comp := NewGraph()
		queue := []AtomID{start}
		visited[start] = true
		var members []AtomID
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			members = append(members, cur)
			for _, nb := range g.Neighbors(cur) {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		for _, id := range members {
			comp.insertAtom(*g.atoms[id])
		}
		for _, id := range members {
			for nb, order := range g.adj[id] {
				comp.adj[id][nb] = order
			}
		}
		comp.nextID = g.nextID
		out = append(out, comp)
	}
	return out
}

// IsConnected reports whether g has at most one component.
func (g *Graph) IsConnected() bool {
	return len(g.Components()) <= 1
}
