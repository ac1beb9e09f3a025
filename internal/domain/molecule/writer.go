package molecule

import (
	"strconv"
	"strings"
)

// SMILES writes g as a deterministic, non-canonical SMILES string. Each
// component starts at its lowest-identifier terminal carbon, else its
// lowest-identifier terminal atom, else its lowest identifier; neighbours are
// visited in identifier order. Components are joined with '.'.
func (g *Graph) SMILES() string {
	parts := make([]string, 0, 1)
	for _, comp := range g.Components() {
		w := newSmilesWriter(comp)
		parts = append(parts, w.write(w.startAtom()))
	}
	return strings.Join(parts, ".")
}

// String returns the SMILES form.
func (g *Graph) String() string { return g.SMILES() }

type ringEdge struct {
	partner AtomID
	order   int
}

type smilesWriter struct {
	g        *Graph
	visited  map[AtomID]bool
	seen     map[[2]AtomID]bool
	children map[AtomID][]AtomID
	rings    map[AtomID][]ringEdge
	digits   map[[2]AtomID]int
	inUse    map[int]bool
}

func newSmilesWriter(g *Graph) *smilesWriter {
	return &smilesWriter{
		g:        g,
		visited:  make(map[AtomID]bool),
		seen:     make(map[[2]AtomID]bool),
		children: make(map[AtomID][]AtomID),
		rings:    make(map[AtomID][]ringEdge),
		digits:   make(map[[2]AtomID]int),
		inUse:    make(map[int]bool),
	}
}

func edgeKey(a, b AtomID) [2]AtomID {
	if a > b {
		a, b = b, a
	}
	return [2]AtomID{a, b}
}

func (w *smilesWriter) startAtom() AtomID {
	ids := w.g.AtomIDs()
	for _, id := range ids {
		if w.g.atoms[id].Element == "C" && len(w.g.adj[id]) <= 1 {
			return id
		}
	}
	for _, id := range ids {
		if len(w.g.adj[id]) <= 1 {
			return id
		}
	}
	return ids[0]
}

func (w *smilesWriter) write(start AtomID) string {
	w.walk(start)
	var sb strings.Builder
	w.emit(&sb, start, 0)
	return sb.String()
}

// walk builds the spanning tree and records ring-closure edges.
func (w *smilesWriter) walk(u AtomID) {
	w.visited[u] = true
	for _, v := range w.g.Neighbors(u) {
		key := edgeKey(u, v)
		if w.seen[key] {
			continue
		}
		w.seen[key] = true
		if w.visited[v] {
			order := w.g.adj[u][v]
			w.rings[v] = append(w.rings[v], ringEdge{partner: u, order: order})
			w.rings[u] = append(w.rings[u], ringEdge{partner: v, order: order})
			continue
		}
		w.children[u] = append(w.children[u], v)
		w.walk(v)
	}
}

func (w *smilesWriter) emit(sb *strings.Builder, u AtomID, order int) {
	sb.WriteString(bondSymbol(order))
	sb.WriteString(w.atomToken(u))

	for _, r := range w.rings[u] {
		key := edgeKey(u, r.partner)
		if d, open := w.digits[key]; open {
			sb.WriteString(ringDigit(d))
			delete(w.digits, key)
			delete(w.inUse, d)
			continue
		}
		d := 1
		for w.inUse[d] {
			d++
		}
		w.inUse[d] = true
		w.digits[key] = d
		sb.WriteString(bondSymbol(r.order))
		sb.WriteString(ringDigit(d))
	}

	kids := w.children[u]
	for i, c := range kids {
		if i < len(kids)-1 {
			sb.WriteByte('(')
			w.emit(sb, c, w.g.adj[u][c])
			sb.WriteByte(')')
			continue
		}
		w.emit(sb, c, w.g.adj[u][c])
	}
}

func bondSymbol(order int) string {
	switch order {
	case 2:
		return "="
	case 3:
		return "#"
	}
	return ""
}

func ringDigit(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

// atomToken writes the atom bare when re-parsing it would reproduce its
// hydrogen count and charge, bracketed otherwise.
func (w *smilesWriter) atomToken(id AtomID) string {
	a := w.g.atoms[id]
	if isOrganicSubset(a.Element) && a.Charge == 0 && a.Isotope == 0 &&
		a.HCount == defaultHydrogens(a.Element, w.g.BondOrderSum(id)) {
		return a.Element
	}

	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(a.Element)
	switch {
	case a.HCount == 1:
		sb.WriteByte('H')
	case a.HCount > 1:
		sb.WriteByte('H')
		sb.WriteString(strconv.Itoa(a.HCount))
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString("-" + strconv.Itoa(-a.Charge))
	}
	sb.WriteByte(']')
	return sb.String()
}
