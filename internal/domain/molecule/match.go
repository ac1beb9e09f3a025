package molecule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/molfrag/pkg/errors"
)

// AtomQuery constrains one pattern atom.
type AtomQuery struct {
	// Elements lists accepted symbols; empty accepts any non-hydrogen atom.
	Elements []string
	// MinHydrogens is the minimum attached hydrogen count.
	MinHydrogens int
	// Where is an optional extra predicate.
	Where func(g *Graph, id AtomID) bool
}

// BondQuery requires a bond between pattern atoms A and B. Order 0 accepts
// any order.
type BondQuery struct {
	A, B  int
	Order int
}

// Pattern is a connected substructure query. Every atom after the first must
// be bonded, through Bonds, to an atom listed before it.
type Pattern struct {
	Name  string
	Atoms []AtomQuery
	Bonds []BondQuery
}

// Validate checks that p is non-empty, its bond indices are valid and it is
// connected in listing order.
func (p Pattern) Validate() error {
	if len(p.Atoms) == 0 {
		return p.invalid("pattern has no atoms")
	}
	for _, b := range p.Bonds {
		if b.A < 0 || b.B < 0 || b.A >= len(p.Atoms) || b.B >= len(p.Atoms) || b.A == b.B {
			return p.invalid(fmt.Sprintf("bad bond %d-%d", b.A, b.B))
		}
	}
	for i := 1; i < len(p.Atoms); i++ {
		if _, ok := p.anchor(i); !ok {
			return p.invalid(fmt.Sprintf("atom %d is not bonded to an earlier atom", i))
		}
	}
	return nil
}

func (p Pattern) invalid(reason string) error {
	return errors.New(errors.ErrCodeSubstructureFailed, "invalid pattern").
		WithDetail(fmt.Sprintf("%s: %s", p.Name, reason))
}

// anchor returns an earlier atom bonded to pattern atom i.
func (p Pattern) anchor(i int) (int, bool) {
	for _, b := range p.Bonds {
		if b.A == i && b.B < i {
			return b.B, true
		}
		if b.B == i && b.A < i {
			return b.A, true
		}
	}
	return 0, false
}

func (q AtomQuery) matches(g *Graph, id AtomID) bool {
	a := g.atoms[id]
	if len(q.Elements) == 0 {
		if a.IsHydrogen() {
			return false
		}
	} else {
		ok := false
		for _, e := range q.Elements {
			if a.Element == e {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if q.MinHydrogens > 0 && g.HydrogenCount(id) < q.MinHydrogens {
		return false
	}
	return q.Where == nil || q.Where(g, id)
}

// Matches returns every embedding of p in g as atom identifiers in pattern
// order. Embeddings are enumerated by ascending identifier of the first
// pattern atom, then of each following atom. With unique set, embeddings that
// cover an atom set already reported are dropped.
func (g *Graph) Matches(p Pattern, unique bool) ([][]AtomID, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m := &matcher{g: g, p: p, assign: make([]AtomID, len(p.Atoms)), used: make(map[AtomID]bool)}
	for _, id := range g.AtomIDs() {
		m.try(0, id)
	}
	if !unique {
		return m.out, nil
	}
	seen := make(map[string]bool, len(m.out))
	var out [][]AtomID
	for _, match := range m.out {
		key := atomSetKey(match)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, match)
	}
	return out, nil
}

// EachMatch calls fn for every embedding returned by Matches.
func (g *Graph) EachMatch(p Pattern, unique bool, fn func(match []AtomID)) error {
	matches, err := g.Matches(p, unique)
	if err != nil {
		return err
	}
	for _, match := range matches {
		fn(match)
	}
	return nil
}

func atomSetKey(ids []AtomID) string {
	sorted := append([]AtomID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprint(int(id))
	}
	return strings.Join(parts, ",")
}

type matcher struct {
	g      *Graph
	p      Pattern
	assign []AtomID
	used   map[AtomID]bool
	out    [][]AtomID
}

func (m *matcher) try(i int, id AtomID) {
	if m.used[id] || !m.p.Atoms[i].matches(m.g, id) {
		return
	}
	for _, b := range m.p.Bonds {
		var other int
		switch {
		case b.A == i && b.B < i:
			other = b.B
		case b.B == i && b.A < i:
			other = b.A
		default:
			continue
		}
		order, ok := m.g.BondOrder(id, m.assign[other])
		if !ok || (b.Order != 0 && order != b.Order) {
			return
		}
	}

	m.assign[i] = id
	m.used[id] = true
	defer delete(m.used, id)

	if i == len(m.p.Atoms)-1 {
		m.out = append(m.out, append([]AtomID(nil), m.assign...))
		return
	}
	next := i + 1
	anchor, _ := m.p.anchor(next)
	for _, nb := range m.g.Neighbors(m.assign[anchor]) {
		m.try(next, nb)
	}
}
