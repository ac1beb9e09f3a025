package molecule

import (
	"sort"
	"strconv"
	"strings"
)

// ElementCounts returns the number of atoms per element symbol, implicit
// hydrogens included.
func (g *Graph) ElementCounts() map[string]int {
	counts := make(map[string]int)
	for _, a := range g.atoms {
		counts[a.Element]++
		if a.HCount > 0 {
			counts["H"] += a.HCount
		}
	}
	return counts
}

// Formula returns the molecular formula in Hill order (C, then H, then the
// rest alphabetically; purely alphabetical without carbon). Charge is not
// included.
func (g *Graph) Formula() string {
	counts := g.ElementCounts()
	var order []string
	if counts["C"] > 0 {
		order = append(order, "C")
		if counts["H"] > 0 {
			order = append(order, "H")
		}
	}
	var rest []string
	for sym, n := range counts {
		if n == 0 {
			continue
		}
		if counts["C"] > 0 && (sym == "C" || sym == "H") {
			continue
		}
		rest = append(rest, sym)
	}
	sort.Strings(rest)
	order = append(order, rest...)

	var sb strings.Builder
	for _, sym := range order {
		sb.WriteString(sym)
		if n := counts[sym]; n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	return sb.String()
}

// ExactMass returns the monoisotopic mass. Electron mass is not corrected for
// charge, matching the convention of the reported fragment masses.
func (g *Graph) ExactMass() float64 {
	mass := 0.0
	for sym, n := range g.ElementCounts() {
		mass += float64(n) * elements[sym].Mass
	}
	return mass
}

// MolecularWeight returns the average molecular weight.
func (g *Graph) MolecularWeight() float64 {
	w := 0.0
	for sym, n := range g.ElementCounts() {
		w += float64(n) * elements[sym].Weight
	}
	return w
}
