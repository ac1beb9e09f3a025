package molecule

import "sort"

// Approximate pKa values used by CorrectForPH.
const (
	PKaAliphaticAmine      = 10.6
	PKaCarboxylicAcid      = 4.8
	PKaPhosphateFirst      = 2.1
	PKaPhosphateSecond     = 6.8
	PKaPhosphateThird      = 12.3
	DefaultPhysiologicalPH = 7.4
)

// CorrectForPH sets the protonation state of ionisable groups for ph:
// aliphatic amines are protonated below their pKa, carboxylic acids and
// phosphate hydroxyls are deprotonated above theirs. Works on both implicit
// and explicit hydrogen forms and returns the number of atoms changed.
func (g *Graph) CorrectForPH(ph float64) int {
	explicit := g.HasExplicitHydrogens()
	changed := 0

	// Each pass walks a snapshot of ids while explicit hydrogens come and
	// go, so ids that are gone or hydrogens are skipped.
	for _, id := range g.AtomIDs() {
		if !g.isHeavy(id) {
			continue
		}
		if g.isBasicAmine(id) && ph < PKaAliphaticAmine {
			g.addHydrogen(id, explicit)
			g.atoms[id].Charge++
			changed++
		}
	}

	for _, id := range g.AtomIDs() {
		if !g.isHeavy(id) {
			continue
		}
		if g.isCarboxylicHydroxyl(id) && ph > PKaCarboxylicAcid {
			if g.removeHydrogen(id) {
				g.atoms[id].Charge--
				changed++
			}
		}
	}

	for _, p := range g.AtomIDs() {
		if !g.isHeavy(p) || g.atoms[p].Element != "P" {
			continue
		}
		anionic := 0
		var hydroxyls []AtomID
		for _, o := range g.Neighbors(p) {
			switch {
			case g.atoms[o].Element != "O" || g.adj[p][o] != 1:
			case g.atoms[o].Charge < 0:
				anionic++
			case g.atoms[o].Charge == 0 && g.HydrogenCount(o) > 0 && g.HeavyDegree(o) == 1:
				hydroxyls = append(hydroxyls, o)
			}
		}
		sort.Slice(hydroxyls, func(i, j int) bool { return hydroxyls[i] < hydroxyls[j] })
		for _, o := range hydroxyls {
			if ph <= phosphatePKa(anionic) {
				break
			}
			if g.removeHydrogen(o) {
				g.atoms[o].Charge--
				anionic++
				changed++
			}
		}
	}
	return changed
}

func (g *Graph) isHeavy(id AtomID) bool {
	a, ok := g.atoms[id]
	return ok && !a.IsHydrogen()
}

func phosphatePKa(alreadyIonised int) float64 {
	switch alreadyIonised {
	case 0:
		return PKaPhosphateFirst
	case 1:
		return PKaPhosphateSecond
	default:
		return PKaPhosphateThird
	}
}

// isBasicAmine matches a neutral sp3 nitrogen with three connections that is
// not an amide, not bonded to a heteroatom and not next to a multiple bond.
func (g *Graph) isBasicAmine(id AtomID) bool {
	a := g.atoms[id]
	if a.Element != "N" || a.Charge != 0 {
		return false
	}
	if g.BondOrderSum(id)+a.HCount != 3 {
		return false
	}
	for nb, order := range g.adj[id] {
		if order != 1 {
			return false
		}
		n := g.atoms[nb]
		if n.IsHydrogen() {
			continue
		}
		if n.Element != "C" {
			return false
		}
		for nn, o2 := range g.adj[nb] {
			if o2 > 1 && nn != id {
				return false
			}
		}
	}
	return true
}

// isCarboxylicHydroxyl matches the OH of C(=O)OH.
func (g *Graph) isCarboxylicHydroxyl(id AtomID) bool {
	a := g.atoms[id]
	if a.Element != "O" || a.Charge != 0 || g.HydrogenCount(id) == 0 || g.HeavyDegree(id) != 1 {
		return false
	}
	c := g.HeavyNeighbors(id)[0]
	if g.atoms[c].Element != "C" || g.adj[id][c] != 1 {
		return false
	}
	for nb, order := range g.adj[c] {
		if nb != id && order == 2 && g.atoms[nb].Element == "O" {
			return true
		}
	}
	return false
}

// ConvertDativeBonds rewrites charge-separated single bonds between a
// positive N, P or S and a negative O as neutral double bonds
// ([P+]-[O-] becomes P=O). Returns the number of bonds converted.
func (g *Graph) ConvertDativeBonds() int {
	converted := 0
	for _, b := range g.Bonds() {
		if b.Order != 1 {
			continue
		}
		from, to := g.atoms[b.From], g.atoms[b.To]
		donor, acceptor := from, to
		if acceptor.Charge > 0 {
			donor, acceptor = to, from
		}
		if donor.Charge != 1 || acceptor.Charge != -1 || acceptor.Element != "O" {
			continue
		}
		switch donor.Element {
		case "N", "P", "S":
		default:
			continue
		}
		donor.Charge = 0
		acceptor.Charge = 0
		g.adj[b.From][b.To] = 2
		g.adj[b.To][b.From] = 2
		converted++
	}
	return converted
}
