package molecule

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/turtacn/molfrag/pkg/errors"
)

// ParseSMILES builds a Graph from a SMILES string. Supported: the organic
// subset, bracket atoms with isotope, hydrogen count and charge, branches,
// ring closures (digits and %nn), the bond symbols - = #, and '.' for
// disconnected parts. Stereo marks are accepted and ignored. Aromatic
// (lowercase) atoms are rejected; write the Kekulé form instead.
// Anything after the first whitespace is treated as a title and ignored.
func ParseSMILES(smiles string) (*Graph, error) {
	if i := strings.IndexFunc(smiles, unicode.IsSpace); i >= 0 {
		smiles = smiles[:i]
	}
	if smiles == "" {
		return nil, invalidSMILES(smiles, 0, "empty input")
	}
	p := &smilesParser{
		src:     smiles,
		g:       NewGraph(),
		prev:    -1,
		rings:   make(map[int]ringOpen),
		organic: make(map[AtomID]bool),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	for id := range p.organic {
		a := p.g.atoms[id]
		a.HCount = defaultHydrogens(a.Element, p.g.BondOrderSum(id))
	}
	return p.g, nil
}

// MustParseSMILES panics on error; for tests and package-level fixtures.
func MustParseSMILES(smiles string) *Graph {
	g, err := ParseSMILES(smiles)
	if err != nil {
		panic(err)
	}
	return g
}

func invalidSMILES(smiles string, pos int, reason string) error {
	return errors.New(errors.ErrCodeMoleculeInvalidSMILES, "invalid SMILES").
		WithDetail(fmt.Sprintf("%s at position %d in %q", reason, pos, smiles))
}

type ringOpen struct {
	atom  AtomID
	order int // 0 when no bond symbol preceded the opening digit
	pos   int
}

type smilesParser struct {
	src      string
	pos      int
	g        *Graph
	prev     AtomID // -1 when the next atom starts a new part
	bond     int    // pending bond order, 0 when none
	branches []AtomID
	rings    map[int]ringOpen
	organic  map[AtomID]bool
}

func (p *smilesParser) fail(reason string) error {
	return invalidSMILES(p.src, p.pos, reason)
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
		case ch == '(':
			if p.prev < 0 {
				return p.fail("branch without preceding atom")
			}
			p.branches = append(p.branches, p.prev)
			p.pos++
		case ch == ')':
			if len(p.branches) == 0 {
				return p.fail("unbalanced ')'")
			}
			if p.bond != 0 {
				return p.fail("bond symbol before ')'")
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case ch == '-' || ch == '/' || ch == '\\':
			if err := p.setBond(1); err != nil {
				return err
			}
		case ch == '=':
			if err := p.setBond(2); err != nil {
				return err
			}
		case ch == '#':
			if err := p.setBond(3); err != nil {
				return err
			}
		case ch == ':' || ch == '$':
			return p.fail(fmt.Sprintf("unsupported bond symbol %q", ch))
		case ch == '.':
			if p.bond != 0 || len(p.branches) > 0 {
				return p.fail("'.' inside a branch or after a bond symbol")
			}
			p.prev = -1
			p.pos++
		case ch == '%':
			if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
				return p.fail("'%' must be followed by two digits")
			}
			n := int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
			if err := p.ring(n); err != nil {
				return err
			}
			p.pos += 3
		case isDigit(ch):
			if err := p.ring(int(ch - '0')); err != nil {
				return err
			}
			p.pos++
		case ch == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		case ch >= 'a' && ch <= 'z':
			return p.fail("aromatic atoms are not supported; use a Kekulé SMILES")
		case ch >= 'A' && ch <= 'Z':
			if err := p.organicAtom(); err != nil {
				return err
			}
		default:
			return p.fail(fmt.Sprintf("unexpected character %q", ch))
		}
	}

	if len(p.branches) > 0 {
		return p.fail("unclosed branch")
	}
	if p.bond != 0 {
		return p.fail("dangling bond symbol")
	}
	for n, r := range p.rings {
		return invalidSMILES(p.src, r.pos, fmt.Sprintf("ring closure %d never closed", n))
	}
	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (p *smilesParser) setBond(order int) error {
	if p.bond != 0 {
		return p.fail("two consecutive bond symbols")
	}
	if p.prev < 0 {
		return p.fail("bond symbol without preceding atom")
	}
	p.bond = order
	p.pos++
	return nil
}

func (p *smilesParser) ring(n int) error {
	if p.prev < 0 {
		return p.fail("ring closure without preceding atom")
	}
	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringOpen{atom: p.prev, order: p.bond, pos: p.pos}
		p.bond = 0
		return nil
	}
	delete(p.rings, n)
	order := open.order
	if p.bond != 0 {
		if order != 0 && order != p.bond {
			return p.fail(fmt.Sprintf("conflicting bond orders on ring closure %d", n))
		}
		order = p.bond
	}
	if order == 0 {
		order = 1
	}
	p.bond = 0
	if err := p.g.AddBond(open.atom, p.prev, order); err != nil {
		return p.fail(fmt.Sprintf("ring closure %d: %v", n, err))
	}
	return nil
}

// attach adds a and bonds it to the previous atom.
func (p *smilesParser) attach(a Atom) (AtomID, error) {
	id, err := p.g.AddAtom(a)
	if err != nil {
		return 0, p.fail(err.Error())
	}
	if p.prev >= 0 {
		order := p.bond
		if order == 0 {
			order = 1
		}
		if err := p.g.AddBond(p.prev, id, order); err != nil {
			return 0, p.fail(err.Error())
		}
	} else if p.bond != 0 {
		return 0, p.fail("bond symbol without preceding atom")
	}
	p.bond = 0
	p.prev = id
	return id, nil
}

func (p *smilesParser) organicAtom() error {
	sym := p.src[p.pos : p.pos+1]
	if p.pos+1 < len(p.src) {
		two := p.src[p.pos : p.pos+2]
		if two == "Cl" || two == "Br" {
			sym = two
		}
	}
	if !isOrganicSubset(sym) {
		return p.fail(fmt.Sprintf("element %q must be written in brackets", sym))
	}
	id, err := p.attach(Atom{Element: sym})
	if err != nil {
		return err
	}
	p.organic[id] = true
	p.pos += len(sym)
	return nil
}

// bracketAtom parses [isotope? symbol chirality? hcount? charge? class?].
func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return p.fail("unclosed '['")
	}
	body := p.src[p.pos+1 : p.pos+end]
	i := 0
	var a Atom

	for i < len(body) && isDigit(body[i]) {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}
	if i >= len(body) {
		return p.fail("bracket atom without element")
	}
	if body[i] >= 'a' && body[i] <= 'z' {
		return p.fail("aromatic atoms are not supported; use a Kekulé SMILES")
	}
	if body[i] < 'A' || body[i] > 'Z' {
		return p.fail("bracket atom without element")
	}
	sym := body[i : i+1]
	if i+1 < len(body) && body[i+1] >= 'a' && body[i+1] <= 'z' && IsKnownElement(body[i:i+2]) {
		sym = body[i : i+2]
	}
	if !IsKnownElement(sym) {
		return p.fail(fmt.Sprintf("unknown element %q", sym))
	}
	a.Element = sym
	i += len(sym)

	for i < len(body) && body[i] == '@' {
		i++
	}
	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(body) && isDigit(body[i]) {
			a.HCount = int(body[i] - '0')
			i++
		}
	}
	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sc := body[i]
		i++
		switch {
		case i < len(body) && isDigit(body[i]):
			a.Charge = sign * int(body[i]-'0')
			i++
		default:
			a.Charge = sign
			for i < len(body) && body[i] == sc {
				a.Charge += sign
				i++
			}
		}
	}
	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && isDigit(body[i]) {
			i++
		}
	}
	if i != len(body) {
		return p.fail(fmt.Sprintf("unexpected %q in bracket atom", body[i:]))
	}

	if _, err := p.attach(a); err != nil {
		return err
	}
	p.pos += end + 1
	return nil
}
