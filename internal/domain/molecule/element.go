package molecule

// element holds the per-element data the engine needs.
type element struct {
	Symbol   string
	Number   int
	Mass     float64 // monoisotopic mass of the most abundant isotope
	Weight   float64 // standard atomic weight
	Valences []int   // default valences, ascending; empty outside the organic subset
}

var elements = map[string]element{
	"H":  {"H", 1, 1.00782503207, 1.00794, []int{1}},
	"B":  {"B", 5, 11.0093054, 10.811, []int{3}},
	"C":  {"C", 6, 12.0, 12.0107, []int{4}},
	"N":  {"N", 7, 14.0030740048, 14.0067, []int{3, 5}},
	"O":  {"O", 8, 15.99491461956, 15.9994, []int{2}},
	"F":  {"F", 9, 18.99840322, 18.9984032, []int{1}},
	"Na": {"Na", 11, 22.9897692809, 22.98976928, nil},
	"Mg": {"Mg", 12, 23.985041700, 24.3050, nil},
	"Si": {"Si", 14, 27.9769265325, 28.0855, nil},
	"P":  {"P", 15, 30.97376163, 30.973762, []int{3, 5}},
	"S":  {"S", 16, 31.97207100, 32.065, []int{2, 4, 6}},
	"Cl": {"Cl", 17, 34.96885268, 35.453, []int{1}},
	"K":  {"K", 19, 38.96370668, 39.0983, nil},
	"Ca": {"Ca", 20, 39.96259098, 40.078, nil},
	"Fe": {"Fe", 26, 55.9349375, 55.845, nil},
	"Se": {"Se", 34, 79.9165213, 78.96, nil},
	"Br": {"Br", 35, 78.9183371, 79.904, []int{1}},
	"I":  {"I", 53, 126.904473, 126.90447, []int{1}},
}

// IsKnownElement reports whether symbol is in the element table.
func IsKnownElement(symbol string) bool {
	_, ok := elements[symbol]
	return ok
}

// isOrganicSubset reports whether symbol may be written without brackets.
func isOrganicSubset(symbol string) bool {
	switch symbol {
	case "B", "C", "N", "O", "P", "S", "F", "Cl", "Br", "I":
		return true
	}
	return false
}

// defaultHydrogens returns the implicit hydrogen count an unbracketed atom of
// symbol carries given the sum of its bond orders.
func defaultHydrogens(symbol string, bondOrderSum int) int {
	el, ok := elements[symbol]
	if !ok || !isOrganicSubset(symbol) {
		return 0
	}
	for _, v := range el.Valences {
		if v >= bondOrderSum {
			return v - bondOrderSum
		}
	}
	return 0
}
