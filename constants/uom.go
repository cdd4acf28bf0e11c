package constants

import (
	"strings"
)

// UOM is a canonical unit of measure code.
type UOM string

const (
	Each  UOM = "EA"
	Box   UOM = "BOX"
	Case  UOM = "CS"
	Pack  UOM = "PK"
	Set   UOM = "SET"
	Dozen UOM = "DZ"
	Roll  UOM = "RL"
	Kilo  UOM = "KG"
	Pound UOM = "LB"
	Meter UOM = "M"
	Foot  UOM = "FT"
	Liter UOM = "L"
	Hour  UOM = "HR"
)

var allUOMs = []UOM{Each, Box, Case, Pack, Set, Dozen, Roll, Kilo, Pound, Meter, Foot, Liter, Hour}

// CanonicalizeUOM maps a free-form unit onto a canonical code. The second
// result is false when the unit is unknown; callers get the input upper-cased
// back so the raw unit is not lost. Empty input defaults to EA.
func CanonicalizeUOM(input string) (UOM, bool) {
	normalized := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(input), ".")))
	if normalized == "" {
		return Each, true
	}

	synonyms := map[string]UOM{
		"ea": Each, "each": Each, "pc": Each, "pcs": Each, "piece": Each, "pieces": Each,
		"unit": Each, "units": Each, "u": Each, "nos": Each, "no": Each,
		"bx": Box, "box": Box, "boxes": Box,
		"cs": Case, "case": Case, "cases": Case, "ctn": Case, "carton": Case, "cartons": Case,
		"pk": Pack, "pkg": Pack, "pack": Pack, "packs": Pack,
		"set": Set, "sets": Set,
		"dz": Dozen, "doz": Dozen, "dozen": Dozen,
		"rl": Roll, "roll": Roll, "rolls": Roll,
		"kg": Kilo, "kgs": Kilo, "kilo": Kilo, "kilogram": Kilo, "kilograms": Kilo,
		"lb": Pound, "lbs": Pound, "pound": Pound, "pounds": Pound,
		"m": Meter, "mtr": Meter, "meter": Meter, "meters": Meter, "metre": Meter, "metres": Meter,
		"ft": Foot, "feet": Foot, "foot": Foot,
		"l": Liter, "ltr": Liter, "liter": Liter, "liters": Liter, "litre": Liter, "litres": Liter,
		"hr": Hour, "hrs": Hour, "hour": Hour, "hours": Hour,
	}
	if u, ok := synonyms[normalized]; ok {
		return u, true
	}
	for _, u := range allUOMs {
		if normalized == strings.ToLower(string(u)) {
			return u, true
		}
	}
	return UOM(strings.ToUpper(normalized)), false
}
