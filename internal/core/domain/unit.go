package domain

import "strings"

// UnitFamily groups units that convert into each other by fixed ratio.
type UnitFamily string

const (
	FamilyMass   UnitFamily = "mass"
	FamilyLength UnitFamily = "length"
	FamilyVolume UnitFamily = "volume"
	FamilyCount  UnitFamily = "count"
)

// unitInfo describes one recognised unit: its family and the factor to
// the family's canonical unit (kg, m, l, pcs).
type unitInfo struct {
	family UnitFamily
	factor float64
}

// unitTable maps lower-cased unit symbols to conversion info. Includes
// the CJK unit words that appear on scanned Chinese documents.
var unitTable = map[string]unitInfo{
	// mass, canonical kg
	"g":  {FamilyMass, 0.001},
	"kg": {FamilyMass, 1},
	"t":  {FamilyMass, 1000},
	"克":  {FamilyMass, 0.001},
	"千克": {FamilyMass, 1},
	"公斤": {FamilyMass, 1},
	"吨":  {FamilyMass, 1000},

	// length, canonical m
	"mm": {FamilyLength, 0.001},
	"cm": {FamilyLength, 0.01},
	"m":  {FamilyLength, 1},
	"km": {FamilyLength, 1000},
	"米":  {FamilyLength, 1},

	// volume, canonical l
	"ml": {FamilyVolume, 0.001},
	"l":  {FamilyVolume, 1},
	"m3": {FamilyVolume, 1000},
	"升":  {FamilyVolume, 1},
	"立方米": {FamilyVolume, 1000},

	// count, canonical pcs
	"pcs": {FamilyCount, 1},
	"pc":  {FamilyCount, 1},
	"set": {FamilyCount, 1},
	"个":   {FamilyCount, 1},
	"件":   {FamilyCount, 1},
	"套":   {FamilyCount, 1},
	"根":   {FamilyCount, 1},
	"只":   {FamilyCount, 1},
}

// CanonicalUnit names the canonical unit per family.
var CanonicalUnit = map[UnitFamily]string{
	FamilyMass:   "kg",
	FamilyLength: "m",
	FamilyVolume: "l",
	FamilyCount:  "pcs",
}

// LookupUnit resolves a unit symbol to its family and canonical factor.
// An empty symbol is treated as a bare count.
func LookupUnit(symbol string) (UnitFamily, float64, bool) {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if s == "" {
		return FamilyCount, 1, true
	}
	info, ok := unitTable[s]
	if !ok {
		return "", 0, false
	}
	return info.family, info.factor, true
}

// ConvertQuantity converts a quantity to the canonical unit of the
// symbol's family. Returns false for unknown units; the caller reports
// a unit_unresolved finding rather than skipping silently.
func ConvertQuantity(quantity float64, symbol string) (float64, UnitFamily, bool) {
	family, factor, ok := LookupUnit(symbol)
	if !ok {
		return 0, "", false
	}
	return quantity * factor, family, true
}
