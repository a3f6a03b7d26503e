package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
		unit     string
		expected float64
		family   UnitFamily
	}{
		{"kg is canonical mass", 100, "kg", 100, FamilyMass},
		{"tonnes to kg", 2.5, "t", 2500, FamilyMass},
		{"grams to kg", 500, "g", 0.5, FamilyMass},
		{"cjk tonnes", 1, "吨", 1000, FamilyMass},
		{"mm to m", 1200, "mm", 1.2, FamilyLength},
		{"cubic metres to litres", 2, "m3", 2000, FamilyVolume},
		{"pieces are canonical count", 10, "pcs", 10, FamilyCount},
		{"cjk pieces", 3, "件", 3, FamilyCount},
		{"unit symbols are case-insensitive", 1, "KG", 1, FamilyMass},
		{"empty unit treated as count", 7, "", 7, FamilyCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, family, ok := ConvertQuantity(tt.quantity, tt.unit)
			assert.True(t, ok)
			assert.Equal(t, tt.family, family)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestConvertQuantity_UnknownUnit(t *testing.T) {
	_, _, ok := ConvertQuantity(1, "bushel")
	assert.False(t, ok)
}

func TestLookupUnit_FamiliesDoNotMix(t *testing.T) {
	fam1, _, ok1 := LookupUnit("kg")
	fam2, _, ok2 := LookupUnit("m")
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.NotEqual(t, fam1, fam2)
}
