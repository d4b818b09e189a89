package service

import (
	"os"
	"path/filepath"
	"testing"

	"propsearch/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_SynonymCollapsing(t *testing.T) {
	n := MustNewNormalizer(DefaultRules())

	nq, err := n.Normalize("3bhk flat on sec 9")
	require.NoError(t, err)

	assert.Contains(t, nq.Canonical, "sector")
	assert.Contains(t, nq.Canonical, "apartment")
	require.NotNil(t, nq.SectorNumber)
	assert.Equal(t, 9, *nq.SectorNumber)
	require.NotNil(t, nq.BedroomCount)
	assert.Equal(t, 3, *nq.BedroomCount)
	assert.Nil(t, nq.Price, "numbers consumed by sector and bhk are not prices")
}

func TestNormalizer_Canonical(t *testing.T) {
	n := MustNewNormalizer(DefaultRules())

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"lowercase and trim", "  Villa IN Sector 21  ", "villa in sector 21"},
		{"sector aliases", "sec 4 and S-12 and s7", "sector 4 and sector-12 and sector7"},
		{"lone s is kept", "kid's room", "kid's room"},
		{"block", "Blk C", "block c"},
		{"road", "MG Rd", "mg road"},
		{"street", "main st near 1st cross", "main street near 1st cross"},
		{"avenue", "park ave", "park avenue"},
		{"apartment", "apt or flat", "apartment or apartment"},
		{"villa", "house or bungalow", "villa or villa"},
		{"inner whitespace collapsed", "2  bhk\tflat", "2 bhk apartment"},
		{"words containing aliases untouched", "second street stadium", "second street stadium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nq, err := n.Normalize(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, nq.Canonical)
		})
	}
}

func TestNormalizer_PriceUnits(t *testing.T) {
	n := MustNewNormalizer(DefaultRules())

	tests := []struct {
		query   string
		value   float64
		hasUnit bool
	}{
		{"50k", 50_000, true},
		{"1.5 cr", 15_000_000, true},
		{"under 45 lakh", 4_500_000, true},
		{"2 lakhs", 200_000, true},
		{"80 L", 8_000_000, true},
		{"3 crore villa", 30_000_000, true},
		{"budget 25000", 25_000, false},
		{"rent 1,20,000", 120_000, false},
		{"1200 sqft", 1200, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			nq, err := n.Normalize(tt.query)
			require.NoError(t, err)
			require.NotNil(t, nq.Price)
			assert.InDelta(t, tt.value, nq.Price.Value, 1e-6)
			assert.Equal(t, tt.hasUnit, nq.Price.HasUnit)
		})
	}
}

func TestNormalizer_Hints(t *testing.T) {
	n := MustNewNormalizer(DefaultRules())

	nq, err := n.Normalize("2 bhk sector 14 rent")
	require.NoError(t, err)
	require.NotNil(t, nq.SectorNumber)
	require.NotNil(t, nq.BedroomCount)
	assert.Equal(t, 14, *nq.SectorNumber)
	assert.Equal(t, 2, *nq.BedroomCount)
	assert.Nil(t, nq.Price)

	nq, err = n.Normalize("sector-45 4 BHK 60k")
	require.NoError(t, err)
	assert.Equal(t, 45, *nq.SectorNumber)
	assert.Equal(t, 4, *nq.BedroomCount)
	require.NotNil(t, nq.Price)
	assert.Equal(t, 60_000.0, nq.Price.Value)

	nq, err = n.Normalize("furnished apartment near metro")
	require.NoError(t, err)
	assert.Nil(t, nq.SectorNumber)
	assert.Nil(t, nq.BedroomCount)
	assert.Nil(t, nq.Price)
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := MustNewNormalizer(DefaultRules())

	queries := []string{
		"3bhk flat on sec 9",
		"  Villa IN Sector 21  ",
		"2 BHK apt near MG Rd, 45k",
		"s-12 blk c bungalow 1.5 Cr",
		"house on park ave st",
		"kid's room 2,50,000",
		"sec9 3bhk",
		"just text",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			first, err := n.Normalize(q)
			require.NoError(t, err)
			second, err := n.Normalize(first.Canonical)
			require.NoError(t, err)

			assert.Equal(t, first.Canonical, second.Canonical)
			assert.Equal(t, first.SectorNumber, second.SectorNumber)
			assert.Equal(t, first.BedroomCount, second.BedroomCount)
			assert.Equal(t, first.Price, second.Price)
		})
	}
}

func TestNormalizer_EmptyInput(t *testing.T) {
	n := MustNewNormalizer(DefaultRules())

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := n.Normalize(q)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
}

func TestLoadRules_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
synonyms:
  - canonical: sector
    aliases: [sec, sektor]
    numbered_aliases: [sec, s]
  - canonical: penthouse
    aliases: [ph]
weights:
  location: 0.5
  budget: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Len(t, rules.Synonyms, 2)
	assert.Equal(t, DefaultRules().Units, rules.Units, "units keep their defaults")
	assert.Equal(t, 0.5, rules.Weights.Location)
	assert.Equal(t, 0.0, rules.Weights.Size)

	n := MustNewNormalizer(rules)
	nq, err := n.Normalize("PH in Sektor 3")
	require.NoError(t, err)
	assert.Equal(t, "penthouse in sector 3", nq.Canonical)
}

func TestLoadRules_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("units:\n  - token: k\n    multiplier: 0\n"), 0o600))

	_, err := LoadRules(path)
	assert.Error(t, err)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}
