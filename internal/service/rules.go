package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SynonymClass collapses a set of aliases into one canonical token.
// NumberedAliases are only rewritten when a number follows them directly
// ("s 9", "s-9", "s9"), which keeps single letters from being rewritten in
// ordinary text.
type SynonymClass struct {
	Canonical       string   `yaml:"canonical"`
	Aliases         []string `yaml:"aliases"`
	NumberedAliases []string `yaml:"numbered_aliases,omitempty"`
}

// PriceUnit maps a unit token to its multiplier
type PriceUnit struct {
	Token      string  `yaml:"token"`
	Multiplier float64 `yaml:"multiplier"`
}

// Weights are the per-dimension weights of the preference scorer
type Weights struct {
	Location     float64 `yaml:"location"`
	Budget       float64 `yaml:"budget"`
	Size         float64 `yaml:"size"`
	PropertyType float64 `yaml:"property_type"`
	Furnishing   float64 `yaml:"furnishing"`
	Amenities    float64 `yaml:"amenities"`
}

func (w Weights) sum() float64 {
	return w.Location + w.Budget + w.Size + w.PropertyType + w.Furnishing + w.Amenities
}

func (w Weights) isZero() bool {
	return w == Weights{}
}

// Rules is the immutable matching configuration. The order of Synonyms is the
// order substitutions are applied in.
type Rules struct {
	Synonyms []SynonymClass `yaml:"synonyms"`
	Units    []PriceUnit    `yaml:"units"`
	Weights  Weights        `yaml:"weights"`
}

// DefaultRules returns the built-in synonym table, price units and weights
func DefaultRules() Rules {
	return Rules{
		Synonyms: []SynonymClass{
			{Canonical: "sector", Aliases: []string{"sec"}, NumberedAliases: []string{"sec", "s"}},
			{Canonical: "block", Aliases: []string{"blk"}},
			{Canonical: "road", Aliases: []string{"rd"}},
			{Canonical: "street", Aliases: []string{"st"}},
			{Canonical: "avenue", Aliases: []string{"ave"}},
			{Canonical: "apartment", Aliases: []string{"flat", "apt"}},
			{Canonical: "villa", Aliases: []string{"house", "bungalow"}},
		},
		Units: []PriceUnit{
			{Token: "k", Multiplier: 1_000},
			{Token: "l", Multiplier: 100_000},
			{Token: "lac", Multiplier: 100_000},
			{Token: "lakh", Multiplier: 100_000},
			{Token: "cr", Multiplier: 10_000_000},
			{Token: "crore", Multiplier: 10_000_000},
		},
		Weights: Weights{
			Location:     0.25,
			Budget:       0.25,
			Size:         0.20,
			PropertyType: 0.10,
			Furnishing:   0.10,
			Amenities:    0.10,
		},
	}
}

// LoadRules reads a YAML rules file and overlays it on DefaultRules. Sections
// missing from the file keep their defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return rules, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	if len(file.Synonyms) > 0 {
		rules.Synonyms = file.Synonyms
	}
	if len(file.Units) > 0 {
		rules.Units = file.Units
	}
	if !file.Weights.isZero() {
		rules.Weights = file.Weights
	}

	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks the rules are usable
func (r Rules) Validate() error {
	for _, class := range r.Synonyms {
		if class.Canonical == "" {
			return fmt.Errorf("synonym class without canonical token")
		}
	}
	for _, u := range r.Units {
		if u.Token == "" || u.Multiplier <= 0 {
			return fmt.Errorf("price unit %q must have a positive multiplier", u.Token)
		}
	}
	w := r.Weights
	for _, v := range []float64{w.Location, w.Budget, w.Size, w.PropertyType, w.Furnishing, w.Amenities} {
		if v < 0 {
			return fmt.Errorf("weights must not be negative")
		}
	}
	if w.sum() <= 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	return nil
}
