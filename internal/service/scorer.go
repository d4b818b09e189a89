package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"propsearch/internal/model"
	"propsearch/internal/utils"
)

// Dimension names reported in score breakdowns
const (
	DimensionLocation     = "location"
	DimensionBudget       = "budget"
	DimensionSize         = "size"
	DimensionPropertyType = "property_type"
	DimensionFurnishing   = "furnishing"
	DimensionAmenities    = "amenities"
)

// String dimension tiers
const (
	scoreExact   = 1.0
	scorePartial = 0.75
	scoreFuzzy   = 0.5
)

// Budget tolerance bands, as a fraction of the stated budget
const (
	budgetTight = 0.05
	budgetLoose = 0.20
)

var digitsRe = regexp.MustCompile(`\d+`)

// DefaultFuzzyThreshold is the minimum normalized edit-distance similarity
// for two strings to score in the fuzzy tier
const DefaultFuzzyThreshold = 0.8

// Scorer computes how well a listing fits a preference profile. It holds only
// immutable configuration and is safe for concurrent use.
type Scorer struct {
	weights        Weights
	fuzzyThreshold float64
}

// NewScorer creates a scorer. A fuzzyThreshold outside (0,1] disables the
// fuzzy tier, leaving exact and partial matches only.
func NewScorer(weights Weights, fuzzyThreshold float64) *Scorer {
	return &Scorer{
		weights:        weights,
		fuzzyThreshold: fuzzyThreshold,
	}
}

// Score returns the match percentage of listing against profile, in [0,100]
func (s *Scorer) Score(listing *model.Listing, profile *model.PreferenceProfile) int {
	pct, _ := s.Explain(listing, profile)
	return pct
}

// Explain returns the match percentage along with the score of every
// dimension that took part. Dimensions missing from either side are skipped
// and do not count against the listing.
func (s *Scorer) Explain(listing *model.Listing, profile *model.PreferenceProfile) (int, []model.DimensionScore) {
	if listing == nil || profile == nil {
		return 0, nil
	}

	var breakdown []model.DimensionScore
	add := func(dimension string, weight float64, score float64, ok bool) {
		if !ok || weight <= 0 {
			return
		}
		breakdown = append(breakdown, model.DimensionScore{
			Dimension: dimension,
			Weight:    weight,
			Score:     score,
		})
	}

	score, ok := s.scoreString(profile.Location, listing.Location)
	add(DimensionLocation, s.weights.Location, score, ok)

	score, ok = scoreBudget(profile.Budget, listing.Price)
	add(DimensionBudget, s.weights.Budget, score, ok)

	score, ok = s.scoreString(profile.Size, listing.Configuration)
	add(DimensionSize, s.weights.Size, score, ok)

	score, ok = s.scoreString(profile.PropertyType, listing.PropertyType)
	add(DimensionPropertyType, s.weights.PropertyType, score, ok)

	score, ok = s.scoreString(profile.Furnishing, listing.Furnishing)
	add(DimensionFurnishing, s.weights.Furnishing, score, ok)

	score, ok = scoreAmenities(profile.Amenities, listing.Amenities)
	add(DimensionAmenities, s.weights.Amenities, score, ok)

	var weighted, total float64
	for _, d := range breakdown {
		weighted += d.Weight * d.Score
		total += d.Weight
	}
	if total == 0 {
		return 0, breakdown
	}
	return int(math.Round(100 * weighted / total)), breakdown
}

func (s *Scorer) scoreString(want, have *string) (float64, bool) {
	if blank(want) || blank(have) {
		return 0, false
	}
	switch {
	case utils.EqualFold(*want, *have):
		return scoreExact, true
	case utils.ContainsEither(*want, *have):
		return scorePartial, true
	case s.fuzzy(*want, *have):
		return scoreFuzzy, true
	}
	return 0, true
}

// fuzzy tolerates spelling slips but never a different number, so "2 BHK"
// and "4 BHK" stay apart
func (s *Scorer) fuzzy(want, have string) bool {
	if s.fuzzyThreshold <= 0 || s.fuzzyThreshold > 1 {
		return false
	}
	if digits(want) != digits(have) {
		return false
	}
	return utils.Similarity(want, have) >= s.fuzzyThreshold
}

func digits(s string) string {
	return strings.Join(digitsRe.FindAllString(s, -1), " ")
}

func scoreBudget(budget *string, price *float64) (float64, bool) {
	if blank(budget) || price == nil {
		return 0, false
	}
	b, err := parseBudget(*budget)
	if err != nil || b <= 0 {
		return 0, false
	}

	diff := math.Abs(*price - b)
	switch {
	case diff <= b*budgetTight:
		return 1, true
	case diff <= b*budgetLoose:
		return 0.75, true
	}
	return 0, true
}

// parseBudget reads a stored budget such as "45000" or "45,000"
func parseBudget(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}

func scoreAmenities(want, have []string) (float64, bool) {
	if len(want) == 0 || len(have) == 0 {
		return 0, false
	}
	matched := 0
	for _, w := range want {
		if utils.MatchAny(w, have) {
			matched++
		}
	}
	return float64(matched) / float64(len(want)), true
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
