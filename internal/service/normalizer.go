package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"propsearch/internal/apperr"
	"propsearch/internal/model"
)

var (
	sectorNumberRe = regexp.MustCompile(`\bsector\s*-?\s*(\d+)`)
	bedroomRe      = regexp.MustCompile(`(\d+)\s*bhk\b`)
	priceRe        = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*([a-z]+)?`)
	digitCommaRe   = regexp.MustCompile(`(\d),(\d)`)
)

type substitution struct {
	re          *regexp.Regexp
	replacement string
}

// Normalizer rewrites raw search strings into canonical form and extracts
// structured hints. It holds only immutable compiled rules and is safe for
// concurrent use.
type Normalizer struct {
	substitutions []substitution
	units         map[string]float64
}

// NewNormalizer compiles the synonym and unit tables of rules
func NewNormalizer(rules Rules) (*Normalizer, error) {
	n := &Normalizer{units: make(map[string]float64, len(rules.Units))}

	for _, class := range rules.Synonyms {
		canonical := strings.ToLower(class.Canonical)
		if numbered := aliasAlternation(class.NumberedAliases); numbered != "" {
			re, err := regexp.Compile(`\b(?:` + numbered + `)(\s*-?\s*\d)`)
			if err != nil {
				return nil, fmt.Errorf("compile numbered aliases for %q: %w", canonical, err)
			}
			n.substitutions = append(n.substitutions, substitution{re: re, replacement: canonical + "${1}"})
		}
		if plain := aliasAlternation(class.Aliases); plain != "" {
			re, err := regexp.Compile(`\b(?:` + plain + `)\b`)
			if err != nil {
				return nil, fmt.Errorf("compile aliases for %q: %w", canonical, err)
			}
			n.substitutions = append(n.substitutions, substitution{re: re, replacement: canonical})
		}
	}

	for _, u := range rules.Units {
		n.units[strings.ToLower(u.Token)] = u.Multiplier
	}
	return n, nil
}

// MustNewNormalizer is NewNormalizer for rules known to be valid
func MustNewNormalizer(rules Rules) *Normalizer {
	n, err := NewNormalizer(rules)
	if err != nil {
		panic(err)
	}
	return n
}

// aliasAlternation builds a regexp alternation, longest alias first so that
// "sec" wins over "s".
func aliasAlternation(aliases []string) string {
	quoted := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(a))
	}
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return strings.Join(quoted, "|")
}

// Normalize canonicalizes raw and extracts the sector number, bedroom count
// and price. Empty input is an InvalidInput error. Normalizing an already
// canonical string yields the same canonical string and hints.
func (n *Normalizer) Normalize(raw string) (*model.NormalizedQuery, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.InvalidInput("query is required")
	}

	canonical := strings.ToLower(raw)
	for _, sub := range n.substitutions {
		canonical = sub.re.ReplaceAllString(canonical, sub.replacement)
	}
	canonical = strings.Join(strings.Fields(canonical), " ")

	nq := &model.NormalizedQuery{
		Raw:       raw,
		Canonical: canonical,
	}

	// Numbers consumed by the sector and bhk hints are masked out before
	// looking for a price.
	masked := []byte(canonical)

	if loc := sectorNumberRe.FindStringSubmatchIndex(canonical); loc != nil {
		if v, err := strconv.Atoi(canonical[loc[2]:loc[3]]); err == nil {
			nq.SectorNumber = &v
		}
		mask(masked, loc[0], loc[1])
	}

	if loc := bedroomRe.FindStringSubmatchIndex(canonical); loc != nil {
		if v, err := strconv.Atoi(canonical[loc[2]:loc[3]]); err == nil {
			nq.BedroomCount = &v
		}
		mask(masked, loc[0], loc[1])
	}

	nq.Price = n.extractPrice(string(masked))
	return nq, nil
}

func (n *Normalizer) extractPrice(s string) *model.PriceHint {
	for digitCommaRe.MatchString(s) {
		s = digitCommaRe.ReplaceAllString(s, "${1}${2}")
	}

	m := priceRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}

	hint := &model.PriceHint{Value: value}
	if unit, multiplier, ok := n.lookupUnit(m[2]); ok {
		hint.Value = value * multiplier
		hint.Unit = unit
		hint.HasUnit = true
	}
	return hint
}

// lookupUnit resolves a unit token, accepting plurals of word units ("lakhs").
func (n *Normalizer) lookupUnit(token string) (string, float64, bool) {
	if token == "" {
		return "", 0, false
	}
	if m, ok := n.units[token]; ok {
		return token, m, true
	}
	if len(token) > 3 && strings.HasSuffix(token, "s") {
		singular := strings.TrimSuffix(token, "s")
		if m, ok := n.units[singular]; ok {
			return singular, m, true
		}
	}
	return "", 0, false
}

func mask(b []byte, from, to int) {
	for i := from; i < to; i++ {
		b[i] = ' '
	}
}
