// Package personality defines the six-dimension trait representation shared
// by the similarity engine and the compatibility analyzer.
package personality

import "strings"

// Dimension identifies one personality axis independent of display locale.
type Dimension int

const (
	// Unknown marks a trait whose label matched no known dimension.
	Unknown Dimension = iota
	Openness
	Conscientiousness
	Extraversion
	Agreeableness
	Neuroticism
	HonestyHumility
)

// Dimensions lists every known dimension in canonical order.
var Dimensions = []Dimension{
	Openness,
	Conscientiousness,
	Extraversion,
	Agreeableness,
	Neuroticism,
	HonestyHumility,
}

// Supported display locales.
const (
	LocaleEN = "en"
	LocaleKO = "ko"
)

var keys = map[Dimension]string{
	Openness:          "openness",
	Conscientiousness: "conscientiousness",
	Extraversion:      "extraversion",
	Agreeableness:     "agreeableness",
	Neuroticism:       "neuroticism",
	HonestyHumility:   "honesty_humility",
}

var labels = map[string]map[Dimension]string{
	LocaleEN: {
		Openness:          "Openness",
		Conscientiousness: "Conscientiousness",
		Extraversion:      "Extraversion",
		Agreeableness:     "Agreeableness",
		Neuroticism:       "Neuroticism",
		HonestyHumility:   "Honesty-Humility",
	},
	LocaleKO: {
		Openness:          "개방성",
		Conscientiousness: "성실성",
		Extraversion:      "외향성",
		Agreeableness:     "우호성",
		Neuroticism:       "신경증",
		HonestyHumility:   "정직성",
	},
}

// lookup indexes every key and label, lower-cased, back to its dimension.
var lookup = func() map[string]Dimension {
	m := make(map[string]Dimension)
	for d, k := range keys {
		m[k] = d
		m[strings.ReplaceAll(k, "_", "-")] = d
	}
	for _, byDim := range labels {
		for d, l := range byDim {
			m[strings.ToLower(l)] = d
		}
	}
	return m
}()

// String returns the locale-independent key, e.g. "honesty_humility".
func (d Dimension) String() string {
	if k, ok := keys[d]; ok {
		return k
	}
	return "unknown"
}

// Label returns the display label of d in locale. Unknown locales fall back
// to English.
func (d Dimension) Label(locale string) string {
	byDim, ok := labels[locale]
	if !ok {
		byDim = labels[LocaleEN]
	}
	if l, ok := byDim[d]; ok {
		return l
	}
	return d.String()
}

// ParseDimension resolves a key or any locale's display label to a Dimension.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseDimension(s string) (Dimension, bool) {
	d, ok := lookup[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}
