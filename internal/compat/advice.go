package compat

import "github.com/personamatch/engine/internal/personality"

var commonGroundText = map[personality.Dimension]string{
	personality.Agreeableness: "You both care about harmony and treat each other with kindness.",
	personality.Openness:      "You share curiosity about new ideas, places and experiences.",
	personality.Extraversion:  "Your social rhythms match, so plans for time together come easily.",
}

var differencesText = map[personality.Dimension]string{
	personality.Extraversion:      "Respect how each of you recharges: one needs people, the other needs quiet.",
	personality.Conscientiousness: "Agree on plans and expectations early; you organise your lives differently.",
	personality.Neuroticism:       "Be patient with how differently you each react to stress.",
}

var (
	artisticActivities = []string{"Visiting a gallery or exhibition", "Taking a creative class together", "A quiet walk and a long conversation"}
	socialActivities   = []string{"Going to a festival or concert", "Joining a group sport or club", "Hosting a party with friends"}
	quietActivities    = []string{"A cosy cafe visit", "Watching a movie at home", "Cooking a meal together"}
)

// Order in which advice sentences are emitted.
var (
	commonGroundOrder = []personality.Dimension{personality.Agreeableness, personality.Openness, personality.Extraversion}
	differencesOrder  = []personality.Dimension{personality.Extraversion, personality.Conscientiousness, personality.Neuroticism}
)

func buildAdvice(strengths, complementary []DimensionResult) Advice {
	adv := Advice{
		CommonGround: []string{},
		Differences:  []string{},
	}

	for _, d := range commonGroundOrder {
		if contains(strengths, d) {
			adv.CommonGround = append(adv.CommonGround, commonGroundText[d])
		}
	}
	for _, d := range differencesOrder {
		if contains(complementary, d) {
			adv.Differences = append(adv.Differences, differencesText[d])
		}
	}

	switch {
	case hasTier(strengths, personality.Openness, TierHigh) && hasTier(strengths, personality.Agreeableness, TierHigh):
		adv.Activities = append([]string(nil), artisticActivities...)
	case hasTier(strengths, personality.Extraversion, TierHigh):
		adv.Activities = append([]string(nil), socialActivities...)
	default:
		adv.Activities = append([]string(nil), quietActivities...)
	}
	return adv
}

func contains(results []DimensionResult, d personality.Dimension) bool {
	for _, r := range results {
		if r.Dimension == d {
			return true
		}
	}
	return false
}

func hasTier(results []DimensionResult, d personality.Dimension, t Tier) bool {
	for _, r := range results {
		if r.Dimension == d && r.Tier == t {
			return true
		}
	}
	return false
}
