package conversation

import "github.com/boralio/leadbot/pkg/model"

// attributeWeights is the qualification weight of each schema attribute.
// Weights sum to 100. Contact identity and buying intent weigh most; name,
// phone and company size are collected for the record but do not signal
// sales readiness on their own.
var attributeWeights = map[model.AttributeName]int{
	model.AttrName:            0,
	model.AttrEmail:           20,
	model.AttrPhone:           0,
	model.AttrCompany:         10,
	model.AttrCompanySize:     0,
	model.AttrBudgetRange:     25,
	model.AttrTimeline:        15,
	model.AttrPainPoint:       20,
	model.AttrIsDecisionMaker: 10,
}

// Score computes the qualification score in [0, 100]. It is a pure function
// of the attribute record, recomputed from scratch every turn: each known
// attribute adds its fixed weight, so learning more never lowers the score.
// The decision-maker flag counts only when affirmed.
func Score(attrs model.LeadAttributes) int {
	score := 0
	for _, name := range model.AttributeNames {
		if !attrs.Has(name) {
			continue
		}
		if name == model.AttrIsDecisionMaker && !*attrs.IsDecisionMaker {
			continue
		}
		score += attributeWeights[name]
	}
	return score
}
