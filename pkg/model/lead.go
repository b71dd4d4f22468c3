package model

import "time"

// AttributeName identifies one field of the lead qualification schema.
type AttributeName string

const (
	AttrName            AttributeName = "name"
	AttrEmail           AttributeName = "email"
	AttrPhone           AttributeName = "phone"
	AttrCompany         AttributeName = "company"
	AttrCompanySize     AttributeName = "company_size"
	AttrBudgetRange     AttributeName = "budget_range"
	AttrTimeline        AttributeName = "timeline"
	AttrPainPoint       AttributeName = "pain_point"
	AttrIsDecisionMaker AttributeName = "is_decision_maker"
)

// AttributeNames lists the full schema in presentation order.
var AttributeNames = []AttributeName{
	AttrName,
	AttrEmail,
	AttrPhone,
	AttrCompany,
	AttrCompanySize,
	AttrBudgetRange,
	AttrTimeline,
	AttrPainPoint,
	AttrIsDecisionMaker,
}

// LeadAttributes is the structured record extracted from a conversation.
// A nil field means the attribute has not been mentioned yet. The record is
// rebuilt from the full conversation on every turn, never mutated in place.
type LeadAttributes struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Company         *string `json:"company"`
	CompanySize     *string `json:"company_size"`
	BudgetRange     *string `json:"budget_range"`
	Timeline        *string `json:"timeline"`
	PainPoint       *string `json:"pain_point"`
	IsDecisionMaker *bool   `json:"is_decision_maker"`
}

// Has reports whether the named attribute is known (non-nil).
func (a *LeadAttributes) Has(name AttributeName) bool {
	switch name {
	case AttrName:
		return a.Name != nil
	case AttrEmail:
		return a.Email != nil
	case AttrPhone:
		return a.Phone != nil
	case AttrCompany:
		return a.Company != nil
	case AttrCompanySize:
		return a.CompanySize != nil
	case AttrBudgetRange:
		return a.BudgetRange != nil
	case AttrTimeline:
		return a.Timeline != nil
	case AttrPainPoint:
		return a.PainPoint != nil
	case AttrIsDecisionMaker:
		return a.IsDecisionMaker != nil
	default:
		return false
	}
}

// Known returns the names of attributes with a value, in schema order.
func (a *LeadAttributes) Known() []AttributeName {
	var known []AttributeName
	for _, name := range AttributeNames {
		if a.Has(name) {
			known = append(known, name)
		}
	}
	return known
}

// Missing returns the names of attributes still unknown, in schema order.
func (a *LeadAttributes) Missing() []AttributeName {
	var missing []AttributeName
	for _, name := range AttributeNames {
		if !a.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Merge fills nil fields of a from other without ever overwriting a known
// value. Used to layer the model-assisted extraction pass under the
// deterministic one.
func (a LeadAttributes) Merge(other LeadAttributes) LeadAttributes {
	if a.Name == nil {
		a.Name = other.Name
	}
	if a.Email == nil {
		a.Email = other.Email
	}
	if a.Phone == nil {
		a.Phone = other.Phone
	}
	if a.Company == nil {
		a.Company = other.Company
	}
	if a.CompanySize == nil {
		a.CompanySize = other.CompanySize
	}
	if a.BudgetRange == nil {
		a.BudgetRange = other.BudgetRange
	}
	if a.Timeline == nil {
		a.Timeline = other.Timeline
	}
	if a.PainPoint == nil {
		a.PainPoint = other.PainPoint
	}
	if a.IsDecisionMaker == nil {
		a.IsDecisionMaker = other.IsDecisionMaker
	}
	return a
}

// Lead is the persisted aggregate for a qualified prospect, keyed uniquely by
// session ID. The session key is the sole deduplication mechanism: repeated
// qualifying turns overwrite the row, never duplicate it.
type Lead struct {
	SessionID    SessionID
	Attributes   LeadAttributes
	Score        int
	Conversation []ConversationTurn
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
