package conversation

import (
	"fmt"
	"strings"

	"github.com/boralio/leadbot/pkg/model"
)

func notificationSubject(lead *model.Lead) string {
	who := "Unknown"
	if lead.Attributes.Name != nil {
		who = *lead.Attributes.Name
	} else if lead.Attributes.Email != nil {
		who = *lead.Attributes.Email
	}
	return "New qualified lead: " + who
}

// notificationBody renders the flat lead summary followed by the full
// conversation transcript
func notificationBody(lead *model.Lead) string {
	var sb strings.Builder

	sb.WriteString("New qualified lead from the Boralio chatbot\n\n")
	sb.WriteString("LEAD INFORMATION\n")
	sb.WriteString("================\n")

	writeField := func(label string, value *string) {
		if value != nil {
			fmt.Fprintf(&sb, "%s: %s\n", label, *value)
		} else {
			fmt.Fprintf(&sb, "%s: -\n", label)
		}
	}

	attrs := lead.Attributes
	writeField("Name", attrs.Name)
	writeField("Email", attrs.Email)
	writeField("Phone", attrs.Phone)
	writeField("Company", attrs.Company)
	writeField("Company size", attrs.CompanySize)
	writeField("Budget", attrs.BudgetRange)
	writeField("Timeline", attrs.Timeline)
	writeField("Pain point", attrs.PainPoint)
	if attrs.IsDecisionMaker != nil {
		fmt.Fprintf(&sb, "Decision maker: %t\n", *attrs.IsDecisionMaker)
	} else {
		sb.WriteString("Decision maker: -\n")
	}
	fmt.Fprintf(&sb, "Score: %d/100\n", lead.Score)

	sb.WriteString("\n")
	sb.WriteString(renderTranscript(lead.Conversation))

	return sb.String()
}

func renderTranscript(turns []model.ConversationTurn) string {
	if len(turns) == 0 {
		return ""
	}

	divider := strings.Repeat("=", 60)

	var sb strings.Builder
	sb.WriteString(divider + "\n")
	sb.WriteString("CONVERSATION TRANSCRIPT\n")
	sb.WriteString(divider + "\n\n")

	for _, turn := range turns {
		role := strings.ToUpper(string(turn.Role))
		timestamp := ""
		if !turn.Timestamp.IsZero() {
			timestamp = " (" + turn.Timestamp.Format("2006-01-02 15:04:05 MST") + ")"
		}
		fmt.Fprintf(&sb, "%s%s:\n%s\n\n", role, timestamp, turn.Content)
	}

	sb.WriteString(divider + "\n")
	return sb.String()
}
