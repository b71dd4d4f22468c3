package conversation

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/boralio/leadbot/pkg/model"
)

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Parse(systemPromptRaw))

const (
	// fallbackContext replaces retrieved context when retrieval yields nothing
	fallbackContext = "No specific information found."

	// maxPendingQuestions caps the "still needed" list in the directive to
	// keep the model from firing interrogative bursts
	maxPendingQuestions = 3

	replyTemperature = float32(0.7)
	replyMaxTokens   = int32(500)
)

// qualificationQuestions phrases the ask for each attribute the assistant
// still needs. Attributes without an entry are never asked for directly.
var qualificationQuestions = map[model.AttributeName]string{
	model.AttrName:        "What's your name?",
	model.AttrEmail:       "To send you more information, what's your email address?",
	model.AttrPhone:       "What's the best phone number to reach you?",
	model.AttrCompany:     "What company are you with?",
	model.AttrCompanySize: "How large is your team? (1-10, 11-50, 51-200, 200+)",
	model.AttrBudgetRange: "What's your budget range for AI automation? ($5k-15k, $15k-50k, $50k+)",
	model.AttrTimeline:    "When are you looking to implement? (This month, Next quarter, Exploring)",
	model.AttrPainPoint:   "What's the biggest workflow challenge you're trying to solve?",
}

type pendingQuestion struct {
	Name     model.AttributeName
	Question string
}

// composeReply builds the system directive, generates the assistant reply
// and appends both turns to the returned history. A completion failure here
// is the one hard error of a turn: without it there is no reply to return.
func (u *UseCase) composeReply(
	ctx context.Context,
	message string,
	history []model.ConversationTurn,
	sources []*model.ScoredKnowledge,
	attrs model.LeadAttributes,
) (string, []model.ConversationTurn, error) {
	directive, err := buildDirective(sources, attrs)
	if err != nil {
		return "", nil, err
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	temperature := replyTemperature
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(directive, ""),
		Temperature:       &temperature,
		MaxOutputTokens:   replyMaxTokens,
	}

	cctx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	resp, err := u.gemini.GenerateContent(cctx, contents, config)
	if err != nil {
		return "", nil, goerr.Wrap(err, "failed to generate reply")
	}

	reply := responseText(resp)
	if reply == "" {
		return "", nil, goerr.New("empty reply from model")
	}

	updated := model.AppendTurn(history, model.RoleUser, message)
	updated = model.AppendTurn(updated, model.RoleAssistant, reply)

	return reply, updated, nil
}

// buildDirective renders the system prompt with qualification status and
// retrieved context
func buildDirective(sources []*model.ScoredKnowledge, attrs model.LeadAttributes) (string, error) {
	knowledgeContext := fallbackContext
	if len(sources) > 0 {
		parts := make([]string, 0, len(sources))
		for _, s := range sources {
			parts = append(parts, "Source: "+s.Record.Title+"\n"+s.Record.Content)
		}
		knowledgeContext = strings.Join(parts, "\n\n")
	}

	var needed []pendingQuestion
	for _, name := range attrs.Missing() {
		question, ok := qualificationQuestions[name]
		if !ok {
			continue
		}
		needed = append(needed, pendingQuestion{Name: name, Question: question})
		if len(needed) == maxPendingQuestions {
			break
		}
	}

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, map[string]any{
		"Collected": attrs.Known(),
		"Needed":    needed,
		"Context":   knowledgeContext,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute system prompt template")
	}

	return buf.String(), nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
