package conversation

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"regexp"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/utils/logging"
)

//go:embed prompt/extract.md
var extractPromptRaw string

var extractPromptTmpl = template.Must(template.New("extract").Parse(extractPromptRaw))

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// 9 to 15 digits with at most two separator characters between them,
	// so date strings like 2026-08-26 never register as a phone number
	phonePattern = regexp.MustCompile(`\+?\d(?:[\s().-]{0,2}\d){8,14}`)
)

// extractAttributes rebuilds the lead attribute record from the full
// conversation. The deterministic pass always runs; the model pass fills in
// whatever the patterns cannot see, and any model failure degrades to the
// deterministic fields alone.
func (u *UseCase) extractAttributes(ctx context.Context, history []model.ConversationTurn) model.LeadAttributes {
	det := extractDeterministic(history)

	modeled, err := u.extractWithModel(ctx, history)
	if err != nil {
		logging.From(ctx).Warn("model extraction failed, keeping deterministic fields", "error", err)
		return det
	}

	// Deterministic fields win; model values only fill the gaps
	return det.Merge(modeled)
}

// extractDeterministic scans every user turn with the fixed pattern
// matchers. The last match in history wins for each field independently, so
// a correction later in the conversation replaces the earlier value.
func extractDeterministic(history []model.ConversationTurn) model.LeadAttributes {
	var attrs model.LeadAttributes

	for _, turn := range history {
		if turn.Role != model.RoleUser {
			continue
		}

		if m := emailPattern.FindString(turn.Content); m != "" {
			email := m
			attrs.Email = &email
		}
		if m := phonePattern.FindString(turn.Content); m != "" {
			phone := m
			attrs.Phone = &phone
		}
	}

	return attrs
}

func (u *UseCase) extractWithModel(ctx context.Context, history []model.ConversationTurn) (model.LeadAttributes, error) {
	serialized, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return model.LeadAttributes{}, goerr.Wrap(err, "failed to serialize conversation")
	}

	var buf bytes.Buffer
	if err := extractPromptTmpl.Execute(&buf, map[string]any{
		"Conversation": string(serialized),
	}); err != nil {
		return model.LeadAttributes{}, goerr.Wrap(err, "failed to execute extract prompt template")
	}

	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   extractResponseSchema,
	}

	ectx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	resp, err := u.gemini.GenerateContent(ectx, []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}, config)
	if err != nil {
		return model.LeadAttributes{}, goerr.Wrap(err, "failed to generate extraction")
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return model.LeadAttributes{}, goerr.New("empty extraction response")
	}

	var attrs model.LeadAttributes
	rawJSON := resp.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(rawJSON), &attrs); err != nil {
		return model.LeadAttributes{}, goerr.Wrap(err, "failed to parse extraction result")
	}

	return attrs, nil
}

var extractResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name": {
			Type:        genai.TypeString,
			Description: "Person's full name",
			Nullable:    genai.Ptr(true),
		},
		"email": {
			Type:        genai.TypeString,
			Description: "Email address",
			Nullable:    genai.Ptr(true),
		},
		"phone": {
			Type:        genai.TypeString,
			Description: "Phone number",
			Nullable:    genai.Ptr(true),
		},
		"company": {
			Type:        genai.TypeString,
			Description: "Company name",
			Nullable:    genai.Ptr(true),
		},
		"company_size": {
			Type:        genai.TypeString,
			Description: "Team size category",
			Nullable:    genai.Ptr(true),
		},
		"budget_range": {
			Type:        genai.TypeString,
			Description: "Budget mentioned",
			Nullable:    genai.Ptr(true),
		},
		"timeline": {
			Type:        genai.TypeString,
			Description: "Implementation timeline",
			Nullable:    genai.Ptr(true),
		},
		"pain_point": {
			Type:        genai.TypeString,
			Description: "Main problem they are trying to solve",
			Nullable:    genai.Ptr(true),
		},
		"is_decision_maker": {
			Type:        genai.TypeBoolean,
			Description: "Whether they mentioned being the decision maker",
			Nullable:    genai.Ptr(true),
		},
	},
}
