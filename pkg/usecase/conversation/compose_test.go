package conversation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"google.golang.org/genai"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/usecase/conversation"
)

func TestComposeWithEmptyCorpus(t *testing.T) {
	gemini := &mockGemini{
		extractJSON: `{}`,
		replyText:   "Happy to help!",
	}
	uc := conversation.New(newMemoryRepo(), gemini)

	out, err := uc.Chat(context.Background(), conversation.ChatInput{
		SessionID: model.NewSessionID(),
		Message:   "What do you do?",
	})
	gt.NoError(t, err)
	gt.Equal(t, out.Reply, "Happy to help!")
	gt.A(t, out.Sources).Length(0)

	// The directive carries the fixed fallback instead of retrieved context
	gt.S(t, gemini.lastDirective).Contains("No specific information found.")
}

func TestComposeEmbedsRetrievedContext(t *testing.T) {
	repo := newMemoryRepo()
	gt.NoError(t, repo.PutKnowledge(context.Background(), &model.KnowledgeRecord{
		ID:      model.NewKnowledgeID(),
		Title:   "Workflow automation services",
		Content: "Boralio builds AI workflow automations.",
	}))

	gemini := &mockGemini{
		extractJSON: `{}`,
		replyText:   "We build automations.",
	}
	uc := conversation.New(repo, gemini)

	out, err := uc.Chat(context.Background(), conversation.ChatInput{
		SessionID: model.NewSessionID(),
		Message:   "What do you do?",
	})
	gt.NoError(t, err)
	gt.A(t, out.Sources).Length(1)
	gt.S(t, gemini.lastDirective).Contains("Source: Workflow automation services")
	gt.S(t, gemini.lastDirective).Contains("Boralio builds AI workflow automations.")
	gt.S(t, gemini.lastDirective).NotContains("No specific information found.")
}

func TestComposeCapsPendingQuestions(t *testing.T) {
	gemini := &mockGemini{
		extractJSON: `{}`,
		replyText:   "Hello!",
	}
	uc := conversation.New(newMemoryRepo(), gemini)

	_, err := uc.Chat(context.Background(), conversation.ChatInput{
		SessionID: model.NewSessionID(),
		Message:   "Hi",
	})
	gt.NoError(t, err)

	// Nothing is known, so the first three schema attributes are listed
	// and the rest are held back for later turns
	gt.S(t, gemini.lastDirective).Contains("What's your name?")
	gt.S(t, gemini.lastDirective).Contains("what's your email address?")
	gt.S(t, gemini.lastDirective).Contains("phone number")
	gt.S(t, gemini.lastDirective).NotContains("What company are you with?")
	gt.S(t, gemini.lastDirective).NotContains("budget range")
}

func TestComposeListsCollectedAttributes(t *testing.T) {
	gemini := &mockGemini{
		extractJSON: `{"company":"Acme"}`,
		replyText:   "Great!",
	}
	uc := conversation.New(newMemoryRepo(), gemini)

	_, err := uc.Chat(context.Background(), conversation.ChatInput{
		SessionID: model.NewSessionID(),
		Message:   "I'm at a@b.com",
	})
	gt.NoError(t, err)

	gt.S(t, gemini.lastDirective).Contains("Collected: email, company")
}

func TestComposeAppendsBothTurns(t *testing.T) {
	gemini := &mockGemini{
		extractJSON: `{}`,
		replyText:   "Sure thing.",
	}
	uc := conversation.New(newMemoryRepo(), gemini)

	history := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "Hi"},
		{Role: model.RoleAssistant, Content: "Hello!"},
	}

	out, err := uc.Chat(context.Background(), conversation.ChatInput{
		SessionID: model.NewSessionID(),
		Message:   "Tell me more",
		History:   history,
	})
	gt.NoError(t, err)

	gt.A(t, out.History).Length(4)
	gt.Equal(t, out.History[2].Role, model.RoleUser)
	gt.Equal(t, out.History[2].Content, "Tell me more")
	gt.Equal(t, out.History[3].Role, model.RoleAssistant)
	gt.Equal(t, out.History[3].Content, "Sure thing.")
	gt.False(t, out.History[2].Timestamp.IsZero())
	gt.False(t, out.History[3].Timestamp.IsZero())

	// Prior history plus the new message reach the model in order, with
	// assistant turns mapped to the model role
	gt.A(t, gemini.replyContents).Length(3)
	gt.Equal(t, gemini.replyContents[0].Role, genai.RoleUser)
	gt.Equal(t, gemini.replyContents[1].Role, genai.RoleModel)
	gt.Equal(t, gemini.replyContents[2].Role, genai.RoleUser)
}

func TestComposeFailureIsHard(t *testing.T) {
	gemini := &mockGemini{
		extractJSON: `{}`,
		replyErr:    errors.New("completion unavailable"),
	}
	uc := conversation.New(newMemoryRepo(), gemini)

	_, err := uc.Chat(context.Background(), conversation.ChatInput{
		SessionID: model.NewSessionID(),
		Message:   "Hi",
	})
	gt.Error(t, err)
}

func TestRetrievalFailureDegrades(t *testing.T) {
	repo := newMemoryRepo()
	repo.searchErr = errors.New("store unavailable")

	gemini := &mockGemini{
		extractJSON: `{}`,
		replyText:   "Still here!",
	}
	uc := conversation.New(repo, gemini)

	out, err := uc.Chat(context.Background(), conversation.ChatInput{
		SessionID: model.NewSessionID(),
		Message:   "Hello?",
	})
	gt.NoError(t, err)
	gt.Equal(t, out.Reply, "Still here!")
	gt.S(t, gemini.lastDirective).Contains("No specific information found.")
}
