package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/server"
	"github.com/boralio/leadbot/pkg/usecase/conversation"
)

type stubChat struct {
	mu      sync.Mutex
	inputs  []conversation.ChatInput
	reply   string
	sources []*model.ScoredKnowledge
	err     error
}

func (c *stubChat) Chat(ctx context.Context, input conversation.ChatInput) (*conversation.ChatOutput, error) {
	c.mu.Lock()
	c.inputs = append(c.inputs, input)
	c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}

	history := model.AppendTurn(input.History, model.RoleUser, input.Message)
	history = model.AppendTurn(history, model.RoleAssistant, c.reply)

	return &conversation.ChatOutput{
		Reply:   c.reply,
		History: history,
		Sources: c.sources,
	}, nil
}

func postChat(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(ts.URL+"/chat", "application/json", bytes.NewBufferString(body))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	data, err := io.ReadAll(resp.Body)
	gt.NoError(t, err)

	var parsed map[string]any
	gt.NoError(t, json.Unmarshal(data, &parsed))
	return resp, parsed
}

func TestChatEndpoint(t *testing.T) {
	chat := &stubChat{
		reply: "Hi! What brings you to Boralio?",
		sources: []*model.ScoredKnowledge{
			{
				Record:     &model.KnowledgeRecord{Title: "Pricing", URL: "https://boralio.example/pricing"},
				Similarity: 0.88,
			},
		},
	}
	ts := httptest.NewServer(server.New(chat))
	defer ts.Close()

	resp, body := postChat(t, ts, `{"message":"hello"}`)
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.Equal(t, body["message"], "Hi! What brings you to Boralio?")

	// Session ID is generated when the client does not supply one
	sessionID, ok := body["session_id"].(string)
	gt.True(t, ok)
	gt.S(t, sessionID).NotContains(" ")
	gt.True(t, sessionID != "")

	sources, ok := body["sources"].([]any)
	gt.True(t, ok)
	gt.A(t, sources).Length(1)
	src := sources[0].(map[string]any)
	gt.Equal(t, src["title"], "Pricing")
}

func TestChatSessionHistoryAccumulates(t *testing.T) {
	chat := &stubChat{reply: "ok"}
	ts := httptest.NewServer(server.New(chat))
	defer ts.Close()

	_, first := postChat(t, ts, `{"message":"first"}`)
	sessionID := first["session_id"].(string)

	_, second := postChat(t, ts, `{"message":"second","session_id":"`+sessionID+`"}`)
	gt.Equal(t, second["session_id"].(string), sessionID)

	// Second turn sees the two turns from the first exchange
	gt.A(t, chat.inputs).Length(2)
	gt.A(t, chat.inputs[0].History).Length(0)
	gt.A(t, chat.inputs[1].History).Length(2)
	gt.Equal(t, chat.inputs[1].History[0].Content, "first")
}

func TestChatSessionsAreIndependent(t *testing.T) {
	chat := &stubChat{reply: "ok"}
	ts := httptest.NewServer(server.New(chat))
	defer ts.Close()

	_, a := postChat(t, ts, `{"message":"from a"}`)
	_, b := postChat(t, ts, `{"message":"from b"}`)

	gt.True(t, a["session_id"].(string) != b["session_id"].(string))
	gt.A(t, chat.inputs[1].History).Length(0)
}

func TestChatValidation(t *testing.T) {
	ts := httptest.NewServer(server.New(&stubChat{reply: "ok"}))
	defer ts.Close()

	t.Run("missing message", func(t *testing.T) {
		resp, body := postChat(t, ts, `{}`)
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
		gt.S(t, body["error"].(string)).Contains("message")
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := postChat(t, ts, `{"message"`)
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
	})
}

func TestChatServiceFailure(t *testing.T) {
	chat := &stubChat{err: errors.New("model unavailable")}
	ts := httptest.NewServer(server.New(chat))
	defer ts.Close()

	resp, body := postChat(t, ts, `{"message":"hello"}`)
	gt.Equal(t, resp.StatusCode, http.StatusInternalServerError)
	gt.S(t, body["error"].(string)).Contains("failed")
}

func TestHealthEndpoint(t *testing.T) {
	ts := httptest.NewServer(server.New(&stubChat{reply: "ok"}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	gt.NoError(t, err)
	defer resp.Body.Close()
	gt.Equal(t, resp.StatusCode, http.StatusOK)
}

func TestMetricsEndpoint(t *testing.T) {
	chat := &stubChat{reply: "ok"}
	ts := httptest.NewServer(server.New(chat))
	defer ts.Close()

	postChat(t, ts, `{"message":"hello"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	gt.NoError(t, err)
	defer resp.Body.Close()
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	data, err := io.ReadAll(resp.Body)
	gt.NoError(t, err)
	gt.S(t, string(data)).Contains("leadbot_turns_total")
}
