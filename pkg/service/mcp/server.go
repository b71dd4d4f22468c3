package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/repository"
	"github.com/boralio/leadbot/pkg/usecase/knowledge"
)

// Service exposes the knowledge base and captured leads as MCP tools, so
// sales tooling and other agents can query them over stdio.
type Service struct {
	knowledge *knowledge.UseCase
	repo      repository.Repository
}

func New(knowledgeUC *knowledge.UseCase, repo repository.Repository) *Service {
	return &Service{
		knowledge: knowledgeUC,
		repo:      repo,
	}
}

type searchKnowledgeParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type getLeadParams struct {
	SessionID string `json:"session_id"`
}

type listLeadsParams struct {
	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

// NewServer builds the MCP server with all tools registered.
func (s *Service) NewServer(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "leadbot",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the Boralio knowledge base by semantic similarity",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Natural language query"},
				"limit": {Type: "integer", Description: "Maximum number of results (default 3)"},
			},
			Required: []string{"query"},
		},
	}, s.searchKnowledge)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_lead",
		Description: "Fetch a captured lead by its session ID",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"session_id": {Type: "string", Description: "Session ID of the lead"},
			},
			Required: []string{"session_id"},
		},
	}, s.getLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_leads",
		Description: "List captured leads, most recently updated first",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"offset": {Type: "integer", Description: "Number of leads to skip"},
				"limit":  {Type: "integer", Description: "Maximum number of leads (default 20)"},
			},
		},
	}, s.listLeads)

	return server
}

// Run serves MCP requests on stdin/stdout until the context is cancelled.
func (s *Service) Run(ctx context.Context, version string) error {
	server := s.NewServer(version)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "mcp server failed")
	}
	return nil
}

func (s *Service) searchKnowledge(ctx context.Context, req *mcp.CallToolRequest, params *searchKnowledgeParams) (*mcp.CallToolResult, any, error) {
	results, err := s.knowledge.Search(ctx, params.Query, params.Limit)
	if err != nil {
		return nil, nil, err
	}

	if len(results) == 0 {
		return textResult("No matching documents found."), nil, nil
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%.3f] %s\n%s", r.Similarity, r.Record.Title, r.Record.Content)
		if r.Record.URL != "" {
			fmt.Fprintf(&sb, "\n%s", r.Record.URL)
		}
	}
	return textResult(sb.String()), nil, nil
}

func (s *Service) getLead(ctx context.Context, req *mcp.CallToolRequest, params *getLeadParams) (*mcp.CallToolResult, any, error) {
	if params.SessionID == "" {
		return nil, nil, goerr.New("session_id is required")
	}

	lead, err := s.repo.GetLead(ctx, model.SessionID(params.SessionID))
	if err != nil {
		return nil, nil, err
	}

	return jsonResult(lead)
}

func (s *Service) listLeads(ctx context.Context, req *mcp.CallToolRequest, params *listLeadsParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	leads, err := s.repo.ListLeads(ctx, params.Offset, limit)
	if err != nil {
		return nil, nil, err
	}

	return jsonResult(leads)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to serialize result")
	}
	return textResult(string(data)), nil, nil
}
