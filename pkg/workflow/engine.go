package workflow

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/boralio/leadbot/pkg/model"
)

// Engine evaluates Rego policies that decide how qualified-lead
// notifications are routed. A nil Engine applies the default routing.
type Engine struct {
	routingPolicy *rego.PreparedEvalQuery
}

// Decision is the outcome of the routing policy for one lead.
type Decision struct {
	// Suppress skips the notification entirely
	Suppress bool `json:"suppress"`

	// Recipients overrides the default notification recipient when non-empty
	Recipients []string `json:"recipients"`
}

// New loads all Rego files from policyDir and prepares the data.routing
// query. An empty policyDir or a directory without .rego files yields a nil
// Engine.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	if policyDir == "" {
		return nil, nil
	}

	routing, err := loadPolicies(ctx, policyDir)
	if err != nil {
		return nil, err
	}
	if routing == nil {
		return nil, nil
	}

	return &Engine{routingPolicy: routing}, nil
}

// routingInput is the document handed to the policy as input.
type routingInput struct {
	SessionID  string               `json:"session_id"`
	Score      int                  `json:"score"`
	Attributes model.LeadAttributes `json:"attributes"`
}

// EvalRouting evaluates the routing policy for a lead. A nil engine, an
// empty result set or a policy without routing rules all return the default
// decision (send to the configured recipient).
func (e *Engine) EvalRouting(ctx context.Context, lead *model.Lead) (*Decision, error) {
	if e == nil || e.routingPolicy == nil {
		return &Decision{}, nil
	}

	input := routingInput{
		SessionID:  string(lead.SessionID),
		Score:      lead.Score,
		Attributes: lead.Attributes,
	}

	rs, err := e.routingPolicy.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate routing policy")
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return &Decision{}, nil
	}

	// Round-trip through JSON to map the untyped policy result
	raw, err := json.Marshal(rs[0].Expressions[0].Value)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal routing result")
	}

	var decision Decision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal routing result")
	}

	return &decision, nil
}
