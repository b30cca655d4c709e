package workflow

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

type Action string

const (
	ActionAccept  Action = "accept"
	ActionDiscard Action = "discard"
	ActionNotify  Action = "notify"
)

// Decision is the triage result for one conflict.
type Decision struct {
	Action   Action         `json:"action"`
	Severity model.Severity `json:"severity,omitempty"`
	Note     string         `json:"note,omitempty"`
}

// regoPrintHook forwards Rego print() output to the logger in ctx
type regoPrintHook struct {
	ctx context.Context
}

func (h *regoPrintHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// Engine triages detected conflicts with the "triage" Rego package.
type Engine struct {
	triagePolicy *rego.PreparedEvalQuery
}

// New loads the policies in policyDir. An empty directory yields an Engine
// that accepts every conflict unchanged.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	triage, err := loadPolicies(ctx, policyDir)
	if err != nil {
		return nil, err
	}

	return &Engine{triagePolicy: triage}, nil
}

// Triage evaluates the policy for one conflict. The policy input is the
// conflict in its JSON form.
func (e *Engine) Triage(ctx context.Context, conflict *model.Conflict) (*Decision, error) {
	if e.triagePolicy == nil {
		return &Decision{Action: ActionAccept}, nil
	}

	input, err := toInput(conflict)
	if err != nil {
		return nil, err
	}

	rs, err := e.triagePolicy.Eval(ctx, rego.EvalInput(input), rego.EvalPrintHook(&regoPrintHook{ctx: ctx}))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate triage policy")
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return &Decision{Action: ActionAccept}, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return nil, goerr.New("invalid triage result: not an object")
	}

	decision := &Decision{
		Action:   Action(getString(data, "action")),
		Severity: model.Severity(getString(data, "severity")),
		Note:     getString(data, "note"),
	}

	switch decision.Action {
	case "":
		decision.Action = ActionAccept
	case ActionAccept, ActionDiscard, ActionNotify:
	default:
		return nil, goerr.New("invalid triage action", goerr.V("action", decision.Action))
	}

	return decision, nil
}

// Apply triages every conflict. Discarded conflicts are dropped; the others
// carry the decided action, note and, when given, severity.
func (e *Engine) Apply(ctx context.Context, conflicts []*model.Conflict) ([]*model.Conflict, error) {
	logger := logging.From(ctx)
	result := make([]*model.Conflict, 0, len(conflicts))

	for _, conflict := range conflicts {
		decision, err := e.Triage(ctx, conflict)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to triage conflict", goerr.V("type", conflict.Type))
		}

		if decision.Action == ActionDiscard {
			logger.Debug("conflict discarded", "type", conflict.Type, "topic", conflict.Topic, "person", conflict.Person)
			continue
		}

		triaged := *conflict
		triaged.Action = string(decision.Action)
		triaged.Note = decision.Note
		if decision.Severity != "" {
			triaged.Severity = decision.Severity
		}
		result = append(result, &triaged)
	}

	return result, nil
}

func toInput(conflict *model.Conflict) (map[string]any, error) {
	raw, err := json.Marshal(conflict)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal conflict")
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, goerr.Wrap(err, "failed to convert conflict to policy input")
	}
	return input, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
