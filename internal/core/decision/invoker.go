// Package decision asks an external procedure which action an agent takes.
//
// The core never trusts what comes back: replies are re-validated against the
// closed action schema, and any reply that fails is replaced by a no-op.
package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core/action"
	"github.com/agenthands/anima/internal/core/common"
	"github.com/agenthands/anima/internal/core/history"
	"github.com/agenthands/anima/internal/core/model"
	"github.com/agenthands/anima/internal/llm"
	"go.uber.org/zap"
)

// Request carries everything one decision needs. SessionID and AgentID are
// always filled by the core.
type Request struct {
	SessionID  string
	AgentID    string
	EntityType string
	Persona    string
	Perception string
	Event      *model.EventPayload
	Posts      []model.PostSnapshot
	History    []history.Entry
}

// Invoker returns exactly one action. When it also returns an error the
// action is the no-op to record in its place.
type Invoker interface {
	Decide(ctx context.Context, req Request) (action.Action, error)
}

type LLMInvoker struct {
	LLM     llm.Client
	Timeout time.Duration

	logger *zap.Logger
}

func NewLLMInvoker(client llm.Client, timeout time.Duration, logger *zap.Logger) *LLMInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMInvoker{LLM: client, Timeout: timeout, logger: logger}
}

func (i *LLMInvoker) Decide(ctx context.Context, req Request) (action.Action, error) {
	const op = "decision.decide"
	if i.LLM == nil {
		return action.Noop("decision procedure unavailable"), apperr.Configurationf(op, "no llm client configured")
	}

	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	start := time.Now()
	response, err := i.LLM.Generate(ctx, SystemPrompt(req), UserPrompt(req))
	if err != nil {
		return action.Noop("decision call failed"), apperr.Transient(op, fmt.Errorf("agent %s: %w", req.AgentID, err))
	}
	i.logger.Debug("decision received",
		zap.String("session_id", req.SessionID),
		zap.String("agent_id", req.AgentID),
		zap.Duration("latency", time.Since(start)))

	raw, err := common.ExtractJSONObject(response)
	if err != nil {
		return action.Noop("invalid decision"), apperr.Validation(op, err)
	}
	a, err := action.Parse(raw)
	if err != nil {
		i.logger.Warn("decision failed validation",
			zap.String("agent_id", req.AgentID),
			zap.ByteString("raw", raw),
			zap.Error(err))
		return action.Noop("invalid decision"), err
	}
	return a, nil
}
