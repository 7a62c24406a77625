package runner

import (
	"context"
	"fmt"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core/action"
	"github.com/agenthands/anima/internal/core/decision"
	"github.com/agenthands/anima/internal/core/history"
	"github.com/agenthands/anima/internal/core/model"
	"github.com/agenthands/anima/internal/core/perception"
	"github.com/agenthands/anima/internal/core/profile"
	"go.uber.org/zap"
)

type ProfileSource interface {
	Lookup(sessionID, agentID string) (profile.Profile, error)
	Agents(sessionID string) []string
}

type PerceptionSource interface {
	Assemble(ctx context.Context, sessionID, agentID string) (*perception.Digest, error)
}

type Status string

const (
	StatusCommitted Status = "committed"
	StatusNoop      Status = "noop"
	StatusFailed    Status = "failed"
)

// AgentResult is one agent's line in a tick or event summary. A failed agent
// still carries the no-op recorded in place of its action.
type AgentResult struct {
	AgentID   string        `json:"agent_id"`
	Status    Status        `json:"status"`
	Action    action.Action `json:"action"`
	Outcome   *Outcome      `json:"outcome,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
}

func (r AgentResult) Failed() bool {
	return r.Status == StatusFailed
}

func failedResult(agentID string, a action.Action, err error) AgentResult {
	if a.Kind == "" {
		a = action.Noop("agent step failed")
	}
	r := AgentResult{AgentID: agentID, Status: StatusFailed, Action: a, Error: err.Error()}
	if kind := apperr.KindOf(err); kind != nil {
		r.ErrorKind = kind.Error()
	}
	return r
}

// Deps are the collaborators shared by the tick coordinator and the event
// workflow.
type Deps struct {
	Profiles     ProfileSource
	Perception   PerceptionSource
	Invoker      decision.Invoker
	Committer    *Committer
	History      history.Log
	HistoryLimit int
	Logger       *zap.Logger
}

func (d *Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// pending is an agent between its decision and its commit.
type pending struct {
	agentID string
	action  action.Action
	summary string
	// failed is set when the agent already failed before committing.
	failed *AgentResult
}

// decide runs the read-only half of an agent step: profile, perception,
// history and the decision call. Only a fatal error is returned; every other
// failure is folded into the pending value.
func (d *Deps) decide(ctx context.Context, sessionID, agentID string, event *model.EventPayload, posts []model.PostSnapshot) (pending, error) {
	p := pending{agentID: agentID}
	fail := func(a action.Action, err error) (pending, error) {
		r := failedResult(agentID, a, err)
		p.failed = &r
		return p, nil
	}

	prof, err := d.Profiles.Lookup(sessionID, agentID)
	if err != nil {
		return fail(action.Action{}, err)
	}

	digest, err := d.Perception.Assemble(ctx, sessionID, agentID)
	if err != nil {
		if apperr.IsFatal(err) {
			return p, err
		}
		return fail(action.Action{}, fmt.Errorf("perception: %w", err))
	}
	p.summary = perceptionSummary(digest, event)

	var past []history.Entry
	if d.History != nil {
		past, err = d.History.Recent(ctx, sessionID, agentID, d.HistoryLimit)
		if err != nil {
			d.logger().Warn("history unavailable, deciding without it",
				zap.String("session_id", sessionID), zap.String("agent_id", agentID), zap.Error(err))
			past = nil
		}
	}

	a, err := d.Invoker.Decide(ctx, decision.Request{
		SessionID:  sessionID,
		AgentID:    agentID,
		EntityType: prof.EntityType,
		Persona:    prof.Persona,
		Perception: digest.Render(),
		Event:      event,
		Posts:      posts,
		History:    past,
	})
	if err != nil {
		return fail(a, err)
	}
	p.action = a
	return p, nil
}

// commit applies a pending decision and appends it to the agent's log.
// Only a fatal error is returned.
func (d *Deps) commit(ctx context.Context, sessionID string, p pending) (AgentResult, error) {
	log := d.logger().With(zap.String("session_id", sessionID), zap.String("agent_id", p.agentID))

	if p.failed != nil {
		log.Warn("agent step failed", zap.String("error", p.failed.Error))
		d.record(ctx, sessionID, p.agentID, p.summary, history.KindFailure, p.failed.Error)
		return *p.failed, nil
	}

	out, err := d.Committer.Commit(ctx, sessionID, p.agentID, p.action)
	if err != nil {
		if apperr.IsFatal(err) {
			return failedResult(p.agentID, p.action, err), err
		}
		log.Warn("commit failed", zap.String("action", p.action.String()), zap.Error(err))
		d.record(ctx, sessionID, p.agentID, p.summary, history.KindFailure, fmt.Sprintf("%s: %v", p.action, err))
		return failedResult(p.agentID, p.action, err), nil
	}

	status := StatusCommitted
	if p.action.Kind == action.KindNoop {
		status = StatusNoop
	}
	log.Info("agent acted", zap.String("action", p.action.String()), zap.String("post_id", out.PostID))
	d.record(ctx, sessionID, p.agentID, p.summary, history.KindAction, p.action.String())
	return AgentResult{AgentID: p.agentID, Status: status, Action: p.action, Outcome: &out}, nil
}

func (d *Deps) record(ctx context.Context, sessionID, agentID, summary string, kind history.Kind, content string) {
	if d.History == nil {
		return
	}
	entries := []history.Entry{{SessionID: sessionID, AgentID: agentID, Kind: kind, Content: content}}
	if summary != "" {
		entries = append([]history.Entry{{SessionID: sessionID, AgentID: agentID, Kind: history.KindPerception, Content: summary}}, entries...)
	}
	for _, e := range entries {
		if _, err := d.History.Append(ctx, e); err != nil {
			d.logger().Warn("failed to append history",
				zap.String("session_id", sessionID), zap.String("agent_id", agentID), zap.Error(err))
			return
		}
	}
}

func perceptionSummary(d *perception.Digest, event *model.EventPayload) string {
	s := fmt.Sprintf("saw %d events, %d notifications, %d timeline posts",
		len(d.Events), len(d.Notifications), len(d.Timeline))
	if line := event.Describe(); line != "" {
		s += "; event: " + line
	}
	return s
}

// abortRemaining marks every agent from agents[from:] as failed with err.
func abortRemaining(results []AgentResult, agents []string, from int, err error) []AgentResult {
	for _, id := range agents[from:] {
		results = append(results, failedResult(id, action.Noop("aborted"), err))
	}
	return results
}
