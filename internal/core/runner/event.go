package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type EventRecorder interface {
	RecordEvent(ctx context.Context, p *model.EventPayload) (string, error)
}

type PostLister interface {
	ListPosts(ctx context.Context, sessionID string) ([]model.PostSnapshot, error)
}

type EventResult struct {
	SessionID string               `json:"session_id"`
	EventID   string               `json:"event_id,omitempty"`
	Posts     []model.PostSnapshot `json:"posts"`
	Results   []AgentResult        `json:"results"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
}

// EventWorkflow reacts to one external event with an explicit set of target
// agents. Every target decides against the same graph state, in parallel;
// the resulting actions are then committed one by one in target order.
type EventWorkflow struct {
	Deps

	Events EventRecorder
	Posts  PostLister
	// MaxConcurrency caps parallel decisions; zero leaves them unbounded.
	MaxConcurrency int
}

func NewEventWorkflow(deps Deps, events EventRecorder, posts PostLister, maxConcurrency int) *EventWorkflow {
	return &EventWorkflow{Deps: deps, Events: events, Posts: posts, MaxConcurrency: maxConcurrency}
}

// ProcessEvent records the event when one is given, fans decisions out and
// commits them serially. The result is complete even when it comes with an
// error: a lost store aborts the remaining targets, which are listed failed.
func (w *EventWorkflow) ProcessEvent(ctx context.Context, sessionID string, event *model.EventPayload, targets []string) (EventResult, error) {
	const op = "runner.process_event"
	res := EventResult{SessionID: sessionID, Posts: []model.PostSnapshot{}, Results: []AgentResult{}}
	if strings.TrimSpace(sessionID) == "" {
		return res, apperr.Validationf(op, "session_id is required")
	}
	log := w.logger().With(zap.String("session_id", sessionID))

	if event != nil {
		// the caller's payload stays untouched
		copied := *event
		event = &copied
		if event.SessionID == "" {
			event.SessionID = sessionID
		}
		if event.SessionID != sessionID {
			return res, apperr.Validationf(op, "event belongs to session %s", event.SessionID)
		}
		id, err := w.Events.RecordEvent(ctx, event)
		if err != nil {
			return res, err
		}
		res.EventID = id
	}

	agents := uniqueTargets(targets)
	if len(agents) == 0 {
		return w.finish(ctx, res)
	}

	snapshot, err := w.Posts.ListPosts(ctx, sessionID)
	if err != nil {
		return w.fail(res, agents, 0, err)
	}

	// Decisions run in parallel and never cancel each other: a failing
	// target only ever fills its own slot.
	decided := make([]pending, len(agents))
	fatal := make([]error, len(agents))
	var g errgroup.Group
	if w.MaxConcurrency > 0 {
		g.SetLimit(w.MaxConcurrency)
	}
	for i, agentID := range agents {
		g.Go(func() error {
			decided[i], fatal[i] = w.decide(ctx, sessionID, agentID, event, snapshot)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range fatal {
		if err != nil {
			return w.fail(res, agents, 0, err)
		}
	}
	log.Info("decisions joined", zap.Int("targets", len(agents)))

	for i, p := range decided {
		result, err := w.commit(ctx, sessionID, p)
		res.Results = append(res.Results, result)
		if err != nil {
			return w.fail(res, agents, i+1, err)
		}
	}

	return w.finish(ctx, res)
}

func (w *EventWorkflow) finish(ctx context.Context, res EventResult) (EventResult, error) {
	posts, err := w.Posts.ListPosts(ctx, res.SessionID)
	if err != nil {
		count(&res)
		return res, err
	}
	res.Posts = posts
	count(&res)
	return res, nil
}

func (w *EventWorkflow) fail(res EventResult, agents []string, from int, cause error) (EventResult, error) {
	err := cause
	if !apperr.IsFatal(cause) {
		err = fmt.Errorf("runner.process_event: aborted: %w", cause)
	}
	res.Results = abortRemaining(res.Results, agents, from, err)
	count(&res)
	w.logger().Error("event aborted",
		zap.String("session_id", res.SessionID),
		zap.String("event_id", res.EventID),
		zap.Error(err))
	return res, err
}

func count(res *EventResult) {
	res.Succeeded, res.Failed = 0, 0
	for _, r := range res.Results {
		if r.Failed() {
			res.Failed++
		} else {
			res.Succeeded++
		}
	}
}

// uniqueTargets drops blanks and repeats, keeping first occurrences in order.
func uniqueTargets(targets []string) []string {
	seen := make(map[string]bool, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
