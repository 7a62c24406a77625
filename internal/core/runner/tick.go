package runner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/agenthands/anima/internal/apperr"
	"go.uber.org/zap"
)

type TickState string

const (
	TickInit    TickState = "INIT"
	TickRunning TickState = "RUNNING"
	TickDone    TickState = "DONE"
)

type TickSummary struct {
	SessionID   string        `json:"session_id"`
	TotalAgents int           `json:"total_agents"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Results     []AgentResult `json:"results"`
}

func summarize(sessionID string, total int, results []AgentResult) TickSummary {
	s := TickSummary{SessionID: sessionID, TotalAgents: total, Results: results}
	for _, r := range results {
		if r.Failed() {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}

// TickCoordinator runs one session tick in causal order: each agent perceives
// the graph as left by the agents before it, decides, and commits before the
// next agent starts.
type TickCoordinator struct {
	Deps

	JitterMin time.Duration
	JitterMax time.Duration
	// Sleep waits between agents; it returns early with ctx.Err().
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand returns a value in [0, n).
	Rand func(n int64) int64
	// OnState observes state transitions.
	OnState func(TickState)
}

func NewTickCoordinator(deps Deps, jitterMin, jitterMax time.Duration) *TickCoordinator {
	return &TickCoordinator{
		Deps:      deps,
		JitterMin: jitterMin,
		JitterMax: jitterMax,
		Sleep:     sleepContext,
		Rand:      rand.Int64N,
	}
}

// RunTick always returns a complete summary. The error is non-nil only when
// the tick was cut short by lost store connectivity or cancellation; agents
// that never ran are then listed as failed.
func (c *TickCoordinator) RunTick(ctx context.Context, sessionID string) (TickSummary, error) {
	if strings.TrimSpace(sessionID) == "" {
		return summarize(sessionID, 0, []AgentResult{}), apperr.Validationf("runner.run_tick", "session_id is required")
	}
	log := c.logger().With(zap.String("session_id", sessionID))

	c.setState(TickInit)
	agents := c.Profiles.Agents(sessionID)
	results := make([]AgentResult, 0, len(agents))

	c.setState(TickRunning)
	log.Info("tick started", zap.Int("agents", len(agents)))

	for k, agentID := range agents {
		if err := ctx.Err(); err != nil {
			return c.abort(sessionID, agents, results, k, err)
		}

		p, err := c.decide(ctx, sessionID, agentID, nil, nil)
		if err != nil {
			results = append(results, failedResult(agentID, p.action, err))
			return c.abort(sessionID, agents, results, k+1, err)
		}
		result, err := c.commit(ctx, sessionID, p)
		results = append(results, result)
		if err != nil {
			return c.abort(sessionID, agents, results, k+1, err)
		}

		if k < len(agents)-1 {
			if err := c.pause(ctx); err != nil {
				return c.abort(sessionID, agents, results, k+1, err)
			}
		}
	}

	c.setState(TickDone)
	summary := summarize(sessionID, len(agents), results)
	log.Info("tick finished", zap.Int("succeeded", summary.Succeeded), zap.Int("failed", summary.Failed))
	return summary, nil
}

func (c *TickCoordinator) abort(sessionID string, agents []string, results []AgentResult, from int, cause error) (TickSummary, error) {
	err := cause
	if !apperr.IsFatal(cause) {
		err = fmt.Errorf("runner.run_tick: aborted: %w", cause)
	}
	results = abortRemaining(results, agents, from, err)
	c.setState(TickDone)
	summary := summarize(sessionID, len(agents), results)
	c.logger().Error("tick aborted",
		zap.String("session_id", sessionID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Error(err))
	return summary, err
}

// pause waits a random duration in [JitterMin, JitterMax]. The delay only
// spreads timestamps out; ordering never depends on it.
func (c *TickCoordinator) pause(ctx context.Context) error {
	d := c.JitterMin
	if spread := c.JitterMax - c.JitterMin; spread > 0 && c.Rand != nil {
		d += time.Duration(c.Rand(int64(spread) + 1))
	}
	if d <= 0 || c.Sleep == nil {
		return nil
	}
	return c.Sleep(ctx, d)
}

func (c *TickCoordinator) setState(s TickState) {
	if c.OnState != nil {
		c.OnState(s)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
