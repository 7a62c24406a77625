package core

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/config"
	"github.com/agenthands/anima/internal/core/decision"
	"github.com/agenthands/anima/internal/core/graph"
	"github.com/agenthands/anima/internal/core/history"
	"github.com/agenthands/anima/internal/core/model"
	"github.com/agenthands/anima/internal/core/perception"
	"github.com/agenthands/anima/internal/core/profile"
	"github.com/agenthands/anima/internal/core/runner"
	"github.com/agenthands/anima/internal/driver"
	"github.com/agenthands/anima/internal/llm"
	"go.uber.org/zap"
)

// Anima wires the simulation services of one process. Everything mutable is
// owned by an explicitly constructed service with its own reset hook.
type Anima struct {
	Driver     driver.GraphDriver
	Store      *graph.Store
	Profiles   *profile.Registry
	History    history.Log
	Perception *perception.Assembler
	Invoker    decision.Invoker
	Ticks      *runner.TickCoordinator
	Events     *runner.EventWorkflow

	llm    llm.Client
	logger *zap.Logger
}

type Options struct {
	Driver  driver.GraphDriver
	LLM     llm.Client
	History history.Log
	Config  *config.Config
	Logger  *zap.Logger
}

func New(opts Options) *Anima {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := graph.NewStore(opts.Driver, logger.Named("graph"))
	registry := profile.NewRegistry()
	assembler := perception.NewAssembler(store)
	invoker := decision.NewLLMInvoker(opts.LLM, cfg.Decision.Timeout(), logger.Named("decision"))

	deps := runner.Deps{
		Profiles:     registry,
		Perception:   assembler,
		Invoker:      invoker,
		Committer:    runner.NewCommitter(store),
		History:      opts.History,
		HistoryLimit: cfg.Decision.HistoryLimit,
		Logger:       logger.Named("runner"),
	}

	return &Anima{
		Driver:     opts.Driver,
		Store:      store,
		Profiles:   registry,
		History:    opts.History,
		Perception: assembler,
		Invoker:    invoker,
		Ticks:      runner.NewTickCoordinator(deps, cfg.Scheduler.JitterMin(), cfg.Scheduler.JitterMax()),
		Events:     runner.NewEventWorkflow(deps, store, store, cfg.Decision.MaxConcurrency),
		llm:        opts.LLM,
		logger:     logger,
	}
}

// RegisterAgent creates the agent's identity node and records its profile.
// created is false when the agent was already registered in the session; the
// stored node and profile are then left as they are.
func (a *Anima) RegisterAgent(ctx context.Context, p profile.Profile) (bool, error) {
	if strings.TrimSpace(p.SessionID) == "" || strings.TrimSpace(p.AgentID) == "" {
		return false, apperr.Validationf("anima.register_agent", "session_id and agent_id are required")
	}
	if _, err := a.Profiles.Lookup(p.SessionID, p.AgentID); err == nil {
		return false, nil
	}

	e, err := a.Store.UpsertEntity(ctx, p.SessionID, p.AgentID, p.EntityType, p.Name)
	if err != nil {
		return false, err
	}
	// the profile mirrors the node, which may predate registration
	p.EntityType = e.EntityType
	p.Name = e.Name

	created, err := a.Profiles.Register(p)
	if err != nil {
		return false, err
	}
	a.logger.Info("agent registered",
		zap.String("session_id", p.SessionID),
		zap.String("agent_id", p.AgentID),
		zap.String("entity_type", p.EntityType),
		zap.Bool("created", created))
	return created, nil
}

// SeedRoster registers every agent of a roster and returns how many were new.
func (a *Anima) SeedRoster(ctx context.Context, roster *profile.Roster) (int, error) {
	n := 0
	for _, p := range roster.Profiles() {
		created, err := a.RegisterAgent(ctx, p)
		if err != nil {
			return n, err
		}
		if created {
			n++
		}
	}
	return n, nil
}

// IngestEvent records a physical event without asking any agent to react.
func (a *Anima) IngestEvent(ctx context.Context, payload *model.EventPayload) (string, error) {
	return a.Store.RecordEvent(ctx, payload)
}

func (a *Anima) ProcessEvent(ctx context.Context, sessionID string, payload *model.EventPayload, targets []string) (runner.EventResult, error) {
	return a.Events.ProcessEvent(ctx, sessionID, payload, targets)
}

func (a *Anima) RunTick(ctx context.Context, sessionID string) (runner.TickSummary, error) {
	return a.Ticks.RunTick(ctx, sessionID)
}

func (a *Anima) Perceive(ctx context.Context, sessionID, agentID string) (*perception.Digest, error) {
	return a.Perception.Assemble(ctx, sessionID, agentID)
}

// SocialDynamics is the session's flat activity feed, newest first.
func (a *Anima) SocialDynamics(ctx context.Context, sessionID string) (model.Feed, error) {
	return a.Store.ListActivity(ctx, sessionID)
}

func (a *Anima) Posts(ctx context.Context, sessionID string) ([]model.PostSnapshot, error) {
	return a.Store.ListPosts(ctx, sessionID)
}

// ResetSession wipes the session from the graph, the registry and the
// decision log.
func (a *Anima) ResetSession(ctx context.Context, sessionID string) (int64, error) {
	deleted, err := a.Store.ResetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	a.Profiles.Reset(sessionID)
	if a.History != nil {
		if err := a.History.Reset(ctx, sessionID); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (a *Anima) BuildIndices(ctx context.Context) error {
	return a.Store.BuildIndices(ctx)
}

func (a *Anima) Close(ctx context.Context) error {
	var errs []error
	if a.History != nil {
		errs = append(errs, a.History.Close())
	}
	if c, ok := a.llm.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.Driver != nil {
		errs = append(errs, a.Driver.Close(ctx))
	}
	return errors.Join(errs...)
}
