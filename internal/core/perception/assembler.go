// Package perception builds the bounded, read-only view of the world an agent
// sees before deciding.
//
// The graph returns raw rows; everything about order, truncation, thread
// shape and placeholders is decided here so it can be tested without a
// database.
package perception

import (
	"context"
	"sort"
	"strings"

	"github.com/agenthands/anima/internal/core/model"
	"github.com/agenthands/anima/internal/driver"
)

const (
	DefaultEventLimit    = 5
	DefaultTimelineLimit = 5

	UnknownAuthor = "unknown"
	EmptyContent  = "(empty)"
	UnknownTime   = "unknown_time"
	UnknownVerb   = "UNKNOWN"
)

// Reader is the part of the graph store the assembler needs.
type Reader interface {
	LoadPerception(ctx context.Context, sessionID, agentID string, eventLimit, timelineLimit int) (model.PerceptionRows, error)
}

type Assembler struct {
	Reader        Reader
	EventLimit    int
	TimelineLimit int
	// NotificationLimit of zero keeps every notification.
	NotificationLimit int
	MaxDepth          int
}

func NewAssembler(r Reader) *Assembler {
	return &Assembler{
		Reader:        r,
		EventLimit:    DefaultEventLimit,
		TimelineLimit: DefaultTimelineLimit,
		MaxDepth:      driver.MaxThreadDepth,
	}
}

// Assemble reads the agent's rows and shapes them into a Digest. An agent
// with no history gets an empty, valid digest.
func (a *Assembler) Assemble(ctx context.Context, sessionID, agentID string) (*Digest, error) {
	rows, err := a.Reader.LoadPerception(ctx, sessionID, agentID, a.EventLimit, a.TimelineLimit)
	if err != nil {
		return nil, err
	}
	return a.Build(sessionID, agentID, rows), nil
}

// Build is the pure half of Assemble.
func (a *Assembler) Build(sessionID, agentID string, rows model.PerceptionRows) *Digest {
	return &Digest{
		SessionID:     sessionID,
		AgentID:       agentID,
		Events:        a.events(rows.PhysicalEvents),
		Notifications: a.notifications(agentID, rows.Notifications),
		Timeline:      a.timeline(rows.Timeline),
	}
}

func (a *Assembler) events(rows []model.PhysicalEventRow) []Event {
	seen := make(map[string]bool, len(rows))
	unique := make([]model.PhysicalEventRow, 0, len(rows))
	for _, r := range rows {
		// a self-targeted event comes back once per role
		if r.EventID != "" && seen[r.EventID] {
			continue
		}
		seen[r.EventID] = true
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].Timestamp != unique[j].Timestamp {
			return unique[i].Timestamp > unique[j].Timestamp
		}
		return unique[i].EventID > unique[j].EventID
	})
	unique = truncate(unique, a.EventLimit)

	out := make([]Event, 0, len(unique))
	for _, r := range unique {
		counterpart := firstNonBlank(r.CounterpartName, r.CounterpartID)
		if counterpart == "" && r.Role == model.RoleObject {
			counterpart = UnknownAuthor
		}
		out = append(out, Event{
			EventID:     r.EventID,
			Timestamp:   orDefault(r.Timestamp, UnknownTime),
			WorldTime:   r.WorldTime,
			Verb:        orDefault(r.Verb, UnknownVerb),
			Role:        r.Role,
			Counterpart: counterpart,
			Details:     details(r.Details),
		})
	}
	return out
}

func (a *Assembler) notifications(agentID string, rows []model.NotificationRow) []Notification {
	kept := make([]model.NotificationRow, 0, len(rows))
	for _, r := range rows {
		if r.ActorID == agentID {
			continue
		}
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Timestamp != kept[j].Timestamp {
			return kept[i].Timestamp > kept[j].Timestamp
		}
		return notificationKey(kept[i]) > notificationKey(kept[j])
	})
	if a.NotificationLimit > 0 {
		kept = truncate(kept, a.NotificationLimit)
	}

	out := make([]Notification, 0, len(kept))
	for _, r := range kept {
		n := Notification{
			Timestamp: orDefault(r.Timestamp, UnknownTime),
			ActorID:   r.ActorID,
			Actor:     author(r.ActorName, r.ActorID),
			Kind:      r.Kind,
			PostID:    r.PostID,
			CommentID: r.CommentID,
		}
		if r.Kind == model.NotificationComment {
			n.Content = orDefault(r.Content, EmptyContent)
		}
		out = append(out, n)
	}
	return out
}

func notificationKey(r model.NotificationRow) string {
	return string(r.Kind) + "/" + r.PostID + "/" + r.ActorID + "/" + r.CommentID
}

func (a *Assembler) timeline(rows []model.TimelinePostRow) []Post {
	roots := append([]model.TimelinePostRow(nil), rows...)
	sort.SliceStable(roots, func(i, j int) bool {
		if roots[i].Timestamp != roots[j].Timestamp {
			return roots[i].Timestamp > roots[j].Timestamp
		}
		return roots[i].PostID > roots[j].PostID
	})
	roots = truncate(roots, a.TimelineLimit)

	out := make([]Post, 0, len(roots))
	for _, r := range roots {
		out = append(out, Post{
			PostID:    r.PostID,
			AuthorID:  r.AuthorID,
			Author:    author(r.AuthorName, r.AuthorID),
			Content:   orDefault(r.Content, EmptyContent),
			Timestamp: orDefault(r.Timestamp, UnknownTime),
			RepostOf:  r.RepostOf,
			Comments:  Thread(r.PostID, r.Comments, a.maxDepth()),
		})
	}
	return out
}

func (a *Assembler) maxDepth() int {
	if a.MaxDepth <= 0 {
		return driver.MaxThreadDepth
	}
	return a.MaxDepth
}

func truncate[T any](s []T, limit int) []T {
	if limit >= 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

func author(name, id string) string {
	return orDefault(firstNonBlank(name, id), UnknownAuthor)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

func details(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "{}" || raw == "null" {
		return ""
	}
	return raw
}
