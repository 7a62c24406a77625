package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core/action"
	"github.com/agenthands/anima/internal/core/decision"
	"github.com/agenthands/anima/internal/core/model"
)

// memStore is an in-memory graph double. It implements the mutation, listing
// and perception-read interfaces the runner and the assembler depend on.
type memStore struct {
	mu     sync.Mutex
	seq    int
	posts  []model.PostSnapshot
	likes  map[string]bool
	events []*model.EventPayload
	writes []string
	// failFromWrite makes the n-th write (1-based) and every later one lose
	// connectivity.
	failFromWrite int
}

func newMemStore() *memStore {
	return &memStore{likes: map[string]bool{}}
}

func (m *memStore) write(kind, actor string) error {
	if m.failFromWrite > 0 && len(m.writes)+1 >= m.failFromWrite {
		return apperr.StoreUnavailable("mem."+kind, errors.New("connection reset"))
	}
	m.writes = append(m.writes, kind+":"+actor)
	return nil
}

func (m *memStore) next(prefix string) (string, string) {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq), fmt.Sprintf("2025-03-01T12:00:%02d.000000Z", m.seq)
}

func (m *memStore) find(id string) int {
	for i, p := range m.posts {
		if p.PostID == id {
			return i
		}
	}
	return -1
}

func (m *memStore) CreatePost(ctx context.Context, sessionID, authorID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.write("post", authorID); err != nil {
		return "", err
	}
	id, ts := m.next("p")
	m.posts = append(m.posts, model.PostSnapshot{PostID: id, AuthorID: authorID, Kind: model.PostOriginal, Content: content, Timestamp: ts})
	return id, nil
}

func (m *memStore) CreateComment(ctx context.Context, sessionID, authorID, targetPostID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(targetPostID)
	if i < 0 {
		return "", apperr.NotFoundf("mem.comment", "post %s not found", targetPostID)
	}
	if err := m.write("comment", authorID); err != nil {
		return "", err
	}
	id, ts := m.next("c")
	m.posts[i].CommentCount++
	m.posts = append(m.posts, model.PostSnapshot{PostID: id, AuthorID: authorID, Kind: model.PostComment, Content: content, Timestamp: ts, ParentID: targetPostID})
	return id, nil
}

func (m *memStore) LikePost(ctx context.Context, sessionID, actorID, targetPostID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(targetPostID)
	if i < 0 {
		return false, apperr.NotFoundf("mem.like", "post %s not found", targetPostID)
	}
	if err := m.write("like", actorID); err != nil {
		return false, err
	}
	key := actorID + "/" + targetPostID
	if m.likes[key] {
		return false, nil
	}
	m.likes[key] = true
	m.posts[i].LikeCount++
	return true, nil
}

func (m *memStore) Repost(ctx context.Context, sessionID, authorID, targetPostID, comment string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(targetPostID)
	if i < 0 {
		return "", apperr.NotFoundf("mem.repost", "post %s not found", targetPostID)
	}
	if err := m.write("repost", authorID); err != nil {
		return "", err
	}
	id, ts := m.next("r")
	m.posts[i].RepostCount++
	m.posts = append(m.posts, model.PostSnapshot{PostID: id, AuthorID: authorID, Kind: model.PostOriginal, Content: comment, Timestamp: ts, RepostOf: targetPostID})
	return id, nil
}

func (m *memStore) RecordEvent(ctx context.Context, p *model.EventPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.write("event", p.Subject.EntityID); err != nil {
		return "", err
	}
	m.events = append(m.events, p)
	id, _ := m.next("e")
	return id, nil
}

func (m *memStore) ListPosts(ctx context.Context, sessionID string) ([]model.PostSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PostSnapshot{}, m.posts...), nil
}

func (m *memStore) LoadPerception(ctx context.Context, sessionID, agentID string, eventLimit, timelineLimit int) (model.PerceptionRows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows model.PerceptionRows
	for _, p := range m.posts {
		if p.Kind != model.PostOriginal {
			continue
		}
		row := model.TimelinePostRow{PostID: p.PostID, Timestamp: p.Timestamp, Content: p.Content, RepostOf: p.RepostOf, AuthorID: p.AuthorID}
		for _, c := range m.posts {
			if c.Kind == model.PostComment && c.ParentID == p.PostID {
				row.Comments = append(row.Comments, model.CommentRow{CommentID: c.PostID, ParentID: c.ParentID, Timestamp: c.Timestamp, Content: c.Content, AuthorID: c.AuthorID})
			}
		}
		rows.Timeline = append(rows.Timeline, row)
	}
	return rows, nil
}

func (m *memStore) writeLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.writes...)
}

// scriptedInvoker answers with a per-request function and keeps every request.
type scriptedInvoker struct {
	mu       sync.Mutex
	fn       func(req decision.Request) (action.Action, error)
	requests []decision.Request
}

func (s *scriptedInvoker) Decide(ctx context.Context, req decision.Request) (action.Action, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.fn(req)
}

func (s *scriptedInvoker) request(agentID string) (decision.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.AgentID == agentID {
			return r, true
		}
	}
	return decision.Request{}, false
}

func postAs(req decision.Request) (action.Action, error) {
	return action.NewPost("hello from " + req.AgentID)
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
