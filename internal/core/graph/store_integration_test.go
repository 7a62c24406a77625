//go:build integration

package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core/model"
	"github.com/agenthands/anima/internal/driver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newIntegrationStore(t *testing.T) (*Store, *driver.Neo4jDriver, string) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := driver.NewNeo4jDriver(ctx, driver.Options{
		URI:      uri,
		Username: os.Getenv("NEO4J_USER"),
		Password: os.Getenv("NEO4J_PASSWORD"),
		Database: os.Getenv("NEO4J_DATABASE"),
		Dialect:  os.Getenv("GRAPH_DIALECT"),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, d.BuildIndices(ctx))

	session := "it-" + uuid.NewString()
	s := NewStore(d, nil)
	t.Cleanup(func() {
		_, _ = s.ResetSession(context.Background(), session)
		_ = d.Close(context.Background())
	})
	return s, d, session
}

func countNodes(t *testing.T, d *driver.Neo4jDriver, session string) int64 {
	res, err := d.ExecuteRead(context.Background(), "MATCH (n {session_id: $session_id}) RETURN count(n) AS n", map[string]interface{}{"session_id": session})
	require.NoError(t, err)
	return recordInt(res.Records[0], "n")
}

func TestIntegration_UpsertMerges(t *testing.T) {
	s, d, session := newIntegrationStore(t)
	ctx := context.Background()

	_, err := s.UpsertEntity(ctx, session, "steve", "player", "Steve")
	require.NoError(t, err)
	e, err := s.UpsertEntity(ctx, session, "steve", "player", "Steve the Second")
	require.NoError(t, err)

	assert.Equal(t, "Steve the Second", e.Name)
	assert.Equal(t, int64(1), countNodes(t, d, session))

	e, err = s.UpsertEntity(ctx, session, "steve", "", "")
	require.NoError(t, err)
	assert.Equal(t, "player", e.EntityType)
	assert.Equal(t, "Steve the Second", e.Name)
}

func TestIntegration_LikeIsIdempotent(t *testing.T) {
	s, _, session := newIntegrationStore(t)
	ctx := context.Background()

	_, err := s.UpsertEntity(ctx, session, "alex", "player", "Alex")
	require.NoError(t, err)
	_, err = s.UpsertEntity(ctx, session, "steve", "player", "Steve")
	require.NoError(t, err)
	postID, err := s.CreatePost(ctx, session, "alex", "first light")
	require.NoError(t, err)

	created, err := s.LikePost(ctx, session, "steve", postID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.LikePost(ctx, session, "steve", postID)
	require.NoError(t, err)
	assert.False(t, created)

	posts, err := s.ListPosts(ctx, session)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].LikeCount)
}

func TestIntegration_RepostMissingTargetCreatesNothing(t *testing.T) {
	s, d, session := newIntegrationStore(t)
	ctx := context.Background()

	before := countNodes(t, d, session)
	_, err := s.Repost(ctx, session, "alex", "ghost", "look")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, before, countNodes(t, d, session))
}

func TestIntegration_SessionsAreIsolated(t *testing.T) {
	s, _, session := newIntegrationStore(t)
	ctx := context.Background()
	other := session + "-other"
	t.Cleanup(func() { _, _ = s.ResetSession(context.Background(), other) })

	postID, err := s.CreatePost(ctx, session, "alex", "only here")
	require.NoError(t, err)

	_, err = s.CreateComment(ctx, other, "steve", postID, "cross talk")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	posts, err := s.ListPosts(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestIntegration_ThreadRows(t *testing.T) {
	s, _, session := newIntegrationStore(t)
	ctx := context.Background()

	root, err := s.CreatePost(ctx, session, "alex", "root")
	require.NoError(t, err)
	a, err := s.CreateComment(ctx, session, "steve", root, "A")
	require.NoError(t, err)
	b, err := s.CreateComment(ctx, session, "alex", a, "B")
	require.NoError(t, err)

	rows, err := s.LoadPerception(ctx, session, "alex", 5, 5)
	require.NoError(t, err)
	require.Len(t, rows.Timeline, 1)

	parents := map[string]string{}
	for _, c := range rows.Timeline[0].Comments {
		parents[c.CommentID] = c.ParentID
	}
	assert.Equal(t, map[string]string{a: root, b: a}, parents)

	// steve's comment notifies alex; alex's own reply does not
	require.Len(t, rows.Notifications, 1)
	assert.Equal(t, "steve", rows.Notifications[0].ActorID)
}

func TestIntegration_SelfTargetedEventCountsOnce(t *testing.T) {
	s, _, session := newIntegrationStore(t)
	ctx := context.Background()
	steve := &model.EntitySnapshot{EntityID: "steve", EntityType: "player", Name: "Steve"}

	for i := 0; i < 5; i++ {
		_, err := s.RecordEvent(ctx, &model.EventPayload{SessionID: session, WorldTime: int64(i), Subject: steve, Verb: "jumped"})
		require.NoError(t, err)
	}
	healed, err := s.RecordEvent(ctx, &model.EventPayload{SessionID: session, WorldTime: 9, Subject: steve, Verb: "healed", Object: steve})
	require.NoError(t, err)

	rows, err := s.LoadPerception(ctx, session, "steve", 5, 5)
	require.NoError(t, err)
	require.Len(t, rows.PhysicalEvents, 5)

	seen := map[string]bool{}
	for _, r := range rows.PhysicalEvents {
		assert.False(t, seen[r.EventID], r.EventID)
		seen[r.EventID] = true
	}
	assert.Equal(t, healed, rows.PhysicalEvents[0].EventID)
	assert.Equal(t, model.RoleSubject, rows.PhysicalEvents[0].Role)
}
