// Package graph implements the session-scoped mutation protocol on top of a
// bolt graph database.
//
// Every exported mutation is one Cypher statement run as one managed
// transaction, so it either applies completely or not at all. Every node the
// statements touch is matched or created with the caller's session id.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core/model"
	"github.com/agenthands/anima/internal/driver"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

type Store struct {
	Driver driver.GraphDriver
	Now    func() time.Time
	NewID  func() string

	logger *zap.Logger
}

func NewStore(d driver.GraphDriver, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		Driver: d,
		Now:    time.Now,
		NewID:  uuid.NewString,
		logger: logger,
	}
}

func (s *Store) now() string {
	return model.FormatTimestamp(s.Now())
}

// UpsertEntity merge-creates the identity node. Concurrent calls for the same
// key converge on one node; non-blank scalar fields take the last write and
// blank ones keep the stored value.
func (s *Store) UpsertEntity(ctx context.Context, sessionID, entityID, entityType, name string) (model.Entity, error) {
	const op = "graph.upsert_entity"
	if err := requireIDs(op, "session_id", sessionID, "entity_id", entityID); err != nil {
		return model.Entity{}, err
	}

	params := map[string]interface{}{
		"session_id":  sessionID,
		"entity_id":   entityID,
		"entity_type": nullable(entityType),
		"name":        nullable(name),
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.UpsertEntityQuery, params)
	if err != nil {
		return model.Entity{}, classify(op, err)
	}
	if len(res.Records) == 0 {
		return model.Entity{}, fmt.Errorf("%s: no entity returned", op)
	}

	rec := res.Records[0]
	return model.Entity{
		SessionID:  sessionID,
		EntityID:   recordString(rec, "entity_id"),
		EntityType: recordString(rec, "entity_type"),
		Name:       recordString(rec, "name"),
	}, nil
}

// RecordEvent appends one immutable Event with its INITIATED edge and, when
// the payload names an object, its TARGETED edge. Snapshots of transient
// state ride on those edges; the entity nodes only receive identity fields.
func (s *Store) RecordEvent(ctx context.Context, p *model.EventPayload) (string, error) {
	const op = "graph.record_event"
	if p == nil {
		return "", apperr.Validationf(op, "event payload is required")
	}
	if err := p.Validate(); err != nil {
		return "", apperr.Validation(op, err)
	}
	ts, err := model.NormalizeTimestamp(p.Timestamp, s.Now())
	if err != nil {
		return "", apperr.Validation(op, err)
	}
	details, err := encodeJSON(p.Details)
	if err != nil {
		return "", apperr.Validation(op, fmt.Errorf("details: %w", err))
	}

	params := map[string]interface{}{
		"session_id": p.SessionID,
		"event_id":   s.NewID(),
		"timestamp":  ts,
		"world_time": p.WorldTime,
		"verb":       p.Verb,
		"details":    details,
	}
	if err := snapshotParams(params, "sub", p.Subject); err != nil {
		return "", apperr.Validation(op, err)
	}

	query := driver.RecordEventQuery
	if p.Object != nil {
		if err := snapshotParams(params, "obj", p.Object); err != nil {
			return "", apperr.Validation(op, err)
		}
		query = driver.RecordTargetedEventQuery
	}

	res, err := s.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return "", classify(op, err)
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("%s: no event returned", op)
	}
	eventID := recordString(res.Records[0], "event_id")
	s.logger.Debug("recorded event",
		zap.String("session_id", p.SessionID),
		zap.String("event_id", eventID),
		zap.String("verb", p.Verb))
	return eventID, nil
}

// CreatePost creates an ORIGINAL post authored by authorID.
func (s *Store) CreatePost(ctx context.Context, sessionID, authorID, content string) (string, error) {
	const op = "graph.create_post"
	if err := requireIDs(op, "session_id", sessionID, "author_id", authorID); err != nil {
		return "", err
	}

	params := map[string]interface{}{
		"session_id": sessionID,
		"author_id":  authorID,
		"post_id":    s.NewID(),
		"content":    content,
		"timestamp":  s.now(),
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.CreatePostQuery, params)
	if err != nil {
		return "", classify(op, err)
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("%s: no post returned", op)
	}
	return recordString(res.Records[0], "post_id"), nil
}

// CreateComment creates a COMMENT replying to targetPostID, which may itself
// be a comment. It fails with NotFound when the target is not in the session.
func (s *Store) CreateComment(ctx context.Context, sessionID, authorID, targetPostID, content string) (string, error) {
	const op = "graph.create_comment"
	if err := requireIDs(op, "session_id", sessionID, "author_id", authorID, "target_post_id", targetPostID); err != nil {
		return "", err
	}

	params := map[string]interface{}{
		"session_id":     sessionID,
		"author_id":      authorID,
		"target_post_id": targetPostID,
		"post_id":        s.NewID(),
		"content":        content,
		"timestamp":      s.now(),
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.CreateCommentQuery, params)
	if err != nil {
		return "", classify(op, err)
	}
	if len(res.Records) == 0 {
		return "", apperr.NotFoundf(op, "post %s not found in session %s", targetPostID, sessionID)
	}
	return recordString(res.Records[0], "post_id"), nil
}

// LikePost creates the actor's LIKED edge at most once. created is false
// when the actor had already liked the post.
func (s *Store) LikePost(ctx context.Context, sessionID, actorID, targetPostID string) (created bool, err error) {
	const op = "graph.like_post"
	if err := requireIDs(op, "session_id", sessionID, "actor_id", actorID, "target_post_id", targetPostID); err != nil {
		return false, err
	}

	params := map[string]interface{}{
		"session_id":     sessionID,
		"actor_id":       actorID,
		"target_post_id": targetPostID,
		"timestamp":      s.now(),
		"token":          s.NewID(),
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.LikePostQuery, params)
	if err != nil {
		return false, classify(op, err)
	}
	if len(res.Records) == 0 {
		return false, apperr.NotFoundf(op, "actor %s or post %s not found in session %s", actorID, targetPostID, sessionID)
	}
	return recordBool(res.Records[0], "created"), nil
}

// Repost creates a new ORIGINAL post linked to the target by a REPOSTED edge
// and carrying the target id in repost_of. Nothing is written when the target
// is missing.
func (s *Store) Repost(ctx context.Context, sessionID, authorID, targetPostID, comment string) (string, error) {
	const op = "graph.repost"
	if err := requireIDs(op, "session_id", sessionID, "author_id", authorID, "target_post_id", targetPostID); err != nil {
		return "", err
	}

	params := map[string]interface{}{
		"session_id":     sessionID,
		"author_id":      authorID,
		"target_post_id": targetPostID,
		"post_id":        s.NewID(),
		"content":        comment,
		"timestamp":      s.now(),
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.RepostQuery, params)
	if err != nil {
		return "", classify(op, err)
	}
	if len(res.Records) == 0 {
		return "", apperr.NotFoundf(op, "post %s not found in session %s", targetPostID, sessionID)
	}
	return recordString(res.Records[0], "post_id"), nil
}

// LoadPerception reads the raw perception sections for one agent in one
// statement. The limits bound transfer size only; callers re-sort and
// truncate.
func (s *Store) LoadPerception(ctx context.Context, sessionID, agentID string, eventLimit, timelineLimit int) (model.PerceptionRows, error) {
	const op = "graph.load_perception"
	if err := requireIDs(op, "session_id", sessionID, "agent_id", agentID); err != nil {
		return model.PerceptionRows{}, err
	}

	params := map[string]interface{}{
		"session_id":     sessionID,
		"agent_id":       agentID,
		"event_limit":    int64(eventLimit),
		"timeline_limit": int64(timelineLimit),
	}
	res, err := s.Driver.ExecuteRead(ctx, driver.PerceptionQuery, params)
	if err != nil {
		return model.PerceptionRows{}, classify(op, err)
	}
	if len(res.Records) == 0 {
		return model.PerceptionRows{}, nil
	}
	return decodePerception(res.Records[0]), nil
}

// ListPosts returns every post of the session in ascending time order with
// counts derived from live relationships.
func (s *Store) ListPosts(ctx context.Context, sessionID string) ([]model.PostSnapshot, error) {
	const op = "graph.list_posts"
	if err := requireIDs(op, "session_id", sessionID); err != nil {
		return nil, err
	}

	res, err := s.Driver.ExecuteRead(ctx, driver.ListPostsQuery, map[string]interface{}{"session_id": sessionID})
	if err != nil {
		return nil, classify(op, err)
	}

	posts := make([]model.PostSnapshot, 0, len(res.Records))
	for _, rec := range res.Records {
		posts = append(posts, model.PostSnapshot{
			PostID:       recordString(rec, "post_id"),
			AuthorID:     recordString(rec, "author_id"),
			AuthorName:   recordString(rec, "author_name"),
			Kind:         model.PostKind(recordString(rec, "kind")),
			Content:      recordString(rec, "content"),
			Timestamp:    recordString(rec, "timestamp"),
			ParentID:     recordString(rec, "parent_id"),
			RepostOf:     recordString(rec, "repost_of"),
			LikeCount:    recordInt(rec, "like_count"),
			CommentCount: recordInt(rec, "comment_count"),
			RepostCount:  recordInt(rec, "repost_count"),
		})
	}
	return posts, nil
}

// ListActivity reconstructs the flat social feed of a session, newest first.
func (s *Store) ListActivity(ctx context.Context, sessionID string) (model.Feed, error) {
	const op = "graph.list_activity"
	if err := requireIDs(op, "session_id", sessionID); err != nil {
		return model.Feed{}, err
	}

	res, err := s.Driver.ExecuteRead(ctx, driver.SessionActivityQuery, map[string]interface{}{"session_id": sessionID})
	if err != nil {
		return model.Feed{}, classify(op, err)
	}

	feed := model.Feed{SessionID: sessionID, Items: make([]model.Activity, 0, len(res.Records))}
	for _, rec := range res.Records {
		feed.Items = append(feed.Items, model.Activity{
			ActivityID:   recordString(rec, "activity_id"),
			Type:         model.ActivityType(recordString(rec, "activity_type")),
			ActorID:      recordString(rec, "actor_id"),
			ActorName:    recordString(rec, "actor_name"),
			PostID:       recordString(rec, "post_id"),
			TargetPostID: recordString(rec, "target_post_id"),
			Content:      recordString(rec, "content"),
			Timestamp:    recordString(rec, "timestamp"),
		})
	}
	feed.Total = len(feed.Items)
	return feed, nil
}

// ResetSession deletes every node of the session together with its edges.
func (s *Store) ResetSession(ctx context.Context, sessionID string) (int64, error) {
	const op = "graph.reset_session"
	if err := requireIDs(op, "session_id", sessionID); err != nil {
		return 0, err
	}

	res, err := s.Driver.ExecuteQuery(ctx, driver.ResetSessionQuery, map[string]interface{}{"session_id": sessionID})
	if err != nil {
		return 0, classify(op, err)
	}
	var deleted int64
	if len(res.Records) > 0 {
		deleted = recordInt(res.Records[0], "deleted")
	}
	s.logger.Info("reset session", zap.String("session_id", sessionID), zap.Int64("deleted", deleted))
	return deleted, nil
}

func (s *Store) BuildIndices(ctx context.Context) error {
	if err := s.Driver.BuildIndices(ctx); err != nil {
		return classify("graph.build_indices", err)
	}
	return nil
}

// classify turns lost connectivity into the fatal store kind and wraps
// everything else.
func classify(op string, err error) error {
	if errors.Is(err, driver.ErrUnavailable) {
		return apperr.StoreUnavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireIDs(op string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return apperr.Validationf(op, "%s is required", pairs[i])
		}
	}
	return nil
}

func encodeJSON(v map[string]any) (string, error) {
	if len(v) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// snapshotParams fills the prefixed parameters for one side of an event.
// Absent type and name stay nil so the query keeps the stored values.
func snapshotParams(params map[string]interface{}, prefix string, snap *model.EntitySnapshot) error {
	state, err := encodeJSON(snap.State)
	if err != nil {
		return fmt.Errorf("%s state: %w", prefix, err)
	}

	params[prefix+"_id"] = snap.EntityID
	params[prefix+"_type"] = nullable(snap.EntityType)
	params[prefix+"_name"] = nullable(snap.Name)
	params[prefix+"_state"] = state
	params[prefix+"_dim"] = nil
	params[prefix+"_biome"] = nil
	params[prefix+"_x"] = nil
	params[prefix+"_y"] = nil
	params[prefix+"_z"] = nil
	if loc := snap.Location; loc != nil {
		params[prefix+"_dim"] = nullable(loc.Dimension)
		params[prefix+"_biome"] = nullable(loc.Biome)
		params[prefix+"_x"] = loc.X
		params[prefix+"_y"] = loc.Y
		params[prefix+"_z"] = loc.Z
	}
	return nil
}

func nullable(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// Records are decoded leniently: absent or null values become zero values so
// the perception layer can substitute its placeholders.

func recordString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	return asString(v)
}

func recordInt(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	return asInt(v)
}

func recordBool(rec *neo4j.Record, key string) bool {
	v, _ := rec.Get(key)
	b, _ := v.(bool)
	return b
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asMaps(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func decodePerception(rec *neo4j.Record) model.PerceptionRows {
	var rows model.PerceptionRows

	events, _ := rec.Get("physical_events")
	for _, m := range asMaps(events) {
		rows.PhysicalEvents = append(rows.PhysicalEvents, model.PhysicalEventRow{
			EventID:         asString(m["event_id"]),
			Timestamp:       asString(m["timestamp"]),
			WorldTime:       asInt(m["world_time"]),
			Verb:            asString(m["verb"]),
			Role:            model.EventRole(asString(m["role"])),
			CounterpartID:   asString(m["counterpart_id"]),
			CounterpartName: asString(m["counterpart_name"]),
			Details:         asString(m["details"]),
		})
	}

	notifications, _ := rec.Get("social_notifications")
	for _, m := range asMaps(notifications) {
		rows.Notifications = append(rows.Notifications, model.NotificationRow{
			Timestamp: asString(m["timestamp"]),
			ActorID:   asString(m["actor_id"]),
			ActorName: asString(m["actor_name"]),
			Kind:      model.NotificationKind(asString(m["kind"])),
			PostID:    asString(m["post_id"]),
			Content:   asString(m["content"]),
			CommentID: asString(m["comment_id"]),
		})
	}

	timeline, _ := rec.Get("timeline_posts")
	for _, m := range asMaps(timeline) {
		post := model.TimelinePostRow{
			PostID:     asString(m["post_id"]),
			Timestamp:  asString(m["timestamp"]),
			Content:    asString(m["content"]),
			RepostOf:   asString(m["repost_of"]),
			AuthorID:   asString(m["author_id"]),
			AuthorName: asString(m["author_name"]),
		}
		for _, c := range asMaps(m["comments"]) {
			post.Comments = append(post.Comments, model.CommentRow{
				CommentID:  asString(c["comment_id"]),
				ParentID:   asString(c["parent_id"]),
				Timestamp:  asString(c["timestamp"]),
				Content:    asString(c["content"]),
				AuthorID:   asString(c["author_id"]),
				AuthorName: asString(c["author_name"]),
			})
		}
		rows.Timeline = append(rows.Timeline, post)
	}
	return rows
}
