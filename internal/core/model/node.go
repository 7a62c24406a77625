package model

// Entity is a state-free identity node keyed by (SessionID, EntityID).
// Transient attributes live on the event edges as snapshots.
type Entity struct {
	SessionID  string `json:"session_id"`
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"`
	Name       string `json:"name,omitempty"`
}

// EventNode is one immutable physical interaction in a session's append-only log.
type EventNode struct {
	EventID   string         `json:"event_id"`
	SessionID string         `json:"session_id"`
	Timestamp string         `json:"timestamp"`
	WorldTime int64          `json:"world_time"`
	Verb      string         `json:"verb"`
	Details   map[string]any `json:"details,omitempty"`
}

type PostKind string

const (
	PostOriginal PostKind = "ORIGINAL"
	PostComment  PostKind = "COMMENT"
)

// SocialPost is either an ORIGINAL post or a COMMENT replying to ParentID.
// A repost is an ORIGINAL post whose RepostOf names the reposted post.
type SocialPost struct {
	PostID    string   `json:"post_id"`
	SessionID string   `json:"session_id"`
	Kind      PostKind `json:"kind"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	AuthorID  string   `json:"author_id"`
	ParentID  string   `json:"parent_id,omitempty"`
	RepostOf  string   `json:"repost_of,omitempty"`
}

// PostSnapshot is a post as seen by readers. Counts are derived from live
// LIKED / REPLIED_TO / REPOSTED relationships, never stored counters.
type PostSnapshot struct {
	PostID       string   `json:"post_id"`
	AuthorID     string   `json:"author_id"`
	AuthorName   string   `json:"author_name"`
	Kind         PostKind `json:"kind"`
	Content      string   `json:"content"`
	Timestamp    string   `json:"timestamp"`
	ParentID     string   `json:"parent_id,omitempty"`
	RepostOf     string   `json:"repost_of,omitempty"`
	LikeCount    int64    `json:"like_count"`
	CommentCount int64    `json:"comment_count"`
	RepostCount  int64    `json:"repost_count"`
}
