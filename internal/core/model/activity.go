package model

type ActivityType string

const (
	ActivityPost    ActivityType = "post"
	ActivityComment ActivityType = "comment"
	ActivityLike    ActivityType = "like"
	ActivityRepost  ActivityType = "repost"
)

// Activity is one entry of a session's flat social feed.
type Activity struct {
	ActivityID   string       `json:"activity_id"`
	Type         ActivityType `json:"activity_type"`
	ActorID      string       `json:"actor_id"`
	ActorName    string       `json:"actor_name"`
	PostID       string       `json:"post_id"`
	TargetPostID string       `json:"target_post_id,omitempty"`
	Content      string       `json:"content,omitempty"`
	Timestamp    string       `json:"timestamp"`
}

// Feed lists a session's activities newest first.
type Feed struct {
	SessionID string     `json:"session_id"`
	Total     int        `json:"total"`
	Items     []Activity `json:"items"`
}
