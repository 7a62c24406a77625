package model

// PerceptionRows is the raw material of one agent's perception, as read from
// the graph in a single statement. Order is not trusted; the assembler
// re-sorts every section.
type PerceptionRows struct {
	PhysicalEvents []PhysicalEventRow
	Notifications  []NotificationRow
	Timeline       []TimelinePostRow
}

type EventRole string

const (
	RoleSubject EventRole = "subject"
	RoleObject  EventRole = "object"
)

type PhysicalEventRow struct {
	EventID         string
	Timestamp       string
	WorldTime       int64
	Verb            string
	Role            EventRole
	CounterpartID   string
	CounterpartName string
	Details         string
}

type NotificationKind string

const (
	NotificationLike    NotificationKind = "LIKE"
	NotificationComment NotificationKind = "COMMENT"
)

type NotificationRow struct {
	Timestamp string
	ActorID   string
	ActorName string
	Kind      NotificationKind
	PostID    string
	Content   string
	CommentID string
}

type TimelinePostRow struct {
	PostID     string
	Timestamp  string
	Content    string
	RepostOf   string
	AuthorID   string
	AuthorName string
	Comments   []CommentRow
}

type CommentRow struct {
	CommentID  string
	ParentID   string
	Timestamp  string
	Content    string
	AuthorID   string
	AuthorName string
}
