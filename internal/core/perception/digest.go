package perception

import (
	"fmt"
	"strings"

	"github.com/agenthands/anima/internal/core/model"
)

type Event struct {
	EventID     string          `json:"event_id"`
	Timestamp   string          `json:"timestamp"`
	WorldTime   int64           `json:"world_time"`
	Verb        string          `json:"verb"`
	Role        model.EventRole `json:"role"`
	Counterpart string          `json:"counterpart,omitempty"`
	Details     string          `json:"details,omitempty"`
}

type Notification struct {
	Timestamp string                 `json:"timestamp"`
	ActorID   string                 `json:"actor_id"`
	Actor     string                 `json:"actor"`
	Kind      model.NotificationKind `json:"kind"`
	PostID    string                 `json:"post_id"`
	CommentID string                 `json:"comment_id,omitempty"`
	Content   string                 `json:"content,omitempty"`
}

type Comment struct {
	CommentID string `json:"comment_id"`
	ParentID  string `json:"parent_id"`
	AuthorID  string `json:"author_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Depth     int    `json:"depth"`
}

type Post struct {
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp string    `json:"timestamp"`
	RepostOf  string    `json:"repost_of,omitempty"`
	Comments  []Comment `json:"comments"`
}

// Digest is one agent's perception: physical events, social notifications
// and the threaded timeline, each already ordered and bounded.
type Digest struct {
	SessionID     string         `json:"session_id"`
	AgentID       string         `json:"agent_id"`
	Events        []Event        `json:"physical_events"`
	Notifications []Notification `json:"social_notifications"`
	Timeline      []Post         `json:"timeline"`
}

func (d *Digest) IsEmpty() bool {
	return len(d.Events) == 0 && len(d.Notifications) == 0 && len(d.Timeline) == 0
}

// Render produces the markdown text handed to the decision procedure.
func (d *Digest) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Perception of %s in session %s\n", d.AgentID, d.SessionID)

	b.WriteString("\n## Recent physical events\n")
	if len(d.Events) == 0 {
		b.WriteString("- none\n")
	}
	for _, e := range d.Events {
		fmt.Fprintf(&b, "- [%s] %s\n", e.Timestamp, e.describe())
	}

	b.WriteString("\n## Social notifications\n")
	if len(d.Notifications) == 0 {
		b.WriteString("- none\n")
	}
	for _, n := range d.Notifications {
		fmt.Fprintf(&b, "- [%s] %s\n", n.Timestamp, n.describe())
	}

	b.WriteString("\n## Timeline\n")
	if len(d.Timeline) == 0 {
		b.WriteString("- none\n")
	}
	for _, p := range d.Timeline {
		header := fmt.Sprintf("post %s by %s at %s", p.PostID, p.Author, p.Timestamp)
		if p.RepostOf != "" {
			header += fmt.Sprintf(" (repost of %s)", p.RepostOf)
		}
		fmt.Fprintf(&b, "- %s: %s\n", header, p.Content)
		for _, c := range p.Comments {
			fmt.Fprintf(&b, "%s- comment %s by %s at %s: %s\n",
				strings.Repeat("  ", c.Depth), c.CommentID, c.Author, c.Timestamp, c.Content)
		}
	}
	return b.String()
}

func (e Event) describe() string {
	var line string
	switch {
	case e.Role == model.RoleObject:
		line = fmt.Sprintf("%s %s you", e.Counterpart, e.Verb)
	case e.Counterpart != "":
		line = fmt.Sprintf("you %s %s", e.Verb, e.Counterpart)
	default:
		line = fmt.Sprintf("you %s", e.Verb)
	}
	line += fmt.Sprintf(" (world_time=%d)", e.WorldTime)
	if e.Details != "" {
		line += " details=" + e.Details
	}
	return line
}

func (n Notification) describe() string {
	if n.Kind == model.NotificationComment {
		return fmt.Sprintf("%s commented on your post %s: %s", n.Actor, n.PostID, n.Content)
	}
	return fmt.Sprintf("%s liked your post %s", n.Actor, n.PostID)
}
