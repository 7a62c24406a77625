// Package action models the closed set of things an agent can do in one turn.
//
// An Action is a tagged union: Kind names the variant and exactly one payload
// pointer matching Kind is set. Values coming from a decision procedure go
// through Parse, which checks them against the embedded JSON schema before
// anything is decoded.
package action

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Kind string

const (
	KindPost    Kind = "post"
	KindLike    Kind = "like"
	KindComment Kind = "comment"
	KindRepost  Kind = "repost"
	KindNoop    Kind = "noop"
)

type PostPayload struct {
	Content string `json:"content"`
}

type LikePayload struct {
	TargetPostID string `json:"target_post_id"`
}

type CommentPayload struct {
	TargetPostID string `json:"target_post_id"`
	Content      string `json:"content"`
}

type RepostPayload struct {
	TargetPostID string `json:"target_post_id"`
	Comment      string `json:"comment,omitempty"`
}

type NoopPayload struct {
	Reason string `json:"reason"`
}

// Action carries no session or actor identifiers; the caller supplies them
// at commit time.
type Action struct {
	Kind    Kind            `json:"type"`
	Post    *PostPayload    `json:"post,omitempty"`
	Like    *LikePayload    `json:"like,omitempty"`
	Comment *CommentPayload `json:"comment,omitempty"`
	Repost  *RepostPayload  `json:"repost,omitempty"`
	Noop    *NoopPayload    `json:"noop,omitempty"`
}

//go:embed action.schema.json
var schemaText string

var schema = jsonschema.MustCompileString("action.schema.json", schemaText)

func NewPost(content string) (Action, error) {
	return checked(Action{Kind: KindPost, Post: &PostPayload{Content: content}})
}

func NewLike(targetPostID string) (Action, error) {
	return checked(Action{Kind: KindLike, Like: &LikePayload{TargetPostID: targetPostID}})
}

func NewComment(targetPostID, content string) (Action, error) {
	return checked(Action{Kind: KindComment, Comment: &CommentPayload{TargetPostID: targetPostID, Content: content}})
}

func NewRepost(targetPostID, comment string) (Action, error) {
	return checked(Action{Kind: KindRepost, Repost: &RepostPayload{TargetPostID: targetPostID, Comment: comment}})
}

func NewNoop(reason string) (Action, error) {
	return checked(Action{Kind: KindNoop, Noop: &NoopPayload{Reason: reason}})
}

// Noop builds the substitute action used when a decision is unusable.
func Noop(reason string) Action {
	if strings.TrimSpace(reason) == "" {
		reason = "no action"
	}
	return Action{Kind: KindNoop, Noop: &NoopPayload{Reason: reason}}
}

func checked(a Action) (Action, error) {
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// Validate re-checks a constructed value against the same schema Parse uses.
func (a Action) Validate() error {
	raw, err := json.Marshal(a)
	if err != nil {
		return apperr.Validation("action.validate", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return apperr.Validation("action.validate", err)
	}
	if err := schema.Validate(doc); err != nil {
		return apperr.Validation("action.validate", err)
	}
	return nil
}

// Parse validates raw JSON against the closed action schema and decodes it.
// Top-level and payload fields set to null are treated as absent.
func Parse(raw []byte) (Action, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Action{}, apperr.Validation("action.parse", fmt.Errorf("failed to decode action: %w", err))
	}
	doc = dropNulls(doc, 2)

	if err := schema.Validate(doc); err != nil {
		return Action{}, apperr.Validation("action.parse", err)
	}

	cleaned, err := json.Marshal(doc)
	if err != nil {
		return Action{}, apperr.Validation("action.parse", err)
	}
	var a Action
	if err := json.Unmarshal(cleaned, &a); err != nil {
		return Action{}, apperr.Validation("action.parse", err)
	}
	return a, nil
}

func dropNulls(v any, depth int) any {
	obj, ok := v.(map[string]any)
	if !ok || depth == 0 {
		return v
	}
	for k, child := range obj {
		if child == nil {
			delete(obj, k)
			continue
		}
		obj[k] = dropNulls(child, depth-1)
	}
	return obj
}

// TargetPostID returns the post the action refers to, if any.
func (a Action) TargetPostID() string {
	switch a.Kind {
	case KindLike:
		if a.Like != nil {
			return a.Like.TargetPostID
		}
	case KindComment:
		if a.Comment != nil {
			return a.Comment.TargetPostID
		}
	case KindRepost:
		if a.Repost != nil {
			return a.Repost.TargetPostID
		}
	}
	return ""
}

// String renders a one-line summary used in logs and the decision history.
func (a Action) String() string {
	switch a.Kind {
	case KindPost:
		if a.Post != nil {
			return fmt.Sprintf("post %q", a.Post.Content)
		}
	case KindLike:
		return fmt.Sprintf("like %s", a.TargetPostID())
	case KindComment:
		if a.Comment != nil {
			return fmt.Sprintf("comment on %s %q", a.Comment.TargetPostID, a.Comment.Content)
		}
	case KindRepost:
		if a.Repost != nil && a.Repost.Comment != "" {
			return fmt.Sprintf("repost %s %q", a.Repost.TargetPostID, a.Repost.Comment)
		}
		return fmt.Sprintf("repost %s", a.TargetPostID())
	case KindNoop:
		if a.Noop != nil {
			return fmt.Sprintf("noop (%s)", a.Noop.Reason)
		}
	}
	return string(a.Kind)
}
