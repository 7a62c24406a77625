package runner

import (
	"context"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core/action"
)

// Mutator is the write half of the graph store.
type Mutator interface {
	CreatePost(ctx context.Context, sessionID, authorID, content string) (string, error)
	CreateComment(ctx context.Context, sessionID, authorID, targetPostID, content string) (string, error)
	LikePost(ctx context.Context, sessionID, actorID, targetPostID string) (bool, error)
	Repost(ctx context.Context, sessionID, authorID, targetPostID, comment string) (string, error)
}

// Outcome describes what a committed action changed.
type Outcome struct {
	Kind         action.Kind `json:"kind"`
	PostID       string      `json:"post_id,omitempty"`
	TargetPostID string      `json:"target_post_id,omitempty"`
	// Created is false for a like that already existed.
	Created bool `json:"created"`
}

type Committer struct {
	Store Mutator
}

func NewCommitter(store Mutator) *Committer {
	return &Committer{Store: store}
}

// Commit applies one action for actorID with the single matching mutation.
// The session and actor always come from the caller, never from the action.
func (c *Committer) Commit(ctx context.Context, sessionID, actorID string, a action.Action) (Outcome, error) {
	if err := a.Validate(); err != nil {
		return Outcome{Kind: a.Kind}, err
	}

	out := Outcome{Kind: a.Kind, TargetPostID: a.TargetPostID()}
	var err error
	switch a.Kind {
	case action.KindPost:
		out.PostID, err = c.Store.CreatePost(ctx, sessionID, actorID, a.Post.Content)
		out.Created = err == nil
	case action.KindComment:
		out.PostID, err = c.Store.CreateComment(ctx, sessionID, actorID, a.Comment.TargetPostID, a.Comment.Content)
		out.Created = err == nil
	case action.KindLike:
		out.Created, err = c.Store.LikePost(ctx, sessionID, actorID, a.Like.TargetPostID)
	case action.KindRepost:
		out.PostID, err = c.Store.Repost(ctx, sessionID, actorID, a.Repost.TargetPostID, a.Repost.Comment)
		out.Created = err == nil
	case action.KindNoop:
	default:
		return out, apperr.Validationf("runner.commit", "unknown action kind %q", a.Kind)
	}
	return out, err
}
