package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core/action"
	"github.com/agenthands/anima/internal/core/history"
	"github.com/agenthands/anima/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockLLM struct {
	Response string
	Err      error
	Block    bool

	System string
	Prompt string
}

func (m *MockLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.System = system
	m.Prompt = prompt
	if m.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func request() Request {
	return Request{
		SessionID:  "s1",
		AgentID:    "steve",
		EntityType: "player",
		Persona:    "  A cautious builder.  ",
		Perception: "# Perception of steve in session s1\n",
	}
}

func TestDecide(t *testing.T) {
	m := &MockLLM{Response: "Here you go:\n```json\n{\"type\":\"like\",\"like\":{\"target_post_id\":\"p1\"}}\n```"}
	inv := NewLLMInvoker(m, time.Second, nil)

	a, err := inv.Decide(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, action.KindLike, a.Kind)
	assert.Equal(t, "p1", a.TargetPostID())

	assert.Contains(t, m.System, "Your session id: s1")
	assert.Contains(t, m.System, "Your entity id: steve")
	assert.Contains(t, m.System, "Your persona:\nA cautious builder.\n")
}

func TestDecide_SkipsBracesInProse(t *testing.T) {
	m := &MockLLM{Response: `I pick {like}: {"type":"like","like":{"target_post_id":"p1"}}`}
	inv := NewLLMInvoker(m, time.Second, nil)

	a, err := inv.Decide(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, action.KindLike, a.Kind)
	assert.Equal(t, "p1", a.TargetPostID())
}

func TestDecide_ProviderErrorIsTransient(t *testing.T) {
	inv := NewLLMInvoker(&MockLLM{Err: errors.New("503")}, time.Second, nil)

	a, err := inv.Decide(context.Background(), request())
	assert.ErrorIs(t, err, apperr.ErrTransientExternal)
	assert.Equal(t, action.KindNoop, a.Kind)
}

func TestDecide_Timeout(t *testing.T) {
	inv := NewLLMInvoker(&MockLLM{Block: true}, 10*time.Millisecond, nil)

	a, err := inv.Decide(context.Background(), request())
	assert.ErrorIs(t, err, apperr.ErrTransientExternal)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, action.KindNoop, a.Kind)
}

func TestDecide_InvalidShapeBecomesNoop(t *testing.T) {
	for _, resp := range []string{
		"I'd rather not say",
		`{"type":"post","like":{"target_post_id":"p1"}}`,
		`{"type":"post","post":{"content":"hi"},"session_id":"other"}`,
	} {
		inv := NewLLMInvoker(&MockLLM{Response: resp}, time.Second, nil)
		a, err := inv.Decide(context.Background(), request())
		assert.ErrorIs(t, err, apperr.ErrValidation, resp)
		assert.Equal(t, action.KindNoop, a.Kind, resp)
		assert.NoError(t, a.Validate())
	}
}

func TestDecide_NoClient(t *testing.T) {
	inv := NewLLMInvoker(nil, 0, nil)
	a, err := inv.Decide(context.Background(), request())
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Equal(t, action.KindNoop, a.Kind)
}

func TestUserPrompt(t *testing.T) {
	req := request()
	req.Event = &model.EventPayload{
		SessionID: "s1",
		WorldTime: 40,
		Subject:   &model.EntitySnapshot{EntityID: "z-9", Name: "Zombie"},
		Verb:      "ATTACKED",
		Object:    &model.EntitySnapshot{EntityID: "steve"},
	}
	req.Posts = []model.PostSnapshot{{PostID: "p1", AuthorID: "alex", Kind: model.PostOriginal, Content: "hello", LikeCount: 2}}
	req.History = []history.Entry{{Kind: history.KindAction, Content: `post "hi"`}}

	got := UserPrompt(req)
	want := "# Perception of steve in session s1\n" +
		"\n## Event that just happened\n- Zombie ATTACKED steve (world_time=40)\n" +
		"\n## Posts you can react to\n- p1 (original) by alex: hello [likes=2 comments=0 reposts=0]\n" +
		"\n## Your recent history\n- [action] post \"hi\"\n" +
		"\nWhat do you do now?\n"
	assert.Equal(t, want, got)
}

func TestUserPrompt_Minimal(t *testing.T) {
	assert.Equal(t, "# Perception of steve in session s1\n\nWhat do you do now?\n", UserPrompt(request()))
}
