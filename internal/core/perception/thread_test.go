package perception

import (
	"fmt"
	"testing"

	"github.com/agenthands/anima/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(comments []Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.CommentID)
	}
	return out
}

func TestThread_NestedReply(t *testing.T) {
	rows := []model.CommentRow{
		{CommentID: "B", ParentID: "A", Timestamp: ts(2)},
		{CommentID: "A", ParentID: "R", Timestamp: ts(1)},
	}

	got := Thread("R", rows, 8)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].CommentID)
	assert.Equal(t, 1, got[0].Depth)
	assert.Equal(t, "B", got[1].CommentID)
	assert.Equal(t, 2, got[1].Depth)
}

func TestThread_ParentBeforeChildEvenWhenChildIsOlder(t *testing.T) {
	// clock skew: the reply carries an earlier timestamp than its parent
	rows := []model.CommentRow{
		{CommentID: "late", ParentID: "R", Timestamp: ts(5)},
		{CommentID: "reply", ParentID: "late", Timestamp: ts(1)},
		{CommentID: "early", ParentID: "R", Timestamp: ts(3)},
	}
	assert.Equal(t, []string{"early", "late", "reply"}, ids(Thread("R", rows, 8)))
}

func TestThread_SiblingsAscendingWithIDTieBreak(t *testing.T) {
	rows := []model.CommentRow{
		{CommentID: "b", ParentID: "R", Timestamp: ts(1)},
		{CommentID: "c", ParentID: "R", Timestamp: ts(0)},
		{CommentID: "a", ParentID: "R", Timestamp: ts(1)},
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids(Thread("R", rows, 8)))
}

func TestThread_DepthBounded(t *testing.T) {
	var rows []model.CommentRow
	parent := "R"
	for i := 1; i <= 20; i++ {
		id := fmt.Sprintf("c%02d", i)
		rows = append(rows, model.CommentRow{CommentID: id, ParentID: parent, Timestamp: ts(i)})
		parent = id
	}

	got := Thread("R", rows, 8)
	require.Len(t, got, 8)
	assert.Equal(t, 8, got[7].Depth)
	assert.Equal(t, "c08", got[7].CommentID)
}

func TestThread_CyclesAndOrphansDropped(t *testing.T) {
	rows := []model.CommentRow{
		{CommentID: "x", ParentID: "y", Timestamp: ts(1)},
		{CommentID: "y", ParentID: "x", Timestamp: ts(2)},
		{CommentID: "orphan", ParentID: "gone", Timestamp: ts(3)},
		{CommentID: "ok", ParentID: "R", Timestamp: ts(4)},
		{CommentID: "ok", ParentID: "R", Timestamp: ts(4)},
	}
	assert.Equal(t, []string{"ok"}, ids(Thread("R", rows, 8)))
}

func TestThread_Empty(t *testing.T) {
	got := Thread("R", nil, 8)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
