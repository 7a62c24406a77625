package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *SQLiteLog {
	t.Helper()
	l, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	l.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestAppend_SequencesPerAgent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	e1, err := l.Append(ctx, Entry{SessionID: "s1", AgentID: "steve", Kind: KindPerception, Content: "saw a zombie"})
	require.NoError(t, err)
	e2, err := l.Append(ctx, Entry{SessionID: "s1", AgentID: "steve", Kind: KindAction, Content: `post "run"`})
	require.NoError(t, err)
	other, err := l.Append(ctx, Entry{SessionID: "s1", AgentID: "alex", Kind: KindAction, Content: "noop"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), e1.Seq)
	assert.Equal(t, int64(2), e2.Seq)
	assert.Equal(t, int64(1), other.Seq)
	assert.Equal(t, "2025-03-01T12:00:00.000000Z", e1.CreatedAt)
}

func TestAppend_Validation(t *testing.T) {
	l := openTestLog(t)
	_, err := l.Append(context.Background(), Entry{SessionID: "s1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRecent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := l.Append(ctx, Entry{SessionID: "s1", AgentID: "steve", Kind: KindAction, Content: fmt.Sprintf("a%d", i)})
		require.NoError(t, err)
	}

	recent, err := l.Recent(ctx, "s1", "steve", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "a3", recent[0].Content)
	assert.Equal(t, "a5", recent[2].Content)
	assert.Equal(t, KindAction, recent[0].Kind)

	all, err := l.Recent(ctx, "s1", "steve", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := l.Recent(ctx, "s2", "steve", 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReset_SessionOnly(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	_, _ = l.Append(ctx, Entry{SessionID: "s1", AgentID: "a", Kind: KindAction, Content: "x"})
	_, _ = l.Append(ctx, Entry{SessionID: "s2", AgentID: "a", Kind: KindAction, Content: "y"})

	require.NoError(t, l.Reset(ctx, "s1"))

	gone, err := l.Recent(ctx, "s1", "a", 0)
	require.NoError(t, err)
	assert.Empty(t, gone)
	kept, err := l.Recent(ctx, "s2", "a", 0)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	l, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = l.Append(context.Background(), Entry{SessionID: "s1", AgentID: "a", Kind: KindAction, Content: "x"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err := reopened.Recent(context.Background(), "s1", "a", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = OpenSQLite("")
	assert.Error(t, err)
}
