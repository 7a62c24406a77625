package perception

import (
	"sort"

	"github.com/agenthands/anima/internal/core/model"
)

// Thread flattens the comment rows of one root into depth-first order.
// Children are grouped by parent id and visited oldest first; a comment is
// never emitted before its parent. Comments deeper than maxDepth, comments
// whose parent is not reachable from the root, and repeated ids are dropped.
// The walk uses an explicit stack, so thread shape cannot grow the call stack.
func Thread(rootID string, rows []model.CommentRow, maxDepth int) []Comment {
	children := make(map[string][]model.CommentRow)
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.CommentID == "" || seen[r.CommentID] {
			continue
		}
		seen[r.CommentID] = true
		children[r.ParentID] = append(children[r.ParentID], r)
	}
	for parent := range children {
		siblings := children[parent]
		sort.SliceStable(siblings, func(i, j int) bool {
			if siblings[i].Timestamp != siblings[j].Timestamp {
				return siblings[i].Timestamp < siblings[j].Timestamp
			}
			return siblings[i].CommentID < siblings[j].CommentID
		})
	}

	type frame struct {
		row   model.CommentRow
		depth int
	}
	var stack []frame
	push := func(parent string, depth int) {
		kids := children[parent]
		// reversed so the oldest sibling is popped first
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{row: kids[i], depth: depth})
		}
	}

	out := make([]Comment, 0, len(seen))
	visited := map[string]bool{rootID: true}
	push(rootID, 1)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f.row.CommentID] {
			continue
		}
		visited[f.row.CommentID] = true

		out = append(out, Comment{
			CommentID: f.row.CommentID,
			ParentID:  f.row.ParentID,
			AuthorID:  f.row.AuthorID,
			Author:    author(f.row.AuthorName, f.row.AuthorID),
			Content:   orDefault(f.row.Content, EmptyContent),
			Timestamp: orDefault(f.row.Timestamp, UnknownTime),
			Depth:     f.depth,
		})
		if f.depth < maxDepth {
			push(f.row.CommentID, f.depth+1)
		}
	}
	return out
}
