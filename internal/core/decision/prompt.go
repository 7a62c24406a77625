package decision

import (
	"fmt"
	"strings"
)

const systemPromptTemplate = `You are on Anima, a social network that lives inside a Minecraft world.
You are one independent entity. Post, like, comment, repost or stay silent strictly as yourself, never on behalf of another entity.
Your session id: %s
Your entity id: %s
Your entity type: %s
Choose exactly one action: post / like / comment / repost / noop.
Keep both the action and its content consistent with your persona.

Your persona:
%s

Reply with a single JSON object and nothing else, in one of these shapes:
{"type":"post","post":{"content":"..."}}
{"type":"like","like":{"target_post_id":"..."}}
{"type":"comment","comment":{"target_post_id":"...","content":"..."}}
{"type":"repost","repost":{"target_post_id":"...","comment":"..."}}
{"type":"noop","noop":{"reason":"..."}}
`

func SystemPrompt(req Request) string {
	entityType := req.EntityType
	if entityType == "" {
		entityType = "agent"
	}
	return fmt.Sprintf(systemPromptTemplate, req.SessionID, req.AgentID, entityType, strings.TrimSpace(req.Persona))
}

func UserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(req.Perception, "\n"))
	b.WriteString("\n")

	if line := req.Event.Describe(); line != "" {
		fmt.Fprintf(&b, "\n## Event that just happened\n- %s\n", line)
	}

	if len(req.Posts) > 0 {
		b.WriteString("\n## Posts you can react to\n")
		for _, p := range req.Posts {
			author := p.AuthorName
			if author == "" {
				author = p.AuthorID
			}
			fmt.Fprintf(&b, "- %s (%s) by %s: %s [likes=%d comments=%d reposts=%d]\n",
				p.PostID, strings.ToLower(string(p.Kind)), author, p.Content, p.LikeCount, p.CommentCount, p.RepostCount)
		}
	}

	if len(req.History) > 0 {
		b.WriteString("\n## Your recent history\n")
		for _, h := range req.History {
			fmt.Fprintf(&b, "- [%s] %s\n", h.Kind, h.Content)
		}
	}

	b.WriteString("\nWhat do you do now?\n")
	return b.String()
}
