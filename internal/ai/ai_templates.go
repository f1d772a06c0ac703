package ai

import (
	"fmt"
	"strings"

	"github.com/shanehull/cs2news/internal/types"
)

const systemInstruction = `
You condense Counter-Strike 2 patch notes and news posts for a Discord channel.

Rules:
- Keep every gameplay, map, weapon and balance change that a player would notice.
- Merge minor fixes into a single bullet per area (e.g. "Maps", "Audio", "UI").
- Never invent changes that are not in the source text.
- Keep the original language of the post.
- Return plain bullets, one change per bullet, without markdown headers.
`

func buildPrompt(item types.Item, limit int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Condense the following %s into at most %d characters in total.\n\n", describe(item.Category), limit))
	sb.WriteString(fmt.Sprintf("Title: %s\n", item.Title))
	sb.WriteString("---\n")
	sb.WriteString(item.Summary)
	return sb.String()
}

func describe(c types.Category) string {
	if c == types.CategoryAnnouncement {
		return "news announcement"
	}
	return "patch notes"
}
