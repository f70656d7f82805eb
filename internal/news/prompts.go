package news

import (
	"fmt"
	"strings"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
)

func cisoInstructions(maxBullets, sentences int) string {
	return "You are a cyber news summarizer.\n" +
		"Input is a daily roll-up containing multiple story blurbs + links (may contain HTML).\n" +
		"Extract distinct stories and return ONLY Slack mrkdwn bullets.\n\n" +
		"Format:\n" +
		"- <URL|Title> - summary\n\n" +
		"Rules:\n" +
		fmt.Sprintf("- Limit to %d bullets.\n", maxBullets) +
		fmt.Sprintf("- Each bullet averages about %d sentence(s).\n", sentences) +
		"- Deduplicate repeated items.\n" +
		"- Do NOT invent facts.\n"
}

func cisoInput(ep rss.FeedItem) string {
	return fmt.Sprintf("Episode title: %s\nEpisode link: %s\nPublished: %s\n\nRoll-up text:\n%s",
		ep.Title, ep.Link, ep.PublishedRaw, ep.Text)
}

func rcdInstructions(bulletsPerArticle int) string {
	return "You summarize defense/security articles for a technically-minded reader.\n" +
		"Return ONLY Slack mrkdwn bullets.\n\n" +
		fmt.Sprintf("For EACH article, output exactly %d bullets:\n", bulletsPerArticle) +
		"1) - <URL|Title> - 1 sentence: what it is.\n" +
		"2) - Why it matters - 2 sentences (impact/implication).\n" +
		"3) (optional) - Watch-for - 2 sentences (trend/next step).\n\n" +
		"Do NOT invent facts; use only provided title/snippet.\n"
}

// candidate is an RCD item with its interest tags.
type candidate struct {
	rss.FeedItem
	Tags []string
}

func rcdInput(cands []candidate) string {
	parts := make([]string, 0, len(cands))
	for _, c := range cands {
		parts = append(parts, fmt.Sprintf("TAGS: %s\nTITLE: %s\nURL: %s\nPUBLISHED: %s\nSNIPPET:\n%s\n",
			strings.Join(c.Tags, ", "), c.Title, c.Link, c.PublishedRaw, rss.PlainText(c.Text)))
	}
	return "ARTICLES:\n\n" + strings.Join(parts, "\n---\n")
}
