package publisher

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"github.com/techpath/content-pipeline/internal/content"
)

// Slack hard limits for block text.
const (
	maxHeaderLen  = 150
	maxSectionLen = 3000
)

func digestTitle(category content.Category) string {
	switch category {
	case content.CategoryJobListings:
		return "💼 Fresh Job Opportunities"
	case content.CategoryLearningResources:
		return "📚 Learning Resources"
	default:
		return "🚀 Tech News Digest"
	}
}

// digestBlocks renders a scheduled digest: header, summary, one section per
// item, context footer.
func digestBlocks(category content.Category, result content.CurationResult) []slack.Block {
	blocks := make([]slack.Block, 0, len(result.Items)+3)
	blocks = append(blocks, headerBlock(digestTitle(category)))
	if result.Summary != "" {
		blocks = append(blocks, sectionBlock("_"+result.Summary+"_"))
	}
	for i := range result.Items {
		blocks = append(blocks, itemBlock(&result.Items[i]))
	}
	blocks = append(blocks, contextBlock(fmt.Sprintf("%d item(s) · curated for the TechPath community", len(result.Items))))
	return blocks
}

// interactiveBlocks renders an on-demand answer. The header always comes
// first; an empty result still gets a friendly section instead of silence.
func interactiveBlocks(title string, result content.CurationResult) []slack.Block {
	blocks := make([]slack.Block, 0, len(result.Items)+2)
	blocks = append(blocks, headerBlock(title))
	if len(result.Items) == 0 {
		blocks = append(blocks, sectionBlock("Nothing fresh right now. Try again a little later."))
		return blocks
	}
	if result.Summary != "" {
		blocks = append(blocks, sectionBlock("_"+result.Summary+"_"))
	}
	for i := range result.Items {
		blocks = append(blocks, itemBlock(&result.Items[i]))
	}
	return blocks
}

// apologyBlocks is the total-failure answer for interactive requests.
func apologyBlocks() []slack.Block {
	return []slack.Block{
		headerBlock("😔 Something went wrong"),
		sectionBlock("Sorry, I couldn't pull content together just now. Please try again in a few minutes."),
	}
}

func itemBlock(item *content.CuratedItem) slack.Block {
	var b strings.Builder
	fmt.Fprintf(&b, "*<%s|%s>*\n", item.URL, escapeText(item.Title))
	if item.WhyValuable != "" {
		fmt.Fprintf(&b, "%s\n", item.WhyValuable)
	}
	fmt.Fprintf(&b, "`%s` · _%s_", item.Difficulty, item.Source)
	if len(item.RecommendedFor) > 0 {
		fmt.Fprintf(&b, " · for %s", strings.Join(item.RecommendedFor, ", "))
	}
	return sectionBlock(b.String())
}

func headerBlock(text string) slack.Block {
	return slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, truncate(text, maxHeaderLen), false, false),
	)
}

func sectionBlock(text string) slack.Block {
	return slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, truncate(text, maxSectionLen), false, false),
		nil, nil,
	)
}

func contextBlock(text string) slack.Block {
	return slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, truncate(text, maxSectionLen), false, false),
	)
}

// escapeText escapes the characters Slack mrkdwn treats specially.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes-1]) + "…"
}
