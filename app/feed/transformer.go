package feed

import (
	"log/slog"
	"regexp"
	"strings"
)

const weeklySummaryPrefix = "[Weekly Summary] "

var (
	leadingDigits = regexp.MustCompile(`^\d*\s*`)
	taggedTitle   = regexp.MustCompile(`^\[(.+?)\]\s*(.+)$`)
	leadingTag    = regexp.MustCompile(`^\[(.+?)\]`)

	summaryEscapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r")
)

// titleRule describes how a raw AI title is cleaned before tag extraction.
type titleRule struct {
	prefix      string
	stripDigits bool
	keepBracket bool
}

var (
	singleTitleRule = titleRule{stripDigits: true}
	// The weekly title keeps its bracket on display.
	weeklyTitleRule = titleRule{prefix: weeklySummaryPrefix, keepBracket: true}
)

type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// Run maps raw records to feed items, dropping records the feed cannot show.
// Input order is preserved.
func (t *Transformer) Run(records []UpdateRecord, updateType UpdateType) []FeedItem {
	items := make([]FeedItem, 0, len(records))
	for _, record := range records {
		var (
			item FeedItem
			ok   bool
		)
		if updateType == UpdateTypeWeekly {
			item, ok = t.weeklyItem(record)
		} else {
			item, ok = t.singleItem(record)
		}
		if !ok {
			slog.Debug("Record dropped from feed", "id", record.ID, "update_type", string(updateType))
			continue
		}
		items = append(items, item)
	}
	return items
}

func (t *Transformer) singleItem(r UpdateRecord) (FeedItem, bool) {
	// A leading "0" marks a suppressed title.
	if r.GptTitleResponse == nil || *r.GptTitleResponse == "" || strings.HasPrefix(*r.GptTitleResponse, "0") {
		return FeedItem{}, false
	}

	tag, title := extractTitle(*r.GptTitleResponse, singleTitleRule)

	var summary string
	if r.GptSummaryResponse != nil {
		summary = *r.GptSummaryResponse
	}

	return FeedItem{
		ID:         r.ID,
		Tag:        tag,
		Title:      title,
		GptSummary: summary,
		Timestamp:  r.CommitTime,
		CommitURL:  r.CommitURL,
	}, true
}

func (t *Transformer) weeklyItem(r UpdateRecord) (FeedItem, bool) {
	m := r.TeamsMessage
	if m == nil || m.Title == nil || m.Text == nil || *m.Title == "" || *m.Text == "" {
		return FeedItem{}, false
	}

	tag, title := extractTitle(*m.Title, weeklyTitleRule)

	return FeedItem{
		ID:         r.ID,
		Tag:        tag,
		Title:      title,
		GptSummary: *m.Text,
		Timestamp:  r.CommitTime,
		CommitURL:  r.CommitURL,
	}, true
}

// extractTitle splits a leading "[tag]" off a raw title according to rule.
// A title without a tag yields an empty tag and the cleaned title.
func extractTitle(raw string, rule titleRule) (string, string) {
	s := strings.TrimPrefix(raw, rule.prefix)
	if rule.stripDigits {
		s = leadingDigits.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(s)

	if rule.keepBracket {
		if m := leadingTag.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1]), s
		}
		return "", s
	}

	if m := taggedTitle.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "", s
}

// UnescapeSummary turns literal \n, \t and \r sequences in AI summaries into
// the characters they name. Renderers call it; the feed JSON keeps the raw text.
func UnescapeSummary(s string) string {
	return summaryEscapes.Replace(s)
}
