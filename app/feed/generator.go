package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"
)

var commitTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type Channel struct {
	Product    string
	Language   string
	UpdateType UpdateType
	SelfLink   string
}

type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

// Run renders feed items as an RSS 2.0 document.
func (g *Generator) Run(channel Channel, items []FeedItem) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	title := fmt.Sprintf("%s documentation updates (%s)", channel.Product, channel.Language)
	if channel.UpdateType == UpdateTypeWeekly {
		title = fmt.Sprintf("%s weekly summaries (%s)", channel.Product, channel.Language)
	}
	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", channel.SelfLink, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("AI summarised documentation changes for %s", channel.Product), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(items) > 0 {
		if t, ok := parseCommitTime(items[0].Timestamp); ok {
			lastBuildDate = t
		}
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Eyes-on-Docs/%s", g.version), 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item FeedItem) {
	buf.WriteString("    <item>\n")

	if item.ID != "" {
		buf.WriteString("      <guid isPermaLink=\"false\">")
		xml.EscapeText(buf, []byte(item.ID))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.CommitURL, 6)
	g.writeElement(buf, "description", UnescapeSummary(item.GptSummary), 6)

	if t, ok := parseCommitTime(item.Timestamp); ok {
		g.writeElement(buf, "pubDate", t.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "category", item.Tag, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func parseCommitTime(s string) (time.Time, bool) {
	for _, layout := range commitTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
