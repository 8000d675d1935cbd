package generator

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/goliatone/go-freeze/internal/posts"
)

const (
	maxFeedItems = 100
	rssFileName  = "feed.xml"
	atomFileName = "atom.xml"
)

type feedItem struct {
	Title       string
	Summary     string
	Link        string
	GUID        string
	Author      string
	PublishedAt time.Time
}

type feedDocument struct {
	Collection string
	Title      string
	Link       string
	Items      []feedItem
}

// buildFeedDocument projects a collection snapshot into feed items, newest
// first. Records without a date fall back to their file modification time.
func buildFeedDocument(site SiteMetadata, prefix string, snapshot *posts.Snapshot) feedDocument {
	doc := feedDocument{
		Collection: snapshot.Collection(),
		Title:      strings.TrimSpace(site.Name + " " + snapshot.Collection()),
		Link:       absoluteURL(site.Origin, prefix),
	}
	for i := 0; i < snapshot.Len() && len(doc.Items) < maxFeedItems; i++ {
		record := snapshot.At(i)
		link := record.Permalink
		if link == "" {
			link = absoluteURL(site.Origin, record.URL)
		}
		published := record.ModTime
		if record.HasDate {
			published = record.Date
		}
		doc.Items = append(doc.Items, feedItem{
			Title:       record.Title,
			Summary:     record.Teaser,
			Link:        link,
			GUID:        link,
			Author:      record.Author,
			PublishedAt: published,
		})
	}
	return doc
}

func buildRSSFeed(doc feedDocument, generatedAt time.Time) string {
	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(`<rss version="2.0">` + "\n")
	builder.WriteString("  <channel>\n")
	builder.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(doc.Title)))
	builder.WriteString(fmt.Sprintf("    <link>%s</link>\n", escapeXML(doc.Link)))
	builder.WriteString(fmt.Sprintf("    <description>%s</description>\n", escapeXML(doc.Title)))
	builder.WriteString(fmt.Sprintf("    <lastBuildDate>%s</lastBuildDate>\n", generatedAt.UTC().Format(time.RFC1123Z)))
	for _, item := range doc.Items {
		pub := item.PublishedAt
		if pub.IsZero() {
			pub = generatedAt
		}
		builder.WriteString("    <item>\n")
		builder.WriteString(fmt.Sprintf("      <title>%s</title>\n", escapeXML(item.Title)))
		builder.WriteString(fmt.Sprintf("      <link>%s</link>\n", escapeXML(item.Link)))
		builder.WriteString(fmt.Sprintf("      <guid>%s</guid>\n", escapeXML(item.GUID)))
		builder.WriteString(fmt.Sprintf("      <pubDate>%s</pubDate>\n", pub.UTC().Format(time.RFC1123Z)))
		if item.Summary != "" {
			builder.WriteString(fmt.Sprintf("      <description>%s</description>\n", escapeXML(item.Summary)))
		}
		builder.WriteString("    </item>\n")
	}
	builder.WriteString("  </channel>\n")
	builder.WriteString(`</rss>` + "\n")
	return builder.String()
}

func buildAtomFeed(doc feedDocument, selfLink string, generatedAt time.Time) string {
	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">` + "\n")
	builder.WriteString(fmt.Sprintf("  <id>%s</id>\n", escapeXML(selfLink)))
	builder.WriteString(fmt.Sprintf("  <title>%s</title>\n", escapeXML(doc.Title)))
	builder.WriteString(fmt.Sprintf("  <updated>%s</updated>\n", generatedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf(`  <link rel="alternate" href="%s" />`+"\n", escapeXML(doc.Link)))
	builder.WriteString(fmt.Sprintf(`  <link rel="self" href="%s" />`+"\n", escapeXML(selfLink)))
	for _, item := range doc.Items {
		updated := item.PublishedAt
		if updated.IsZero() {
			updated = generatedAt
		}
		builder.WriteString("  <entry>\n")
		builder.WriteString(fmt.Sprintf("    <id>%s</id>\n", escapeXML(item.GUID)))
		builder.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(item.Title)))
		builder.WriteString(fmt.Sprintf(`    <link href="%s" />`+"\n", escapeXML(item.Link)))
		builder.WriteString(fmt.Sprintf("    <updated>%s</updated>\n", updated.UTC().Format(time.RFC3339)))
		if item.Author != "" {
			builder.WriteString(fmt.Sprintf("    <author><name>%s</name></author>\n", escapeXML(item.Author)))
		}
		if item.Summary != "" {
			builder.WriteString(fmt.Sprintf("    <summary>%s</summary>\n", escapeXML(item.Summary)))
		}
		builder.WriteString("  </entry>\n")
	}
	builder.WriteString(`</feed>` + "\n")
	return builder.String()
}

func escapeXML(value string) string {
	return html.EscapeString(value)
}
