package generator

import (
	"strings"
	"time"
)

const sitemapDateLayout = "2006-01-02"

// changeFrequency hints how often crawlers should revisit a route kind.
// Post pages rarely change once published; listings move with every post.
var changeFrequency = map[RouteKind]string{
	RouteStatic:  "monthly",
	RouteListing: "weekly",
	RoutePost:    "yearly",
}

// buildSitemap lists every rendered page in route order. Listing pages past
// the first are left out since they only repeat post URLs. Pages without a
// post date use the build time as lastmod.
func buildSitemap(origin string, pages []RenderedPage, built time.Time) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")

	listed := make(map[string]bool, len(pages))
	for _, page := range pages {
		if page.Route.Kind == RouteListing && page.Route.Page > 1 {
			continue
		}
		loc := absoluteURL(origin, page.Route.Path)
		if loc == "" || listed[loc] {
			continue
		}
		listed[loc] = true

		modified := page.LastModified
		if modified.IsZero() {
			modified = built
		}
		b.WriteString("  <url>\n    <loc>" + escapeXML(loc) + "</loc>\n")
		if !modified.IsZero() {
			b.WriteString("    <lastmod>" + modified.UTC().Format(sitemapDateLayout) + "</lastmod>\n")
		}
		if freq, ok := changeFrequency[page.Route.Kind]; ok {
			b.WriteString("    <changefreq>" + freq + "</changefreq>\n")
		}
		b.WriteString("  </url>\n")
	}
	b.WriteString("</urlset>\n")
	return b.String()
}

// buildRobots allows every crawler and points at the sitemap when one was
// written for an origin.
func buildRobots(origin string, withSitemap bool) string {
	lines := []string{"User-agent: *", "Allow: /"}
	if loc := absoluteURL(origin, "sitemap.xml"); withSitemap && loc != "" {
		lines = append(lines, "", "Sitemap: "+loc)
	}
	return strings.Join(lines, "\n") + "\n"
}
