package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"studybud/internal/services"
	"studybud/internal/utils"

	"github.com/gin-gonic/gin"
)

// SEOHandler serves robots.txt, the sitemap and the public activity feed.
// Everything here is built as an anonymous visitor would see it, so rooms
// behind the subscription never leak.
type SEOHandler struct {
	forum   *services.ForumService
	siteURL string
}

func NewSEOHandler(forum *services.ForumService, siteURL string) *SEOHandler {
	return &SEOHandler{forum: forum, siteURL: strings.TrimSuffix(siteURL, "/")}
}

func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /settings
Disallow: /notifications
Disallow: /demo/
Disallow: /api/
Disallow: /login
Disallow: /register

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

func (h *SEOHandler) SitemapXML(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now().Format("2006-01-02")

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	writeURL := func(loc, lastmod, changefreq string, priority float64) {
		fmt.Fprintf(&b, `  <url>
    <loc>%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>%s</changefreq>
    <priority>%.1f</priority>
  </url>
`, escapeXML(loc), lastmod, changefreq, priority)
	}

	writeURL(h.siteURL+"/", now, "daily", 1.0)
	writeURL(h.siteURL+"/topics", now, "weekly", 0.8)

	topics, err := h.forum.ListTopics(ctx)
	if err != nil {
		c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	for _, t := range topics {
		if services.CanViewTopic(nil, t) {
			writeURL(h.siteURL+"/?topic="+t.Slug, now, "daily", 0.7)
		}
	}

	listing, err := h.forum.ListRooms(ctx, nil, services.RoomFilter{})
	if err != nil {
		c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	for _, room := range listing.Rooms {
		changefreq := "weekly"
		if time.Since(room.UpdatedAt) < 7*24*time.Hour {
			changefreq = "daily"
		}
		writeURL(fmt.Sprintf("%s/room/%d", h.siteURL, room.ID), room.UpdatedAt.Format("2006-01-02"), changefreq, 0.6)
	}

	b.WriteString(`</urlset>`)

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

// RSSFeed lists the newest public messages as RSS 2.0.
func (h *SEOHandler) RSSFeed(c *gin.Context) {
	messages, err := h.forum.RecentActivity(c.Request.Context(), nil, 20)
	if err != nil {
		c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>StudyBud</title>
    <link>` + escapeXML(h.siteURL) + `</link>
    <description>Latest messages from public StudyBud rooms</description>
    <language>en</language>
    <lastBuildDate>` + time.Now().Format(time.RFC1123Z) + `</lastBuildDate>
    <atom:link href="` + escapeXML(h.siteURL) + `/feed.xml" rel="self" type="application/rss+xml"/>
`)
	for _, m := range messages {
		link := fmt.Sprintf("%s/room/%d", h.siteURL, m.RoomID)
		guid := fmt.Sprintf("%s#message-%d", link, m.ID)
		b.WriteString(`    <item>
      <title>` + escapeXML(m.User.Username+" in "+m.Room.Name) + `</title>
      <link>` + escapeXML(link) + `</link>
      <description><![CDATA[` + string(utils.RenderMarkdown(m.Body)) + `]]></description>
      <category>` + escapeXML(m.Room.Topic.Name) + `</category>
      <pubDate>` + m.CreatedAt.Format(time.RFC1123Z) + `</pubDate>
      <guid isPermaLink="false">` + escapeXML(guid) + `</guid>
    </item>
`)
	}
	b.WriteString(`  </channel>
</rss>`)

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

func escapeXML(s string) string {
	return html.EscapeString(s)
}
