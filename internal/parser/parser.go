// Package parser extracts posts from Hacker News listing pages.
package parser

import (
	"bytes"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"hn-post-classifier/internal/models"
)

const (
	TypeStory = "story"
	TypeJob   = "job"

	ageLayout = "2006-01-02T15:04:05"
)

type Parser struct {
	now func() time.Time
}

func New() *Parser { return &Parser{now: time.Now} }

// ParseListing reads one listing page (news, newest, ask, show, ...).
// base resolves relative links; links back to an HN item page carry no
// external URL and become the "empty" sentinel. Rows without a title are
// skipped.
func (p *Parser) ParseListing(r io.Reader, contentType string, base *url.URL) ([]models.Post, error) {
	data, err := toUTF8(r, contentType)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var posts []models.Post
	doc.Find("tr.athing").Each(func(_ int, row *goquery.Selection) {
		id, err := strconv.ParseInt(strings.TrimSpace(row.AttrOr("id", "")), 10, 64)
		if err != nil {
			return
		}
		link := row.Find("span.titleline > a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}

		post := models.Post{
			ID:    id,
			Title: title,
			URL:   resolveLink(base, link.AttrOr("href", "")),
			Type:  TypeStory,
		}

		sub := row.Next().Find("td.subtext")
		score := sub.Find("span.score").First()
		if score.Length() == 0 {
			// job ads have neither score nor author
			if sub.Find("a.hnuser").Length() == 0 {
				post.Type = TypeJob
			}
		} else {
			post.Score = parseScore(score.Text())
		}
		post.Timestamp = p.parseAge(sub.Find("span.age").AttrOr("title", ""))
		posts = append(posts, post)
	})
	return posts, nil
}

func toUTF8(r io.Reader, contentType string) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return nil, err
		}
		return data, nil
	}
	return out, nil
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return models.EmptyURL
	}
	u, err := url.Parse(href)
	if err != nil {
		return models.EmptyURL
	}
	if !u.IsAbs() {
		// item?id=... is a self post (Ask HN, polls)
		if strings.HasPrefix(strings.TrimPrefix(u.Path, "/"), "item") || base == nil {
			return models.EmptyURL
		}
		u = base.ResolveReference(u)
	}
	return u.String()
}

// parseScore reads "42 points" or "1 point".
func parseScore(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return n
}

// parseAge reads the title attribute of span.age: an ISO timestamp in UTC,
// optionally followed by the unix time.
func (p *Parser) parseAge(title string) time.Time {
	fields := strings.Fields(title)
	if len(fields) >= 2 {
		if sec, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
			return time.Unix(sec, 0).UTC()
		}
	}
	if len(fields) >= 1 {
		if t, err := time.Parse(ageLayout, fields[0]); err == nil {
			return t
		}
	}
	return p.now().UTC().Truncate(time.Second)
}
