// HTML text extraction via goquery, modeled as a swappable capability
// so rendering degrades gracefully when extraction is unavailable.
package main

import (
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"golang.org/x/net/html"
)

// htmlExtraction holds the readable pieces pulled from an HTML page.
// Error/RawHTML are set only by the degraded (unavailable) variant.
type htmlExtraction struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
	Error       string `json:"error,omitempty"`
	RawHTML     string `json:"raw_html,omitempty"`
}

// htmlExtractor is the HTML-parsing capability. The renderer never
// hard-depends on a working implementation: unavailableExtractor
// produces a notice plus a bounded raw preview instead.
type htmlExtractor interface {
	extract(htmlStr string) *htmlExtraction
}

// activeExtractor is swapped for an unavailableExtractor in degraded
// environments and in tests.
var activeExtractor htmlExtractor = goqueryExtractor{}

// boilerplateSelector matches subtrees that carry no readable content.
const boilerplateSelector = "script, style, nav, footer, header, aside, noscript"

type goqueryExtractor struct{}

func (goqueryExtractor) extract(htmlStr string) *htmlExtraction {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return unavailableExtractor{reason: err.Error()}.extract(htmlStr)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	desc = strings.TrimSpace(desc)
	if desc == "" {
		desc = opengraphDescription(htmlStr)
	}

	doc.Find(boilerplateSelector).Remove()

	return &htmlExtraction{
		Title:       title,
		Description: desc,
		Text:        flattenText(doc.Selection),
	}
}

// opengraphDescription returns the og:description property, used as a
// fallback when no meta description is present.
func opengraphDescription(htmlStr string) string {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(htmlStr)); err != nil {
		return ""
	}
	return strings.TrimSpace(og.Description)
}

// flattenText collapses the visible text of a selection into
// newline-joined non-blank lines.
func flattenText(sel *goquery.Selection) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			for _, line := range strings.Split(n.Data, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

// unavailableExtractor stands in when HTML parsing cannot run. It emits
// a notice and the first htmlPreviewBytes of the raw document.
type unavailableExtractor struct {
	reason string
}

func (u unavailableExtractor) extract(htmlStr string) *htmlExtraction {
	preview := htmlStr
	if len(preview) > htmlPreviewBytes {
		preview = preview[:htmlPreviewBytes] + "..."
	}
	reason := u.reason
	if reason == "" {
		reason = "HTML extraction not available"
	}
	return &htmlExtraction{
		Error:   reason,
		RawHTML: preview,
	}
}

// extractReadable runs readability over the page and returns the main
// article HTML, so flattening skips boilerplate the selector-based
// cleanup cannot catch.
func extractReadable(htmlStr string, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	article, err := readability.FromReader(strings.NewReader(htmlStr), parsed)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}
	if article.Content == "" {
		return "", fmt.Errorf("readability extracted no content from %s", pageURL)
	}
	return article.Content, nil
}
