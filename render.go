// Rendering of fetch results: raw text, pretty-printed JSON, or
// extracted HTML text, in flat-text or structured JSON form.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// renderOptions control how a fetch result is presented.
type renderOptions struct {
	ShowHeaders bool
	Raw         bool
	AsJSON      bool
	Readable    bool
	Markdown    bool
}

// jsonPayload is the structured (JSON-mode) form of one result. Exactly
// one of JSON/HTML/Markdown/Text carries the body variant.
type jsonPayload struct {
	URL         string            `json:"url"`
	Status      int               `json:"status"`
	ContentType string            `json:"content_type"`
	Size        int               `json:"size"`
	Headers     map[string]string `json:"headers,omitempty"`
	Binary      bool              `json:"binary,omitempty"`
	Message     string            `json:"message,omitempty"`
	JSON        json.RawMessage   `json:"json,omitempty"`
	HTML        *htmlExtraction   `json:"html,omitempty"`
	Markdown    string            `json:"markdown,omitempty"`
	Text        string            `json:"text,omitempty"`
}

// renderedOutput is the presentation of one fetch result, tagged with
// its originating URL for batch dividing.
type renderedOutput struct {
	URL     string
	Text    string       // flat text form (non-JSON mode)
	Payload *jsonPayload // structured form (JSON mode)
}

// render converts a fetch result into its output representation.
// Rendering is total: decode failures are absorbed by the fallback
// chain, bad JSON downgrades to a warning, and a missing HTML
// capability degrades to a bounded preview.
func render(res *fetchResult, opts renderOptions) *renderedOutput {
	out := &renderedOutput{URL: res.URL}
	if opts.AsJSON {
		out.Payload = renderJSON(res, opts)
	} else {
		out.Text = renderText(res, opts)
	}
	return out
}

func renderText(res *fetchResult, opts renderOptions) string {
	parts := []string{
		"URL: " + res.URL,
		fmt.Sprintf("Status: %d", res.Status),
		"Content-Type: " + res.ContentType,
		fmt.Sprintf("Size: %d bytes", len(res.Content)),
	}

	if opts.ShowHeaders {
		parts = append(parts, "\nHeaders:")
		for _, k := range sortedKeys(res.Headers) {
			parts = append(parts, fmt.Sprintf("  %s: %s", k, res.Headers[k]))
		}
	}

	// Binary content never reaches the text stream.
	if !contentTypeIsText(res.ContentType) {
		parts = append(parts, "\nBinary content detected.", "Use --output to save to a file.")
		return strings.Join(parts, "\n")
	}

	text := decodeText(res.Content, res.Charset)
	parts = append(parts, "") // blank line before content

	switch {
	case res.ContentType == "application/json":
		parts = append(parts, renderJSONBody(text)...)
	case res.ContentType == "text/html" && !opts.Raw:
		parts = append(parts, renderHTMLText(text, res.URL, opts)...)
	default:
		// Plain text, raw mode, or an unrecognized text subtype.
		parts = append(parts, text)
	}

	return truncateOutput(strings.Join(parts, "\n"))
}

// renderJSONBody pretty-prints an application/json body. HEAD-style
// requests return no body, rendered as a literal empty-body marker.
func renderJSONBody(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{"(empty body)"}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return []string{fmt.Sprintf("Warning: Invalid JSON (%v)", err), text}
	}
	return []string{buf.String()}
}

func renderHTMLText(text, pageURL string, opts renderOptions) []string {
	htmlStr := resolveHTMLBody(text, pageURL, opts)

	if opts.Markdown {
		if md, err := htmlToMarkdown(htmlStr); err == nil {
			return []string{md}
		} else {
			logger.Debug().Err(err).Msg("markdown conversion failed, falling back to text extraction")
		}
	}

	ex := activeExtractor.extract(htmlStr)
	if ex.Error != "" {
		return []string{
			"Error: " + ex.Error,
			"\nRaw HTML (truncated):",
			ex.RawHTML,
		}
	}

	var parts []string
	if ex.Title != "" {
		parts = append(parts, "Title: "+ex.Title)
	}
	if ex.Description != "" {
		parts = append(parts, "Description: "+ex.Description)
	}
	return append(parts, "\nContent:", ex.Text)
}

// resolveHTMLBody applies the readability pass when requested. A page
// readability cannot handle falls back to the full document.
func resolveHTMLBody(text, pageURL string, opts renderOptions) string {
	if !opts.Readable {
		return text
	}
	article, err := extractReadable(text, pageURL)
	if err != nil {
		logger.Debug().Err(err).Msg("readability failed, using full document")
		return text
	}
	return article
}

func renderJSON(res *fetchResult, opts renderOptions) *jsonPayload {
	p := &jsonPayload{
		URL:         res.URL,
		Status:      res.Status,
		ContentType: res.ContentType,
		Size:        len(res.Content),
	}
	if opts.ShowHeaders {
		p.Headers = res.Headers
	}

	if !contentTypeIsText(res.ContentType) {
		p.Binary = true
		p.Message = "Binary content - use --output to save to file"
		return p
	}

	text := decodeText(res.Content, res.Charset)

	switch {
	case res.ContentType == "application/json":
		trimmed := strings.TrimSpace(text)
		switch {
		case trimmed == "":
			p.Text = "(empty body)"
		case json.Valid([]byte(trimmed)):
			p.JSON = json.RawMessage(trimmed)
		default:
			p.Text = text
		}
	case res.ContentType == "text/html" && !opts.Raw:
		htmlStr := resolveHTMLBody(text, res.URL, opts)
		if opts.Markdown {
			if md, err := htmlToMarkdown(htmlStr); err == nil {
				p.Markdown = md
				return p
			}
		}
		p.HTML = activeExtractor.extract(htmlStr)
	default:
		p.Text = text
	}
	return p
}

// truncateOutput caps flat-text output, appending a marker that states
// the shown byte count. Structured JSON output is never truncated.
func truncateOutput(s string) string {
	if len(s) <= outputTruncateSize {
		return s
	}
	return s[:outputTruncateSize] +
		fmt.Sprintf("\n\n... (truncated, showing first %d bytes)", outputTruncateSize)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
