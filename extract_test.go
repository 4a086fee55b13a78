package main

import (
	"strings"
	"testing"
)

func TestExtract_TitleAndText(t *testing.T) {
	html := `<html><head><title>T</title></head><body>` +
		`<script>bad()</script><p>Hello</p></body></html>`

	ex := activeExtractor.extract(html)
	if ex.Error != "" {
		t.Fatalf("unexpected extraction error: %s", ex.Error)
	}
	if ex.Title != "T" {
		t.Errorf("title = %q, want T", ex.Title)
	}
	if !strings.Contains(ex.Text, "Hello") {
		t.Errorf("text %q should contain Hello", ex.Text)
	}
	if strings.Contains(ex.Text, "bad()") {
		t.Errorf("script content leaked into text: %q", ex.Text)
	}
}

func TestExtract_MetaDescription(t *testing.T) {
	html := `<html><head>
		<meta name="description" content="A fine page.">
	</head><body><p>x</p></body></html>`

	ex := activeExtractor.extract(html)
	if ex.Description != "A fine page." {
		t.Errorf("description = %q", ex.Description)
	}
}

func TestExtract_OpenGraphDescriptionFallback(t *testing.T) {
	html := `<html><head>
		<meta property="og:description" content="OG wins when meta is absent.">
	</head><body><p>x</p></body></html>`

	ex := activeExtractor.extract(html)
	if ex.Description != "OG wins when meta is absent." {
		t.Errorf("description = %q", ex.Description)
	}
}

func TestExtract_MetaDescriptionBeatsOpenGraph(t *testing.T) {
	html := `<html><head>
		<meta name="description" content="meta description">
		<meta property="og:description" content="og description">
	</head><body></body></html>`

	ex := activeExtractor.extract(html)
	if ex.Description != "meta description" {
		t.Errorf("description = %q, meta tag should take precedence", ex.Description)
	}
}

func TestExtract_StripsBoilerplate(t *testing.T) {
	html := `<html><head><title>Page</title><style>p{color:red}</style></head><body>
		<nav>Home | Blog</nav>
		<header>Site Header</header>
		<p>Main content line.</p>
		<aside>Trending</aside>
		<noscript>enable js</noscript>
		<footer>Copyright 2026</footer>
	</body></html>`

	ex := activeExtractor.extract(html)
	if !strings.Contains(ex.Text, "Main content line.") {
		t.Errorf("main content missing from %q", ex.Text)
	}
	for _, boiler := range []string{"Home | Blog", "Site Header", "Trending", "Copyright 2026", "enable js", "color:red"} {
		if strings.Contains(ex.Text, boiler) {
			t.Errorf("boilerplate %q should be stripped, text: %q", boiler, ex.Text)
		}
	}
}

func TestExtract_FlattensToNonBlankLines(t *testing.T) {
	html := `<html><body>
		<p>first</p>

		<div>   </div>
		<p>second</p>
	</body></html>`

	ex := activeExtractor.extract(html)
	lines := strings.Split(ex.Text, "\n")
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Errorf("lines = %q, want [first second]", lines)
	}
}

func TestUnavailableExtractor_PreviewBounded(t *testing.T) {
	long := strings.Repeat("a", htmlPreviewBytes+500)
	ex := unavailableExtractor{reason: "HTML extraction not available"}.extract(long)
	if ex.Error == "" {
		t.Fatal("expected error notice")
	}
	if len(ex.RawHTML) != htmlPreviewBytes+len("...") {
		t.Errorf("preview length = %d", len(ex.RawHTML))
	}
	if !strings.HasSuffix(ex.RawHTML, "...") {
		t.Error("long preview should end with ellipsis")
	}
}

func TestUnavailableExtractor_ShortInputNotTruncated(t *testing.T) {
	ex := unavailableExtractor{reason: "x"}.extract("<p>tiny</p>")
	if ex.RawHTML != "<p>tiny</p>" {
		t.Errorf("preview = %q", ex.RawHTML)
	}
}

func TestExtractReadable_Article(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>Readable Test</title></head><body>
		<nav><a href="/">Home</a> | <a href="/blog">Blog</a></nav>
		<article>
			<h1>Readable Test</h1>
			<p>This is the main article content that should be preserved. It needs
			to be long enough that readability identifies it as the primary content
			of the page, so this paragraph carries substantial discussion.</p>
			<p>A second paragraph with additional analysis to further establish this
			as the main content area. Readability uses text density heuristics, so
			we provide plenty of words here.</p>
			<p>Third paragraph continuing the article with important information
			that should definitely be kept in the final output of this test.</p>
		</article>
		<footer><p>Copyright 2026 | Privacy Policy</p></footer>
	</body></html>`

	content, err := extractReadable(html, "https://example.com/article")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "main article content") {
		t.Error("expected article content to be preserved")
	}
	if strings.Contains(content, "Privacy Policy") {
		t.Error("footer should be stripped")
	}
}
