package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Text recovery methods
const (
	MethodReadability = "readability"
	MethodVisibleText = "visible_text"
)

// Document is the plain text recovered from an HTML page
type Document struct {
	Title  string
	Text   string
	Method string // readability or visible_text
}

// TextExtractor turns HTML into analysable plain text
type TextExtractor struct {
	minArticleChars int
}

// NewTextExtractor creates a new text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{
		minArticleChars: 200,
	}
}

// Extract returns the article body of an HTML page. Readability is tried
// first; short or failed extractions fall back to all visible text.
func (e *TextExtractor) Extract(content []byte, pageURL string) (Document, error) {
	var base *url.URL
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			base = u
		}
	}

	article, err := readability.FromReader(bytes.NewReader(content), base)
	if err == nil {
		text := strings.TrimSpace(article.TextContent)
		if len(text) >= e.minArticleChars {
			return Document{Title: strings.TrimSpace(article.Title), Text: text, Method: MethodReadability}, nil
		}
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}

	title := ""
	if article.Title != "" {
		title = strings.TrimSpace(article.Title)
	} else {
		title = findTitle(doc)
	}

	return Document{
		Title:  title,
		Text:   extractVisibleText(doc),
		Method: MethodVisibleText,
	}, nil
}

// LooksLikeHTML sniffs whether data is an HTML document
func LooksLikeHTML(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	lower := strings.ToLower(strings.TrimSpace(string(head)))
	return strings.HasPrefix(lower, "<!doctype html") ||
		strings.HasPrefix(lower, "<html") ||
		strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<head")
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles.
// Block elements end with a newline so paragraphs stay apart.
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder
	atBreak := true // nothing written yet, or the last write ended with a separator

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template", "svg", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if !atBreak {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
				atBreak = false
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) && !atBreak {
			buf.WriteString("\n")
			atBreak = true
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "br", "tr", "table", "section", "article",
		"header", "footer", "blockquote", "pre", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}
