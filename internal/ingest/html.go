package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// parseHTML extracts the main content of a catalog page. Pages readability
// cannot make sense of fall back to every visible text node.
func parseHTML(raw []byte, path string) (string, error) {
	base := &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	article, err := readability.FromReader(bytes.NewReader(raw), base)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, nil
	}

	text, ferr := visibleText(raw)
	if ferr != nil {
		return "", fmt.Errorf("parse html: %w", ferr)
	}
	return text, nil
}

func visibleText(raw []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n")
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String(), nil
}
