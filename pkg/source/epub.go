package source

import (
	"archive/zip"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// ExtractEPUB pulls the visible text of every content document in an EPUB
// and splits it into sentence units. Ruby annotations (<rt>, <rp>) are
// dropped so furigana does not duplicate into the base text.
func ExtractEPUB(path string) ([]SentenceUnit, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()

	var names []string
	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".xhtml") || strings.HasSuffix(name, ".html") ||
			strings.HasSuffix(name, ".htm") {
			names = append(names, f.Name)
			files[f.Name] = f
		}
	}
	// Spine order is approximated by archive name order, which the common
	// chapter-numbering conventions preserve.
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		rc, err := files[name].Open()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		doc, err := html.Parse(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		collectText(doc, &sb)
		sb.WriteString("\n")
	}
	return SplitSentences(sb.String()), nil
}

// collectText walks the DOM appending text content, skipping script/style
// and ruby annotation elements.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "rt", "rp":
			return
		case "p", "br", "div", "h1", "h2", "h3":
			sb.WriteString("\n")
		}
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
