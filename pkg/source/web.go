package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

var (
	// (?s) so ruby bodies spanning lines are caught too.
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>) and ruby parentheses (<rp>) from raw
// HTML. Readability extracts all text content, so leaving these in would
// duplicate furigana into the base text (漢字 becoming 漢字かんじ).
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}

// ExtractArticle fetches a web page, runs readability extraction on the
// ruby-sanitized HTML and splits the article text into sentence units.
// The page title is returned for source attribution.
func ExtractArticle(ctx context.Context, rawURL string) ([]SentenceUnit, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	hc := &http.Client{Timeout: 30 * time.Second}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %s", rawURL, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	article, err := readability.FromReader(strings.NewReader(string(SanitizeRuby(raw))), u)
	if err != nil {
		return nil, "", fmt.Errorf("extract article: %w", err)
	}
	return SplitSentences(article.TextContent), article.Title, nil
}
