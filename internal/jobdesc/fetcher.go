// Package jobdesc fetches job postings and reduces them to plain text that
// fits into a prompt.
package jobdesc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/logger"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; resume-optimizer/1.0)"
	defaultTimeout   = 10 * time.Second
	// MaxLength is the maximum number of characters kept from a posting.
	MaxLength = 3000
	// maxBody limits how much of a page is read.
	maxBody = 5 << 20
	// blockBreak marks block boundaries. Newlines inside text nodes are
	// plain whitespace.
	blockBreak = "\u2029"
)

var noise = "script, style, noscript, iframe, svg, nav, footer, header, form, .cookie-banner, .popup, .sidebar, .ads, .advertisement"

var postingSelectors = []string{
	".job-description",
	"#job-description",
	".job-details",
	".job-content",
	".posting-content",
	"[data-testid='job-description']",
	"[itemprop='description']",
	"main",
	"article",
	"#content",
	".content",
}

type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// New returns a Fetcher. A nil client gets a 10 second timeout.
func New(client *http.Client, userAgent string, log *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	if userAgent = strings.TrimSpace(userAgent); userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		logger:    logger.WithFields(log),
	}
}

// Fetch downloads rawURL and returns the text of the posting.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("invalid job description url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	started := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", parsed.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: bad status %d", parsed.Host, resp.StatusCode)
	}

	text, err := Extract(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", err
	}

	f.logger.Debug("fetched job description",
		zap.String("url", parsed.String()),
		zap.Int("length", utf8.RuneCountInString(text)),
		zap.Duration("took", time.Since(started)),
	)

	if text == "" {
		return "", fmt.Errorf("no text found at %s", parsed.String())
	}

	return text, nil
}

// Extract parses an HTML page and returns the text of its most specific
// posting container, cut to MaxLength characters.
func Extract(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(noise).Remove()

	content := doc.Find("body")
	for _, selector := range postingSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	return truncate(collapse(content), MaxLength), nil
}

// collapse puts every block element of sel on its own line and squeezes the
// whitespace inside lines.
func collapse(sel *goquery.Selection) string {
	sel.Find("br").ReplaceWithHtml(blockBreak)
	sel.Find("p, li, div, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(blockBreak)
	})

	lines := strings.Split(sel.Text(), blockBreak)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
