package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"reward_collector/internal/domain"
	"reward_collector/internal/heuristic"
	"reward_collector/internal/urlnorm"
)

// blacklistDomains hosts never yield reward candidates: social networks,
// app stores and the game's own site.
var blacklistDomains = map[string]struct{}{
	"facebook.com":       {},
	"twitter.com":        {},
	"instagram.com":      {},
	"youtube.com":        {},
	"coinmastergame.com": {},
	"apps.apple.com":     {},
	"play.google.com":    {},
}

// footerKeywords mark navigation links that are never rewards.
var footerKeywords = []string{
	"privacy", "imprint", "terms", "contact", "about", "cookie", "site-notice",
}

// Source is one page to scrape for candidate links.
type Source struct {
	Name string
	URL  string
}

type Config struct {
	Sources   []Source
	Timeout   time.Duration
	UserAgent string
}

// Extractor fetches source pages and emits normalized reward-link
// candidates.
type Extractor struct {
	httpClient *http.Client
	sources    []Source
	userAgent  string
	matcher    *heuristic.Matcher
	logger     *slog.Logger
}

func New(cfg Config, matcher *heuristic.Matcher, logger *slog.Logger) *Extractor {
	return &Extractor{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		sources:   cfg.Sources,
		userAgent: cfg.UserAgent,
		matcher:   matcher,
		logger:    logger.With("component", "extractor"),
	}
}

// Extract scrapes every configured source in order. A source that
// cannot be fetched or parsed is logged and skipped; it never aborts
// extraction for the remaining sources. Duplicate URLs across sources
// keep the first source encountered.
func (e *Extractor) Extract(ctx context.Context) []domain.Candidate {
	var candidates []domain.Candidate
	seen := make(map[string]struct{})

	for _, src := range e.sources {
		e.logger.Info("scraping source", "source", src.Name, "url", src.URL)

		doc, err := e.fetchDocument(ctx, src.URL)
		if err != nil {
			e.logger.Warn("source failed", "source", src.Name, "error", err)
			continue
		}

		found := 0
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			anchorText := strings.TrimSpace(sel.Text())

			candidate, ok := e.screen(href, anchorText)
			if !ok {
				return
			}
			if _, dup := seen[candidate]; dup {
				return
			}
			seen[candidate] = struct{}{}

			candidates = append(candidates, domain.Candidate{
				URL:        candidate,
				Source:     src.Name,
				AnchorText: anchorText,
			})
			found++
		})

		e.logger.Debug("source scraped", "source", src.Name, "candidates", found)
	}

	e.logger.Info("extraction complete", "candidates", len(candidates))
	return candidates
}

// screen applies the cheap pre-resolution filters to one anchor and
// returns the normalized URL when it survives.
func (e *Extractor) screen(href, anchorText string) (string, bool) {
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return "", false
	}

	normalized := urlnorm.Normalize(href)

	dom := urlnorm.Domain(normalized)
	if dom == "" {
		return "", false
	}
	if _, blocked := blacklistDomains[dom]; blocked {
		return "", false
	}

	lower := strings.ToLower(normalized)
	for _, kw := range footerKeywords {
		if strings.Contains(lower, kw) {
			return "", false
		}
	}

	if !e.matcher.Match(normalized + " " + anchorText) {
		return "", false
	}

	return normalized, true
}

func (e *Extractor) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return doc, nil
}
