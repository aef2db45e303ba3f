package resolver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"reward_collector/internal/domain"
	"reward_collector/internal/heuristic"
	"reward_collector/internal/urlnorm"
)

// rewardScore is assigned when the resolved destination still looks
// reward-related; anything else scores zero.
const rewardScore = 5

type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Resolver follows a candidate's redirects to its final destination and
// scores the outcome.
type Resolver struct {
	httpClient *http.Client
	userAgent  string
	matcher    *heuristic.Matcher
	logger     *slog.Logger
}

func New(cfg Config, matcher *heuristic.Matcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		matcher:   matcher,
		logger:    logger.With("component", "resolver"),
	}
}

// Resolve fetches the candidate URL following redirects. It never
// fails: timeouts, DNS errors and any other network-level failure
// collapse into the unresolved outcome so the batch keeps going.
func (r *Resolver) Resolve(ctx context.Context, c domain.Candidate) domain.Resolution {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return r.unresolved(c)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug("fetch failed", "url", c.URL, "error", err)
		return r.unresolved(c)
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()
	finalDomain := urlnorm.Domain(finalURL)

	title := ""
	if strings.Contains(resp.Header.Get("Content-Type"), "text") {
		title = extractTitle(resp.Body)
	}

	score := 0
	if r.matcher.Match(finalURL + " " + title + " " + c.AnchorText) {
		score = rewardScore
	}

	return domain.Resolution{
		Resolved:    true,
		Status:      resp.StatusCode,
		FinalURL:    finalURL,
		FinalDomain: finalDomain,
		Title:       title,
		Score:       score,
	}
}

func (r *Resolver) unresolved(c domain.Candidate) domain.Resolution {
	return domain.Resolution{
		Resolved:    false,
		FinalURL:    c.URL,
		FinalDomain: urlnorm.Domain(c.URL),
	}
}

// extractTitle is best-effort: any parse problem yields "".
func extractTitle(body io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
