// Package ingest fetches historical observations from the upstream
// weather-history site. It is the external collaborator behind
// query.update_range: the query core delegates here and never talks to
// the network itself.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tianqilab/tianqi/internal/schema"
	"github.com/tianqilab/tianqi/internal/store"
)

// DefaultBaseURL is the upstream history site.
const DefaultBaseURL = "http://www.tianqihoubao.com"

// userAgent keeps the upstream from serving the mobile layout.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrCityNotSupported is returned when a city has no pinyin key in the
// registry, so no source URL can be built for it.
var ErrCityNotSupported = errors.New("city not supported by the history source")

// Client fetches month pages from the history site. Requests are rate
// limited; one month page is one request.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	reg        *schema.Registry
	log        *zap.Logger
}

// NewClient creates a Client. rps bounds outgoing requests per second
// (fractional values allowed); baseURL falls back to DefaultBaseURL.
func NewClient(baseURL string, rps float64, reg *schema.Registry, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		baseURL:    baseURL,
		reg:        reg,
		log:        log,
	}
}

// FetchRange fetches all month pages covering [start, end] for a city
// and returns the observations inside the range, ascending by date.
// The city must resolve to a pinyin key in the registry.
func (c *Client) FetchRange(ctx context.Context, city string, start, end time.Time) ([]store.Row, error) {
	canonical := c.reg.NormalizeCity(city)
	pinyin, ok := c.reg.Pinyin(canonical)
	if !ok {
		return nil, fmt.Errorf("%s: %w", city, ErrCityNotSupported)
	}

	var out []store.Row
	for _, month := range monthsBetween(start, end) {
		rows, err := c.fetchMonth(ctx, pinyin, canonical, month)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s: %w", canonical, month.Format("2006-01"), err)
		}
		for _, r := range rows {
			if r.Date.Before(start) || r.Date.After(end) {
				continue
			}
			out = append(out, r)
		}
	}
	c.log.Info("fetched history range",
		zap.String("city", canonical),
		zap.Int("rows", len(out)))
	return out, nil
}

// fetchMonth retrieves and parses one month page. The upstream serves
// GBK-encoded HTML.
func (c *Client) fetchMonth(ctx context.Context, pinyin, city string, month time.Time) ([]store.Row, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/lishi/%s/month/%s.html", c.baseURL, pinyin, month.Format("200601"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	rows, err := parseMonthPage(decodeGBK(resp.Body), city)
	if err != nil {
		return nil, err
	}
	c.log.Debug("parsed month page",
		zap.String("url", url),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// monthsBetween lists the first-of-month dates covering [start, end].
func monthsBetween(start, end time.Time) []time.Time {
	var out []time.Time
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(last) {
		out = append(out, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}
