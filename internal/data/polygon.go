package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/contactkeval/fintech-modeler/internal/logger"
)

const maxRateLimitRetries = 3

// polygonDataProvider implements Provider with raw HTTP calls against the
// Polygon/Massive aggregates endpoint.
type polygonDataProvider struct {
	// APIKey used for authenticating requests.
	APIKey string

	// Client is the HTTP client used to make API requests.
	Client *http.Client

	// BaseURL is the root endpoint (e.g., https://api.polygon.io).
	BaseURL string

	secondary Provider

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// polygonAggsResp models the paginated aggregates response.
type polygonAggsResp struct {
	Ticker       string `json:"ticker"`
	Adjusted     bool   `json:"adjusted"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		Open      float64 `json:"o"`
		Close     float64 `json:"c"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		VWAP      float64 `json:"vw"` // volume-weighted average price
		Volume    float64 `json:"v"`
		Trades    int64   `json:"n"` // number of transactions in the aggregate window
		Timestamp int64   `json:"t"` // epoch millis
	} `json:"results"`
	Status  string `json:"status"`
	Message string `json:"message"`
	NextURL string `json:"next_url"`
}

func NewPolygonDataProvider(apiKey string, secondary Provider) *polygonDataProvider {
	return &polygonDataProvider{
		APIKey:    apiKey,
		Client:    &http.Client{Timeout: 30 * time.Second},
		BaseURL:   "https://api.polygon.io",
		secondary: secondary,
		sleep:     sleepCtx,
	}
}

func (polygonDataProv *polygonDataProvider) Name() string { return "polygon" }

func (polygonDataProv *polygonDataProvider) Secondary() Provider {
	return polygonDataProv.secondary
}

// GetBars retrieves adjusted OHLCV bars, following next_url pagination.
func (polygonDataProv *polygonDataProvider) GetBars(
	ctx context.Context,
	underlying string,
	fromDate, toDate time.Time,
	multiplier int,
	timespan string,
) ([]Bar, error) {

	reqURL := fmt.Sprintf(
		"%s/v2/aggs/ticker/%s/range/%d/%s/%s/%s?adjusted=true&sort=asc&limit=%d&apiKey=%s",
		polygonDataProv.BaseURL,
		url.PathEscape(underlying),
		multiplier,
		timespan,
		fromDate.Format("2006-01-02"),
		toDate.Format("2006-01-02"),
		maxAggsLimit,
		url.QueryEscape(polygonDataProv.APIKey),
	)

	var out []Bar
	for reqURL != "" {
		logger.Tracef("aggregates request URL: %s", reqURL)

		page, err := polygonDataProv.fetchPage(ctx, reqURL)
		if err != nil {
			return fallbackBars(ctx, polygonDataProv, err, underlying, fromDate, toDate, multiplier, timespan)
		}

		for _, r := range page.Results {
			out = append(out, Bar{
				Date:     time.UnixMilli(r.Timestamp).UTC(),
				Open:     r.Open,
				High:     r.High,
				Low:      r.Low,
				Close:    r.Close,
				AdjClose: r.Close,
				Volume:   r.Volume,
				Count:    r.Trades,
			})
		}

		reqURL = polygonDataProv.nextPageURL(page.NextURL)
	}

	logger.Debugf("bars received for %s: %d records", underlying, len(out))

	if len(out) == 0 {
		return fallbackBars(ctx, polygonDataProv, fmt.Errorf("%w for %s", ErrNoData, underlying),
			underlying, fromDate, toDate, multiplier, timespan)
	}

	sortBars(out)
	return out, nil
}

// nextPageURL appends the API key to a next_url cursor, which the API
// returns without credentials.
func (polygonDataProv *polygonDataProvider) nextPageURL(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		logger.Warnf("ignoring malformed next_url %q: %v", next, err)
		return ""
	}
	q := u.Query()
	if q.Get("apiKey") == "" {
		q.Set("apiKey", polygonDataProv.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (polygonDataProv *polygonDataProvider) fetchPage(ctx context.Context, reqURL string) (*polygonAggsResp, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+polygonDataProv.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := polygonDataProv.processGetRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading aggregates body: %w", err)
	}

	var page polygonAggsResp
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode aggregates: %w", err)
	}
	if page.Status == "ERROR" {
		return nil, fmt.Errorf("aggregates API error: %s", page.Message)
	}
	return &page, nil
}

// processGetRequest executes an HTTP GET request with rate-limit handling.
//
// Behavior:
//   - On HTTP 429, sleeps until the next minute boundary and retries
//     (at most maxRateLimitRetries times)
//   - Returns immediately on success (<400)
//   - Returns an error carrying the API message for other status codes
func (polygonDataProv *polygonDataProvider) processGetRequest(
	ctx context.Context,
	req *http.Request,
) (*http.Response, error) {

	for attempt := 0; ; attempt++ {
		resp, err := polygonDataProv.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("aggregates request failed: %w", err)
		}

		if resp.StatusCode < 400 {
			return resp, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			resp.Body.Close()

			now := time.Now()
			wait := time.Until(now.Truncate(time.Minute).Add(time.Minute))
			logger.Infof("rate limit hit, sleeping for %s", wait)

			if err := polygonDataProv.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var dbg struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(body, &dbg)
		msg := dbg.Message
		if msg == "" {
			msg = dbg.Error
		}
		logger.Errorf("aggregates API error status=%d message=%s", resp.StatusCode, msg)
		return nil, fmt.Errorf("aggregates API returned status %d: %s", resp.StatusCode, msg)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
