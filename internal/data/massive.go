// Package data provides historical market data providers.
//
// This file contains a Massive-backed Provider that retrieves aggregates
// through the official Massive Go SDK. See polygon.go for the raw HTTP
// variant used when the SDK cannot reach a custom endpoint.
package data

import (
	"context"
	"fmt"
	"net/http"
	"time"

	massive "github.com/massive-com/client-go/v2/rest"
	"github.com/massive-com/client-go/v2/rest/models"

	"github.com/contactkeval/fintech-modeler/internal/logger"
)

const maxAggsLimit = 50000

// massiveDataProvider implements the Provider interface using the Massive SDK.
type massiveDataProvider struct {
	client *massive.Client

	// secondary is an optional fallback provider.
	secondary Provider
}

// NewMassiveDataProvider constructs a Massive-backed data provider.
//
// It initializes an HTTP client with sensible defaults for timeouts,
// connection pooling, HTTP/2 and gzip decompression.
func NewMassiveDataProvider(apiKey string, secondary Provider) *massiveDataProvider {
	logger.Infof("initializing Massive data provider")

	return newMassiveWithHTTPClient(apiKey, &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			DisableCompression:    false, // must be false to enable gzip auto-decompression
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
		},
	}, secondary)
}

func newMassiveWithHTTPClient(apiKey string, hc *http.Client, secondary Provider) *massiveDataProvider {
	return &massiveDataProvider{
		client:    massive.NewWithClient(apiKey, hc),
		secondary: secondary,
	}
}

func (massiveDataProv *massiveDataProvider) Name() string { return "massive" }

// Secondary returns the configured secondary Provider, if any.
func (massiveDataProv *massiveDataProvider) Secondary() Provider {
	return massiveDataProv.secondary
}

// GetBars retrieves adjusted OHLCV aggregates in ascending order. The SDK
// iterator follows next_url pagination on its own.
func (massiveDataProv *massiveDataProvider) GetBars(
	ctx context.Context,
	underlying string,
	fromDate, toDate time.Time,
	multiplier int,
	timespan string,
) ([]Bar, error) {

	logger.Debugf(
		"fetching bars: %s from=%s to=%s span=%d%s",
		underlying,
		fromDate.Format("2006-01-02"),
		toDate.Format("2006-01-02"),
		multiplier,
		timespan,
	)

	params := &models.ListAggsParams{
		Ticker:     underlying,
		Multiplier: multiplier,
		Timespan:   models.Timespan(timespan),
		From:       models.Millis(fromDate),
		To:         models.Millis(toDate),
	}
	limit := maxAggsLimit
	order := models.Asc
	adjusted := true
	params.Limit = &limit
	params.Order = &order
	params.Adjusted = &adjusted

	iter := massiveDataProv.client.ListAggs(ctx, params)

	var out []Bar
	for iter.Next() {
		agg := iter.Item()
		out = append(out, Bar{
			Date:     time.Time(agg.Timestamp).UTC(),
			Open:     agg.Open,
			High:     agg.High,
			Low:      agg.Low,
			Close:    agg.Close,
			AdjClose: agg.Close, // adjusted=true: close already accounts for splits
			Volume:   agg.Volume,
			Count:    agg.Transactions,
		})
	}
	if err := iter.Err(); err != nil {
		logger.Errorf("massive aggregates request failed for %s: %v", underlying, err)
		return fallbackBars(ctx, massiveDataProv, fmt.Errorf("massive aggregates: %w", err),
			underlying, fromDate, toDate, multiplier, timespan)
	}

	logger.Tracef("bars received: %d records", len(out))

	if len(out) == 0 {
		return fallbackBars(ctx, massiveDataProv, fmt.Errorf("%w for %s", ErrNoData, underlying),
			underlying, fromDate, toDate, multiplier, timespan)
	}

	sortBars(out)
	return out, nil
}
