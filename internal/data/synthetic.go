package data

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"
)

const (
	synthAnnualVol      = 0.25
	synthTradingDays    = 252.0
	synthAnnualDrift    = 0.05
	synthIntradaySpread = 0.3
)

// synthDataProvider generates a reproducible geometric Brownian motion path
// per (seed, ticker), weekdays only. Useful offline and in tests.
type synthDataProvider struct {
	seed      int64
	secondary Provider
}

func NewSyntheticProvider(seed int64, secondary Provider) Provider {
	return &synthDataProvider{seed: seed, secondary: secondary}
}

func (synthDataProv *synthDataProvider) Name() string { return "synthetic" }

func (synthDataProv *synthDataProvider) Secondary() Provider {
	return synthDataProv.secondary
}

func (synthDataProv *synthDataProvider) GetBars(
	ctx context.Context,
	underlying string,
	fromDate, toDate time.Time,
	multiplier int,
	timespan string,
) ([]Bar, error) {

	if multiplier != 1 || timespan != "day" {
		return fallbackBars(ctx, synthDataProv, fmt.Errorf("synthetic provider serves daily bars only, got %d %s", multiplier, timespan),
			underlying, fromDate, toDate, multiplier, timespan)
	}
	if toDate.Before(fromDate) {
		return nil, fmt.Errorf("invalid range: %s after %s", fromDate.Format("2006-01-02"), toDate.Format("2006-01-02"))
	}

	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(underlying)))
	rng := rand.New(rand.NewSource(synthDataProv.seed ^ int64(h.Sum64())))

	dt := 1 / synthTradingDays
	drift := (synthAnnualDrift - 0.5*synthAnnualVol*synthAnnualVol) * dt
	diffusion := synthAnnualVol * math.Sqrt(dt)

	price := 100.0 + float64(rng.Intn(200))
	cur := time.Date(fromDate.Year(), fromDate.Month(), fromDate.Day(), 0, 0, 0, 0, time.UTC)
	var out []Bar
	for !cur.After(toDate) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			open := price
			closePx := price * math.Exp(drift+diffusion*rng.NormFloat64())
			high := math.Max(open, closePx) + math.Abs(rng.NormFloat64()*synthIntradaySpread)
			low := math.Min(open, closePx) - math.Abs(rng.NormFloat64()*synthIntradaySpread)
			out = append(out, Bar{
				Date:     cur,
				Open:     open,
				High:     high,
				Low:      math.Max(low, 0.01),
				Close:    closePx,
				AdjClose: closePx,
				Volume:   float64(1000 + rng.Intn(5000)),
			})
			price = closePx
		}
		cur = cur.AddDate(0, 0, 1)
	}

	if len(out) == 0 {
		return fallbackBars(ctx, synthDataProv, fmt.Errorf("%w for %s: no weekdays in range", ErrNoData, underlying),
			underlying, fromDate, toDate, multiplier, timespan)
	}
	return out, nil
}
