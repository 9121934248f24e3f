package trend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"dcaservice/internal/cache"
	"dcaservice/internal/client/coingecko"
	"dcaservice/internal/client/llm"
)

// Estimate is a bounded price-trend reading for one asset. PriceFactor is
// two-sided: (0,1) means falling (closer to 0 = sharper drop), (1,2) means
// rising (closer to 2 = sharper rise), exactly 1 is neutral.
type Estimate struct {
	PriceFactor  float64 `json:"price_factor"`
	PriceGoingUp bool    `json:"price_going_up"`
	ChangePct    float64 `json:"change_pct"`
	MA7          float64 `json:"ma_7"`
	MA30         float64 `json:"ma_30"`
}

// Neutral is the fallback estimate substituted by callers when the analyzer
// is unreachable.
func Neutral() Estimate {
	return Estimate{PriceFactor: 1.0, PriceGoingUp: false}
}

const factorPrompt = `You are a cryptocurrency price analyzer. Analyze the provided data and return a single number:

- If price is dropping (negative price change %), return a number between 0 and 1:
  * For minimal price drops (0 to -3%), return a number close to 1 (0.7-1.0)
  * For moderate price drops (-3% to -10%), return a mid-range number (0.4-0.7)
  * For significant price drops (< -10%), return a number close to 0 (0.1-0.3)

- If price is rising (positive price change %), return a number between 1 and 2:
  * For minimal price increases (0-3%), return a number close to 1 (1.0-1.3)
  * For moderate price increases (3-10%), return a mid-range number (1.3-1.7)
  * For significant price increases (>10%), return a number close to 2 (1.7-1.9)

Only return the number as a JSON object with a single field called "priceFactor". Nothing else.`

// Analyzer produces trend estimates from recent price history plus an AI
// magnitude read. It never caches failures; successful estimates are shared
// through redis so concurrent plan firings reuse one upstream analysis.
type Analyzer struct {
	Prices *coingecko.Client
	LLM    *llm.Client
	Cache  *cache.RedisStore
	Logger *zap.Logger

	HistoryDays int
	CacheTTL    time.Duration
}

func (a *Analyzer) EstimateTrend(ctx context.Context, assetID string) (Estimate, error) {
	if a == nil || a.Prices == nil {
		return Estimate{}, fmt.Errorf("trend analyzer is not configured")
	}

	cacheKey := "trend:" + assetID
	if a.Cache != nil {
		if raw, ok, err := a.Cache.Get(ctx, cacheKey); err == nil && ok {
			var cached Estimate
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	days := a.HistoryDays
	if days <= 0 {
		days = 31
	}
	points, err := a.Prices.GetMarketChart(ctx, assetID, days)
	if err != nil {
		return Estimate{}, fmt.Errorf("fetch price history: %w", err)
	}

	ma7, err := movingAverage(points, 7)
	if err != nil {
		return Estimate{}, err
	}
	ma30Period := 30
	if len(points) < ma30Period {
		ma30Period = len(points)
	}
	ma30, err := movingAverage(points, ma30Period)
	if err != nil {
		return Estimate{}, err
	}
	changePct, err := changePct24h(points)
	if err != nil {
		return Estimate{}, err
	}

	est := Estimate{
		PriceGoingUp: changePct > 0,
		ChangePct:    changePct,
		MA7:          ma7,
		MA30:         ma30,
	}
	est.PriceFactor, err = a.priceFactor(ctx, assetID, est)
	if err != nil {
		return Estimate{}, err
	}

	if a.Logger != nil {
		a.Logger.Info("trend estimate",
			zap.String("asset", assetID),
			zap.Float64("price_factor", est.PriceFactor),
			zap.Float64("change_pct", est.ChangePct),
			zap.Bool("price_going_up", est.PriceGoingUp),
		)
	}
	if a.Cache != nil {
		if raw, err := json.Marshal(est); err == nil {
			ttl := a.CacheTTL
			if ttl <= 0 {
				ttl = time.Minute
			}
			if err := a.Cache.Set(ctx, cacheKey, raw, ttl); err != nil && a.Logger != nil {
				a.Logger.Warn("trend cache write failed", zap.Error(err))
			}
		}
	}
	return est, nil
}

func (a *Analyzer) priceFactor(ctx context.Context, assetID string, est Estimate) (float64, error) {
	if a.LLM == nil {
		return 0, fmt.Errorf("llm client is not configured")
	}
	user := fmt.Sprintf(`Please analyze this token data and provide a price factor:

Token: %s
7-Day Moving Average: $%.4f
30-Day Moving Average: $%.4f
24-Hour Price Change: %.2f%%`, assetID, est.MA7, est.MA30, est.ChangePct)

	raw, err := a.LLM.CompleteJSON(ctx, factorPrompt, user)
	if err != nil {
		return 0, fmt.Errorf("price factor analysis: %w", err)
	}
	var parsed struct {
		PriceFactor float64 `json:"priceFactor"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("parse price factor: %w", err)
	}
	return clampFactor(parsed.PriceFactor), nil
}

// clampFactor keeps the factor on the documented two-sided [0,2] scale even
// if the model wanders outside it.
func clampFactor(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 1.0
	}
	if f < 0 {
		return 0
	}
	if f > 2 {
		return 2
	}
	return f
}

func movingAverage(points []coingecko.PricePoint, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("moving average period must be positive")
	}
	if len(points) < period {
		return 0, fmt.Errorf("not enough price data for %d-sample moving average", period)
	}
	recent := points[len(points)-period:]
	sum := 0.0
	for _, p := range recent {
		sum += p.Price
	}
	return sum / float64(period), nil
}

// changePct24h compares the latest sample against the sample closest to 24
// hours before it.
func changePct24h(points []coingecko.PricePoint) (float64, error) {
	if len(points) < 2 {
		return 0, fmt.Errorf("not enough price data for 24h change")
	}
	sorted := make([]coingecko.PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	latest := sorted[len(sorted)-1]
	target := latest.Timestamp.Add(-24 * time.Hour)

	closest := sorted[0]
	smallest := absDuration(sorted[0].Timestamp.Sub(target))
	for _, p := range sorted[1:] {
		diff := absDuration(p.Timestamp.Sub(target))
		if diff < smallest {
			smallest = diff
			closest = p
		}
	}
	if closest.Price == 0 {
		return 0, fmt.Errorf("baseline price is zero")
	}
	return (latest.Price - closest.Price) / closest.Price * 100, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
