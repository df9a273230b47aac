// Package dashboard serves the rendering feed for the web dashboard:
// JSON snapshot and series endpoints, a websocket quote stream and
// operational status. Until real dataset readers land it is fed by
// deterministic synthetic series, regenerated per minute.
package dashboard

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// TimeframePoints maps a timeframe label to the number of points served.
var TimeframePoints = map[string]int{
	"1D": 24,
	"5D": 48,
	"1M": 96,
	"6M": 160,
	"1Y": 220,
}

// snapshotBases lists the snapshot symbols and their series start values.
var snapshotBases = []struct {
	Symbol string
	Start  float64
}{
	{"SPX", 5300.0},
	{"NDX", 18600.0},
	{"DAX", 17800.0},
	{"CAC", 7950.0},
	{"VIX", 15.2},
	{"US10Y", 4.22},
	{"EURUSD", 1.08},
	{"BTC", 61200.0},
}

var moverSymbols = []string{
	"AAPL", "MSFT", "NVDA", "TSLA", "AMZN",
	"META", "ASML", "ORCL", "NFLX", "INTC",
}

// Quote is one instrument snapshot with its trailing series.
type Quote struct {
	Symbol   string    `json:"symbol"`
	Last     float64   `json:"last"`
	Delta    float64   `json:"delta"`
	PctDelta float64   `json:"pct_delta"`
	Series   []float64 `json:"series"`
	Volume   []int64   `json:"volume"`
}

// Mover is one row of the gainers/losers tables.
type Mover struct {
	Symbol   string  `json:"symbol"`
	Last     float64 `json:"last"`
	PctDelta float64 `json:"pct_delta"`
}

// Payload is the full snapshot served to the dashboard.
type Payload struct {
	AsOf    time.Time `json:"as_of"`
	Quotes  []Quote   `json:"quotes"`
	Gainers []Mover   `json:"gainers"`
	Losers  []Mover   `json:"losers"`
}

// randomWalk generates a multiplicative walk with per-step drift and
// gaussian volatility, floored at 0.01.
func randomWalk(seed int64, points int, start, driftPct, volPct float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, 0, points)
	values = append(values, start)
	for i := 1; i < points; i++ {
		step := 1.0 + driftPct + rng.NormFloat64()*volPct
		values = append(values, math.Max(0.01, values[i-1]*step))
	}
	return values
}

// BuildPayload generates the synthetic snapshot for now. The seed is
// derived from the minute, so repeated calls within the same minute
// return identical data.
func BuildPayload(now time.Time) *Payload {
	now = now.UTC().Truncate(time.Minute)
	baseSeed := now.Unix() / 60
	totalPoints := TimeframePoints["1Y"]

	p := &Payload{AsOf: now}

	for idx, base := range snapshotBases {
		rng := rand.New(rand.NewSource(baseSeed + int64(idx)*101))
		drift := -0.00035 + rng.Float64()*(0.00085+0.00035)
		vol := 0.0012 + rng.Float64()*(0.0150-0.0012)

		series := randomWalk(baseSeed+int64(idx)*37, totalPoints, base.Start, drift, vol)
		volume := make([]int64, totalPoints)
		for i := range volume {
			v := int64(rng.NormFloat64()*450_000 + 2_000_000)
			if v < 500 {
				v = 500
			}
			volume[i] = v
		}

		last := series[len(series)-1]
		prev := series[len(series)-2]
		delta := last - prev
		pct := 0.0
		if prev != 0 {
			pct = delta / prev * 100.0
		}

		p.Quotes = append(p.Quotes, Quote{
			Symbol:   base.Symbol,
			Last:     round6(last),
			Delta:    round6(delta),
			PctDelta: round3(pct),
			Series:   rounded(series),
			Volume:   volume,
		})
	}

	moversRng := rand.New(rand.NewSource(baseSeed * 17))
	movers := make([]Mover, 0, len(moverSymbols))
	for _, sym := range moverSymbols {
		movers = append(movers, Mover{
			Symbol:   sym,
			Last:     round2(20.0 + moversRng.Float64()*(1100.0-20.0)),
			PctDelta: round2(-8.0 + moversRng.Float64()*16.0),
		})
	}

	sorted := append([]Mover(nil), movers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PctDelta > sorted[j].PctDelta })
	p.Gainers = append(p.Gainers, sorted[:5]...)
	p.Losers = append(p.Losers, reversed(sorted)[:5]...)

	return p
}

// SeriesFor returns one symbol's quote trimmed to the timeframe, or false
// for unknown symbols or timeframes.
func SeriesFor(now time.Time, symbol, timeframe string) (Quote, bool) {
	points, ok := TimeframePoints[timeframe]
	if !ok {
		return Quote{}, false
	}

	payload := BuildPayload(now)
	for _, q := range payload.Quotes {
		if q.Symbol != symbol {
			continue
		}
		if points < len(q.Series) {
			q.Series = q.Series[len(q.Series)-points:]
			q.Volume = q.Volume[len(q.Volume)-points:]
		}
		return q, true
	}
	return Quote{}, false
}

func reversed(in []Mover) []Mover {
	out := make([]Mover, len(in))
	for i, m := range in {
		out[len(in)-1-i] = m
	}
	return out
}

func rounded(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = round6(v)
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
