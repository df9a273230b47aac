package main

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/ingest/stub"
	"github.com/loic-mmt/BloomDash/internal/provider"
)

// demoHistoryDays is how far back the synthetic tables reach; long enough
// to cover any checkpoint gap in a demo run.
const demoHistoryDays = 400

// demoPriceSource builds deterministic OHLCV walks per ticker.
func demoPriceSource(tickers []string) *stub.PriceSource {
	tables := make(map[string]*provider.Table, len(tickers))
	for i, ticker := range tickers {
		rng := rand.New(rand.NewSource(int64(i)*7919 + 13))
		tbl := &provider.Table{
			Columns: []provider.Column{
				{Name: "date"}, {Name: "open"}, {Name: "high"}, {Name: "low"},
				{Name: "close"}, {Name: "adjclose"}, {Name: "volume"},
			},
		}

		price := 50.0 + rng.Float64()*450.0
		d := domain.DateOf(time.Now().UTC()).AddDays(-demoHistoryDays)
		for j := 0; j < demoHistoryDays; j++ {
			open := price
			price = price * (1.0 + rng.NormFloat64()*0.015)
			if price < 1 {
				price = 1
			}
			high := maxf(open, price) * (1.0 + rng.Float64()*0.01)
			low := minf(open, price) * (1.0 - rng.Float64()*0.01)
			volume := int64(1_000_000 + rng.Intn(9_000_000))

			tbl.Rows = append(tbl.Rows, []string{
				d.String(),
				cell(open), cell(high), cell(low), cell(price), cell(price),
				strconv.FormatInt(volume, 10),
			})
			d = d.AddDays(1)
		}
		tables[ticker] = tbl
	}
	return stub.NewPriceSource(tables)
}

// demoMacroSource builds monthly-ish indicator rows per zone from the
// configured start.
func demoMacroSource(zones []string, start domain.Date) *stub.MacroSource {
	tables := make(map[string]*provider.Table, len(zones))
	today := domain.DateOf(time.Now().UTC())

	for i, zone := range zones {
		rng := rand.New(rand.NewSource(int64(i)*104729 + 7))
		tbl := &provider.Table{
			Columns: []provider.Column{
				{Name: "date"}, {Name: "cpi"}, {Name: "gdp"},
				{Name: "policy"}, {Name: "unemp"},
			},
		}

		cpi, gdp, policy, unemp := 100.0, 2.0, 3.5, 5.0
		for d := start; !d.After(today); d = d.AddDays(30) {
			cpi *= 1.0 + 0.002 + rng.NormFloat64()*0.001
			gdp += rng.NormFloat64() * 0.2
			policy += rng.NormFloat64() * 0.1
			unemp += rng.NormFloat64() * 0.15
			if policy < 0 {
				policy = 0
			}
			if unemp < 1 {
				unemp = 1
			}
			tbl.Rows = append(tbl.Rows, []string{
				d.String(), cell(cpi), cell(gdp), cell(policy), cell(unemp),
			})
		}
		tables[zone] = tbl
	}
	return stub.NewMacroSource(tables)
}

// demoFeatureSource builds sparse observation dates per (feature, ticker).
func demoFeatureSource(feature string, tickers []string) *stub.FeatureSource {
	tables := make(map[[2]string]*provider.Table, len(tickers))
	for i, ticker := range tickers {
		rng := rand.New(rand.NewSource(int64(i)*31337 + 3))
		tbl := &provider.Table{
			Columns: []provider.Column{{Name: "feature"}, {Name: "ticker"}, {Name: "date"}},
		}

		d := domain.DateOf(time.Now().UTC()).AddDays(-demoHistoryDays)
		for !d.After(domain.DateOf(time.Now().UTC())) {
			if rng.Float64() < 0.3 {
				tbl.Rows = append(tbl.Rows, []string{feature, ticker, d.String()})
			}
			d = d.AddDays(1)
		}
		tables[[2]string{feature, ticker}] = tbl
	}
	return stub.NewFeatureSource(tables)
}

func cell(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
