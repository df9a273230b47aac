// Package yahoo fetches daily OHLCV history from the Yahoo Finance chart
// API and exposes it as a raw table for normalization. It is the one
// fully implemented price adapter; see the sibling packages for the
// intended scope of the others.
package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/provider"
)

// DefaultBaseURL is the public chart API endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Source fetches price history over the retrying HTTP client.
type Source struct {
	client  *provider.Client
	baseURL string
}

// Options contains configuration for creating a Source.
type Options struct {
	Client  *provider.Client // Default: provider.NewClient()
	BaseURL string           // Default: DefaultBaseURL
}

// New creates a new Yahoo chart source.
func New(opts Options) *Source {
	client := opts.Client
	if client == nil {
		client = provider.NewClient()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Source{client: client, baseURL: baseURL}
}

// chartResponse mirrors the slice of the chart API payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History fetches daily bars for ticker over [start, end] inclusive and
// returns them as a raw table with date, open, high, low, close,
// adj_close and volume columns. Cells for values the API reports as null
// are empty strings; normalization maps them to absent.
func (s *Source) History(ctx context.Context, ticker string, start, end domain.Date) (*provider.Table, error) {
	if ticker == "" {
		return nil, fmt.Errorf("yahoo: empty ticker")
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Time().Unix(), 10))
	// period2 is exclusive; push it one day past the inclusive end.
	q.Set("period2", strconv.FormatInt(end.AddDays(1).Time().Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,split")

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", s.baseURL, url.PathEscape(ticker), q.Encode())

	var resp chartResponse
	if err := s.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %s: %w",
			ticker, resp.Chart.Error.Code, resp.Chart.Error.Description, provider.ErrUnavailable)
	}
	if len(resp.Chart.Result) == 0 {
		return &provider.Table{}, nil
	}

	res := resp.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return &provider.Table{}, nil
	}
	quote := res.Indicators.Quote[0]

	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	tbl := &provider.Table{
		Columns: []provider.Column{
			{Name: "date"},
			{Name: "open"},
			{Name: "high"},
			{Name: "low"},
			{Name: "close"},
			{Name: "adjclose"},
			{Name: "volume"},
		},
	}

	for i, ts := range res.Timestamp {
		row := []string{
			domain.DateOf(time.Unix(ts, 0).UTC()).String(),
			floatCell(at(quote.Open, i)),
			floatCell(at(quote.High, i)),
			floatCell(at(quote.Low, i)),
			floatCell(at(quote.Close, i)),
			floatCell(at(adj, i)),
			intCell(at(quote.Volume, i)),
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	return tbl, nil
}

// Healthy probes the API with a short window on a liquid symbol.
func (s *Source) Healthy(ctx context.Context) error {
	end := domain.DateOf(time.Now().UTC())
	_, err := s.History(ctx, "SPY", end.AddDays(-7), end)
	return err
}

func at[T any](vals []*T, i int) *T {
	if i < 0 || i >= len(vals) {
		return nil
	}
	return vals[i]
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intCell(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
