package stooq

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/internal/refcache"
	"github.com/wonny/catalyst/pkg/httputil"
	"github.com/wonny/catalyst/pkg/logger"
	"github.com/wonny/catalyst/pkg/redis"
)

// DefaultBaseURL is the Stooq host
const DefaultBaseURL = "https://stooq.com"

// minPayload is the shortest body treated as a real CSV; Stooq answers unknown
// symbols with a tiny "No data" body
const minPayload = 50

// Client fetches daily price history from Stooq
// ⭐ SSOT: Stooq 가격 데이터 호출은 이 클라이언트에서만
type Client struct {
	http    *httputil.Client
	cache   *refcache.Cache
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a new Stooq client
func NewClient(httpClient *httputil.Client, cache *refcache.Cache, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		cache:   cache,
		baseURL: baseURL,
		logger:  log.WithField("module", "stooq"),
	}
}

// GetDailyCloses returns closes in [start, end] by civil date, ordered by date.
// Unknown symbols and empty ranges return nil, nil.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PriceBar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	body, err := c.cache.GetOrFetch(ctx, redis.PriceHistoryKey(symbol), func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, symbol)
	})
	if errors.Is(err, contracts.ErrNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stooq %s: %w", symbol, err)
	}

	bars, err := ParseCSV(body)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Malformed price history")
		return nil, nil
	}

	return FilterRange(bars, start, end), nil
}

// fetch downloads the full history, trying "<SYM>.US" and then the bare symbol
func (c *Client) fetch(ctx context.Context, symbol string) ([]byte, error) {
	for _, s := range []string{symbol + ".US", symbol} {
		body, err := c.http.GetBody(ctx, c.historyURL(s))
		if err != nil {
			return nil, err
		}
		if hasData(body) {
			return body, nil
		}
		c.logger.WithField("query", s).Debug("Stooq returned no data")
	}
	return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrNoData)
}

func (c *Client) historyURL(s string) string {
	return fmt.Sprintf("%s/q/d/l/?s=%s&i=d", c.baseURL, url.QueryEscape(s))
}

func hasData(body []byte) bool {
	return len(body) >= minPayload && !bytes.Contains(body, []byte("No data"))
}

// ParseCSV parses a Stooq daily CSV (Date,Open,High,Low,Close,Volume).
// Rows with an unparseable date or close are skipped; the result is sorted by date.
func ParseCSV(body []byte) ([]contracts.PriceBar, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx, closeIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "Date":
			dateIdx = i
		case "Close":
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("missing Date/Close columns")
	}

	var bars []contracts.PriceBar
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) <= max(dateIdx, closeIdx) {
			continue
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[dateIdx]))
		if err != nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(strings.TrimSpace(rec[closeIdx]), 64)
		if err != nil {
			continue
		}

		bars = append(bars, contracts.PriceBar{Date: date, Close: closePrice})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	return bars, nil
}

// FilterRange keeps bars whose civil date is within [start, end]
func FilterRange(bars []contracts.PriceBar, start, end time.Time) []contracts.PriceBar {
	s, e := civilDay(start), civilDay(end)

	var out []contracts.PriceBar
	for _, b := range bars {
		d := civilDay(b.Date)
		if d.Before(s) || d.After(e) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
