package sec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/pkg/redis"
)

// companyTicker is one entry of company_tickers.json ({"0": {...}, "1": {...}})
type companyTicker struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

func (c *Client) tickersURL() string {
	return c.baseURL + "/files/company_tickers.json"
}

// GetAll returns the ticker directory keyed by upper-case symbol.
// An empty directory is an error.
func (c *Client) GetAll(ctx context.Context) (map[string]contracts.TickerRecord, error) {
	body, err := c.cache.GetOrFetch(ctx, redis.TickerDirectoryKey(), func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.tickersURL())
	})
	if err != nil {
		return nil, fmt.Errorf("fetch ticker directory: %w", err)
	}

	return c.parseTickers(body)
}

// Sync refetches the ticker directory and replaces the cached copy
func (c *Client) Sync(ctx context.Context) (int, error) {
	body, err := c.cache.Refresh(ctx, redis.TickerDirectoryKey(), func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.tickersURL())
	})
	if err != nil {
		return 0, fmt.Errorf("sync ticker directory: %w", err)
	}

	dir, err := c.parseTickers(body)
	if err != nil {
		return 0, err
	}

	c.logger.WithField("count", len(dir)).Info("Ticker directory synced")
	return len(dir), nil
}

func (c *Client) parseTickers(body []byte) (map[string]contracts.TickerRecord, error) {
	var raw map[string]companyTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode ticker directory: %w", err)
	}

	dir := make(map[string]contracts.TickerRecord, len(raw))
	for _, t := range raw {
		sym := strings.ToUpper(strings.TrimSpace(t.Ticker))
		if sym == "" {
			continue
		}
		// first listing wins when SEC lists a symbol twice
		if _, dup := dir[sym]; dup {
			continue
		}
		rec := contracts.TickerRecord{Symbol: sym, IssuerName: t.Title}
		if t.CIK > 0 {
			rec.IssuerID = PadCIK(t.CIK)
		}
		dir[sym] = rec
	}

	if len(dir) == 0 {
		return nil, contracts.ErrEmptyDirectory
	}
	return dir, nil
}
