package sec

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/internal/refcache"
	"github.com/wonny/catalyst/pkg/httputil"
	"github.com/wonny/catalyst/pkg/logger"
)

// Default SEC hosts
const (
	DefaultBaseURL = "https://www.sec.gov"
	DefaultDataURL = "https://data.sec.gov"
)

// Client handles communication with SEC EDGAR
// ⭐ SSOT: SEC EDGAR 호출은 이 클라이언트에서만
type Client struct {
	http    *httputil.Client
	cache   *refcache.Cache
	baseURL string
	dataURL string
	logger  *logger.Logger
}

// NewClient creates a new SEC client. The http client must already carry the
// User-Agent header and rate limiter SEC requires.
func NewClient(httpClient *httputil.Client, cache *refcache.Cache, baseURL, dataURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if dataURL == "" {
		dataURL = DefaultDataURL
	}
	return &Client{
		http:    httpClient,
		cache:   cache,
		baseURL: baseURL,
		dataURL: dataURL,
		logger:  log.WithField("module", "sec"),
	}
}

// get fetches url and maps 404 to contracts.ErrNoData
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.http.GetBody(ctx, url)
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", url, contracts.ErrNoData)
		}
		return nil, err
	}
	return body, nil
}

// PadCIK formats a numeric CIK as the 10-digit zero-padded form SEC URLs use
func PadCIK(cik int64) string {
	return fmt.Sprintf("%010d", cik)
}
