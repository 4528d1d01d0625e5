package sec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/pkg/redis"
)

// submissions is the subset of data.sec.gov/submissions/CIK##########.json we use.
// filings.recent holds parallel arrays.
type submissions struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDocDesc  []string `json:"primaryDocDescription"`
		} `json:"recent"`
	} `json:"filings"`
}

// GetFilings returns the recent filings of cik. An unknown CIK returns ErrNoData.
// When the submissions API fails, the EDGAR browse page is tried before giving up.
func (c *Client) GetFilings(ctx context.Context, cik string) ([]contracts.Event, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik)

	body, err := c.cache.GetOrFetch(ctx, redis.SubmissionsKey(cik), func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, url)
	})
	if err == nil {
		events, perr := parseSubmissions(cik, body)
		if perr == nil {
			return events, nil
		}
		err = perr
	}

	if errors.Is(err, contracts.ErrNoData) || ctx.Err() != nil {
		return nil, err
	}

	c.logger.WithError(err).WithField("cik", cik).Warn("Submissions API failed, trying browse page")

	events, berr := c.browseFilings(ctx, cik)
	if berr != nil {
		return nil, fmt.Errorf("submissions %s: %w", cik, err)
	}
	return events, nil
}

func parseSubmissions(cik string, body []byte) ([]contracts.Event, error) {
	var sub submissions
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}

	recent := sub.Filings.Recent
	n := min(len(recent.AccessionNumber), len(recent.FilingDate), len(recent.Form))

	events := make([]contracts.Event, 0, n)
	for i := 0; i < n; i++ {
		date, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}

		ev := contracts.Event{
			SourceID:   cik,
			SourceName: sub.Name,
			Date:       date,
			ID:         recent.AccessionNumber[i],
			Kind:       recent.Form[i],
		}
		if i < len(recent.PrimaryDocDesc) {
			ev.Title = recent.PrimaryDocDesc[i]
		}
		if ev.SourceName == "" {
			ev.SourceName = cik
		}
		events = append(events, ev)
	}

	return contracts.ValidEvents(events), nil
}
