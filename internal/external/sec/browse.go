package sec

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/catalyst/internal/contracts"
)

var accessionRe = regexp.MustCompile(`Acc-no:\s*(\d{10}-\d{2}-\d{6})`)

// browseFilings scrapes the EDGAR company browse page
// 컬럼: Filings | Format | Description | Filing Date | File/Film Number
func (c *Client) browseFilings(ctx context.Context, cik string) ([]contracts.Event, error) {
	url := fmt.Sprintf("%s/cgi-bin/browse-edgar?action=getcompany&CIK=%s&type=&dateb=&owner=include&count=100", c.baseURL, cik)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	return parseBrowseHTML(cik, body)
}

func parseBrowseHTML(cik string, body []byte) ([]contracts.Event, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse browse page: %w", err)
	}

	table := doc.Find("table.tableFile2")
	if table.Length() == 0 {
		return nil, fmt.Errorf("browse page has no filings table")
	}

	name := cik
	if companyName := strings.TrimSpace(doc.Find("span.companyName").Contents().First().Text()); companyName != "" {
		name = companyName
	}

	var events []contracts.Event
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		form := strings.TrimSpace(cells.Eq(0).Text())
		desc := strings.TrimSpace(cells.Eq(2).Text())
		date, err := time.Parse("2006-01-02", strings.TrimSpace(cells.Eq(3).Text()))
		if err != nil {
			return
		}

		m := accessionRe.FindStringSubmatch(desc)
		if m == nil {
			return
		}

		events = append(events, contracts.Event{
			SourceID:   cik,
			SourceName: name,
			Date:       date,
			ID:         m[1],
			Kind:       form,
			Title:      strings.Join(strings.Fields(desc), " "),
		})
	})

	return events, nil
}
