package stooq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/catalyst/internal/refcache"
	"github.com/wonny/catalyst/pkg/httputil"
	"github.com/wonny/catalyst/pkg/logger"
)

const historyCSV = `Date,Open,High,Low,Close,Volume
2024-03-04,10.1,10.6,10.0,10.5,120000
2024-03-01,9.8,10.2,9.7,10.0,100000
2024-03-05,10.5,11.2,10.4,11.0,150000
2024-03-06,11.0,11.1,10.6,bad,90000
2024-03-07,11.0,11.6,10.9,11.5,130000
`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := refcache.NewFileStore(t.TempDir())
	require.NoError(t, err)

	httpClient := httputil.New(logger.Nop()).WithRetry(1, time.Millisecond)
	return NewClient(httpClient, refcache.New(store, time.Hour, logger.Nop()), srv.URL, logger.Nop())
}

func TestParseCSV(t *testing.T) {
	bars, err := ParseCSV([]byte(historyCSV))
	require.NoError(t, err)

	require.Len(t, bars, 4)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 10.0, bars[0].Close)
	assert.Equal(t, 11.5, bars[3].Close)

	_, err = ParseCSV([]byte("No data"))
	assert.Error(t, err)
}

func TestFilterRange(t *testing.T) {
	bars, err := ParseCSV([]byte(historyCSV))
	require.NoError(t, err)

	got := FilterRange(bars,
		time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

	require.Len(t, got, 2)
	assert.Equal(t, 10.5, got[0].Close)
	assert.Equal(t, 11.0, got[1].Close)
}

func TestGetDailyCloses(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/q/d/l/", r.URL.Path)
		assert.Equal(t, "ZZZ.US", r.URL.Query().Get("s"))
		assert.Equal(t, "d", r.URL.Query().Get("i"))
		w.Write([]byte(historyCSV))
	})

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	bars, err := client.GetDailyCloses(context.Background(), "zzz", start, start.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.Len(t, bars, 4)

	_, err = client.GetDailyCloses(context.Background(), "ZZZ", start, start.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGetDailyCloses_BareSymbolFallback(t *testing.T) {
	var queries []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		s := r.URL.Query().Get("s")
		queries = append(queries, s)
		if s == "ZZZ.US" {
			w.Write([]byte("No data"))
			return
		}
		w.Write([]byte(historyCSV))
	})

	bars, err := client.GetDailyCloses(context.Background(), "ZZZ",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Len(t, bars, 4)
	assert.Equal(t, []string{"ZZZ.US", "ZZZ"}, queries)
}

func TestGetDailyCloses_NoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("No data"))
	})

	bars, err := client.GetDailyCloses(context.Background(), "NOPE", time.Now(), time.Now())
	assert.NoError(t, err)
	assert.Nil(t, bars)
}

func TestGetDailyCloses_ProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetDailyCloses(context.Background(), "ZZZ", time.Now(), time.Now())
	assert.Error(t, err)
}
