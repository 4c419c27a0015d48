package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyinsider/collector/internal/store"
)

const testWallet = "0x1234567890abcdef1234567890abcdef12345678"

func record(hash string, ts int64) store.ActivityRecord {
	return store.ActivityRecord{
		Timestamp:       ts,
		Type:            store.ActivityTrade,
		Outcome:         store.OutcomeUp,
		Size:            decimal.NewFromInt(10),
		UsdcSize:        decimal.RequireFromString("5.5"),
		Price:           decimal.RequireFromString("0.55"),
		TransactionHash: hash,
		MarketSlug:      "btc-updown-15m-1700000000",
		WalletAddress:   testWallet,
	}
}

// scriptedSource returns pre-baked pages in call order.
type scriptedSource struct {
	pages   [][]store.ActivityRecord
	errAt   int
	calls   int
	offsets []int
	limits  []int
}

func (s *scriptedSource) FetchPage(_ context.Context, _ string, offset, limit int) ([]store.ActivityRecord, error) {
	s.offsets = append(s.offsets, offset)
	s.limits = append(s.limits, limit)
	call := s.calls
	s.calls++

	if s.errAt > 0 && call+1 == s.errAt {
		return nil, &store.TransportError{Op: "GET", URL: "stub", StatusCode: http.StatusBadGateway}
	}
	if call >= len(s.pages) {
		return nil, nil
	}
	return s.pages[call], nil
}

func newTestFetcher(src PageSource, cfg FetcherConfig) (*Fetcher, *[]time.Duration) {
	f := NewFetcher(src, cfg, nil)
	var slept []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

func TestFetchAll_OverlappingPagesThenDedup(t *testing.T) {
	a, b, c, d := record("0xa", 4), record("0xb", 3), record("0xc", 2), record("0xd", 1)
	src := &scriptedSource{pages: [][]store.ActivityRecord{{a, b, c}, {c, d}}}
	f, slept := newTestFetcher(src, FetcherConfig{PageSize: 3, RateLimitDelay: 500 * time.Millisecond})

	raw, err := f.FetchAll(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Len(t, raw, 5)
	assert.Equal(t, []int{0, 3}, src.offsets)
	assert.Equal(t, []int{3, 3}, src.limits)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *slept)

	unique, removed := Deduplicate(raw)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []store.ActivityRecord{a, b, c, d}, unique)
}

func TestFetchAll_StopsAtMaxRecords(t *testing.T) {
	full := []store.ActivityRecord{record("0x1", 1), record("0x2", 2)}
	src := &scriptedSource{pages: [][]store.ActivityRecord{full, full, full, full}}
	f, _ := newTestFetcher(src, FetcherConfig{PageSize: 2, MaxRecords: 3})

	got, err := f.FetchAll(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 2, src.calls)
}

func TestFetchAll_StopsAtMaxOffset(t *testing.T) {
	full := []store.ActivityRecord{record("0x1", 1), record("0x2", 2)}
	src := &scriptedSource{pages: [][]store.ActivityRecord{full, full, full, full}}
	f, _ := newTestFetcher(src, FetcherConfig{PageSize: 2, MaxOffset: 2})

	_, err := f.FetchAll(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, src.offsets)
}

func TestFetchAll_EmptyHistory(t *testing.T) {
	src := &scriptedSource{}
	f, slept := newTestFetcher(src, FetcherConfig{PageSize: 3})

	got, err := f.FetchAll(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, *slept)
}

func TestFetchAll_FailureAbortsWholeFetch(t *testing.T) {
	full := []store.ActivityRecord{record("0x1", 1), record("0x2", 2)}
	src := &scriptedSource{pages: [][]store.ActivityRecord{full, full, full}, errAt: 2}
	f, _ := newTestFetcher(src, FetcherConfig{PageSize: 2})

	got, err := f.FetchAll(context.Background(), testWallet)
	require.Error(t, err)
	assert.Nil(t, got)

	var te *store.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
}

func TestFetchAll_CancelledDuringDelay(t *testing.T) {
	full := []store.ActivityRecord{record("0x1", 1)}
	src := &scriptedSource{pages: [][]store.ActivityRecord{full, full}}
	f := NewFetcher(src, FetcherConfig{PageSize: 1, RateLimitDelay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchAll(ctx, testWallet)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	a := record("0xa", 1)
	dup := a
	dup.Price = decimal.RequireFromString("0.56")
	other := a
	other.Outcome = store.OutcomeDown

	once, removed := Deduplicate([]store.ActivityRecord{a, dup, other, a})
	assert.Equal(t, 2, removed)
	assert.Equal(t, []store.ActivityRecord{a, other}, once)

	twice, removed := Deduplicate(once)
	assert.Zero(t, removed)
	assert.Equal(t, once, twice)
}

func TestClient_FetchPage(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activity", r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"proxyWallet":"0xABC","timestamp":1700000100,"conditionId":"0xcond","type":"TRADE",
			 "size":12.5,"usdcSize":"6.25","transactionHash":"0xt1","price":0.5,"asset":"123",
			 "side":"BUY","outcomeIndex":0,"title":"Bitcoin Up or Down","slug":"btc-updown",
			 "eventSlug":"btc-event","outcome":"Up"},
			{"timestamp":1700000200,"type":"REWARD","size":1,"usdcSize":1,"price":0,"slug":"","outcome":""},
			{"timestamp":1700000300,"type":"merge","size":3,"usdcSize":3,"price":0,
			 "transactionHash":"0xt2","slug":"btc-updown","outcome":""}
		]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(5*time.Second))
	records, err := c.FetchPage(context.Background(), "0xAbCdEf0000000000000000000000000000000000", 500, 250)
	require.NoError(t, err)

	assert.Equal(t, "0xabcdef0000000000000000000000000000000000", gotQuery["user"])
	assert.Equal(t, "250", gotQuery["limit"])
	assert.Equal(t, "500", gotQuery["offset"])
	assert.Equal(t, "TIMESTAMP", gotQuery["sortBy"])
	assert.Equal(t, "DESC", gotQuery["sortDirection"])

	require.Len(t, records, 2, "entry without slug is dropped")
	r := records[0]
	assert.Equal(t, int64(1700000100), r.Timestamp)
	assert.Equal(t, store.ActivityTrade, r.Type)
	assert.Equal(t, store.OutcomeUp, r.Outcome)
	assert.True(t, decimal.RequireFromString("12.5").Equal(r.Size))
	assert.True(t, decimal.RequireFromString("6.25").Equal(r.UsdcSize))
	assert.Equal(t, "btc-updown", r.MarketSlug)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000000", r.WalletAddress)
	assert.Equal(t, "BUY", r.Side)
	assert.Equal(t, "btc-event", r.EventSlug)

	assert.Equal(t, store.ActivityMerge, records[1].Type)
	assert.Equal(t, store.OutcomeNone, records[1].Outcome)
}

func TestClient_FetchPageErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"error":"not a list"}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL)
			_, err := c.FetchPage(context.Background(), testWallet, 0, 10)
			require.Error(t, err)

			var te *store.TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.wantStatus, te.StatusCode)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).FetchPage(context.Background(), testWallet, 0, 10)
	var te *store.TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
	assert.Error(t, te.Err)
}
