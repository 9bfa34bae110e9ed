package deals_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/gamevault/pkg/storefront/deals"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const dealsPage = `[
  {"internalName":"PORTAL2","title":"Portal 2","dealID":"abc%3D","storeID":"1","gameID":"7251",
   "salePrice":"1.99","normalPrice":"9.99","isOnSale":"1","savings":"80.080080",
   "metacriticScore":"95","steamRatingText":"Overwhelmingly Positive","steamRatingPercent":"98",
   "steamAppID":"620","releaseDate":1303171200,"lastChange":1700000000,"dealRating":"9.4",
   "thumb":"https://cdn.example/portal2.jpg"},
  {"title":"Braid","dealID":"def","storeID":"1","gameID":"9","salePrice":"14.99","normalPrice":"14.99","isOnSale":"0","savings":"0.000000"}
]`

const dealDetail = `{
  "gameInfo":{"storeID":"1","gameID":"7251","name":"Portal 2","steamAppID":"620","salePrice":"1.99",
    "retailPrice":"9.99","metacriticScore":"95","publisher":"Valve","thumb":"https://cdn.example/portal2.jpg"},
  "cheaperStores":[{"dealID":"xyz","storeID":"23","salePrice":"1.49","retailPrice":"9.99"}],
  "cheapestPrice":{"price":"0.99","date":1600000000}
}`

// newClient returns a client with fast retries pointed at h.
func newClient(t *testing.T, h http.Handler) *deals.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := deals.NewClient(srv.URL + "/")
	c.BaseDelay = time.Millisecond
	return c
}

func TestListDeals(t *testing.T) {
	t.Parallel()

	var got http.Header
	var query map[string]string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/deals", r.URL.Path)
		got = r.Header.Clone()
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(dealsPage))
	}))

	list, err := c.ListDeals(t.Context(), deals.Query{
		StoreID:    "1",
		SortBy:     deals.SortMetacritic,
		UpperPrice: decimal.NewFromInt(100),
		PageSize:   20,
	})
	require.NoError(t, err)
	require.Equal(t, "application/json", got.Get("Accept"))
	require.Equal(t, map[string]string{
		"storeID":    "1",
		"sortBy":     "Metacritic",
		"upperPrice": "100",
		"pageSize":   "20",
	}, query)

	require.Len(t, list, 2)
	require.Equal(t, "Portal 2", list[0].Title)
	require.True(t, list[0].SalePrice.Equal(decimal.RequireFromString("1.99")))
	require.True(t, list[0].NormalPrice.Equal(decimal.RequireFromString("9.99")))
	require.True(t, list[0].OnSale())
	require.False(t, list[1].OnSale())
}

func TestGetDeal(t *testing.T) {
	t.Parallel()

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "abc=" {
			_, _ = w.Write([]byte(dealDetail))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		d, err := c.GetDeal(t.Context(), "abc=")
		require.NoError(t, err)
		require.Equal(t, "Portal 2", d.GameInfo.Name)
		require.Equal(t, "Valve", d.GameInfo.Publisher)
		require.True(t, d.CheapestPrice.Price.Equal(decimal.RequireFromString("0.99")))
		require.Len(t, d.CheaperStores, 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		_, err := c.GetDeal(t.Context(), "nope")
		require.ErrorIs(t, err, deals.ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		t.Parallel()
		_, err := c.GetDeal(t.Context(), " ")
		require.ErrorIs(t, err, deals.ErrNotFound)
	})
}

func TestRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		failures     int32
		status       int
		wantErr      error
		wantAttempts int32
	}{
		{"recovers after 5xx", 2, http.StatusServiceUnavailable, nil, 3},
		{"recovers after 429", 1, http.StatusTooManyRequests, nil, 2},
		{"gives up on persistent 5xx", 100, http.StatusBadGateway, deals.ErrUpstream, 4},
		{"gives up on persistent 429", 100, http.StatusTooManyRequests, deals.ErrRateLimited, 4},
		{"does not retry 404", 100, http.StatusNotFound, deals.ErrNotFound, 1},
		{"does not retry 400", 100, http.StatusBadRequest, deals.ErrUpstream, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var attempts atomic.Int32
			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if attempts.Add(1) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write([]byte(dealsPage))
			}))

			list, err := c.ListDeals(t.Context(), deals.Query{})
			require.Equal(t, tt.wantAttempts, attempts.Load())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, list, 2)
		})
	}
}

func TestRetriesUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := deals.NewClient(srv.URL)
	c.BaseDelay = time.Millisecond
	c.MaxRetries = 1

	_, err := c.ListDeals(t.Context(), deals.Query{})
	require.ErrorIs(t, err, deals.ErrUnavailable)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c.BaseDelay = time.Second

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ListDeals(ctx, deals.Query{})
	require.Error(t, err)
	require.Equal(t, int32(1), attempts.Load())
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()
	require.Equal(t, deals.DefaultBaseURL, deals.NewClient("").BaseURL)
}
