package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pricecollector/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartTemplate = `{"chart":{"result":[{"meta":{"symbol":"%s","currency":"USD","regularMarketPrice":%s},
"timestamp":[1704153600,1704240000],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`

type fakeYahoo struct {
	charts      map[string]string // symbol -> body, missing means 404
	status      map[string]int    // symbol -> forced status
	rejectFirst atomic.Int32      // number of chart requests to answer with 401
	crumbs      atomic.Int32
	authHeader  atomic.Value
}

func (f *fakeYahoo) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/crumb", func(w http.ResponseWriter, r *http.Request) {
		n := f.crumbs.Add(1)
		fmt.Fprintf(w, "crumb-%d", n)
	})
	mux.HandleFunc("/chart/", func(w http.ResponseWriter, r *http.Request) {
		if h := r.Header.Get("Authorization"); h != "" {
			f.authHeader.Store(h)
		}
		if f.rejectFirst.Add(-1) >= 0 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(r.URL.Query().Get("crumb"), "crumb-") {
			t.Errorf("missing crumb in %s", r.URL)
		}
		symbol := strings.TrimPrefix(r.URL.Path, "/chart/")
		if code, ok := f.status[symbol]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := f.charts[symbol]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
			return
		}
		_, _ = w.Write([]byte(body))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(ts *httptest.Server, opts ...Option) *RESTClient {
	base := []Option{
		WithChartURL(ts.URL + "/chart"),
		WithCookieURL(ts.URL + "/cookie"),
		WithCrumbURL(ts.URL + "/crumb"),
		WithWorkers(2),
		WithClock(func() time.Time { return time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC) }),
	}
	return NewRESTClient(5*time.Second, append(base, opts...)...)
}

// go test -v --run TestLatest
func TestLatest(t *testing.T) {
	f := &fakeYahoo{charts: map[string]string{
		"AAPL": fmt.Sprintf(chartTemplate, "AAPL", "152.0", "150.0, 151.5"),
		"MSFT": fmt.Sprintf(chartTemplate, "MSFT", "300.5", "299.0, null"),
		"TSLA": fmt.Sprintf(chartTemplate, "TSLA", "210.25", "null, null"),
	}}
	client := newTestClient(f.server(t))

	snap, err := client.Latest(context.Background(), []string{"AAPL", "MSFT", "TSLA", "GONE"})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC), snap.Captured)
	assert.Equal(t, map[string]float64{"AAPL": 151.5, "MSFT": 299.0, "TSLA": 210.25}, snap.Prices)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA", "GONE"}, snap.Order)
	assert.Equal(t, []string{"GONE"}, snap.Missing())
	assert.Equal(t, int32(1), f.crumbs.Load(), "crumb is fetched once per session")
}

// go test -v --run TestLatestProviderErrors
func TestLatestProviderErrors(t *testing.T) {
	cases := map[string]*fakeYahoo{
		"rate limited": {
			charts: map[string]string{"AAPL": fmt.Sprintf(chartTemplate, "AAPL", "1", "1")},
			status: map[string]int{"MSFT": http.StatusTooManyRequests},
		},
		"server error": {
			status: map[string]int{"AAPL": http.StatusBadGateway},
		},
		"malformed body": {
			charts: map[string]string{"AAPL": `{"chart":`},
		},
	}

	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(f.server(t))
			_, err := client.Latest(context.Background(), []string{"AAPL", "MSFT"})
			require.Error(t, err)
			assert.Equal(t, apperror.Provider, apperror.CodeOf(err))
		})
	}
}

// go test -v --run TestLatestRefreshesCrumb
func TestLatestRefreshesCrumb(t *testing.T) {
	f := &fakeYahoo{charts: map[string]string{
		"AAPL": fmt.Sprintf(chartTemplate, "AAPL", "1", "151.5"),
	}}
	f.rejectFirst.Store(1)
	client := newTestClient(f.server(t), WithToken("secret-token"))

	snap, err := client.Latest(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 151.5, snap.Prices["AAPL"])
	assert.Equal(t, int32(2), f.crumbs.Load())
	assert.Equal(t, "Bearer secret-token", f.authHeader.Load())
}

// go test -v --run TestLatestUnreachable
func TestLatestUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := NewRESTClient(time.Second,
		WithChartURL(url+"/chart"), WithCookieURL(url+"/cookie"), WithCrumbURL(url+"/crumb"))
	_, err := client.Latest(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.Equal(t, apperror.Provider, apperror.CodeOf(err))
}

// go test -v --run TestLatestFromChart
func TestLatestFromChart(t *testing.T) {
	var chart ChartResponse
	_, err := latestFromChart(chart)
	assert.ErrorIs(t, err, errNoData)

	chart.Chart.Error = &ChartError{Code: "Bad Request", Description: "invalid range"}
	_, err = latestFromChart(chart)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errNoData)
}
