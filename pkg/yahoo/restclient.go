// Package yahoo fetches latest prices from Yahoo Finance's v8 chart API using
// the cookie + crumb session the public endpoints require.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"pricecollector/internal/apperror"
	"pricecollector/internal/snapshot"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultChartURL  = "https://query2.finance.yahoo.com/v8/finance/chart"
	DefaultCookieURL = "https://fc.yahoo.com"
	DefaultCrumbURL  = "https://query1.finance.yahoo.com/v1/test/getcrumb"
	DefaultWorkers   = 5
	DefaultTimeout   = 10 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// errNoData marks a symbol the provider has nothing for. It never fails a run.
var errNoData = errors.New("no data")

type RESTClient struct {
	chartURL   string
	cookieURL  string
	crumbURL   string
	token      string
	workers    int
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.Mutex
	crumb string
}

// Option configures a RESTClient.
type Option func(*RESTClient)

func WithChartURL(u string) Option  { return func(c *RESTClient) { c.chartURL = u } }
func WithCookieURL(u string) Option { return func(c *RESTClient) { c.cookieURL = u } }
func WithCrumbURL(u string) Option  { return func(c *RESTClient) { c.crumbURL = u } }
func WithLogger(l *zap.Logger) Option {
	return func(c *RESTClient) { c.logger = l }
}

// WithToken sends token as a bearer credential, for deployments behind an authenticating gateway.
func WithToken(token string) Option { return func(c *RESTClient) { c.token = token } }

// WithWorkers bounds the number of concurrent symbol requests.
func WithWorkers(n int) Option {
	return func(c *RESTClient) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithHTTPClient replaces the HTTP client. It should carry a cookie jar.
func WithHTTPClient(h *http.Client) Option { return func(c *RESTClient) { c.httpClient = h } }

func WithClock(now func() time.Time) Option { return func(c *RESTClient) { c.now = now } }

func NewRESTClient(timeout time.Duration, opts ...Option) *RESTClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, _ := cookiejar.New(nil)
	c := &RESTClient{
		chartURL:   DefaultChartURL,
		cookieURL:  DefaultCookieURL,
		crumbURL:   DefaultCrumbURL,
		workers:    DefaultWorkers,
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// Latest returns the most recent price of every symbol Yahoo has data for.
// Symbols without data are left out of the snapshot. Any transport, auth,
// rate-limit or decoding failure fails the whole call with PROVIDER.
func (c *RESTClient) Latest(ctx context.Context, symbols []string) (snapshot.PriceSnapshot, error) {
	if len(symbols) == 0 {
		return snapshot.PriceSnapshot{}, apperror.New(apperror.Provider, "yahoo.latest", "no symbols requested")
	}

	captured := c.now()

	if err := c.ensureCrumb(ctx); err != nil {
		return snapshot.PriceSnapshot{}, apperror.Wrapf(apperror.Provider, "yahoo.latest", err, "yahoo auth")
	}

	prices := make([]*float64, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			price, err := c.latestPrice(gctx, symbol)
			if errors.Is(err, errNoData) {
				c.logger.Warn("no price data for symbol", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			prices[i] = &price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot.PriceSnapshot{}, apperror.Wrap(apperror.Provider, "yahoo.latest", err)
	}

	snap := snapshot.PriceSnapshot{
		Captured: captured,
		Prices:   make(map[string]float64, len(symbols)),
		Order:    append([]string(nil), symbols...),
	}
	for i, p := range prices {
		if p != nil {
			snap.Prices[symbols[i]] = *p
		}
	}

	c.logger.Info("fetched latest prices",
		zap.Int("requested", len(symbols)),
		zap.Int("received", len(snap.Prices)))
	return snap, nil
}

// latestPrice fetches one symbol, refreshing the crumb once on an auth rejection.
func (c *RESTClient) latestPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := c.fetchChart(ctx, symbol)
	var se *statusError
	if errors.As(err, &se) && se.auth() {
		c.resetCrumb()
		if err := c.ensureCrumb(ctx); err != nil {
			return 0, fmt.Errorf("refresh crumb: %w", err)
		}
		return c.fetchChart(ctx, symbol)
	}
	return price, err
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("yahoo returned HTTP %d: %s", e.code, e.body)
}

func (e *statusError) auth() bool {
	return e.code == http.StatusUnauthorized || e.code == http.StatusForbidden
}

func (c *RESTClient) fetchChart(ctx context.Context, symbol string) (float64, error) {
	c.mu.Lock()
	crumb := c.crumb
	c.mu.Unlock()

	q := url.Values{}
	q.Set("range", "1d")
	q.Set("interval", "1d")
	q.Set("crumb", crumb)
	endpoint := c.chartURL + "/" + url.PathEscape(symbol) + "?" + q.Encode()

	// Construct the GET request with context for timeout/cancel support
	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	// Execute the HTTP request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, errNoData
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var chart ChartResponse
	if err := dec.Decode(&chart); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	return latestFromChart(chart)
}

// latestFromChart picks the last non-null close, falling back to the market price in meta.
func latestFromChart(chart ChartResponse) (float64, error) {
	if e := chart.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return 0, fmt.Errorf("%w: %s", errNoData, e.Description)
		}
		return 0, fmt.Errorf("chart error %s: %s", e.Code, e.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return 0, errNoData
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] == "" {
				continue
			}
			v, err := closes[i].Float64()
			if err != nil {
				return 0, fmt.Errorf("parse close %q: %w", closes[i], err)
			}
			return v, nil
		}
	}
	if p := result.Meta.RegularMarketPrice; p != nil {
		return *p, nil
	}
	return 0, errNoData
}

func (c *RESTClient) newRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *RESTClient) resetCrumb() {
	c.mu.Lock()
	c.crumb = ""
	c.mu.Unlock()
}

// ensureCrumb obtains a session cookie and crumb token unless one is cached.
func (c *RESTClient) ensureCrumb(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.crumb != "" {
		return nil
	}

	// Session cookie; the status code is irrelevant, only the Set-Cookie matters
	cookieReq, err := c.newRequest(ctx, c.cookieURL)
	if err != nil {
		return fmt.Errorf("build cookie request: %w", err)
	}
	cookieResp, err := c.httpClient.Do(cookieReq)
	if err != nil {
		return fmt.Errorf("fetch cookie: %w", err)
	}
	_ = cookieResp.Body.Close()

	crumbReq, err := c.newRequest(ctx, c.crumbURL)
	if err != nil {
		return fmt.Errorf("build crumb request: %w", err)
	}
	crumbResp, err := c.httpClient.Do(crumbReq)
	if err != nil {
		return fmt.Errorf("fetch crumb: %w", err)
	}
	defer crumbResp.Body.Close()

	if crumbResp.StatusCode != http.StatusOK {
		return &statusError{code: crumbResp.StatusCode, body: "crumb endpoint"}
	}

	body, err := io.ReadAll(crumbResp.Body)
	if err != nil {
		return fmt.Errorf("read crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" {
		return errors.New("empty crumb received")
	}

	c.crumb = crumb
	c.logger.Debug("obtained yahoo crumb", zap.Int("crumb_len", len(crumb)))
	return nil
}
