// Package eia fetches hourly generation by fuel type from the EIA v2 API.
package eia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	fuelmix "windfarm-impact/internal/fuelmix/domain"
)

const (
	// DefaultBaseURL is the EIA v2 API root.
	DefaultBaseURL = "https://api.eia.gov/v2"
	// DefaultRespondent is ISO New England.
	DefaultRespondent = "ISNE"
	// PageLength is one day of hourly rows for eight fuel types.
	PageLength = 192
	// DaysPerYear is the number of pages fetched for one year.
	DaysPerYear = 365

	fuelTypePath = "/electricity/rto/fuel-type-data/data"
	periodLayout = "2006-01-02T15-07"
)

var (
	// ErrEmptyPage is returned when a page has no rows; it is retried.
	ErrEmptyPage = errors.New("eia: empty response")
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("eia: empty api key")
)

// fuelCodes maps EIA fuel type codes to grid fuel categories.
var fuelCodes = map[string]fuelmix.FuelCategory{
	"COL": fuelmix.FuelCoal,
	"NG":  fuelmix.FuelNaturalGas,
	"NUC": fuelmix.FuelNuclear,
	"OIL": fuelmix.FuelOil,
	"WAT": fuelmix.FuelHydro,
	"SUN": fuelmix.FuelSolar,
	"WND": fuelmix.FuelWind,
	"OTH": fuelmix.FuelOther,
}

// Client is a minimal EIA v2 REST client.
type Client struct {
	baseURL     string
	apiKey      string
	respondent  string
	concurrency int
	client      *http.Client
	newBackOff  func() backoff.BackOff
	logger      logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithConcurrency bounds the number of pages fetched in parallel.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRespondent selects the balancing authority.
func WithRespondent(respondent string) Option {
	return func(c *Client) {
		if respondent != "" {
			c.respondent = respondent
		}
	}
}

// WithBackOff sets the retry policy factory; one policy is created per page.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) {
		if fn != nil {
			c.newBackOff = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs an EIA client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		respondent:  DefaultRespondent,
		concurrency: 4,
		client:      &http.Client{Timeout: 30 * time.Second},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			return b
		},
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithFields(logrus.Fields{"source": "eia", "respondent": c.respondent})
	return c, nil
}

// FetchYear downloads one year of hourly fuel-type generation, one day-sized
// page per request. EIA rows carry no marginal indicator.
func (c *Client) FetchYear(ctx context.Context, year int) ([]fuelmix.DispatchSnapshot, error) {
	pages := make([][]fuelmix.DispatchSnapshot, DaysPerYear)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for day := 0; day < DaysPerYear; day++ {
		day := day
		g.Go(func() error {
			page, err := c.fetchPageWithRetry(gctx, year, day*PageLength)
			if err != nil {
				return fmt.Errorf("eia: day %d: %w", day+1, err)
			}
			pages[day] = page
			c.logger.WithField("day", day+1).Debug("eia page loaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []fuelmix.DispatchSnapshot
	for _, page := range pages {
		out = append(out, page...)
	}
	c.logger.WithFields(logrus.Fields{"year": year, "snapshots": len(out)}).Info("eia year loaded")
	return out, nil
}

func (c *Client) fetchPageWithRetry(ctx context.Context, year, offset int) ([]fuelmix.DispatchSnapshot, error) {
	var page []fuelmix.DispatchSnapshot
	err := backoff.RetryNotify(
		func() error {
			var err error
			page, err = c.FetchPage(ctx, year, offset)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, d time.Duration) {
			c.logger.WithFields(logrus.Fields{"offset": offset, "reason": err}).Warnf("retrying in %v", d)
		},
	)
	return page, err
}

// FetchPage requests one page of rows starting at offset.
func (c *Client) FetchPage(ctx context.Context, year, offset int) ([]fuelmix.DispatchSnapshot, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("frequency", "local-hourly")
	q.Set("data[0]", "value")
	q.Set("facets[respondent][]", c.respondent)
	q.Set("start", fmt.Sprintf("%d-01-01T00:00:00-05:00", year))
	q.Set("end", fmt.Sprintf("%d-01-01T00:00:00-05:00", year+1))
	q.Set("sort[0][column]", "period")
	q.Set("sort[0][direction]", "asc")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("length", strconv.Itoa(PageLength))

	var resp pageResponse
	if err := c.doJSON(ctx, fuelTypePath+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Response.Data) == 0 {
		return nil, ErrEmptyPage
	}

	out := make([]fuelmix.DispatchSnapshot, 0, len(resp.Response.Data))
	for _, row := range resp.Response.Data {
		ts, err := time.Parse(periodLayout, row.Period)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("eia: invalid period %q", row.Period))
		}
		out = append(out, fuelmix.DispatchSnapshot{
			Timestamp:    ts,
			Fuel:         fuelCategory(row.FuelType, row.TypeName),
			GenerationMW: float64(row.Value),
			Marginal:     fuelmix.MarginalEmpty,
		})
	}
	return out, nil
}

func fuelCategory(code, name string) fuelmix.FuelCategory {
	if fuel, ok := fuelCodes[strings.ToUpper(code)]; ok {
		return fuel
	}
	return fuelmix.FuelCategory(name)
}

type pageResponse struct {
	Response struct {
		Total json.RawMessage `json:"total"`
		Data  []pageRow       `json:"data"`
	} `json:"response"`
}

type pageRow struct {
	Period   string    `json:"period"`
	FuelType string    `json:"fueltype"`
	TypeName string    `json:"type-name"`
	Value    flexFloat `json:"value"`
}

// flexFloat accepts numbers, numeric strings and null (NaN).
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = flexFloat(math.NaN())
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*f = flexFloat(math.NaN())
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

func (c *Client) doJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return backoff.Permanent(fmt.Errorf("eia: http %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		return fmt.Errorf("eia: http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
