package fipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	metricsx "github.com/tanpawarit/vehicle-order-agent/pkg/metrics"
)

var (
	ErrUpstreamUnavailable = errors.New("catalog service unavailable")
	ErrNotFound            = errors.New("catalog entry not found")
)

const (
	DefaultBrandLimit = 20
	DefaultModelLimit = 2

	maxResponseSizeBytes = 2 << 20
)

type Config struct {
	BaseURL      string        `split_words:"true" default:"https://parallelum.com.br/fipe/api/v1"`
	Timeout      time.Duration `split_words:"true" default:"10s"`
	RequestDelay time.Duration `split_words:"true" default:"200ms"`
}

// Option customizes Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleep replaces the pause between consecutive requests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// Client reads brand, model and year listings from the FIPE catalog. It never
// caches and never retries.
type Client struct {
	baseURL    string
	delay      time.Duration
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("fipe base url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid fipe base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.RequestDelay < 0 {
		return nil, errors.New("request delay must be >= 0")
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		delay:   cfg.RequestDelay,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// ListBrands returns the first limit brands for the vehicle type, in source order.
func (c *Client) ListBrands(ctx context.Context, vt VehicleType, limit int) ([]Brand, error) {
	if limit <= 0 {
		limit = DefaultBrandLimit
	}

	var entries []Entry
	if err := c.getJSON(ctx, &entries, vt.Segment(), "marcas"); err != nil {
		return nil, err
	}

	entries = truncate(entries, limit)
	brands := make([]Brand, 0, len(entries))
	for _, e := range entries {
		brands = append(brands, Brand{Name: e.Name, Code: string(e.Code)})
	}
	return brands, nil
}

// ListModels returns the first limit models of a brand.
func (c *Client) ListModels(ctx context.Context, vt VehicleType, brandCode string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultModelLimit
	}

	var resp modelsResponse
	if err := c.getJSON(ctx, &resp, vt.Segment(), "marcas", brandCode, "modelos"); err != nil {
		return nil, err
	}
	return truncate(resp.Models, limit), nil
}

// ListYears returns the first limit years available for a model.
func (c *Client) ListYears(ctx context.Context, vt VehicleType, brandCode, modelCode string, limit int) ([]Year, error) {
	if limit <= 0 {
		limit = DefaultModelLimit
	}

	var entries []Entry
	if err := c.getJSON(ctx, &entries, vt.Segment(), "marcas", brandCode, "modelos", modelCode, "anos"); err != nil {
		return nil, err
	}

	entries = truncate(entries, limit)
	years := make([]Year, 0, len(entries))
	for _, e := range entries {
		years = append(years, Year{Name: e.Name, Code: string(e.Code)})
	}
	return years, nil
}

// ListModelsWithYears fetches the models of a brand and then, one request at
// a time with the configured pause in between, the years of each model.
// Both models and years per model are truncated to limit.
func (c *Client) ListModelsWithYears(ctx context.Context, vt VehicleType, brandCode string, limit int) ([]ModelYears, error) {
	if limit <= 0 {
		limit = DefaultModelLimit
	}

	models, err := c.ListModels(ctx, vt, brandCode, limit)
	if err != nil {
		return nil, err
	}

	out := make([]ModelYears, 0, len(models))
	for _, m := range models {
		if err := c.sleep(ctx, c.delay); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}

		years, err := c.ListYears(ctx, vt, brandCode, string(m.Code), limit)
		if err != nil {
			return nil, err
		}
		out = append(out, ModelYears{
			ModelName: m.Name,
			ModelCode: string(m.Code),
			Years:     years,
		})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, dst any, segments ...string) error {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(strings.TrimSpace(s)))
	}
	endpoint := c.baseURL + "/" + strings.Join(escaped, "/")

	start := time.Now()
	err := c.doGet(ctx, endpoint, dst)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	metricsx.CatalogRequestsTotal.WithLabelValues(outcome).Inc()
	metricsx.CatalogRequestDuration.Observe(elapsed.Seconds())

	log.Debug().
		Str("url", endpoint).
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Msg("catalog request")
	return err
}

func (c *Client) doGet(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: http status=%d body=%s", ErrUpstreamUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUpstreamUnavailable, err)
	}
	return nil
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
