// Package qcclient is the typed HTTP client for the upstream quality-control
// service. Every accessor distinguishes "no data for that key" (404) from a
// systemic upstream failure, because the aggregation layer treats the two
// differently.
package qcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"seismon/internal/core"
	"seismon/internal/httpclient"
)

// Config holds the upstream endpoint and credential.
type Config struct {
	// BaseURL is the QC API root, e.g. "http://qc.example.net:2107/api".
	BaseURL string

	// APIKey is the bearer credential sent on every request.
	APIKey string
}

// Client calls the upstream QC service. JSON endpoints go through a circuit
// breaker; image streams do not (a large transfer is not a failure signal).
type Client struct {
	config       Config
	httpClient   *http.Client
	streamClient *http.Client
	breaker      *gobreaker.CircuitBreaker
}

// New creates a Client with default HTTP timeouts.
func New(cfg Config) *Client {
	return NewWithHTTPClient(cfg, httpclient.NewDefaultHTTPClient())
}

// NewWithHTTPClient creates a Client using the given HTTP client for JSON
// endpoints. Image streams use a separate client without an overall timeout.
func NewWithHTTPClient(cfg Config, hc *http.Client) *Client {
	streamCfg := httpclient.StreamingConfig()
	return &Client{
		config:       cfg,
		httpClient:   hc,
		streamClient: httpclient.NewHTTPClient(&streamCfg),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "qc-upstream",
			MaxRequests: 3,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Detail fetches the per-channel QC measurements for one station on one day.
func (c *Client) Detail(ctx context.Context, station, date string) ([]core.DetailRecord, error) {
	var records []core.DetailRecord
	endpoint := fmt.Sprintf("/qc/data/detail/%s/%s", station, date)
	if err := c.get(ctx, endpoint, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Summary fetches the network-wide summary for one day: one record per
// station that published data.
func (c *Client) Summary(ctx context.Context, date string) ([]core.SummaryRecord, error) {
	var records []core.SummaryRecord
	endpoint := fmt.Sprintf("/qc/data/summary/%s", date)
	if err := c.get(ctx, endpoint, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SiteDetail fetches the site-quality classification for one station.
// An empty array is a valid upstream answer; the service layer substitutes
// the sentinel record.
func (c *Client) SiteDetail(ctx context.Context, station string) ([]core.SiteQualityRecord, error) {
	var records []core.SiteQualityRecord
	endpoint := fmt.Sprintf("/qc/data/sitedetail/%s", station)
	if err := c.get(ctx, endpoint, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Latency fetches the latency time series for one station channel.
func (c *Client) Latency(ctx context.Context, station, channel string) (core.LatencySeries, error) {
	var series core.LatencySeries
	endpoint := fmt.Sprintf("/metadata/latency/%s/%s", station, channel)
	if err := c.get(ctx, endpoint, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// ImageStream is an open upstream image response. The caller owns Body and
// must close it. StatusCode and ContentType are forwarded verbatim so the
// route layer can pass upstream errors through unmapped.
type ImageStream struct {
	Body          io.ReadCloser
	ContentType   string
	StatusCode    int
	ContentLength int64
}

// Image opens a streaming read of an upstream signal or PSD plot. The payload
// is never buffered whole and never enters the cache. An error is returned
// only when no upstream response exists at all (network failure); any
// upstream status, including errors, comes back as an ImageStream.
func (c *Client) Image(ctx context.Context, kind core.ImageKind, date, station, channel string) (*ImageStream, error) {
	endpoint := fmt.Sprintf("/qc/data/%s/%s/%s/%s", kind, date, station, channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to build image request: " + err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, core.NewUpstreamError(http.StatusBadGateway, "failed to reach qc upstream: "+err.Error(), err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	return &ImageStream{
		Body:          resp.Body,
		ContentType:   contentType,
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
	}, nil
}

// get performs a breaker-wrapped GET and decodes the 200 body into result.
func (c *Client) get(ctx context.Context, endpoint string, result interface{}) error {
	body, err := c.doRaw(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return core.NewUpstreamError(http.StatusBadGateway, "failed to decode qc response: "+err.Error(), err)
	}
	return nil
}

// response is a fully-read upstream reply with a non-5xx status.
type response struct {
	statusCode int
	body       []byte
}

// doRaw executes one GET through the circuit breaker. Network failures and
// 5xx replies count as breaker failures; a 404 is an expected answer and
// must not trip it.
func (c *Client) doRaw(ctx context.Context, endpoint string) ([]byte, error) {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, endpoint)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, core.NewUnavailableError("qc upstream temporarily unavailable (circuit open)")
		}
		return nil, err
	}

	resp := v.(*response)
	if resp.statusCode == http.StatusOK {
		return resp.body, nil
	}
	return nil, core.ParseUpstreamError(resp.statusCode, resp.body)
}

// doRequest performs a single GET and reads the body. It returns an error
// for network failures and 5xx statuses (both feed the breaker), and a
// response value for everything else.
func (c *Client) doRequest(ctx context.Context, endpoint string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to build request: " + err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.NewUpstreamError(http.StatusBadGateway, "failed to reach qc upstream: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewUpstreamError(http.StatusBadGateway, "failed to read qc response: "+err.Error(), err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, core.ParseUpstreamError(resp.StatusCode, body)
	}

	return &response{statusCode: resp.StatusCode, body: body}, nil
}
