package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seismon/internal/core"
	"seismon/internal/qc"
	"seismon/internal/qcclient"
	"seismon/internal/station"
)

// fakeUpstream answers QC calls from canned data. Summary answers every date
// with the same station result, which is enough for routing-level tests.
type fakeUpstream struct {
	detailRecords []core.DetailRecord
	detailErr     error

	summaryResult string

	siteRecords []core.SiteQualityRecord
	siteErr     error

	latency    core.LatencySeries
	latencyErr error

	imageBody        string
	imageContentType string
	imageStatus      int
	imageErr         error
}

func (f *fakeUpstream) Detail(context.Context, string, string) ([]core.DetailRecord, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.detailRecords, nil
}

func (f *fakeUpstream) Summary(_ context.Context, date string) ([]core.SummaryRecord, error) {
	if f.summaryResult == "" {
		return nil, core.NewUpstreamError(502, "no summary configured", nil)
	}
	return []core.SummaryRecord{{Date: date, Code: "XYZ1", Result: f.summaryResult}}, nil
}

func (f *fakeUpstream) SiteDetail(context.Context, string) ([]core.SiteQualityRecord, error) {
	if f.siteErr != nil {
		return nil, f.siteErr
	}
	return f.siteRecords, nil
}

func (f *fakeUpstream) Latency(context.Context, string, string) (core.LatencySeries, error) {
	if f.latencyErr != nil {
		return nil, f.latencyErr
	}
	return f.latency, nil
}

func (f *fakeUpstream) Image(context.Context, core.ImageKind, string, string, string) (*qcclient.ImageStream, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	status := f.imageStatus
	if status == 0 {
		status = http.StatusOK
	}
	contentType := f.imageContentType
	if contentType == "" {
		contentType = "image/png"
	}
	return &qcclient.ImageStream{
		Body:        io.NopCloser(strings.NewReader(f.imageBody)),
		ContentType: contentType,
		StatusCode:  status,
	}, nil
}

// fakeStationRepo backs the metadata routes with a fixed station list.
type fakeStationRepo struct {
	stations []station.Metadata
}

func (f *fakeStationRepo) Lookup(_ context.Context, code string) (*station.Metadata, error) {
	for i := range f.stations {
		if f.stations[i].Code == code {
			return &f.stations[i], nil
		}
	}
	return nil, core.NewNotFoundError("station not found: " + code)
}

func (f *fakeStationRepo) List(context.Context) ([]station.Metadata, error) {
	return f.stations, nil
}

func (f *fakeStationRepo) Close() {}

func newTestServer(upstream qc.Upstream, stations station.Repository) *Server {
	return New(qc.NewService(upstream, nil), stations, nil)
}

func doRequest(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeErrorType(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Error.Type
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeUpstream{}, nil)

	rec := doRequest(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStationDetailReturnsRecords(t *testing.T) {
	srv := newTestServer(&fakeUpstream{
		detailRecords: []core.DetailRecord{
			{Code: "XYZ1", Date: "2025-11-01", Channel: "SHZ", RMS: 0.42},
		},
	}, nil)

	rec := doRequest(t, srv, "/api/qc/data/detail/XYZ1/2025-11-01")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []core.DetailRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "SHZ", records[0].Channel)
}

func TestStationDetailRejectsBadDate(t *testing.T) {
	srv := newTestServer(&fakeUpstream{}, nil)

	rec := doRequest(t, srv, "/api/qc/data/detail/XYZ1/01-11-2025")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeErrorType(t, rec.Body.Bytes()))
}

func TestStationDetailNotFound(t *testing.T) {
	srv := newTestServer(&fakeUpstream{
		detailErr: core.NewNotFoundError("no qc data"),
	}, nil)

	rec := doRequest(t, srv, "/api/qc/data/detail/XYZ1/2025-11-01")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeErrorType(t, rec.Body.Bytes()))
}

func TestSevenDayDetailRouteWinsOverDateRoute(t *testing.T) {
	// "/detail/7days/:station" must not be swallowed by
	// "/detail/:station/:date". With every day 404 the aggregation answers an
	// empty array, while the single-day handler would answer 400 for the
	// non-date segment.
	srv := newTestServer(&fakeUpstream{
		detailErr: core.NewNotFoundError("no qc data"),
	}, nil)

	rec := doRequest(t, srv, "/api/qc/data/detail/7days/XYZ1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSevenDaySummaryAlwaysSevenEntries(t *testing.T) {
	srv := newTestServer(&fakeUpstream{summaryResult: "Baik"}, nil)

	rec := doRequest(t, srv, "/api/qc/data/summary/7days/XYZ1")
	require.Equal(t, http.StatusOK, rec.Code)

	var days []core.DayStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
	require.Len(t, days, 7)
	for _, day := range days {
		assert.Equal(t, core.StatusGood, day.Status)
	}
}

func TestSevenDaySummaryDegradesToNoData(t *testing.T) {
	// Upstream fully down: still 200 with seven NoData entries.
	srv := newTestServer(&fakeUpstream{}, nil)

	rec := doRequest(t, srv, "/api/qc/data/summary/7days/XYZ1")
	require.Equal(t, http.StatusOK, rec.Code)

	var days []core.DayStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
	require.Len(t, days, 7)
	for _, day := range days {
		assert.Equal(t, core.StatusNoData, day.Status)
	}
}

func TestDaySummaryRejectsBadDate(t *testing.T) {
	srv := newTestServer(&fakeUpstream{}, nil)

	rec := doRequest(t, srv, "/api/qc/data/summary/notadate")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSiteQualitySentinel(t *testing.T) {
	srv := newTestServer(&fakeUpstream{
		siteErr: core.NewNotFoundError("no site data"),
	}, nil)

	rec := doRequest(t, srv, "/api/qc/data/sitedetail/NOPE")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []core.SiteQualityRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "NOPE", records[0].Code)
	assert.Equal(t, core.SiteQualityUnknown, records[0].SiteQuality)
}

func TestLatencySerializesNullSamples(t *testing.T) {
	lat := 2.5
	srv := newTestServer(&fakeUpstream{
		latency: core.LatencySeries{
			"2025-11-01T00:00:00": &lat,
			"2025-11-01T01:00:00": nil,
		},
	}, nil)

	rec := doRequest(t, srv, "/api/metadata/latency/XYZ1/SHZ")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"2025-11-01T00:00:00":2.5,"2025-11-01T01:00:00":null}`, rec.Body.String())
}

func TestLatencyUpstreamFailureMapsToBadGateway(t *testing.T) {
	srv := newTestServer(&fakeUpstream{
		latencyErr: core.NewUpstreamError(http.StatusBadGateway, "upstream is on fire", nil),
	}, nil)

	rec := doRequest(t, srv, "/api/metadata/latency/XYZ1/SHZ")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_error", decodeErrorType(t, rec.Body.Bytes()))
}

func TestLatencyUnavailableWhenBreakerOpen(t *testing.T) {
	srv := newTestServer(&fakeUpstream{
		latencyErr: core.NewUnavailableError("circuit breaker is open"),
	}, nil)

	rec := doRequest(t, srv, "/api/metadata/latency/XYZ1/SHZ")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "upstream_unavailable", decodeErrorType(t, rec.Body.Bytes()))
}

func TestImagePassthrough(t *testing.T) {
	srv := newTestServer(&fakeUpstream{
		imageBody:        "png-bytes",
		imageContentType: "image/png",
	}, nil)

	rec := doRequest(t, srv, "/api/qc/data/signal/2025-11-01/XYZ1/SHZ")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestImageForwardsUpstreamStatus(t *testing.T) {
	srv := newTestServer(&fakeUpstream{
		imageBody:        `{"error":"no image"}`,
		imageContentType: "application/json",
		imageStatus:      http.StatusNotFound,
	}, nil)

	rec := doRequest(t, srv, "/api/qc/data/psd/2025-11-01/XYZ1/SHZ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestImageRejectsBadDate(t *testing.T) {
	srv := newTestServer(&fakeUpstream{imageBody: "x"}, nil)

	rec := doRequest(t, srv, "/api/qc/data/signal/soon/XYZ1/SHZ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStationRoutesRegisteredWithRepository(t *testing.T) {
	repo := &fakeStationRepo{stations: []station.Metadata{
		{Code: "XYZ1", Network: "IA", Province: "Jawa Barat"},
	}}
	srv := newTestServer(&fakeUpstream{}, repo)

	rec := doRequest(t, srv, "/api/stations")
	require.Equal(t, http.StatusOK, rec.Code)

	var stations []station.Metadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stations))
	require.Len(t, stations, 1)
	assert.Equal(t, "XYZ1", stations[0].Code)

	rec = doRequest(t, srv, "/api/stations/XYZ1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, "/api/stations/GHOST")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStationRoutesAbsentWithoutRepository(t *testing.T) {
	srv := newTestServer(&fakeUpstream{}, nil)

	rec := doRequest(t, srv, "/api/stations")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
