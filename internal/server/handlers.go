// Package server provides the HTTP route layer over the QC service.
package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"seismon/internal/core"
	"seismon/internal/qc"
	"seismon/internal/station"
)

// Handler holds the HTTP handlers.
type Handler struct {
	qc       *qc.Service
	stations station.Repository
}

// NewHandler creates a handler. stations may be nil when no metadata
// database is configured; the station routes are not registered in that case.
func NewHandler(svc *qc.Service, stations station.Repository) *Handler {
	return &Handler{
		qc:       svc,
		stations: stations,
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// StationDetail handles GET /api/qc/data/detail/:station/:date
func (h *Handler) StationDetail(c echo.Context) error {
	date, err := requireDate(c.Param("date"))
	if err != nil {
		return handleError(c, err)
	}
	records, err := h.qc.StationDetail(c.Request().Context(), c.Param("station"), date)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// DaySummary handles GET /api/qc/data/summary/:date
func (h *Handler) DaySummary(c echo.Context) error {
	date, err := requireDate(c.Param("date"))
	if err != nil {
		return handleError(c, err)
	}
	records, err := h.qc.DaySummary(c.Request().Context(), date)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// SevenDaySummary handles GET /api/qc/data/summary/7days/:station
func (h *Handler) SevenDaySummary(c echo.Context) error {
	statuses := h.qc.SevenDaySummary(c.Request().Context(), c.Param("station"))
	return c.JSON(http.StatusOK, statuses)
}

// SevenDayDetail handles GET /api/qc/data/detail/7days/:station
func (h *Handler) SevenDayDetail(c echo.Context) error {
	records, err := h.qc.SevenDayDetail(c.Request().Context(), c.Param("station"))
	if err != nil {
		return handleError(c, err)
	}
	if records == nil {
		records = []core.DetailRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// SiteQualityDetail handles GET /api/qc/data/sitedetail/:station
func (h *Handler) SiteQualityDetail(c echo.Context) error {
	records, err := h.qc.SiteQualityDetail(c.Request().Context(), c.Param("station"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// Latency handles GET /api/metadata/latency/:station/:channel
func (h *Handler) Latency(c echo.Context) error {
	series, err := h.qc.Latency(c.Request().Context(), c.Param("station"), c.Param("channel"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, series)
}

// SignalImage handles GET /api/qc/data/signal/:date/:station/:channel
func (h *Handler) SignalImage(c echo.Context) error {
	return h.streamImage(c, core.ImageSignal)
}

// PSDImage handles GET /api/qc/data/psd/:date/:station/:channel
func (h *Handler) PSDImage(c echo.Context) error {
	return h.streamImage(c, core.ImagePSD)
}

// streamImage pipes an upstream image to the client as bytes arrive.
// The upstream status code and content type are forwarded verbatim, error
// statuses included.
func (h *Handler) streamImage(c echo.Context, kind core.ImageKind) error {
	date, err := requireDate(c.Param("date"))
	if err != nil {
		return handleError(c, err)
	}

	stream, err := h.qc.StreamImage(c.Request().Context(), kind, date, c.Param("station"), c.Param("channel"))
	if err != nil {
		return handleError(c, err)
	}
	defer func() {
		_ = stream.Body.Close()
	}()

	c.Response().Header().Set("Content-Type", stream.ContentType)
	c.Response().WriteHeader(stream.StatusCode)

	if _, err := io.Copy(c.Response().Writer, stream.Body); err != nil {
		// Headers are already sent; nothing useful to return.
		return nil
	}
	return nil
}

// ListStations handles GET /api/stations
func (h *Handler) ListStations(c echo.Context) error {
	stations, err := h.stations.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, stations)
}

// GetStation handles GET /api/stations/:code
func (h *Handler) GetStation(c echo.Context) error {
	meta, err := h.stations.Lookup(c.Request().Context(), c.Param("code"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, meta)
}

// requireDate validates a date path parameter.
func requireDate(raw string) (string, error) {
	if _, err := time.Parse(core.DateFormat, raw); err != nil {
		return "", core.NewInvalidRequestError("invalid date, expected YYYY-MM-DD: " + raw)
	}
	return raw, nil
}

// handleError converts service errors to HTTP responses.
func handleError(c echo.Context, err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return c.JSON(apiErr.HTTPStatusCode(), apiErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
