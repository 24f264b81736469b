// Package qc exposes the station-quality operations consumed by the route
// layer: cached single-resource fetches, multi-day aggregations, and the
// binary image passthrough.
package qc

import (
	"context"
	"fmt"
	"time"

	"seismon/internal/cache"
	"seismon/internal/core"
	"seismon/internal/qcclient"
)

// Per-resource cache TTLs. Site quality changes rarely, hence the long TTL.
const (
	detailTTL     = time.Hour
	summaryTTL    = time.Hour
	siteDetailTTL = 24 * time.Hour
	latencyTTL    = time.Hour
)

// summaryWindowDays is the aggregation window: D-7 through D-1, today
// excluded (the upstream publishes a day's data after the day closes).
const summaryWindowDays = 7

// Upstream is the QC API surface the service consumes. *qcclient.Client
// implements it; tests substitute fakes.
type Upstream interface {
	Detail(ctx context.Context, station, date string) ([]core.DetailRecord, error)
	Summary(ctx context.Context, date string) ([]core.SummaryRecord, error)
	SiteDetail(ctx context.Context, station string) ([]core.SiteQualityRecord, error)
	Latency(ctx context.Context, station, channel string) (core.LatencySeries, error)
	Image(ctx context.Context, kind core.ImageKind, date, station, channel string) (*qcclient.ImageStream, error)
}

// Service wraps the upstream client with the cache-aside layer and the
// multi-day aggregation logic. The cache manager may be nil, in which case
// every fetch goes straight upstream.
type Service struct {
	upstream Upstream
	store    *cache.Manager
	now      func() time.Time
}

// NewService creates a Service.
func NewService(upstream Upstream, store *cache.Manager) *Service {
	return &Service{
		upstream: upstream,
		store:    store,
		now:      time.Now,
	}
}

// StationDetail returns the per-channel QC measurements for one station on
// one day. A 404 from the upstream propagates as not-found and is never
// written to the cache.
func (s *Service) StationDetail(ctx context.Context, station, date string) ([]core.DetailRecord, error) {
	key := fmt.Sprintf("detail:%s:%s", station, date)
	return cache.Cached(ctx, s.store, key, detailTTL, func(ctx context.Context) ([]core.DetailRecord, error) {
		return s.upstream.Detail(ctx, station, date)
	})
}

// DaySummary returns the network-wide summary for one day. The key is
// per-day, not per-station, so aggregations for different stations share one
// upstream fetch.
func (s *Service) DaySummary(ctx context.Context, date string) ([]core.SummaryRecord, error) {
	key := fmt.Sprintf("summary:%s", date)
	return cache.Cached(ctx, s.store, key, summaryTTL, func(ctx context.Context) ([]core.SummaryRecord, error) {
		return s.upstream.Summary(ctx, date)
	})
}

// SiteQualityDetail returns the site-quality records for a station. Absence
// upstream (empty array or 404) is represented by a single sentinel record,
// never by an empty result or an error.
func (s *Service) SiteQualityDetail(ctx context.Context, station string) ([]core.SiteQualityRecord, error) {
	key := fmt.Sprintf("sitedetail:%s", station)
	records, err := cache.Cached(ctx, s.store, key, siteDetailTTL, func(ctx context.Context) ([]core.SiteQualityRecord, error) {
		return s.upstream.SiteDetail(ctx, station)
	})
	if err != nil {
		if core.IsNotFound(err) {
			return s.siteQualitySentinel(station), nil
		}
		return nil, err
	}
	if len(records) == 0 {
		return s.siteQualitySentinel(station), nil
	}
	return records, nil
}

func (s *Service) siteQualitySentinel(station string) []core.SiteQualityRecord {
	return []core.SiteQualityRecord{{Code: station, SiteQuality: core.SiteQualityUnknown}}
}

// Latency returns the latency series for one station channel.
func (s *Service) Latency(ctx context.Context, station, channel string) (core.LatencySeries, error) {
	key := fmt.Sprintf("latency:%s:%s", station, channel)
	return cache.Cached(ctx, s.store, key, latencyTTL, func(ctx context.Context) (core.LatencySeries, error) {
		return s.upstream.Latency(ctx, station, channel)
	})
}

// StreamImage opens an upstream image stream. Images bypass the cache-aside
// path entirely; the caller owns the returned body.
func (s *Service) StreamImage(ctx context.Context, kind core.ImageKind, date, station, channel string) (*qcclient.ImageStream, error) {
	return s.upstream.Image(ctx, kind, date, station, channel)
}
