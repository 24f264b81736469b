package qc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seismon/internal/core"
)

func TestSiteQualityDetailSentinelOnEmpty(t *testing.T) {
	// Upstream answers 200 with an empty array: the caller still gets one
	// record, with the "-" sentinel.
	s := newTestService(&fakeUpstream{siteRecords: []core.SiteQualityRecord{}})

	got, err := s.SiteQualityDetail(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Equal(t, []core.SiteQualityRecord{{Code: "NOPE", SiteQuality: "-"}}, got)
}

func TestSiteQualityDetailSentinelOnNotFound(t *testing.T) {
	s := newTestService(&fakeUpstream{siteErr: core.NewNotFoundError("no site data")})

	got, err := s.SiteQualityDetail(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Equal(t, []core.SiteQualityRecord{{Code: "NOPE", SiteQuality: "-"}}, got)
}

func TestSiteQualityDetailPassesThroughRecords(t *testing.T) {
	records := []core.SiteQualityRecord{{Code: "PBJI", SiteQuality: "Good"}}
	s := newTestService(&fakeUpstream{siteRecords: records})

	got, err := s.SiteQualityDetail(context.Background(), "PBJI")
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestSiteQualityDetailPropagatesSystemicFailure(t *testing.T) {
	s := newTestService(&fakeUpstream{siteErr: core.NewUpstreamError(502, "boom", nil)})

	_, err := s.SiteQualityDetail(context.Background(), "PBJI")
	require.Error(t, err)
}

func TestStationDetailDelegates(t *testing.T) {
	records := []core.DetailRecord{{Code: "PBJI", Date: "2025-11-01", Channel: "SHZ", RMS: 0.4}}
	s := newTestService(&fakeUpstream{
		details: map[string][]core.DetailRecord{"PBJI|2025-11-01": records},
	})

	got, err := s.StationDetail(context.Background(), "PBJI", "2025-11-01")
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestStationDetailNotFoundPropagates(t *testing.T) {
	s := newTestService(&fakeUpstream{})

	_, err := s.StationDetail(context.Background(), "PBJI", "2025-11-01")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}

func TestLatencyDelegates(t *testing.T) {
	lat := 2.5
	series := core.LatencySeries{"2025-11-01T00:00:00": &lat, "2025-11-01T01:00:00": nil}
	s := newTestService(&fakeUpstream{latency: series})

	got, err := s.Latency(context.Background(), "PBJI", "SHZ")
	require.NoError(t, err)
	assert.Equal(t, series, got)
}
