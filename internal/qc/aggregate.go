package qc

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"seismon/internal/core"
)

// SevenDaySummary answers "how did this station do over the last seven days"
// as one status per day, oldest first.
//
// The per-day fetches are issued concurrently and settled individually: a
// failure on one day never cancels or fails its neighbors. A day whose fetch
// failed, or whose summary has no entry for the station, reports NoData.
// The call as a whole never fails; worst case is seven NoData entries.
func (s *Service) SevenDaySummary(ctx context.Context, station string) []core.DayStatus {
	dates := s.windowDates()

	summaries := make([][]core.SummaryRecord, len(dates))
	errs := make([]error, len(dates))

	var wg sync.WaitGroup
	for i, date := range dates {
		wg.Add(1)
		go func(i int, date string) {
			defer wg.Done()
			summaries[i], errs[i] = s.DaySummary(ctx, date)
		}(i, date)
	}
	wg.Wait()

	// Ordering is imposed here, by walking the date slice, not inferred from
	// completion order.
	out := make([]core.DayStatus, 0, len(dates))
	for i, date := range dates {
		status := core.StatusNoData
		if errs[i] != nil {
			slog.Warn("day summary fetch failed", "date", date, "station", station, "error", errs[i])
		} else {
			for _, rec := range summaries[i] {
				if rec.Code == station {
					status = core.NormalizeResult(rec.Result)
					break
				}
			}
		}
		out = append(out, core.DayStatus{Date: date, Status: status})
	}
	return out
}

// SevenDayDetail concatenates the per-channel measurements of the last seven
// days into one date-ascending series.
//
// A day the upstream reports as not-found is silently omitted: no rows, no
// placeholder. Any other per-day failure aborts the whole request.
func (s *Service) SevenDayDetail(ctx context.Context, station string) ([]core.DetailRecord, error) {
	var out []core.DetailRecord
	for _, date := range s.windowDates() {
		records, err := s.StationDetail(ctx, station, date)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, records...)
	}

	// Upstream dates are ISO-8601, so a lexicographic sort is chronological.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out, nil
}

// windowDates returns the aggregation window D-N..D-1, oldest first.
func (s *Service) windowDates() []string {
	now := s.now()
	dates := make([]string, 0, summaryWindowDays)
	for i := summaryWindowDays; i >= 1; i-- {
		dates = append(dates, now.AddDate(0, 0, -i).Format(core.DateFormat))
	}
	return dates
}
