// Package core provides the shared types and errors for the station QC proxy.
package core

// DateFormat is the wire format for QC dates, both in upstream URLs and in
// cache keys.
const DateFormat = "2006-01-02"

// DetailRecord is one per-channel QC measurement for a station on a given day.
type DetailRecord struct {
	Code           string  `json:"code"`
	Date           string  `json:"date"`
	Channel        string  `json:"channel"`
	RMS            float64 `json:"rms"`
	AmplitudeRatio float64 `json:"amplitude_ratio"`
}

// SummaryRecord is one station's entry in the network-wide daily summary.
// The upstream publishes one array covering every station per day.
type SummaryRecord struct {
	Date              string   `json:"date"`
	Code              string   `json:"code"`
	QualityPercentage float64  `json:"quality_percentage"`
	Result            string   `json:"result"`
	Details           string   `json:"details"`
	Network           string   `json:"network"`
	SiteQuality       *string  `json:"site_quality"`
	NetworkGroup      string   `json:"network_group"`
	UPT               string   `json:"upt"`
	Communication     string   `json:"communication"`
	Digitizer         string   `json:"digitizer"`
	Year              int      `json:"year"`
	Geometry          Geometry `json:"geometry"`
}

// Geometry is the GeoJSON point attached to a summary record.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// SiteQualityRecord describes the site-quality classification of a station.
type SiteQualityRecord struct {
	Code        string `json:"code"`
	SiteQuality string `json:"site_quality"`
}

// SiteQualityUnknown is the sentinel returned when the upstream has no
// site-quality data for a station. Callers always get at least one record.
const SiteQualityUnknown = "-"

// LatencySeries maps a timestamp string to a latency sample in seconds.
// A nil value means the channel reported no sample at that timestamp.
type LatencySeries map[string]*float64

// DayStatus is one entry of a multi-day station status strip.
type DayStatus struct {
	Date   string `json:"date"`
	Status Status `json:"status"`
}

// ImageKind selects which upstream image resource to stream.
type ImageKind string

const (
	ImageSignal ImageKind = "signal"
	ImagePSD    ImageKind = "psd"
)
