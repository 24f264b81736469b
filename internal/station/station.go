// Package station provides read-only access to the relational
// station-metadata store. The QC core treats this store as a collaborator:
// lookups only, no writes.
package station

import (
	"context"

	"seismon/internal/core"
)

// Metadata is the display metadata kept for one station.
type Metadata struct {
	Code         string  `json:"code" db:"code"`
	Network      string  `json:"network" db:"network"`
	Latitude     float64 `json:"latitude" db:"latitude"`
	Longitude    float64 `json:"longitude" db:"longitude"`
	Elevation    float64 `json:"elevation" db:"elevation"`
	Location     string  `json:"location" db:"location"`
	Province     string  `json:"province" db:"province"`
	UPT          string  `json:"upt" db:"upt"`
	NetworkGroup string  `json:"network_group" db:"network_group"`
	InstallYear  int     `json:"install_year" db:"install_year"`
}

// Repository looks up station display metadata.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Lookup returns the metadata for one station code, or a not-found error.
	Lookup(ctx context.Context, code string) (*Metadata, error)

	// List returns all stations ordered by code.
	List(ctx context.Context) ([]Metadata, error)

	// Close releases the underlying connections.
	Close()
}

func errNotFound(code string) error {
	return core.NewNotFoundError("unknown station code: " + code)
}
