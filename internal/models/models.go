package models

import "time"

// ForecastCell is one stored tidy-forecast record: a grid cell's aggregated
// rainfall value for one accumulation window of one forecast run.
type ForecastCell struct {
	ID          int64
	Variable    string // "qpf" or "pop12"
	ValidPeriod string // "24", "48" or "72" (hours)
	YIndex      int
	XIndex      int
	Value       float64
	Longitude   float64
	Latitude    float64
	IssuedAt    time.Time // forecast issuance time, UTC
	CreatedAt   time.Time
}
