package dto

import "time"

// RosterExportQuery selects the approved bookings to export.
type RosterExportQuery struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Format    string `form:"format"`
}

// ExportResult points at a rendered export.
type ExportResult struct {
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}
