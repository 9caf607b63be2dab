package models

import "time"

// SlipFormat is the rendering of a registration slip.
type SlipFormat string

const (
	SlipFormatCSV SlipFormat = "csv"
	SlipFormatPDF SlipFormat = "pdf"
)

// SlipResult describes a rendered slip ready for download.
type SlipResult struct {
	ID        string     `json:"id"`
	Format    SlipFormat `json:"format"`
	Token     string     `json:"token"`
	URL       string     `json:"url"`
	ExpiresAt time.Time  `json:"expires_at"`
}
