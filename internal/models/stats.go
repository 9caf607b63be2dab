package models

import "time"

// SystemStats is a point-in-time summary of service health counters.
type SystemStats struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	RegistrationOperations   uint64    `json:"registration_operations"`
	RegistrationFailures     uint64    `json:"registration_failures"`
	ActiveLedgers            int       `json:"active_ledgers"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
