package model

import "time"

// PerformanceSample records one pipeline stage execution for monitoring.
// Append-only, pruned by age.
type PerformanceSample struct {
	CreatedAt  time.Time
	Operation  string
	Duration   time.Duration
	Confidence float64
}
