package models

import "time"

// ResultStatus is the per-account outcome written to the result file.
type ResultStatus string

const (
	StatusCompleted ResultStatus = "completed"
	StatusFailed    ResultStatus = "failed"
)

// Result records the outcome of one account within a pipeline run.
type Result struct {
	RunID     string
	Index     int
	Email     string
	Status    ResultStatus
	Detail    string
	CreatedAt time.Time
}
