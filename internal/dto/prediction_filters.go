// PredictionFilters describe user-provided filters to narrow the prediction history.
package dto

import "time"

type PredictionFilters struct {
	Disease string
	Source  string
	After   time.Time
	Before  time.Time
	Limit   int
	Offset  int
}
