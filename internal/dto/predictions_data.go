// PredictionsData is a paginated response payload for the prediction history.
package dto

import "leafdoctor/internal/model"

type PredictionsData struct {
	Predictions []model.PredictionRecord `json:"predictions"`
	Length      int                      `json:"length"`
	TotalPages  int                      `json:"totalPages"`
	CurrentPage int                      `json:"currentPage"`
	Limit       int                      `json:"pageSize"`
}
