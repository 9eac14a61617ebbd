package converter

import (
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"
)

// GenerationToItem converts db.GenerationRecord to dto.GenerationItem.
func GenerationToItem(r *db.GenerationRecord) dto.GenerationItem {
	if r == nil {
		return dto.GenerationItem{}
	}
	params := r.Parameters.Data()
	return dto.GenerationItem{
		ID:                r.ID,
		RequestID:         r.ExternalJobID,
		Provider:          r.Provider,
		Model:             r.Model,
		Prompt:            r.Prompt,
		AspectRatio:       params.AspectRatio,
		NumInferenceSteps: params.NumInferenceSteps,
		GuidanceScale:     params.GuidanceScale,
		Status:            r.Status,
		ImageURL:          r.ResultURL,
		Seed:              r.Seed,
		Error:             r.ErrorMessage,
		PostID:            r.PostID,
		CreatedAt:         r.CreatedAt,
		CompletedAt:       r.CompletedAt,
	}
}

// GenerationsToItems converts a slice of records.
func GenerationsToItems(records []db.GenerationRecord) []dto.GenerationItem {
	items := make([]dto.GenerationItem, len(records))
	for i := range records {
		items[i] = GenerationToItem(&records[i])
	}
	return items
}

// GenerationToStatus builds the poll response from a stored record.
func GenerationToStatus(r *db.GenerationRecord) dto.GenerationStatusResponse {
	if r == nil {
		return dto.GenerationStatusResponse{}
	}
	resp := dto.GenerationStatusResponse{
		Success: true,
		Status:  r.Status,
		Prompt:  r.Prompt,
		PostID:  r.PostID,
	}
	switch r.Status {
	case db.GenerationStatusCompleted:
		resp.ImageURL = r.ResultURL
		resp.Seed = r.Seed
	case db.GenerationStatusFailed:
		resp.Error = r.ErrorMessage
	}
	return resp
}
