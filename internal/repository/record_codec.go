package repository

import (
	"encoding/json"
	"fmt"

	"PillarCast/internal/domain/models"

	"github.com/google/uuid"
)

// Records keep their summary columns queryable and the full record as JSON,
// so new fields never need a migration.

func encodeRecord(rec *models.PredictionRecord) ([]byte, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode prediction: %w", err)
	}
	return b, nil
}

func decodeRecord(b []byte) (models.PredictionRecord, error) {
	var rec models.PredictionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("decode prediction: %w", err)
	}
	return rec, nil
}
