package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type GenerationRepository struct {
	db *sql.DB
}

func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Log(ctx context.Context, sessionID, jobID, model, outcome, errorKind string) error {
	const query = `
INSERT INTO generation_logs (session_id, job_id, model, outcome, error_kind)
VALUES (?, ?, ?, ?, NULLIF(?, ''))`
	if _, err := r.db.ExecContext(ctx, query, sessionID, jobID, model, outcome, errorKind); err != nil {
		return fmt.Errorf("insert generation log: %w", err)
	}
	return nil
}
