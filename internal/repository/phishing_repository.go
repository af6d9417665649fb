package repository

import (
	"database/sql"

	"github.com/malindard/llm-analyzer/internal/model"
)

type PhishingRepository struct {
	db *sql.DB
}

func NewPhishingRepository(db *sql.DB) *PhishingRepository {
	return &PhishingRepository{db: db}
}

// GetByID fetches the extracted content for a crawled row. Returns nil
// without error when the row does not exist.
func (r *PhishingRepository) GetByID(id int64) (*model.PhishingRecord, error) {
	var rec model.PhishingRecord
	var content sql.NullString

	err := r.db.QueryRow(`
		SELECT id, extracted_content FROM phishings WHERE id = $1
	`, id).Scan(&rec.ID, &content)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	rec.ExtractedContent = content.String
	return &rec, nil
}
