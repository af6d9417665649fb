package model

import "time"

const (
	SourceDatabase = "database"
	SourceAPI      = "api"

	InputTypeURL   = "url"
	InputTypeEmail = "email"
)

// PhishingRecord is a row of the legacy phishings table. Only the raw
// extracted content is consumed here; the rest of the row belongs to the
// crawler pipeline.
type PhishingRecord struct {
	ID               int64
	ExtractedContent string
}

// AnalysisRecord is the audit entry pushed to the analysis queue after a
// completed request.
type AnalysisRecord struct {
	RequestID string    `json:"request_id"`
	Source    string    `json:"source"`
	InputType string    `json:"input_type"`
	Model     string    `json:"model"`
	Insight   string    `json:"insight"`
	CreatedAt time.Time `json:"created_at"`
}
