package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/extract"
)

// Document is a stored extraction result for data transfer between layers.
type Document struct {
	ID              uuid.UUID                 `json:"id"`
	ContentHash     string                    `json:"content_hash"`
	SourcePath      string                    `json:"source_path"`
	SourceFormat    string                    `json:"source_format"`
	FileSize        int64                     `json:"file_size"`
	Status          constants.DocumentStatus  `json:"status"`
	ValidationError string                    `json:"validation_error,omitempty"`
	Text            string                    `json:"text"`
	Fields          extract.ExtractedDocument `json:"fields"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}
