package gifs

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sratabix/gifselector/internal/gallery"
)

type (
	gifDto struct {
		ID           uuid.UUID `json:"id"`
		Slug         string    `json:"slug"`
		Title        string    `json:"title"`
		OriginalName string    `json:"original_name"`
		MimeType     string    `json:"mime_type"`
		SizeBytes    int64     `json:"size_bytes"`
		Categories   []string  `json:"categories"`
		FileURL      string    `json:"file_url"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}
)

func newDto(model *gallery.Gif) gifDto {
	return gifDto{
		ID:           model.ID,
		Slug:         model.Slug,
		Title:        model.Title,
		OriginalName: model.OriginalName,
		MimeType:     model.MimeType,
		SizeBytes:    model.SizeBytes,
		Categories:   model.Categories,
		FileURL:      fmt.Sprintf("/api/gifselector/v1/gifs/%s/file/", model.Slug),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}
