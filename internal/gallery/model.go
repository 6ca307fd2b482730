package gallery

import (
	"time"

	"github.com/google/uuid"
	"github.com/sratabix/gifselector/internal/database"
)

type (
	gifBase struct {
		ID           uuid.UUID  `db:"id"`
		Slug         string     `db:"slug"`
		Filename     string     `db:"filename"`
		OriginalName string     `db:"original_name"`
		MimeType     string     `db:"mime_type"`
		SizeBytes    int64      `db:"size_bytes"`
		Title        string     `db:"title"`
		OwnerID      *uuid.UUID `db:"owner_id"`
		CreatedAt    time.Time  `db:"created_at"`
		UpdatedAt    time.Time  `db:"updated_at"`
	}

	// gifModel is the gifs table columns combined with a JSON
	// representation of the coalesced category rows joined in to the
	// query. A separate struct forms the public API of this store to
	// hide the use of the JsonColumn container.
	gifModel struct {
		gifBase
		Categories database.JsonColumn[[]string] `db:"categories"`
	}

	// Gif is the external/public API for the stored asset model.
	Gif struct {
		gifBase
		Categories []string
	}

	Category struct {
		ID    uuid.UUID `db:"id"`
		Label string    `db:"label"`
	}

	// Asset describes a new artifact to be recorded in the gallery.
	// The on-disk copy must already exist; the store only records
	// the metadata row.
	Asset struct {
		Filename     string
		OriginalName string
		MimeType     string
		SizeBytes    int64
		Title        string
		OwnerID      *uuid.UUID
	}
)

func gifModelToGif(model *gifModel) *Gif {
	categories := model.Categories.Get()
	if categories == nil {
		return &Gif{gifBase: model.gifBase, Categories: []string{}}
	}

	return &Gif{gifBase: model.gifBase, Categories: *categories}
}
