package gallery

import (
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/gommon/random"
	"github.com/sratabix/gifselector/internal/database"
)

const slugLength = 10

var (
	ErrGifNotFound      = errors.New("gif does not exist")
	ErrCategoryNotFound = errors.New("category does not exist")
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// AddAsset records the metadata for a newly stored artifact and returns
// the generated public slug. Exactly one row is created per call; no
// deduplication of any kind is performed.
func (store *Store) AddAsset(db database.Queryable, asset Asset) (string, error) {
	slug := random.String(slugLength, random.Alphanumeric)

	_, err := db.Exec(`
		INSERT INTO gifs(id, slug, filename, original_name, mime_type, size_bytes, title, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, current_timestamp, current_timestamp)
	`, uuid.New(), slug, asset.Filename, asset.OriginalName, asset.MimeType, asset.SizeBytes, asset.Title, asset.OwnerID)
	if err != nil {
		return "", fmt.Errorf("failed to insert new gif: %w", err)
	}

	return slug, nil
}

func (store *Store) List(db database.Queryable) ([]*Gif, error) {
	query, args, err := selectGifBuilder().OrderBy("gifs.created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list gifs query: %w", err)
	}

	var results []gifModel
	if err := db.Select(&results, query, args...); err != nil {
		return nil, err
	}

	output := make([]*Gif, len(results))
	for k := range results {
		output[k] = gifModelToGif(&results[k])
	}

	return output, nil
}

func (store *Store) GetWithSlug(db database.Queryable, slug string) (*Gif, error) {
	query, args, err := selectGifBuilder().Where("gifs.slug=?", slug).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select gif query: %w", err)
	}

	var gif gifModel
	if err := db.Get(&gif, db.Rebind(query), args...); err != nil {
		return nil, ErrGifNotFound
	}

	return gifModelToGif(&gif), nil
}

func (store *Store) GetWithID(db database.Queryable, id uuid.UUID) (*Gif, error) {
	query, args, err := selectGifBuilder().Where("gifs.id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select gif query: %w", err)
	}

	var gif gifModel
	if err := db.Get(&gif, db.Rebind(query), args...); err != nil {
		return nil, ErrGifNotFound
	}

	return gifModelToGif(&gif), nil
}

func (store *Store) UpdateTitle(db database.Queryable, id uuid.UUID, title string) error {
	_, err := db.Exec(`UPDATE gifs SET title=$1, updated_at=current_timestamp WHERE id=$2`, title, id)
	return err
}

func (store *Store) Delete(db database.Queryable, id uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM gifs WHERE id=$1`, id)
	return err
}

// SetCategories replaces the set of categories applied to the gif
// provided. Unknown labels are created on the fly.
func (store *Store) SetCategories(tx *sqlx.Tx, gifID uuid.UUID, labels []string) error {
	if _, err := tx.Exec(`DELETE FROM gifs_categories WHERE gif_id=$1`, gifID); err != nil {
		return err
	}

	for _, label := range labels {
		category, err := store.getOrCreateCategory(tx, label)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
			INSERT INTO gifs_categories(gif_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT(gif_id, category_id) DO NOTHING
		`, gifID, category.ID)
		if err != nil {
			return err
		}
	}

	return nil
}

func (store *Store) ListCategories(db database.Queryable) ([]*Category, error) {
	var results []Category
	if err := db.Select(&results, `SELECT * FROM categories ORDER BY label`); err != nil {
		return nil, err
	}

	output := make([]*Category, len(results))
	for k := range results {
		output[k] = &results[k]
	}

	return output, nil
}

func (store *Store) CreateCategory(db database.Queryable, label string) (*Category, error) {
	category := Category{ID: uuid.New(), Label: label}
	_, err := db.Exec(`INSERT INTO categories(id, label) VALUES ($1, $2)`, category.ID, category.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to insert new category: %w", err)
	}

	return &category, nil
}

func (store *Store) DeleteCategory(db database.Queryable, id uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM categories WHERE id=$1`, id)
	return err
}

func (store *Store) getOrCreateCategory(db database.Queryable, label string) (*Category, error) {
	var category Category
	if err := db.Get(&category, `SELECT * FROM categories WHERE label=$1`, label); err == nil {
		return &category, nil
	}

	return store.CreateCategory(db, label)
}

func selectGifBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("gifs.*", "COALESCE(JSONB_AGG(DISTINCT categories.label) FILTER (WHERE categories.id IS NOT NULL), '[]') AS categories").
		From("gifs").
		LeftJoin("gifs_categories ON gifs_categories.gif_id = gifs.id").
		LeftJoin("categories ON categories.id = gifs_categories.category_id").
		GroupBy("gifs.id")
}
