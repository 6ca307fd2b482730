package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sratabix/gifselector/internal/database"
	"github.com/sratabix/gifselector/internal/event"
	"github.com/sratabix/gifselector/internal/gallery"
	"github.com/sratabix/gifselector/internal/user"
	"github.com/sratabix/gifselector/pkg/logger"
)

var storeLogger = logger.Get("Store")

// storeOrchestrator links the 'dumb' data stores together and provides
// them with the database connection. Relational concerns (a gif and its
// categories, a metadata row and its on-disk file) are handled here,
// not in the individual stores.
type storeOrchestrator struct {
	db           database.Manager
	eventBus     event.EventDispatcher
	storagePath  string
	galleryStore *gallery.Store
	userStore    *user.Store
}

func NewStoreOrchestrator(db database.Manager, eventBus event.EventDispatcher, storagePath string) (*storeOrchestrator, error) {
	if db.GetSqlxDb() == nil {
		return nil, errors.New("cannot construct store orchestrator: database is not connected")
	}

	return &storeOrchestrator{
		db:           db,
		eventBus:     eventBus,
		storagePath:  storagePath,
		galleryStore: gallery.NewStore(),
		userStore:    user.NewStore(),
	}, nil
}

// AddAsset records a newly persisted artifact and announces its
// creation on the event bus. The returned slug is the public identifier
// used in share links.
func (orchestrator *storeOrchestrator) AddAsset(asset gallery.Asset) (string, error) {
	slug, err := orchestrator.galleryStore.AddAsset(orchestrator.db.GetSqlxDb(), asset)
	if err != nil {
		return "", err
	}

	if gif, err := orchestrator.galleryStore.GetWithSlug(orchestrator.db.GetSqlxDb(), slug); err == nil {
		orchestrator.eventBus.Dispatch(event.GIF_CREATED, gif.ID)
	}

	return slug, nil
}

func (orchestrator *storeOrchestrator) ListGifs() ([]*gallery.Gif, error) {
	return orchestrator.galleryStore.List(orchestrator.db.GetSqlxDb())
}

func (orchestrator *storeOrchestrator) GetGifWithSlug(slug string) (*gallery.Gif, error) {
	return orchestrator.galleryStore.GetWithSlug(orchestrator.db.GetSqlxDb(), slug)
}

func (orchestrator *storeOrchestrator) GetGifWithID(id uuid.UUID) (*gallery.Gif, error) {
	return orchestrator.galleryStore.GetWithID(orchestrator.db.GetSqlxDb(), id)
}

// GifFilePath resolves the on-disk location of the gif's stored file.
func (orchestrator *storeOrchestrator) GifFilePath(gif *gallery.Gif) string {
	return filepath.Join(orchestrator.storagePath, gif.Filename)
}

// UpdateGif transactionally applies the non-nil parts of a partial
// update, returning the updated model.
func (orchestrator *storeOrchestrator) UpdateGif(id uuid.UUID, title *string, categories *[]string) (*gallery.Gif, error) {
	if err := orchestrator.db.WrapTx(func(tx *sqlx.Tx) error {
		if title != nil {
			if err := orchestrator.galleryStore.UpdateTitle(tx, id, *title); err != nil {
				return err
			}
		}

		if categories != nil {
			if err := orchestrator.galleryStore.SetCategories(tx, id, *categories); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return orchestrator.GetGifWithID(id)
}

// DeleteGif removes the metadata row and the stored file. The row is
// deleted first; a file that fails to delete afterwards is logged and
// orphaned rather than resurrecting the gif.
func (orchestrator *storeOrchestrator) DeleteGif(id uuid.UUID) error {
	gif, err := orchestrator.GetGifWithID(id)
	if err != nil {
		return err
	}

	if err := orchestrator.galleryStore.Delete(orchestrator.db.GetSqlxDb(), id); err != nil {
		return err
	}

	if err := os.Remove(orchestrator.GifFilePath(gif)); err != nil && !errors.Is(err, os.ErrNotExist) {
		storeLogger.Warnf("Failed to remove stored file for deleted gif %s: %v\n", id, err)
	}

	orchestrator.eventBus.Dispatch(event.GIF_DELETED, id)
	return nil
}

func (orchestrator *storeOrchestrator) ListCategories() ([]*gallery.Category, error) {
	return orchestrator.galleryStore.ListCategories(orchestrator.db.GetSqlxDb())
}

func (orchestrator *storeOrchestrator) CreateCategory(label string) (*gallery.Category, error) {
	return orchestrator.galleryStore.CreateCategory(orchestrator.db.GetSqlxDb(), label)
}

func (orchestrator *storeOrchestrator) DeleteCategory(id uuid.UUID) error {
	return orchestrator.galleryStore.DeleteCategory(orchestrator.db.GetSqlxDb(), id)
}

func (orchestrator *storeOrchestrator) CreateUser(username []byte, rawPassword []byte) error {
	return orchestrator.userStore.Create(orchestrator.db.GetSqlxDb(), username, rawPassword)
}

func (orchestrator *storeOrchestrator) ListUsers() ([]*user.User, error) {
	return orchestrator.userStore.List(orchestrator.db.GetSqlxDb())
}

func (orchestrator *storeOrchestrator) GetUserWithUsernameAndPassword(username []byte, rawPassword []byte) (*user.User, error) {
	return orchestrator.userStore.GetWithUsernameAndPassword(orchestrator.db.GetSqlxDb(), username, rawPassword)
}

func (orchestrator *storeOrchestrator) GetUserWithID(id uuid.UUID) (*user.User, error) {
	return orchestrator.userStore.GetWithID(orchestrator.db.GetSqlxDb(), id)
}

func (orchestrator *storeOrchestrator) RecordUserLogin(userID uuid.UUID) error {
	return orchestrator.userStore.RecordLogin(orchestrator.db.GetSqlxDb(), userID)
}

func (orchestrator *storeOrchestrator) RecordUserRefresh(userID uuid.UUID) error {
	return orchestrator.userStore.RecordRefresh(orchestrator.db.GetSqlxDb(), userID)
}

// EnsureDefaultUser creates the seed admin account when the users table
// is empty, so a fresh deployment can be logged in to.
func (orchestrator *storeOrchestrator) EnsureDefaultUser(username string, password string) error {
	users, err := orchestrator.ListUsers()
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if len(users) > 0 {
		return nil
	}

	storeLogger.Infof("No users found; creating default user '%s'\n", username)
	return orchestrator.CreateUser([]byte(username), []byte(password))
}
