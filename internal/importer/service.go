package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
	"github.com/sratabix/gifselector/internal/event"
	"github.com/sratabix/gifselector/internal/gallery"
	"github.com/sratabix/gifselector/pkg/logger"
)

var log = logger.Get("Importer")

type (
	// DataStore is the storage collaborator the persist stage records
	// asset metadata with. Exactly one asset is recorded per
	// successfully imported URL; the returned slug is the public
	// identifier used in share links.
	DataStore interface {
		AddAsset(asset gallery.Asset) (string, error)
	}

	// ImportResult is the per-URL outcome record. The batch response
	// contains exactly one, order preserving, per input URL.
	ImportResult struct {
		URL     string `json:"url"`
		Success bool   `json:"success"`
		Slug    string `json:"slug,omitempty"`
		Error   string `json:"error,omitempty"`
	}

	// importService runs the remote media import pipeline: validate,
	// acquire (primary downloader with scrape-and-fetch fallback),
	// classify, convert, persist, cleanup - sequentially per URL, with
	// partial failure isolated per item.
	importService struct {
		config    Config
		acquirer  Acquirer
		fallback  Acquirer
		converter Converter
		dataStore DataStore
		eventBus  event.EventCoordinator
	}
)

// New constructs the import service, validating that the configured
// storage path is a usable directory (it is created if missing).
func New(config Config, acquirer Acquirer, fallback Acquirer, converter Converter, store DataStore, eventBus event.EventCoordinator) (*importService, error) {
	if info, err := os.Stat(config.StoragePath); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("storage path '%s' is not a directory", config.StoragePath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(config.StoragePath, os.ModeDir|os.ModePerm); err != nil {
			return nil, fmt.Errorf("storage path '%s' could not be created: %w", config.StoragePath, err)
		}
	} else {
		return nil, fmt.Errorf("storage path '%s' could not be accessed: %w", config.StoragePath, err)
	}

	return &importService{
		config:    config,
		acquirer:  acquirer,
		fallback:  fallback,
		converter: converter,
		dataStore: store,
		eventBus:  eventBus,
	}, nil
}

// Import runs the pipeline over each URL provided, sequentially and to
// completion, before the next URL begins. The returned slice contains
// exactly one result per input URL, in the same order; no per-URL
// failure ever aborts the processing of its siblings.
func (service *importService) Import(ctx context.Context, urls []string, ownerID *uuid.UUID) []ImportResult {
	batchID := uuid.New()
	service.eventBus.Dispatch(event.IMPORT_STARTED, batchID)

	results := make([]ImportResult, 0, len(urls))
	for _, url := range urls {
		result := service.importOne(ctx, url, ownerID)
		results = append(results, result)

		service.eventBus.Dispatch(event.IMPORT_UPDATE, event.ImportActivity{
			BatchID: batchID,
			URL:     result.URL,
			Success: result.Success,
			Slug:    result.Slug,
			Error:   result.Error,
		})
	}

	service.eventBus.Dispatch(event.IMPORT_COMPLETE, batchID)
	return results
}

// ImportLocalFile runs the classify/convert/persist tail of the pipeline
// against a file already on the local file system (used by the
// drop-folder watch service). The file is copied in to a fresh workspace
// first; the source is left untouched.
func (service *importService) ImportLocalFile(ctx context.Context, path string, ownerID *uuid.UUID) (string, error) {
	workspace, err := service.createWorkspace()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpected, err)
	}
	defer service.destroyWorkspace(workspace)

	if err := copyFile(path, filepath.Join(workspace, filepath.Base(path))); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpected, err)
	}

	return service.processWorkspace(ctx, workspace, ownerID)
}

// importOne runs the full pipeline for a single URL. Every failure mode
// is captured in to the returned result; the workspace is destroyed
// unconditionally on the way out.
func (service *importService) importOne(ctx context.Context, rawURL string, ownerID *uuid.UUID) (result ImportResult) {
	result = ImportResult{URL: rawURL}

	defer func() {
		if r := recover(); r != nil {
			log.Emit(logger.ERROR, "Import of %s PANICKED: %v\n", rawURL, r)
			result.Success = false
			result.Slug = ""
			result.Error = ErrUnexpected.Error()
		}
	}()

	if _, err := ValidateURL(rawURL, service.config.AllowedDomains); err != nil {
		result.Error = err.Error()
		return
	}

	workspace, err := service.createWorkspace()
	if err != nil {
		log.Emit(logger.ERROR, "Failed to create workspace for %s: %v\n", rawURL, err)
		result.Error = ErrUnexpected.Error()
		return
	}
	defer service.destroyWorkspace(workspace)

	if err := service.acquire(ctx, rawURL, workspace); err != nil {
		result.Error = err.Error()
		return
	}

	slug, err := service.processWorkspace(ctx, workspace, ownerID)
	if err != nil {
		result.Error = err.Error()
		return
	}

	log.Emit(logger.SUCCESS, "Imported %s as %s\n", rawURL, slug)
	result.Success = true
	result.Slug = slug
	return
}

// acquire runs the primary downloader, falling through to the
// scrape-and-fetch fallback if the tool fails OR produces no files.
// Primary failure is soft: logged as a warning, never fatal to the URL.
func (service *importService) acquire(ctx context.Context, url string, workspace string) error {
	if err := service.acquirer.Acquire(ctx, url, workspace); err != nil {
		log.Emit(logger.WARNING, "Primary downloader failed for %s (%v); using fallback\n", url, err)
	} else if files, err := listWorkspaceFiles(workspace); err == nil && len(files) > 0 {
		return nil
	} else {
		log.Emit(logger.WARNING, "Primary downloader produced no files for %s; using fallback\n", url)
	}

	return service.fallback.Acquire(ctx, url, workspace)
}

// processWorkspace classifies the acquired files, converts the first
// candidate, enforces the size cap and persists the final artifact. Only
// the FIRST classified file is ever attempted; subsequent valid files in
// the same workspace are never processed.
func (service *importService) processWorkspace(ctx context.Context, workspace string, ownerID *uuid.UUID) (string, error) {
	files, err := listWorkspaceFiles(workspace)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpected, err)
	}
	if len(files) == 0 {
		return "", ErrNoFilesDownloaded
	}

	candidates := classifyFiles(files)
	if len(candidates) == 0 {
		return "", ErrNoValidMediaFound
	}

	candidate := candidates[0]
	artifact, err := service.converter.Convert(ctx, candidate)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(artifact)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpected, err)
	}
	if info.Size() >= service.config.MaxFileSizeBytes {
		log.Emit(logger.WARNING, "Skipping artifact %s: %d bytes is at or over the size cap\n", filepath.Base(artifact), info.Size())
		return "", ErrNoValidMediaFound
	}

	return service.persist(artifact, info.Size(), ownerID)
}

// persist copies the final artifact in to permanent storage under a
// generated unique name and records the metadata row, returning the
// generated public slug.
func (service *importService) persist(artifact string, size int64, ownerID *uuid.UUID) (string, error) {
	ext := strings.ToLower(filepath.Ext(artifact))
	filename := fmt.Sprintf("%d-%s%s", time.Now().Unix(), random.String(6, random.Alphanumeric), ext)
	target := filepath.Join(service.config.StoragePath, filename)

	if err := copyFile(artifact, target); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpected, err)
	}

	if metadata, err := ProbeArtifact(target); err == nil {
		log.Emit(logger.DEBUG, "Stored artifact %s container format: %s\n", filename, metadata.GetFormat().GetFormatName())
	}

	slug, err := service.dataStore.AddAsset(gallery.Asset{
		Filename:     filename,
		OriginalName: filepath.Base(artifact),
		MimeType:     mimeTypeForExtension(ext),
		SizeBytes:    size,
		OwnerID:      ownerID,
	})
	if err != nil {
		os.Remove(target)
		return "", fmt.Errorf("%w: %v", ErrUnexpected, err)
	}

	return slug, nil
}

func (service *importService) createWorkspace() (string, error) {
	root := service.config.WorkspaceRoot
	if root == "" {
		root = os.TempDir()
	}

	workspace := filepath.Join(root, fmt.Sprintf("gifselector-import-%s", uuid.New()))
	if err := os.MkdirAll(workspace, os.ModeDir|os.ModePerm); err != nil {
		return "", err
	}

	return workspace, nil
}

// destroyWorkspace removes the workspace and all its contents. Removal
// is best-effort; failures are logged and swallowed.
func (service *importService) destroyWorkspace(workspace string) {
	if err := os.RemoveAll(workspace); err != nil {
		log.Emit(logger.WARNING, "Failed to remove workspace %s: %v\n", workspace, err)
	}
}

func mimeTypeForExtension(ext string) string {
	switch ext {
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func copyFile(source string, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Close()
}
