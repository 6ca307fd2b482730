package importer

import "errors"

// The per-URL failure taxonomy. Every error below is caught at the
// per-URL boundary and recorded in to that URL's ImportResult; none
// propagate to abort sibling URLs or the batch response.
var (
	ErrInvalidURL          = errors.New("provided URL could not be parsed")
	ErrDomainNotAllowed    = errors.New("domain is not on the allow-list")
	ErrFallbackFetchFailed = errors.New("fallback page fetch failed")
	ErrNoMediaFound        = errors.New("no media metadata found in page")
	ErrMediaTooLarge       = errors.New("media exceeds the maximum allowed size")
	ErrNoFilesDownloaded   = errors.New("no files were downloaded")
	ErrNoValidMediaFound   = errors.New("no valid media found for url")
	ErrUnexpected          = errors.New("unexpected error during import")
)
