package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sratabix/gifselector/pkg/logger"
)

const (
	// User agent identifying us to the page we scrape for media metadata.
	scrapeUserAgent = "gifselector/1.0 (+https://github.com/sratabix/gifselector)"

	// Generic user agent used when fetching the media itself; some CDNs
	// refuse to serve media to unrecognised clients.
	mediaUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	// Fixed basename for fallback downloads inside the workspace; the
	// inferred extension is appended.
	fallbackFilename = "fallback-download"
)

// metaPatterns matches the content attribute of the relevant media
// meta tags, accounting for either attribute ordering. Listed in
// priority order; the first tag present wins.
var metaPatterns = []*regexp.Regexp{
	buildMetaPattern("og:video"),
	buildMetaPattern("og:video:url"),
	buildMetaPattern("og:image"),
	buildMetaPattern("twitter:image"),
}

var contentTypeToExt = map[string]string{
	"video/mp4":  ".mp4",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func buildMetaPattern(tag string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(tag)
	return regexp.MustCompile(
		`<meta[^>]*(?:property|name)=["']` + quoted + `["'][^>]*content=["']([^"']+)["']` +
			`|<meta[^>]*content=["']([^"']+)["'][^>]*(?:property|name)=["']` + quoted + `["']`)
}

// fallbackAcquirer fetches the page behind the URL and scrapes its meta
// tags for a direct media URL, which is then downloaded (subject to the
// size cap) in to the workspace. It is used when the primary downloader
// tool fails or produces nothing.
type fallbackAcquirer struct {
	client  *http.Client
	sizeCap int64
}

func NewFallbackAcquirer(client *http.Client, sizeCap int64) Acquirer {
	if client == nil {
		client = &http.Client{Timeout: time.Minute * 2}
	}

	return &fallbackAcquirer{client: client, sizeCap: sizeCap}
}

func (acquirer *fallbackAcquirer) Acquire(ctx context.Context, url string, workspace string) error {
	page, err := acquirer.fetchPage(ctx, url)
	if err != nil {
		return err
	}

	mediaURL, err := extractMediaURL(page)
	if err != nil {
		return err
	}

	log.Emit(logger.DEBUG, "Fallback scrape of %s found media URL %s\n", url, mediaURL)
	return acquirer.downloadMedia(ctx, mediaURL, workspace)
}

func (acquirer *fallbackAcquirer) fetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", ErrFallbackFetchFailed
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := acquirer.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFallbackFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrFallbackFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFallbackFetchFailed, err)
	}

	return string(body), nil
}

// extractMediaURL scans the page for the media meta tags in priority
// order (og:video, og:video:url, og:image, twitter:image), returning
// the content of the first tag present with HTML ampersand entities
// unescaped.
func extractMediaURL(page string) (string, error) {
	for _, pattern := range metaPatterns {
		groups := pattern.FindStringSubmatch(page)
		if groups == nil {
			continue
		}

		match := groups[1]
		if match == "" {
			match = groups[2]
		}

		return strings.ReplaceAll(match, "&amp;", "&"), nil
	}

	return "", ErrNoMediaFound
}

func (acquirer *fallbackAcquirer) downloadMedia(ctx context.Context, mediaURL string, workspace string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFallbackFetchFailed, err)
	}
	req.Header.Set("User-Agent", mediaUserAgent)

	resp, err := acquirer.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFallbackFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: media fetch status %d", ErrFallbackFetchFailed, resp.StatusCode)
	}

	// Reject on the declared size before reading the body at all; the
	// actual byte count is checked again below as Content-Length is
	// only advisory.
	if resp.ContentLength > acquirer.sizeCap {
		return ErrMediaTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, acquirer.sizeCap+1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFallbackFetchFailed, err)
	}

	if int64(len(body)) > acquirer.sizeCap {
		return ErrMediaTooLarge
	}

	ext := inferExtension(mediaURL, resp.Header.Get("Content-Type"))
	target := filepath.Join(workspace, fallbackFilename+ext)
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrFallbackFetchFailed, err)
	}

	return nil
}

// inferExtension infers a file extension for the media URL provided,
// preferring the URL path, then the Content-Type header, and finally
// defaulting to .gif.
func inferExtension(mediaURL string, contentType string) string {
	ext := path.Ext(strings.SplitN(strings.SplitN(mediaURL, "?", 2)[0], "#", 2)[0])

	// An extension longer than 5 characters is implausible and most
	// likely a misparse of the URL path.
	if ext != "" && len(ext) <= len(".")+5 {
		return strings.ToLower(ext)
	}

	if mimeType := strings.SplitN(contentType, ";", 2)[0]; mimeType != "" {
		if known, ok := contentTypeToExt[strings.TrimSpace(mimeType)]; ok {
			return known
		}
	}

	return ".gif"
}
