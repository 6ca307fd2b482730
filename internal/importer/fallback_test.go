package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSizeCap = 1024

func pageWith(metaTags ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head>")
		for _, tag := range metaTags {
			fmt.Fprint(w, tag)
		}

		fmt.Fprint(w, "</head><body>hello</body></html>")
	}
}

func Test_Fallback_DownloadsScrapedMedia(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mediaPayload := []byte("GIF89a-not-really")
	mux.HandleFunc("/media.gif", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write(mediaPayload)
	})
	mux.HandleFunc("/post", pageWith(
		`<meta property="og:image" content="`+server.URL+`/media.gif"/>`,
	))

	workspace := t.TempDir()
	acquirer := NewFallbackAcquirer(server.Client(), testSizeCap)
	err := acquirer.Acquire(context.Background(), server.URL+"/post", workspace)

	assert.Nil(t, err)
	stored, readErr := os.ReadFile(filepath.Join(workspace, "fallback-download.gif"))
	assert.Nil(t, readErr)
	assert.Equal(t, mediaPayload, stored)
}

func Test_Fallback_PrefersVideoTagOverImage(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4-bytes"))
	})
	mux.HandleFunc("/still.gif", func(w http.ResponseWriter, r *http.Request) {
		t.Error("image fetched despite a video tag being present")
	})
	mux.HandleFunc("/post", pageWith(
		`<meta name="twitter:image" content="`+server.URL+`/still.gif"/>`,
		`<meta property="og:video" content="`+server.URL+`/clip.mp4"/>`,
	))

	workspace := t.TempDir()
	acquirer := NewFallbackAcquirer(server.Client(), testSizeCap)
	err := acquirer.Acquire(context.Background(), server.URL+"/post", workspace)

	assert.Nil(t, err)
	assert.FileExists(t, filepath.Join(workspace, "fallback-download.mp4"))
}

func Test_Fallback_ReversedAttributeOrder(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/media.webp", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("webp-bytes"))
	})
	mux.HandleFunc("/post", pageWith(
		`<meta content="`+server.URL+`/media.webp" property="og:image"/>`,
	))

	workspace := t.TempDir()
	acquirer := NewFallbackAcquirer(server.Client(), testSizeCap)
	err := acquirer.Acquire(context.Background(), server.URL+"/post", workspace)

	assert.Nil(t, err)
	assert.FileExists(t, filepath.Join(workspace, "fallback-download.webp"))
}

func Test_Fallback_UnescapesAmpersandEntities(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/media.gif", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "b", r.URL.Query().Get("a"))
		assert.Equal(t, "d", r.URL.Query().Get("c"))
		_, _ = w.Write([]byte("bytes"))
	})
	mux.HandleFunc("/post", pageWith(
		`<meta property="og:image" content="`+server.URL+`/media.gif?a=b&amp;c=d"/>`,
	))

	workspace := t.TempDir()
	acquirer := NewFallbackAcquirer(server.Client(), testSizeCap)
	err := acquirer.Acquire(context.Background(), server.URL+"/post", workspace)

	assert.Nil(t, err)
	assert.FileExists(t, filepath.Join(workspace, "fallback-download.gif"))
}

func Test_Fallback_NoMediaTags(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(pageWith(`<meta property="og:title" content="just a title"/>`))
	defer server.Close()

	acquirer := NewFallbackAcquirer(server.Client(), testSizeCap)
	err := acquirer.Acquire(context.Background(), server.URL, t.TempDir())

	assert.ErrorIs(t, err, ErrNoMediaFound)
}

func Test_Fallback_PageFetchFailure(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	acquirer := NewFallbackAcquirer(server.Client(), testSizeCap)
	err := acquirer.Acquire(context.Background(), server.URL, t.TempDir())

	assert.ErrorIs(t, err, ErrFallbackFetchFailed)
}

func Test_Fallback_DeclaredSizeOverCap(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	oversized := make([]byte, testSizeCap*4)
	mux.HandleFunc("/media.gif", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(oversized)))
		_, _ = w.Write(oversized)
	})
	mux.HandleFunc("/post", pageWith(
		`<meta property="og:image" content="`+server.URL+`/media.gif"/>`,
	))

	workspace := t.TempDir()
	acquirer := NewFallbackAcquirer(server.Client(), testSizeCap)
	err := acquirer.Acquire(context.Background(), server.URL+"/post", workspace)

	assert.ErrorIs(t, err, ErrMediaTooLarge)
	assert.NoFileExists(t, filepath.Join(workspace, "fallback-download.gif"))
}

func Test_Fallback_ActualSizeOverCap(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/media.gif", func(w http.ResponseWriter, r *http.Request) {
		// Flush to force chunked encoding so no Content-Length is
		// declared; only the post-read check can catch this one.
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write(make([]byte, testSizeCap*2))
	})
	mux.HandleFunc("/post", pageWith(
		`<meta property="og:image" content="`+server.URL+`/media.gif"/>`,
	))

	workspace := t.TempDir()
	acquirer := NewFallbackAcquirer(server.Client(), testSizeCap)
	err := acquirer.Acquire(context.Background(), server.URL+"/post", workspace)

	assert.ErrorIs(t, err, ErrMediaTooLarge)
	assert.NoFileExists(t, filepath.Join(workspace, "fallback-download.gif"))
}

func Test_Fallback_ExtensionFromContentType(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/media", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4-bytes"))
	})
	mux.HandleFunc("/post", pageWith(
		`<meta property="og:image" content="`+server.URL+`/media"/>`,
	))

	workspace := t.TempDir()
	acquirer := NewFallbackAcquirer(server.Client(), testSizeCap)
	err := acquirer.Acquire(context.Background(), server.URL+"/post", workspace)

	assert.Nil(t, err)
	assert.FileExists(t, filepath.Join(workspace, "fallback-download.mp4"))
}

func Test_InferExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		url         string
		contentType string
		expected    string
	}{
		{"from url path", "https://cdn.example.com/a/b/clip.mp4", "", ".mp4"},
		{"url wins over content type", "https://cdn.example.com/x.webp", "image/gif", ".webp"},
		{"query stripped", "https://cdn.example.com/x.gif?sig=abcdef", "", ".gif"},
		{"fragment stripped", "https://cdn.example.com/x.gif#frame", "", ".gif"},
		{"uppercase lowered", "https://cdn.example.com/X.GIF", "", ".gif"},
		{"implausibly long ext falls through", "https://cdn.example.com/v2.0.123456789", "image/webp", ".webp"},
		{"content type with charset", "https://cdn.example.com/media", "image/gif; charset=binary", ".gif"},
		{"unknown content type defaults", "https://cdn.example.com/media", "application/octet-stream", ".gif"},
		{"nothing known defaults", "https://cdn.example.com/media", "", ".gif"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, inferExtension(test.url, test.contentType))
		})
	}
}
