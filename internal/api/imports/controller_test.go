package imports_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sratabix/gifselector/internal/api/imports"
	"github.com/sratabix/gifselector/internal/importer"
	"github.com/stretchr/testify/assert"
)

type fakeImportService struct {
	receivedURLs []string
	results      []importer.ImportResult
}

func (service *fakeImportService) Import(_ context.Context, urls []string, _ *uuid.UUID) []importer.ImportResult {
	service.receivedURLs = urls
	return service.results
}

type anonymousAuth struct{}

func (anonymousAuth) GetUserIDFromContext(echo.Context) (*uuid.UUID, error) {
	return nil, nil
}

func (anonymousAuth) GetJwtVerifierMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}

func performRequest(t *testing.T, controller *imports.Controller, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	group := e.Group("/imports")
	controller.SetRoutes(group)

	req := httptest.NewRequest(http.MethodPost, "/imports/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func Test_Create_ReturnsPerURLResults(t *testing.T) {
	t.Parallel()

	service := &fakeImportService{results: []importer.ImportResult{
		{URL: "https://example.com/a", Success: true, Slug: "abc123defg"},
		{URL: "https://forbidden.net/b", Success: false, Error: "domain is not on the allow-list"},
	}}
	controller := imports.New(service, anonymousAuth{})

	rec := performRequest(t, controller, `{"urls": ["https://example.com/a", "https://forbidden.net/b"]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"https://example.com/a", "https://forbidden.net/b"}, service.receivedURLs)

	var response struct {
		Results []importer.ImportResult `json:"results"`
	}
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, service.results, response.Results)
}

func Test_Create_EmptyURLArrayIsAccepted(t *testing.T) {
	t.Parallel()

	service := &fakeImportService{results: []importer.ImportResult{}}
	controller := imports.New(service, anonymousAuth{})

	rec := performRequest(t, controller, `{"urls": []}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, service.receivedURLs)
}

func Test_Create_MalformedBodyRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "this is not json"},
		{"urls missing", `{"other": 1}`},
		{"urls not an array", `{"urls": "https://example.com/a"}`},
		{"urls not strings", `{"urls": [1, 2, 3]}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			service := &fakeImportService{}
			controller := imports.New(service, anonymousAuth{})

			rec := performRequest(t, controller, test.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, service.receivedURLs)
		})
	}
}
