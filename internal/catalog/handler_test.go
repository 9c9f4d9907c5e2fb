// AngelaMos | 2026
// handler_test.go

package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carterperez-dev/studentshelf/internal/blob"
	"github.com/carterperez-dev/studentshelf/internal/catalog"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/middleware"
	"github.com/carterperez-dev/studentshelf/internal/notify/mocks"
	"github.com/carterperez-dev/studentshelf/internal/testutil"
)

const maxEbookBytes = 2 << 20

func asAuthor(id string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newCatalogRouter(t *testing.T) (*chi.Mux, *memoryRepo) {
	t.Helper()

	repo := &memoryRepo{ebooks: map[string]catalog.Ebook{}}
	svc := catalog.NewService(catalog.ServiceConfig{
		Repo:     repo,
		Blobs:    blob.NewMemoryStore(),
		Folder:   "ebooks",
		Notifier: mocks.NewMockNotifier(gomock.NewController(t)),
		Authors:  authorDirectory{"author-1": "writer@example.com"},
	})
	h := catalog.NewHandler(svc, 1<<20, maxEbookBytes)

	r := chi.NewRouter()
	r.Use(asAuthor("author-1"))
	h.RegisterRoutes(r)
	h.RegisterAuthorRoutes(r)
	r.Route("/admin", h.RegisterAdminRoutes)
	return r, repo
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body core.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

var ebookFields = map[string]string{
	"title":      "Linear Algebra Notes",
	"base_price": "20.00",
}

func TestCreateHandlerAcceptsPDF(t *testing.T) {
	r, repo := newCatalogRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range ebookFields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", "notes.pdf")
	require.NoError(t, err)
	_, err = part.Write(pdfBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/author/ebooks", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, repo.ebooks, 1)
}

func TestCreateHandlerStopsReadingOversizedFile(t *testing.T) {
	r, repo := newCatalogRouter(t)

	body, contentType := testutil.StreamingUpload(ebookFields, "file", "notes.pdf", 128<<20)
	req := httptest.NewRequest(http.MethodPost, "/author/ebooks", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	assert.LessOrEqual(t, body.N, int64(maxEbookBytes)+core.MultipartOverhead+1)
	assert.Empty(t, repo.ebooks)
}

func TestMalformedEbookIDIsNotFound(t *testing.T) {
	r, _ := newCatalogRouter(t)

	tests := []struct {
		method string
		target string
		body   string
	}{
		{http.MethodGet, "/ebooks/not-a-uuid", ""},
		{http.MethodPost, "/author/ebooks/not-a-uuid/submit", ""},
		{http.MethodPut, "/admin/ebooks/not-a-uuid/review", `{"status":"published"}`},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body)))

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
		})
	}
}
