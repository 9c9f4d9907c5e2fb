// AngelaMos | 2026
// handler_test.go

package purchase_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/studentshelf/internal/catalog"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/credential"
	"github.com/carterperez-dev/studentshelf/internal/payment"
	"github.com/carterperez-dev/studentshelf/internal/purchase"
)

func newTestRouter(t *testing.T) (*chi.Mux, *store) {
	t.Helper()

	st := newStore()
	creds, err := credential.NewService(testSecret, st)
	require.NoError(t, err)

	svc := purchase.NewService(purchase.ServiceConfig{
		Repo:        st,
		Tx:          st.runTx,
		Catalog:     st,
		Credentials: creds,
		Provider:    payment.OfflineProvider{},
	})

	r := chi.NewRouter()
	purchase.NewHandler(svc).RegisterRoutes(r)
	return r, st
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) core.ErrorBody {
	t.Helper()
	var body core.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.False(t, body.Success)
	require.NotNil(t, body.Error)
	return *body.Error
}

func TestPurchaseHandlerRejectsBadEmail(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ebooks/any/purchase", strings.NewReader(`{"email":"nope"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "valid email")
}

func TestPurchaseHandlerUnpublishedIsUnavailable(t *testing.T) {
	r, st := newTestRouter(t)
	draft := uuid.NewString()
	st.ebooks[draft] = catalog.Ebook{ID: draft, Status: catalog.StatusDraft}

	req := httptest.NewRequest(http.MethodPost, "/ebooks/"+draft+"/purchase", strings.NewReader(`{"email":"bob@example.com"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ITEM_UNAVAILABLE", decodeError(t, rec).Code)
}

func TestDownloadHandlerDeniesUniformly(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, target := range []string{
		"/ebooks/missing/download",
		"/ebooks/missing/download?email=bob@example.com&secret=abc",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "ACCESS_DENIED", body.Code)
		assert.Equal(t, "invalid download credentials", body.Message)
	}
}

func TestMalformedEbookIDKeepsErrorContract(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{
			name:   "download with credentials",
			method: http.MethodGet,
			target: "/ebooks/not-a-uuid/download?email=bob@example.com&secret=abc",
			status: http.StatusForbidden,
			code:   "ACCESS_DENIED",
		},
		{
			name:   "download with valid id",
			method: http.MethodGet,
			target: "/ebooks/" + uuid.NewString() + "/download?email=bob@example.com&secret=abc",
			status: http.StatusForbidden,
			code:   "ACCESS_DENIED",
		},
		{
			name:   "purchase",
			method: http.MethodPost,
			target: "/ebooks/not-a-uuid/purchase",
			body:   `{"email":"bob@example.com"}`,
			status: http.StatusNotFound,
			code:   "ITEM_UNAVAILABLE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
}

func TestNotificationHandlerRejectsUnsigned(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(
		http.MethodPost,
		"/payments/midtrans/notification",
		strings.NewReader(`{"order_id":"ORD-20260101-AAAAAAAA","transaction_status":"settlement"}`),
	)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
