package event

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/auth"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/event/repo"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/upload"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRpixels")

type fixture struct {
	mux    *http.ServeMux
	store  *repo.MemoryRepo
	images *upload.DiskStore
	tokens *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repo.NewMemoryRepo()
	images, err := upload.NewDiskStore(upload.Config{Dir: t.TempDir(), MaxBytes: 1024})
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager(auth.Config{Secret: "test-secret", Expiry: time.Hour})
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	h := NewHandler(NewService(store, &seqIDs{}), images, logger)
	gate := auth.RequireAuth(tokens, logger)

	mux := http.NewServeMux()
	mux.Handle("POST /events", gate(http.HandlerFunc(h.Create)))
	mux.HandleFunc("GET /events", h.List)
	mux.HandleFunc("GET /events/{id}", h.Get)
	mux.Handle("PUT /events/{id}", gate(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /events/{id}", gate(http.HandlerFunc(h.Delete)))
	mux.Handle("GET "+upload.URLPrefix, images.Handler())
	return &fixture{mux: mux, store: store, images: images, tokens: tokens}
}

func (f *fixture) bearer(t *testing.T, accountID int64) string {
	t.Helper()
	token, err := f.tokens.Issue(accountID)
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *fixture) doJSON(t *testing.T, method, path string, body any, authz string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func eventBody(title string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "This is a test event",
		"address":     "123 Test St",
		"date":        "2025-02-22 10:00:00",
		"image":       "test1.jpg",
	}
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateRequiresAuth(t *testing.T) {
	f := newFixture(t)
	rec := f.doJSON(t, http.MethodPost, "/events", eventBody("Unauthorized Event"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.MsgHeaderMissing, decodeMap(t, rec)["message"])

	list, err := f.store.List(t.Context(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateGetFlow(t *testing.T) {
	f := newFixture(t)
	rec := f.doJSON(t, http.MethodPost, "/events", eventBody("Test Event 1"), f.bearer(t, 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeMap(t, rec)
	assert.Equal(t, float64(1), created["owner_id"])
	assert.Equal(t, "test1.jpg", created["image"])

	id := created["id"].(string)
	rec = f.doJSON(t, http.MethodGet, "/events/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Test Event 1", decodeMap(t, rec)["title"])

	rec = f.doJSON(t, http.MethodGet, "/events", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	body := eventBody("x")
	delete(body, "address")
	rec := f.doJSON(t, http.MethodPost, "/events", body, f.bearer(t, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgRequired, decodeMap(t, rec)["message"])

	body = eventBody("x")
	body["date"] = "next tuesday"
	rec = f.doJSON(t, http.MethodPost, "/events", body, f.bearer(t, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid date", decodeMap(t, rec)["message"])
}

func TestUpdateDeleteOwnership(t *testing.T) {
	f := newFixture(t)
	rec := f.doJSON(t, http.MethodPost, "/events", eventBody("Mine"), f.bearer(t, 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeMap(t, rec)["id"].(string)

	rec = f.doJSON(t, http.MethodPut, "/events/"+id, eventBody("Hijacked"), f.bearer(t, 2))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.doJSON(t, http.MethodDelete, "/events/"+id, nil, f.bearer(t, 2))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.doJSON(t, http.MethodPut, "/events/"+id, eventBody("Updated Event"), f.bearer(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Updated Event", decodeMap(t, rec)["title"])

	rec = f.doJSON(t, http.MethodDelete, "/events/"+id, nil, f.bearer(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Event deleted", decodeMap(t, rec)["message"])

	rec = f.doJSON(t, http.MethodGet, "/events/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDeleteMissing(t *testing.T) {
	f := newFixture(t)
	rec := f.doJSON(t, http.MethodPut, "/events/9999", eventBody("Non-existent Event"), f.bearer(t, 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found", decodeMap(t, rec)["message"])

	rec = f.doJSON(t, http.MethodDelete, "/events/9999", nil, f.bearer(t, 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRejectsBadPaging(t *testing.T) {
	f := newFixture(t)
	rec := f.doJSON(t, http.MethodGet, "/events?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.doJSON(t, http.MethodGet, "/events?offset=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "pic.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateMultipartWithImage(t *testing.T) {
	f := newFixture(t)
	fields := map[string]string{
		"title": "Party", "description": "fun", "address": "1 Main St", "date": "2025-02-22T10:00:00Z",
	}
	req := multipartRequest(t, http.MethodPost, "/events", fields, pngBytes)
	req.Header.Set("Authorization", f.bearer(t, 1))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	image, _ := decodeMap(t, rec)["image"].(string)
	require.True(t, strings.HasPrefix(image, upload.URLPrefix), image)

	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, image, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestCreateMultipartRejectsNonImage(t *testing.T) {
	f := newFixture(t)
	fields := map[string]string{
		"title": "Party", "description": "fun", "address": "1 Main St", "date": "2025-02-22",
	}
	req := multipartRequest(t, http.MethodPost, "/events", fields, []byte("plain text, not an image"))
	req.Header.Set("Authorization", f.bearer(t, 1))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestDeleteRemovesStoredImage(t *testing.T) {
	f := newFixture(t)
	fields := map[string]string{
		"title": "Party", "description": "fun", "address": "1 Main St", "date": "2025-02-22",
	}
	req := multipartRequest(t, http.MethodPost, "/events", fields, pngBytes)
	req.Header.Set("Authorization", f.bearer(t, 1))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeMap(t, rec)

	rec = f.doJSON(t, http.MethodDelete, "/events/"+created["id"].(string), nil, f.bearer(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, created["image"].(string), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func (f *fixture) createWithUpload(t *testing.T, accountID int64) map[string]any {
	t.Helper()
	fields := map[string]string{
		"title": "Party", "description": "fun", "address": "1 Main St", "date": "2025-02-22",
	}
	req := multipartRequest(t, http.MethodPost, "/events", fields, pngBytes)
	req.Header.Set("Authorization", f.bearer(t, accountID))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeMap(t, rec)
}

func (f *fixture) imageStatus(t *testing.T, path string) int {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code
}

func TestReferencedImageSurvivesOtherAccount(t *testing.T) {
	f := newFixture(t)
	image := f.createWithUpload(t, 1)["image"].(string)

	body := eventBody("Borrowed")
	body["image"] = image
	rec := f.doJSON(t, http.MethodPost, "/events", body, f.bearer(t, 2))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeMap(t, rec)["id"].(string)

	rec = f.doJSON(t, http.MethodPut, "/events/"+id, eventBody("Borrowed again"), f.bearer(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, f.imageStatus(t, image))

	body["image"] = image
	rec = f.doJSON(t, http.MethodPut, "/events/"+id, body, f.bearer(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.doJSON(t, http.MethodDelete, "/events/"+id, nil, f.bearer(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, f.imageStatus(t, image))
}

func TestUpdateReplacesOwnUpload(t *testing.T) {
	f := newFixture(t)
	created := f.createWithUpload(t, 1)
	id, image := created["id"].(string), created["image"].(string)

	rec := f.doJSON(t, http.MethodPut, "/events/"+id, eventBody("Same image"), f.bearer(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "test1.jpg", body["image"])
	assert.Equal(t, http.StatusNotFound, f.imageStatus(t, image))
}
