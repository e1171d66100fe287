package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforce/clinic-sim/internal/blob"
	"github.com/medforce/clinic-sim/pkg/logging"
)

type fakeRecords struct {
	data map[string][]byte
	keys []string
	err  error
}

func (f *fakeRecords) Read(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.data[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return b, nil
}

func (f *fakeRecords) List(_ context.Context, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.keys, nil
}

func patientsRouter(h *PatientsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/patients", h.HandleList)
	r.Get("/image/{patientID}/{file}", h.HandleImage)
	return r
}

func TestHandleList(t *testing.T) {
	store := &fakeRecords{keys: []string{
		"patient_data/omar-1/patient_profile.txt",
		"patient_data/omar-1/raw_data/referral_letter.png",
		"patient_data/sara-2/patient_profile.txt",
	}}
	r := patientsRouter(NewPatientsHandler(store, logging.New("error")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Patients []string `json:"patients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"omar-1", "sara-2"}, body.Patients)
}

func TestHandleListEmpty(t *testing.T) {
	r := patientsRouter(NewPatientsHandler(&fakeRecords{}, logging.New("error")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"patients": []}`, rec.Body.String())
}

func TestHandleImage(t *testing.T) {
	store := &fakeRecords{data: map[string][]byte{
		"patient_data/omar-1/raw_data/referral_letter.png": {0x89, 'P', 'N', 'G'},
	}}
	r := patientsRouter(NewPatientsHandler(store, logging.New("error")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/omar-1/referral_letter.png", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, rec.Body.Bytes())
}

func TestHandleImageNotFound(t *testing.T) {
	r := patientsRouter(NewPatientsHandler(&fakeRecords{}, logging.New("error")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/omar-1/missing.png", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleImageRejectsTraversal(t *testing.T) {
	store := &fakeRecords{data: map[string][]byte{
		"patient_data/omar-1/raw_data/..secret": {1},
	}}
	r := patientsRouter(NewPatientsHandler(store, logging.New("error")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/omar-1/..secret", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", contentTypeFor("scan.JPG"))
	assert.Equal(t, "text/plain; charset=utf-8", contentTypeFor("note.txt"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob.bin"))
}
