package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "opodata/internal/errors"
	"opodata/pkg/contracts/domain"
)

type fakeStore struct {
	envelopes map[string]*domain.Envelope
	tiers     *domain.TierEnvelope
	readErr   error
}

func (f *fakeStore) ReadEnvelope(source string) (*domain.Envelope, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	envelope, ok := f.envelopes[source]
	if !ok {
		return nil, apperrors.NewNotFoundError("dataset " + source)
	}
	return envelope, nil
}

func (f *fakeStore) ReadTierEnvelope() (*domain.TierEnvelope, error) {
	if f.tiers == nil {
		return nil, apperrors.NewNotFoundError("tier history dataset")
	}
	return f.tiers, nil
}

func storeWithMerged(opos ...domain.OPO) *fakeStore {
	envelope := domain.NewEnvelope(domain.SourceMerged, opos)
	return &fakeStore{envelopes: map[string]*domain.Envelope{
		domain.SourceMerged: &envelope,
	}}
}

func serve(t *testing.T, store DatasetReader, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(RouterOptions{Store: store})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestGetMerged(t *testing.T) {
	store := storeWithMerged(domain.OPO{DSACode: "ALOB"}, domain.OPO{DSACode: "TXGC"})

	rec := serve(t, store, http.MethodGet, "/api/opos")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope domain.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, domain.SourceMerged, envelope.Metadata.Source)
	assert.Len(t, envelope.OPOs, 2)
}

func TestGetMerged_NoDatasetYet(t *testing.T) {
	rec := serve(t, &fakeStore{}, http.MethodGet, "/api/opos")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOPO(t *testing.T) {
	store := storeWithMerged(domain.OPO{DSACode: "ALOB"}, domain.OPO{DSACode: "TXGC"})

	rec := serve(t, store, http.MethodGet, "/api/opos/txgc")
	require.Equal(t, http.StatusOK, rec.Code, "codes match case-insensitively")

	var opo domain.OPO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opo))
	assert.Equal(t, "TXGC", opo.DSACode)
}

func TestGetOPO_UnknownCode(t *testing.T) {
	store := storeWithMerged(domain.OPO{DSACode: "ALOB"})

	rec := serve(t, store, http.MethodGet, "/api/opos/ZZZZ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOPO_MalformedCode(t *testing.T) {
	store := storeWithMerged(domain.OPO{DSACode: "ALOB"})

	rec := serve(t, store, http.MethodGet, "/api/opos/AL1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_DSA_CODE")
}

func TestGetSource(t *testing.T) {
	envelope := domain.NewEnvelope(domain.SourceHRSA, []domain.OPO{{DSACode: "ALOB"}})
	store := &fakeStore{envelopes: map[string]*domain.Envelope{
		domain.SourceHRSA: &envelope,
	}}

	rec := serve(t, store, http.MethodGet, "/api/sources/hrsa")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.SourceHRSA, got.Metadata.Source)
}

func TestGetSource_UnknownKey(t *testing.T) {
	rec := serve(t, &fakeStore{}, http.MethodGet, "/api/sources/bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_SOURCE")
}

func TestGetTierHistory(t *testing.T) {
	store := &fakeStore{tiers: &domain.TierEnvelope{
		Metadata: domain.Metadata{Source: domain.SourceCMSTier, Count: 1},
		Records:  []domain.TierRecord{{DSACode: "ALOB"}},
	}}

	rec := serve(t, store, http.MethodGet, "/api/tier-history")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.TierEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Records, 1)
}

func TestGetMerged_StorageFailure(t *testing.T) {
	store := &fakeStore{readErr: apperrors.NewStorageError("disk gone", nil)}

	rec := serve(t, store, http.MethodGet, "/api/opos")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	store := storeWithMerged(domain.OPO{DSACode: "ALOB"})

	rec := serve(t, store, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Status   string          `json:"status"`
		Version  string          `json:"version"`
		Datasets map[string]bool `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.NotEmpty(t, payload.Version)
	assert.True(t, payload.Datasets[domain.SourceMerged])
	assert.False(t, payload.Datasets[domain.SourceBase])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &fakeStore{}, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
