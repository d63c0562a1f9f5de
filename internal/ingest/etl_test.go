package ingest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/searchterm-insights/internal/config"
	"github.com/AngelCh415/searchterm-insights/internal/models"
	"github.com/AngelCh415/searchterm-insights/internal/store"
)

type countingRecorder struct{ stats []models.IngestStats }

func (r *countingRecorder) ObserveIngest(s models.IngestStats) { r.stats = append(r.stats, s) }

func newTestETL(t *testing.T, cfg config.Config) (*ETL, *store.MemoryStore, *countingRecorder) {
	t.Helper()
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 1 << 20
	}
	st := store.NewMemoryStore()
	rec := &countingRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewETL(NewHTTPClient(2*time.Second), st, log, cfg, rec)
	e.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e, st, rec
}

func reportBytes(t *testing.T) []byte {
	return buildWorkbook(t, map[string][][]any{"Search Terms": reportGrid}, "Search Terms")
}

func TestIngestBytes(t *testing.T) {
	e, st, rec := newTestETL(t, config.Config{})
	rep, existing, err := e.IngestBytes(context.Background(), "report.xlsx", reportBytes(t), "")
	require.NoError(t, err)
	assert.False(t, existing)

	assert.Equal(t, "report.xlsx", rep.Source)
	assert.Equal(t, "Search Terms", rep.Sheet)
	require.NotNil(t, rep.Currency)
	assert.Equal(t, "USD", *rep.Currency)
	assert.Equal(t, "Customer Search Term", rep.Columns[models.FieldSearchTerm])
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), rep.IngestedAt)

	assert.Equal(t, 3, rep.Stats.RowsRead)
	assert.Equal(t, 2, rep.Stats.RowsAccepted)
	assert.Equal(t, 1, rep.Stats.RejectReasons["summary_total"])
	require.Len(t, rep.Records, 2)
	assert.Equal(t, "2024-01-01", rep.Records[0].Date)
	assert.Equal(t, "blue widget", rep.Records[0].SearchTerm)
	assert.Equal(t, "2024-01-02", rep.Records[1].Date)

	got, err := st.Get(rep.ID)
	require.NoError(t, err)
	assert.Same(t, rep, got)
	assert.Len(t, rec.stats, 1)
}

func TestIngestBytesDedupes(t *testing.T) {
	e, st, rec := newTestETL(t, config.Config{})
	data := reportBytes(t)

	first, _, err := e.IngestBytes(context.Background(), "a.xlsx", data, "")
	require.NoError(t, err)
	second, existing, err := e.IngestBytes(context.Background(), "b.xlsx", data, "")
	require.NoError(t, err)

	assert.True(t, existing)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, st.All(), 1)
	assert.Len(t, rec.stats, 1)

	// A different sheet selection is a different ingestion.
	_, existing, err = e.IngestBytes(context.Background(), "a.xlsx", data, "Search Terms")
	require.NoError(t, err)
	assert.False(t, existing)
}

func TestIngestBytesBadWorkbook(t *testing.T) {
	e, _, _ := newTestETL(t, config.Config{})
	_, _, err := e.IngestBytes(context.Background(), "x", []byte("nope"), "")
	assert.Error(t, err)

	_, _, err = e.IngestBytes(context.Background(), "x", reportBytes(t), "Missing")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestIngestURL(t *testing.T) {
	data := reportBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	e, _, _ := newTestETL(t, config.Config{})
	rep, _, err := e.IngestURL(context.Background(), srv.URL+"/report.xlsx", "")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/report.xlsx", rep.Source)
	assert.Len(t, rep.Records, 2)
}

func TestExportSignsPayload(t *testing.T) {
	const secret = "s3cret"
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	e, _, _ := newTestETL(t, config.Config{SinkURL: srv.URL, SinkSecret: secret})
	s := models.Suggestions{Negation: []models.SuggestionRow{{Category: models.CategoryNegation, SearchTerm: "blue widget"}}}
	n, err := e.Export(context.Background(), "rep-1", s)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSig)

	var payload exportPayload
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "rep-1", payload.ReportID)
	assert.Equal(t, "blue widget", payload.Suggestions.Negation[0].SearchTerm)
}

func TestExportErrors(t *testing.T) {
	e, _, _ := newTestETL(t, config.Config{})
	_, err := e.Export(context.Background(), "rep-1", models.Suggestions{})
	assert.ErrorIs(t, err, ErrSinkNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer srv.Close()
	e, _, _ = newTestETL(t, config.Config{SinkURL: srv.URL, SinkSecret: "k"})

	n, err := e.Export(context.Background(), "rep-1", models.Suggestions{})
	require.NoError(t, err)
	assert.Zero(t, n, "nothing to send")

	_, err = e.Export(context.Background(), "rep-1", models.Suggestions{Harvest: []models.SuggestionRow{{}}})
	assert.Error(t, err)
}
