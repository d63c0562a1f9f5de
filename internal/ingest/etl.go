package ingest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/searchterm-insights/internal/config"
	"github.com/AngelCh415/searchterm-insights/internal/models"
	"github.com/AngelCh415/searchterm-insights/internal/normalize"
	"github.com/AngelCh415/searchterm-insights/internal/resolver"
	"github.com/AngelCh415/searchterm-insights/internal/store"
)

// Recorder observes finished ingestions.
type Recorder interface {
	ObserveIngest(stats models.IngestStats)
}

type ETL struct {
	c   HTTPClient
	f   *Fetcher
	st  *store.MemoryStore
	log *slog.Logger
	cfg config.Config
	rec Recorder
	now func() time.Time
}

func NewETL(c HTTPClient, st *store.MemoryStore, log *slog.Logger, cfg config.Config, rec Recorder) *ETL {
	return &ETL{
		c:   c,
		f:   NewFetcher(c, cfg.MaxUploadBytes),
		st:  st,
		log: log,
		cfg: cfg,
		rec: rec,
		now: time.Now,
	}
}

// IngestBytes decodes and normalizes a workbook. Identical bytes return the
// report stored the first time, with existing set.
func (e *ETL) IngestBytes(ctx context.Context, source string, data []byte, sheet string) (rep *models.Report, existing bool, err error) {
	sum := sha256.Sum256(append([]byte(sheet+"\x00"), data...))
	hash := hex.EncodeToString(sum[:])
	if id, ok := e.st.Lookup(hash); ok {
		rep, err := e.st.Get(id)
		if err == nil {
			e.log.Info("ingest skipped, already seen", slog.String("report_id", id), slog.String("source", source))
			return rep, true, nil
		}
	}

	wb, err := ReadWorkbook(bytes.NewReader(data), sheet)
	if err != nil {
		return nil, false, err
	}
	rep, err = e.Run(ctx, source, wb)
	if err != nil {
		return nil, false, err
	}
	if id, fresh := e.st.Put(hash, rep); !fresh {
		prev, gerr := e.st.Get(id)
		if gerr == nil {
			return prev, true, nil
		}
	}
	return rep, false, nil
}

// IngestURL fetches a workbook and ingests it.
func (e *ETL) IngestURL(ctx context.Context, url, sheet string) (*models.Report, bool, error) {
	data, err := e.f.Fetch(ctx, url)
	if err != nil {
		return nil, false, err
	}
	return e.IngestBytes(ctx, url, data, sheet)
}

// Run resolves columns, detects the currency and normalizes every row of wb.
// The column resolution cache lives only for this call.
func (e *ETL) Run(ctx context.Context, source string, wb Workbook) (*models.Report, error) {
	res := resolver.New(resolver.Vocabulary(wb.Rows))
	cols := res.ResolveAll(resolver.Specs)
	for _, s := range resolver.Specs {
		if _, ok := cols[s.Field]; !ok {
			e.log.Warn("column unresolved", slog.String("field", s.Field), slog.String("fallback", s.Default))
		}
	}

	out, err := normalize.New(cols, normalize.WithWorkers(e.cfg.NormalizeWorkers)).All(ctx, wb.Rows)
	if err != nil {
		return nil, err
	}

	rep := &models.Report{
		ID:         uuid.NewString(),
		Source:     source,
		Sheet:      wb.Sheet,
		Sheets:     wb.Sheets,
		Currency:   resolver.DetectCurrency(wb.Rows),
		Columns:    cols,
		Stats:      out.Stats,
		IngestedAt: e.now().UTC(),
		Records:    out.Records,
	}
	if e.rec != nil {
		e.rec.ObserveIngest(rep.Stats)
	}
	e.log.Info("ingest complete",
		slog.String("report_id", rep.ID),
		slog.String("sheet", rep.Sheet),
		slog.Int("rows_read", rep.Stats.RowsRead),
		slog.Int("rows_accepted", rep.Stats.RowsAccepted),
		slog.Int("rows_rejected", rep.Stats.RowsRejected))
	return rep, nil
}

var ErrSinkNotConfigured = errors.New("sink not configured")

type exportPayload struct {
	ReportID    string             `json:"report_id"`
	ExportedAt  time.Time          `json:"exported_at"`
	Suggestions models.Suggestions `json:"suggestions"`
}

// Export posts the suggestion lists of a report to the sink, signed with
// HMAC-SHA256 in X-Signature. It returns the number of rows sent.
func (e *ETL) Export(ctx context.Context, reportID string, s models.Suggestions) (int, error) {
	if e.cfg.SinkURL == "" || e.cfg.SinkSecret == "" {
		return 0, ErrSinkNotConfigured
	}
	n := len(s.Negation) + len(s.Harvest) + len(s.BidUp) + len(s.BidDown)
	if n == 0 {
		return 0, nil
	}
	b, err := json.Marshal(exportPayload{ReportID: reportID, ExportedAt: e.now().UTC(), Suggestions: s})
	if err != nil {
		return 0, err
	}
	mac := hmac.New(sha256.New, []byte(e.cfg.SinkSecret))
	mac.Write(b)
	sig := hex.EncodeToString(mac.Sum(nil))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.SinkURL, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sig)
	resp, err := e.c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, errors.New("export sink non-2xx")
	}
	e.log.Info("export complete", slog.String("report_id", reportID), slog.Int("rows", n))
	return n, nil
}
