package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/searchterm-insights/internal/ingest"
	"github.com/AngelCh415/searchterm-insights/internal/metrics"
	"github.com/AngelCh415/searchterm-insights/internal/store"
	"github.com/AngelCh415/searchterm-insights/internal/utils"
)

type Options struct {
	Gatherer       prometheus.Gatherer
	CORSOrigins    []string
	MaxUploadBytes int64
}

func NewRouter(log *slog.Logger, etl *ingest.ETL, st *store.MemoryStore, mSvc *metrics.Service, opt Options) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opt.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	if opt.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opt.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/reports", func(rt chi.Router) {
		rt.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, st.All())
		})

		rt.Post("/", func(w http.ResponseWriter, r *http.Request) {
			data, name, err := readUpload(w, r, opt.MaxUploadBytes)
			if err != nil {
				code := http.StatusBadRequest
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					code = http.StatusRequestEntityTooLarge
				}
				http.Error(w, err.Error(), code)
				return
			}
			rep, existing, err := etl.IngestBytes(r.Context(), name, data, r.URL.Query().Get("sheet"))
			if err != nil {
				writeError(w, log, err, http.StatusUnprocessableEntity)
				return
			}
			writeJSON(w, ingestStatus(existing), rep)
		})

		rt.Post("/fetch", func(w http.ResponseWriter, r *http.Request) {
			u := r.URL.Query().Get("url")
			if u == "" {
				http.Error(w, "url required", http.StatusBadRequest)
				return
			}
			rep, existing, err := etl.IngestURL(r.Context(), u, r.URL.Query().Get("sheet"))
			if err != nil {
				writeError(w, log, err, http.StatusBadGateway)
				return
			}
			writeJSON(w, ingestStatus(existing), rep)
		})

		rt.Route("/{id}", func(rr chi.Router) {
			rr.Get("/", func(w http.ResponseWriter, r *http.Request) {
				rep, err := st.Get(chi.URLParam(r, "id"))
				if err != nil {
					writeError(w, log, err, http.StatusInternalServerError)
					return
				}
				writeJSON(w, http.StatusOK, rep)
			})

			rr.Delete("/", func(w http.ResponseWriter, r *http.Request) {
				if err := st.Delete(chi.URLParam(r, "id")); err != nil {
					writeError(w, log, err, http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			rr.Get("/records", func(w http.ResponseWriter, r *http.Request) {
				page, err := mSvc.QueryRecords(chi.URLParam(r, "id"), r.URL.Query())
				if err != nil {
					writeError(w, log, err, http.StatusInternalServerError)
					return
				}
				writeJSON(w, http.StatusOK, page)
			})

			rr.Get("/facets", func(w http.ResponseWriter, r *http.Request) {
				f, err := mSvc.Facets(chi.URLParam(r, "id"))
				if err != nil {
					writeError(w, log, err, http.StatusInternalServerError)
					return
				}
				writeJSON(w, http.StatusOK, f)
			})

			rr.Get("/suggestions", func(w http.ResponseWriter, r *http.Request) {
				s, err := mSvc.QuerySuggestions(chi.URLParam(r, "id"), r.URL.Query())
				if err != nil {
					writeError(w, log, err, http.StatusInternalServerError)
					return
				}
				writeJSON(w, http.StatusOK, s)
			})

			rr.Post("/export", func(w http.ResponseWriter, r *http.Request) {
				id := chi.URLParam(r, "id")
				s, err := mSvc.QuerySuggestions(id, r.URL.Query())
				if err != nil {
					writeError(w, log, err, http.StatusInternalServerError)
					return
				}
				n, err := etl.Export(r.Context(), id, s)
				if err != nil {
					writeError(w, log, err, http.StatusBadGateway)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"exported": n})
			})
		})
	})

	return mux
}

func ingestStatus(existing bool) int {
	if existing {
		return http.StatusOK
	}
	return http.StatusCreated
}

// readUpload accepts either a multipart form with a "file" field or a raw
// body. Any other content type, form-urlencoded included, is read raw.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, string, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mt == "multipart/form-data" {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		return b, hdr.Filename, err
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	if len(b) == 0 {
		return nil, "", errors.New("empty body")
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.xlsx"
	}
	return b, name, nil
}

// writeError maps known errors to status codes; anything else gets fallback.
func writeError(w http.ResponseWriter, log *slog.Logger, err error, fallback int) {
	code := fallback
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, metrics.ErrInvalidQuery):
		code = http.StatusBadRequest
	case errors.Is(err, ingest.ErrSinkNotConfigured):
		code = http.StatusServiceUnavailable
	case errors.Is(err, ingest.ErrNoSheets), errors.Is(err, ingest.ErrEmptySheet), errors.Is(err, ingest.ErrSheetNotFound):
		code = http.StatusUnprocessableEntity
	}
	if code >= 500 {
		log.Error("request failed", slog.String("err", err.Error()), slog.Int("status", code))
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
