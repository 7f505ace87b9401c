package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/ytcache/cache"
	appmw "github.com/briangreenhill/ytcache/internal/http/middleware"
	"github.com/briangreenhill/ytcache/internal/proxy"
	"github.com/briangreenhill/ytcache/internal/warm"
)

// maxWarmBody bounds the POST /admin/warm request body.
const maxWarmBody = 1 << 20

// Resolver is satisfied by *proxy.Service.
type Resolver interface {
	Resolve(ctx context.Context, req proxy.Request) (*proxy.Result, error)
}

type Server struct {
	Router   *chi.Mux
	Proxy    Resolver
	Enqueuer warm.Enqueuer
}

type ServerOptions struct {
	Proxy  Resolver
	CORS   appmw.CORS
	Logger zerolog.Logger
	// Enqueuer and CronSecret together enable POST /admin/warm.
	Enqueuer   warm.Enqueuer
	CronSecret string
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.RealIP)
	r.Use(recoverer)
	r.Use(opts.CORS.Handler)

	s := &Server{Router: r, Proxy: opts.Proxy, Enqueuer: opts.Enqueuer}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("write health check response")
		}
	})

	if opts.Enqueuer != nil && opts.CronSecret != "" {
		r.Group(func(pr chi.Router) {
			pr.Use(appmw.RequireCronSecret(opts.CronSecret))
			pr.Post("/admin/warm", s.handleWarm)
		})
	}

	r.Get("/*", s.handleProxy)

	return s
}

// handleProxy serves GET /.../{endpoint}. The partition handle comes from
// the handle query parameter, else the X-YouTube-Handle header.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	handle := r.Header.Get(cache.PartitionHeader)
	if params.Has(cache.PartitionParam) {
		handle = params.Get(cache.PartitionParam)
	}

	res, err := s.Proxy.Resolve(r.Context(), proxy.Request{
		Endpoint: endpointFromPath(r.URL.Path),
		Params:   params,
		Handle:   handle,
	})

	var pt *proxy.PassThroughError
	switch {
	case err == nil:
		writeBody(w, r, http.StatusOK, res.ContentType, res.Provenance, res.Body)
	case errors.Is(err, cache.ErrForbiddenEndpoint):
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Endpoint not allowed"))
	case errors.As(err, &pt):
		hlog.FromRequest(r).Warn().Int("upstream_status", pt.Upstream.StatusCode).Msg("upstream error passed through")
		writeBody(w, r, pt.Upstream.StatusCode, pt.Upstream.ContentType, pt.Provenance, pt.Upstream.Body)
	default:
		writeEdgeFailed(w, r, err)
	}
}

// endpointFromPath returns the last path segment, empty for a trailing slash.
func endpointFromPath(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}

func writeBody(w http.ResponseWriter, r *http.Request, status int, contentType, provenance string, body []byte) {
	if contentType == "" {
		contentType = cache.DefaultContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Cache", provenance)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("write response body")
	}
}

type edgeFailure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeEdgeFailed(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	writeJSON(w, r, http.StatusInternalServerError, edgeFailure{Error: "edge_failed", Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("write json response")
	}
}

// recoverer turns a panic into the edge_failed envelope. A panic after the
// response has started is only logged.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				if ww.Status() != 0 {
					hlog.FromRequest(r).Error().Err(err).Int("status", ww.Status()).Msg("panic after response started")
					return
				}
				writeEdgeFailed(ww, r, err)
			}
		}()
		next.ServeHTTP(ww, r)
	})
}

type warmResponse struct {
	BatchID  string `json:"batch_id"`
	Enqueued int    `json:"enqueued"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleWarm(w http.ResponseWriter, r *http.Request) {
	var batch warm.Batch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWarmBody)).Decode(&batch); err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
		return
	}

	batchID, n, err := warm.Enqueue(r.Context(), s.Enqueuer, batch)
	switch {
	case errors.Is(err, warm.ErrEmptyBatch), errors.Is(err, cache.ErrForbiddenEndpoint):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("batch_id", batchID).Int("enqueued", n).Msg("enqueue warm batch")
		writeEdgeFailed(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Str("batch_id", batchID).Int("enqueued", n).Msg("warm batch enqueued")
	writeJSON(w, r, http.StatusAccepted, warmResponse{BatchID: batchID, Enqueued: n})
}
