package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
	"github.com/kirillkom/ocr-backend/internal/core/ports"
	"github.com/kirillkom/ocr-backend/internal/observability/metrics"
)

// multipartMemoryLimit caps the in-memory part of multipart parsing; larger
// file parts spill to temp files.
const multipartMemoryLimit = 32 << 20

type Router struct {
	submitUC ports.JobSubmitter
	queryUC  ports.JobQueryService
	store    ports.JobStore
	opts     Options
}

type Options struct {
	Service        string
	APIKey         string
	MaxFileSize    int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	StoreBackend   string
	StoreDegraded  bool
	QueueEnabled   bool
	Metrics        *metrics.HTTPServerMetrics
}

func NewRouter(
	submitUC ports.JobSubmitter,
	queryUC ports.JobQueryService,
	store ports.JobStore,
	opts Options,
) *Router {
	return &Router{
		submitUC: submitUC,
		queryUC:  queryUC,
		store:    store,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.opts.Metrics != nil {
		mux.Handle("/metrics", rt.opts.Metrics.Handler())
	}
	mux.HandleFunc("/v1/ocr/jobs", rt.submitJob)
	mux.HandleFunc("/v1/ocr/jobs/", rt.jobSubresource)

	var handler http.Handler = mux
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(rt.opts.Service, handler)
	}
	if rt.opts.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.opts.MaxConcurrent, time.Second)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	if rt.opts.APIKey != "" {
		handler = apiKeyMiddleware(handler, rt.opts.APIKey)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	storeState := "ok"
	degraded := rt.opts.StoreDegraded
	if err := rt.store.Ping(r.Context()); err != nil {
		degraded = true
	}
	if degraded {
		storeState = "degraded"
	}

	queueState := "disabled"
	if rt.opts.QueueEnabled {
		queueState = "ok"
	}

	status := "ok"
	if degraded {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"store":  rt.opts.StoreBackend,
		"components": map[string]string{
			"api":   "ok",
			"store": storeState,
			"queue": queueState,
		},
	})
}

func (rt *Router) submitJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if rt.opts.MaxFileSize > 0 {
		// Leave headroom for the multipart framing around the file part.
		r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxFileSize+multipartMemoryLimit)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
			err = domain.WrapError(domain.ErrInvalidInput, "parse upload", err)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	defer file.Close()

	opts := domain.DefaultOCROptions()
	if raw := strings.TrimSpace(r.FormValue("options")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "options field is not valid json"})
			return
		}
	}

	upload := domain.Upload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
	}

	// A request id in the form wins over the generated/propagated header one.
	requestID := strings.TrimSpace(r.FormValue("request_id"))
	if requestID == "" {
		requestID = requestIDFromContext(r.Context())
	}

	job, err := rt.submitUC.Submit(r.Context(), upload, file, opts, requestID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordUploadSize(rt.opts.Service, upload.Size)
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) jobSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/ocr/jobs/")
	jobID, sub, _ := strings.Cut(rest, "/")
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodDelete:
		rt.deleteJob(w, r, jobID)
	case sub == "status" && r.Method == http.MethodGet:
		rt.jobStatus(w, r, jobID)
	case sub == "result" && r.Method == http.MethodGet:
		rt.jobResult(w, r, jobID)
	case sub == "" || sub == "status" || sub == "result":
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

func (rt *Router) jobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := rt.queryUC.Status(r.Context(), jobID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) jobResult(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := rt.queryUC.Result(r.Context(), jobID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) deleteJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := rt.queryUC.Remove(r.Context(), jobID); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
