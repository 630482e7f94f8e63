// Package handlers provides HTTP handlers for the tracker API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/api/middleware"
	"github.com/careflow/medtrack/internal/domain/medication"
	"github.com/careflow/medtrack/internal/filestore"
	"github.com/careflow/medtrack/internal/observability/metrics"
	"github.com/careflow/medtrack/internal/store"
	"github.com/careflow/medtrack/internal/tracker"
	"github.com/careflow/medtrack/internal/tracker/gateway"
	"github.com/careflow/medtrack/internal/tracker/views"
	"github.com/careflow/medtrack/internal/validation"
)

// RequestHandler serves the medication-request endpoints.
type RequestHandler struct {
	store    store.Store
	gateway  *gateway.Gateway
	listener *tracker.Listener
	files    filestore.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewRequestHandler(st store.Store, gw *gateway.Gateway, listener *tracker.Listener, files filestore.Store, m *metrics.Metrics, logger *zap.Logger) *RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestHandler{
		store:    st,
		gateway:  gw,
		listener: listener,
		files:    files,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes returns the handler routes
func (h *RequestHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/summary", h.Summary)
	r.Get("/export", h.Export)
	r.Get("/stream", h.Stream)
	r.Post("/uploads", h.Upload)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/billing", h.UpdateBilling)
	r.Patch("/{id}", h.UpdateFields)
	r.Delete("/{id}", h.Delete)
	return r
}

// CreateBody is the request body for submitting a medication request.
type CreateBody struct {
	validation.Submission
	FileURL string `json:"fileUrl,omitempty"`
}

// Create handles POST /requests
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("request-handler")
	ctx, span := tracer.Start(ctx, "create_request")
	defer span.End()

	var body CreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if errs := validation.Validate(body.Submission); errs != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"errors": errs})
		return
	}

	source := medication.SourceTelemedicine
	if body.RequestSource == validation.SourceContactCenter {
		source = medication.SourceAcute
	}

	now := h.now()
	fields := map[string]any{
		"date":          now.Format("2006-01-02"),
		"name":          body.Name,
		"enrolleeId":    body.EnrolleeID,
		"scheme":        body.Scheme,
		"phone":         body.Phone,
		"address":       body.Address,
		"diagnosis":     body.Diagnosis,
		"medications":   body.Medications,
		"source":        string(source),
		"status":        string(medication.StatusNotSorted),
		"billed":        false,
		"billingAmount": float64(0),
	}
	if body.FileURL != "" {
		fields["fileUrl"] = body.FileURL
	}

	id, err := h.store.Insert(ctx, tracker.Collection, fields)
	if err != nil {
		h.logger.Error("insert failed", zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(ctx)))
		h.jsonError(w, "failed to save request", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.String("record.id", id))
	h.metrics.RequestsCreated.Inc()

	h.logger.Info("medication request created",
		zap.String("id", id),
		zap.String("source", string(source)),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "id": id})
}

// filterFromQuery maps list query parameters onto view predicates.
func (h *RequestHandler) filterFromQuery(r *http.Request) views.Filter {
	q := r.URL.Query()
	f := views.Filter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Source: q.Get("source"),
		Now:    h.now,
	}
	switch q.Get("range") {
	case "today":
		f.Range = views.RangeToday
	case "week":
		f.Range = views.RangeWeek
	case "month":
		f.Range = views.RangeMonth
	default:
		f.Range = views.RangeAll
	}
	return f
}

// load fetches and normalizes the current record list. Undecodable
// documents are dropped and counted, not fatal.
func (h *RequestHandler) load(r *http.Request) ([]medication.Request, error) {
	snap, err := h.store.Snapshot(r.Context(), tracker.Collection)
	if err != nil {
		return nil, err
	}
	records := make([]medication.Request, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		rec, err := medication.Decode(doc.ID, doc.Fields, doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			h.metrics.DecodeFailures.Inc()
			h.logger.Warn("dropping undecodable document",
				zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// List handles GET /requests
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.load(r)
	if err != nil {
		h.logger.Error("snapshot failed", zap.Error(err))
		h.jsonError(w, "failed to load requests", http.StatusInternalServerError)
		return
	}
	filtered := h.filterFromQuery(r).Apply(records)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"requests": filtered,
		"total":    len(filtered),
	})
}

// Summary handles GET /requests/summary
func (h *RequestHandler) Summary(w http.ResponseWriter, r *http.Request) {
	records, err := h.load(r)
	if err != nil {
		h.logger.Error("snapshot failed", zap.Error(err))
		h.jsonError(w, "failed to load requests", http.StatusInternalServerError)
		return
	}
	summary := views.Summarize(h.filterFromQuery(r).Apply(records))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// Export handles GET /requests/export
func (h *RequestHandler) Export(w http.ResponseWriter, r *http.Request) {
	records, err := h.load(r)
	if err != nil {
		h.logger.Error("snapshot failed", zap.Error(err))
		h.jsonError(w, "failed to load requests", http.StatusInternalServerError)
		return
	}
	filtered := h.filterFromQuery(r).Apply(records)

	filename := views.ExportFilename(h.now())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	fmt.Fprint(w, views.ExportCSV(filtered))
}

// Stream handles GET /requests/stream. Each delivery is the complete
// normalized list as one SSE data event; subscription failures surface as
// an error event before the stream closes.
func (h *RequestHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := h.listener.Subscribe(r.Context())
	if err != nil {
		h.logger.Error("subscribe failed", zap.Error(err))
		h.jsonError(w, "failed to subscribe", http.StatusInternalServerError)
		return
	}
	defer sub.Unsubscribe()
	h.metrics.ActiveSubscriptions.Inc()
	defer h.metrics.ActiveSubscriptions.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case err := <-sub.Errs():
			h.logger.Error("subscription failed", zap.Error(err),
				zap.String("request_id", middleware.GetRequestID(r.Context())))
			fmt.Fprintf(w, "event: error\ndata: %q\n\n", "subscription lost")
			flusher.Flush()
			return
		case snap, open := <-sub.Updates():
			if !open {
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				h.logger.Error("marshal snapshot failed", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			h.metrics.SnapshotsDelivered.Inc()
		}
	}
}

// Upload handles POST /requests/uploads
func (h *RequestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(filestore.MaxUploadBytes + 1); err != nil {
		h.jsonError(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.jsonError(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := filestore.ValidateUpload(contentType, header.Size); err != nil {
		h.metrics.UploadsRejected.Inc()
		status := http.StatusUnsupportedMediaType
		if errors.Is(err, filestore.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.jsonError(w, err.Error(), status)
		return
	}

	key := filestore.ObjectKey(h.now(), header.Filename)
	url, err := h.files.Save(r.Context(), key, contentType, file)
	if err != nil {
		h.logger.Error("upload failed", zap.Error(err), zap.String("key", key))
		h.jsonError(w, "failed to store file", http.StatusInternalServerError)
		return
	}
	h.metrics.UploadsAccepted.Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"url": url, "key": key})
}

// StatusBody is the body for PATCH /requests/{id}/status.
type StatusBody struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /requests/{id}/status
func (h *RequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body StatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := h.now()
	res := h.gateway.UpdateStatus(r.Context(), id, medication.Status(body.Status))
	h.finishMutation(w, r, "status", id, res, start)
}

// BillingBody is the body for PATCH /requests/{id}/billing.
type BillingBody struct {
	Billed bool `json:"billed"`
}

// UpdateBilling handles PATCH /requests/{id}/billing
func (h *RequestHandler) UpdateBilling(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body BillingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := h.now()
	res := h.gateway.UpdateBilling(r.Context(), id, body.Billed)
	h.finishMutation(w, r, "billing", id, res, start)
}

// UpdateFields handles PATCH /requests/{id}
func (h *RequestHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch medication.FieldPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := h.now()
	res := h.gateway.UpdateFields(r.Context(), id, patch)
	h.finishMutation(w, r, "fields", id, res, start)
}

// Delete handles DELETE /requests/{id}
func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	start := h.now()
	res := h.gateway.DeleteRecord(r.Context(), id)
	if res.Success {
		h.metrics.RequestsDeleted.Inc()
	}
	h.finishMutation(w, r, "delete", id, res, start)
}

// finishMutation translates a gateway result into the wire response and
// records mutation metrics.
func (h *RequestHandler) finishMutation(w http.ResponseWriter, r *http.Request, op, id string, res gateway.Result, start time.Time) {
	h.metrics.MutationDuration.Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	if res.Success {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
		return
	}

	h.metrics.MutationsFailed.Inc()
	h.logger.Warn("mutation failed",
		zap.String("op", op),
		zap.String("id", id),
		zap.Error(res.Err),
		zap.String("request_id", middleware.GetRequestID(r.Context())))

	status := http.StatusInternalServerError
	switch {
	case errors.Is(res.Err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(res.Err, gateway.ErrInvalidStatus):
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": res.Err.Error()})
}

func (h *RequestHandler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
