/**
 * HTTP interface for the KPI OCR service
 *
 * POST /api/kpi-daily    submit a dashboard screenshot (sync, or ?async=1)
 * GET  /api/kpi-daily    list stored snapshots
 * GET  /api/delta        day-over-day delta report for one date
 * GET  /healthz          liveness probe
 * GET  /metrics          prometheus metrics
 */

package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatperf/kpi-ocr/internal/cache"
	"github.com/chatperf/kpi-ocr/internal/delta"
	kpierrors "github.com/chatperf/kpi-ocr/internal/errors"
	"github.com/chatperf/kpi-ocr/internal/extract"
	"github.com/chatperf/kpi-ocr/internal/ingest"
	"github.com/chatperf/kpi-ocr/internal/logging"
	"github.com/chatperf/kpi-ocr/internal/metrics"
	"github.com/chatperf/kpi-ocr/internal/models"
	"github.com/chatperf/kpi-ocr/internal/queue"
	"github.com/chatperf/kpi-ocr/internal/storage"
)

// RouterConfig carries the router's collaborators. Enqueuer and Cache
// may be nil: without an enqueuer ?async=1 is rejected, without a cache
// every delta request computes from storage.
type RouterConfig struct {
	Service      *ingest.Service
	Store        storage.Store
	Deltas       *delta.Calculator
	Enqueuer     *queue.Enqueuer
	Cache        *cache.DeltaCache
	Logger       *logging.Logger
	MaxImageSize int64
}

type router struct {
	cfg RouterConfig
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = 10 << 20
	}
	rt := &router{cfg: cfg}

	mux := chi.NewRouter()
	mux.Use(RequestID)
	if cfg.Logger != nil {
		mux.Use(RequestLogger(cfg.Logger))
	}

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())

	mux.Post("/api/kpi-daily", rt.handleSubmit)
	mux.Get("/api/kpi-daily", rt.handleList)
	mux.Get("/api/delta", rt.handleDelta)

	return mux
}

// handleSubmit accepts a multipart screenshot submission. With ?async=1
// the image goes onto the queue and the response is just the job id;
// otherwise the pipeline runs on the request path.
func (rt *router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxImageSize)
	if err := r.ParseMultipartForm(rt.cfg.MaxImageSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "invalid multipart form: " + err.Error(),
		})
		return
	}

	file, _, err := r.FormFile("image_kpi")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "image_kpi file is required",
		})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "failed to read image: " + err.Error(),
		})
		return
	}

	date := models.Today()
	if v := r.FormValue("date"); v != "" {
		date, err = models.ParseDate(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
	}

	moment := models.MomentStart
	if v := r.FormValue("moment"); v != "" {
		moment, err = models.ParseMoment(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
	}

	note := r.FormValue("note")

	if r.URL.Query().Get("async") == "1" {
		if rt.cfg.Enqueuer == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"success": false,
				"error":   "async processing is not configured",
			})
			return
		}
		jobID, err := rt.cfg.Enqueuer.EnqueueExtract(r.Context(), &queue.ExtractJob{
			Date:   date,
			Moment: moment,
			Note:   note,
			Image:  image,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   "failed to enqueue job: " + err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"success": true,
			"job_id":  jobID,
		})
		return
	}

	snapshot, err := rt.cfg.Service.ProcessScreenshot(r.Context(), &extract.Request{
		Image:  image,
		Date:   date,
		Moment: moment,
		Note:   note,
	})
	if err != nil {
		rt.writeSubmitError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snapshot)
}

// writeSubmitError maps pipeline failures onto the structured payloads
// callers depend on.
func (rt *router) writeSubmitError(w http.ResponseWriter, err error) {
	var incomplete *extract.IncompleteDataError
	if errors.As(err, &incomplete) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success":        false,
			"error":          incomplete.Error(),
			"extracted_data": incomplete.Partial.Fields(),
			"missing_fields": incomplete.Missing,
			"suggestion":     "re-capture the dashboard at a higher resolution and resubmit",
		})
		return
	}

	if errors.Is(err, storage.ErrDuplicate) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	var pe *kpierrors.PipelineError
	if errors.As(err, &pe) {
		status := http.StatusInternalServerError
		switch pe.Code {
		case kpierrors.ErrorOCRFailed:
			status = http.StatusBadGateway
		case kpierrors.ErrorOCRTimeout:
			status = http.StatusGatewayTimeout
		}
		body := pe.ToMap()
		body["success"] = false
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

func (rt *router) handleList(w http.ResponseWriter, r *http.Request) {
	snapshots, err := rt.cfg.Store.ListSnapshots(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (rt *router) handleDelta(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		metrics.RecordDeltaRequest("bad_request")
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"message": "date query parameter is required (YYYY-MM-DD)",
		})
		return
	}
	date, err := models.ParseDate(dateStr)
	if err != nil {
		metrics.RecordDeltaRequest("bad_request")
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	if rt.cfg.Cache != nil {
		if report, ok := rt.cfg.Cache.Get(r.Context(), date); ok {
			metrics.RecordDeltaRequest("cache_hit")
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"status": "success",
				"data":   report,
			})
			return
		}
	}

	report, err := rt.cfg.Deltas.Compute(r.Context(), date)
	if err != nil {
		switch {
		case kpierrors.HasCode(err, kpierrors.ErrorSnapshotNotFound):
			metrics.RecordDeltaRequest("not_found")
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"status":  "error",
				"message": err.Error(),
			})
		case kpierrors.HasCode(err, kpierrors.ErrorZeroSentWindow):
			metrics.RecordDeltaRequest("zero_sent")
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"status":  "error",
				"message": err.Error(),
			})
		default:
			metrics.RecordDeltaRequest("error")
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"status":  "error",
				"message": err.Error(),
			})
		}
		return
	}

	if rt.cfg.Cache != nil {
		rt.cfg.Cache.Set(r.Context(), date, report)
	}

	metrics.RecordDeltaRequest("ok")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   report,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
