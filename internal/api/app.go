package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/rfpdesk/internal/analytics"
	"github.com/kalambet/rfpdesk/internal/fixture"
	"github.com/kalambet/rfpdesk/internal/format"
	"github.com/kalambet/rfpdesk/internal/model"
	"github.com/kalambet/rfpdesk/internal/notify"
	"github.com/kalambet/rfpdesk/internal/review"
	"github.com/kalambet/rfpdesk/internal/storage"
	"github.com/kalambet/rfpdesk/internal/telemetry"
)

const maxRequestBodySize = 1 << 20 // 1MB

type AppDeps struct {
	Records     *fixture.Store
	Store       *storage.Store // optional; nil serves an empty notification feed
	Review      *review.Service
	Notifier    review.Notifier
	Metrics     *telemetry.Metrics // optional; nil disables /metrics
	Token       string             // empty disables bearer auth
	SLA         analytics.SLAThresholds
	UrgentLimit int
	Now         func() time.Time
}

func (d AppDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.SLA == (analytics.SLAThresholds{}) {
		deps.SLA = analytics.DefaultSLA
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(instrument(deps.Metrics))
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}

		r.Get("/dashboard", handleDashboard(deps))
		r.Get("/rfps", handleListRFPs(deps))
		r.Get("/rfps/{id}", handleGetRFP(deps))
		r.Get("/agents", handleAgents(deps))
		r.Get("/sku-matches", handleSKUMatches(deps))
		r.Get("/pricing", handlePricing(deps))
		r.Get("/validation", handleValidationQueue(deps))
		r.Post("/validation/{id}/approve", handleApprove(deps))
		r.Post("/validation/{id}/reject", handleReject(deps))
		r.Get("/validation/{id}/history", handleHistory(deps))
		r.Get("/reviews", handleReviews(deps))
		r.Get("/documents", handleDocuments(deps))
		r.Post("/documents/{id}/download", handleDownload(deps))
		r.Get("/alerts", handleAlerts(deps))
		r.Get("/activity", handleActivity(deps))
		r.Get("/notifications", handleNotifications(deps))
	})

	return r
}

// instrument counts requests by route pattern so ids do not explode label
// cardinality.
func instrument(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(route, status)
		})
	}
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store != nil {
			if err := deps.Store.Ping(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleDashboard(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", deps.UrgentLimit, 100)
		writeJSON(w, http.StatusOK, buildDashboard(deps.Records, deps.now(), limit, deps.SLA))
	}
}

func handleListRFPs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stage := model.Stage(r.URL.Query().Get("stage"))
		if stage != "" && !stage.Valid() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown stage %q", stage)
			return
		}
		writeJSON(w, http.StatusOK, buildRFPList(deps.Records, r.URL.Query().Get("q"), stage, deps.now(), deps.SLA))
	}
}

func handleGetRFP(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rfp, err := deps.Records.RFP(id)
		if errors.Is(err, fixture.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "rfp %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get rfp: %v", err)
			return
		}

		var items []model.ValidationItem
		for _, it := range deps.Records.ValidationItems() {
			if it.RFPID == id {
				items = append(items, it)
			}
		}
		activity := deps.Records.ActivityFor(id)
		if activity == nil {
			activity = []model.ActivityLog{}
		}

		writeJSON(w, http.StatusOK, RFPDetail{
			RFP:      newRFPView(rfp, deps.now(), deps.SLA),
			Activity: activity,
			Items:    itemViews(items),
		})
	}
}

func handleAgents(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := deps.now()
		agents := deps.Records.Agents()
		out := make([]AgentView, 0, len(agents))
		for _, a := range agents {
			out = append(out, AgentView{
				AgentStatus:    a,
				ConfidenceBand: model.AgentConfidenceBand(a.ConfidenceScore),
				LastAction:     format.Relative(a.LastActionTime, now),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleSKUMatches(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Records.SKUMatches())
	}
}

func handlePricing(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows := deps.Records.Pricing()
		totals := analytics.SumPricing(rows)
		mismatches := analytics.PricingMismatches(rows)
		if mismatches == nil {
			mismatches = []string{}
		}
		writeJSON(w, http.StatusOK, PricingView{
			Rows:          rows,
			Totals:        totals,
			TotalsDisplay: format.CurrencyDetail(totals.FinalPrice),
			Mismatches:    mismatches,
		})
	}
}

func handleValidationQueue(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := deps.Review.Queue(r.Context())
		if err != nil {
			reviewError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newQueueView(q))
	}
}

type decisionRequest struct {
	Reason   string `json:"reason"`
	Reviewer string `json:"reviewer"`
}

func decodeDecision(w http.ResponseWriter, r *http.Request) (decisionRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return req, false
	}
	return req, true
}

func handleApprove(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeDecision(w, r)
		if !ok {
			return
		}
		item, err := deps.Review.Approve(r.Context(), chi.URLParam(r, "id"), req.Reviewer)
		if err != nil {
			reviewError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, itemViews([]model.ValidationItem{item})[0])
	}
}

func handleReject(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeDecision(w, r)
		if !ok {
			return
		}
		item, err := deps.Review.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason, req.Reviewer)
		if err != nil {
			reviewError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, itemViews([]model.ValidationItem{item})[0])
	}
}

func handleHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hist, err := deps.Review.History(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			reviewError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, hist)
	}
}

func handleReviews(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)
		decisions, err := deps.Review.Decisions(r.Context(), limit, offset)
		if err != nil {
			reviewError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, decisions)
	}
}

func handleDocuments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := deps.Records.Documents()
		typ := model.DocumentType(r.URL.Query().Get("type"))
		filtered := analytics.FilterDocuments(all, r.URL.Query().Get("q"), typ)
		writeJSON(w, http.StatusOK, DocumentList{
			Documents: documentViews(filtered),
			Stats:     analytics.CountDocuments(all),
		})
	}
}

func handleDownload(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		doc, err := deps.Records.Document(id)
		if errors.Is(err, fixture.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}

		view := DownloadView{Document: documentViews([]model.Document{doc})[0]}
		if deps.Notifier != nil {
			n, err := deps.Notifier.Notify(r.Context(), notify.Message{
				Title: "Download Started",
				Body:  "Downloading " + doc.FileName(),
			})
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to record download: %v", err)
				return
			}
			view.Notification = n
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleAlerts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Records.Alerts())
	}
}

func handleActivity(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		entries := deps.Records.Activity()
		if rfpID := r.URL.Query().Get("rfp_id"); rfpID != "" {
			entries = deps.Records.ActivityFor(rfpID)
		}
		if len(entries) > limit {
			entries = entries[:limit]
		}
		if entries == nil {
			entries = []model.ActivityLog{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleNotifications(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)
		if deps.Store == nil {
			writeJSON(w, http.StatusOK, []storage.Notification{})
			return
		}
		list, err := deps.Store.ListNotifications(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list notifications: %v", err)
			return
		}
		if list == nil {
			list = []storage.Notification{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
