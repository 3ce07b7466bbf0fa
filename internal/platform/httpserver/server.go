package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	earnings "clipledger/contexts/finance-core/earnings-reconciliation"
	earningserrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	earningshttp "clipledger/contexts/finance-core/earnings-reconciliation/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "clipledger/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	earnings earnings.Module
}

func New(earningsModule earnings.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		earnings: earningsModule,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("POST /admin/sync-spend", s.requireAdmin(s.handleSyncSpend))
	s.mux.HandleFunc("GET /admin/sync-spend", s.requireAdmin(s.handleSyncStatus))
	s.mux.HandleFunc("POST /admin/campaigns/complete", s.requireAdmin(s.handleCompleteCampaign))
	s.mux.HandleFunc("GET /admin/payments", s.requireAdmin(s.handleListPayments))
	s.mux.HandleFunc("POST /admin/payments", s.requireAdmin(s.handleMarkPaymentsPaid))
	s.mux.HandleFunc("POST /admin/view-tracking/run", s.requireAdmin(s.handleTrackViews))
	s.mux.HandleFunc("POST /admin/earnings-pipeline/run", s.requireAdmin(s.handleRunPipeline))
	s.mux.HandleFunc("POST /admin/clips/{clip_id}/earnings", s.requireAdmin(s.handleCalculateEarnings))
	s.mux.HandleFunc("GET /admin/clips/{clip_id}/views", s.requireAdmin(s.handleViewHistory))
	s.mux.HandleFunc("POST /admin/submissions/{submission_id}/review", s.requireAdmin(s.handleReviewSubmission))
	s.mux.HandleFunc("POST /admin/payout-requests/{request_id}/process", s.requireAdmin(s.handleProcessPayout))

	s.mux.HandleFunc("POST /v1/payout-requests", s.handleRequestPayout)
	s.mux.HandleFunc("GET /v1/earnings/me", s.handleMyEarnings)
}

func (s *Server) requireAdmin(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := strings.TrimSpace(r.Header.Get("X-Admin-Id"))
		if adminID == "" {
			writeError(w, http.StatusUnauthorized, "missing_admin", "X-Admin-Id header is required")
			return
		}
		next(w, r, adminID)
	}
}

func (s *Server) handleSyncSpend(w http.ResponseWriter, r *http.Request, _ string) {
	var req earningshttp.SyncSpendRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	resp, err := s.earnings.Handler.SyncSpendHandler(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request, _ string) {
	resp, err := s.earnings.Handler.SyncStatusHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteCampaign(w http.ResponseWriter, r *http.Request, adminID string) {
	var req earningshttp.CompleteCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.earnings.Handler.CompleteCampaignHandler(r.Context(), adminID, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request, _ string) {
	switch status := r.URL.Query().Get("status"); status {
	case "", "pending":
		resp, err := s.earnings.Handler.PendingPaymentsHandler(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case "processed":
		resp, err := s.earnings.Handler.ProcessedPaymentsHandler(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeError(w, http.StatusBadRequest, "invalid_status", "status must be pending or processed")
	}
}

func (s *Server) handleMarkPaymentsPaid(w http.ResponseWriter, r *http.Request, _ string) {
	var req earningshttp.MarkPaymentsPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.earnings.Handler.MarkPaymentsPaidHandler(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrackViews(w http.ResponseWriter, r *http.Request, _ string) {
	var req earningshttp.TrackViewsRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	resp, err := s.earnings.Handler.TrackViewsHandler(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request, _ string) {
	resp, err := s.earnings.Handler.RunPipelineHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalculateEarnings(w http.ResponseWriter, r *http.Request, _ string) {
	resp, err := s.earnings.Handler.CalculateEarningsHandler(r.Context(), r.PathValue("clip_id"))
	if err != nil {
		status, _ := domainStatus(err)
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleViewHistory(w http.ResponseWriter, r *http.Request, _ string) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.earnings.Handler.ViewHistoryHandler(r.Context(), r.PathValue("clip_id"), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReviewSubmission(w http.ResponseWriter, r *http.Request, _ string) {
	var req earningshttp.ReviewSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.earnings.Handler.ReviewSubmissionHandler(r.Context(), r.PathValue("submission_id"), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessPayout(w http.ResponseWriter, r *http.Request, _ string) {
	var req earningshttp.ProcessPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.earnings.Handler.ProcessPayoutHandler(r.Context(), r.PathValue("request_id"), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRequestPayout(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req earningshttp.PayoutRequestCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.UserID = userID
	resp, err := s.earnings.Handler.RequestPayoutHandler(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleMyEarnings(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.earnings.Handler.UserEarningsHandler(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func domainStatus(err error) (int, string) {
	switch {
	case errors.Is(err, earningserrors.ErrCampaignNotFound):
		return http.StatusNotFound, "campaign_not_found"
	case errors.Is(err, earningserrors.ErrClipNotFound):
		return http.StatusNotFound, "clip_not_found"
	case errors.Is(err, earningserrors.ErrSubmissionNotFound):
		return http.StatusNotFound, "submission_not_found"
	case errors.Is(err, earningserrors.ErrPayoutRequestNotFound):
		return http.StatusNotFound, "payout_request_not_found"
	case errors.Is(err, earningserrors.ErrNoActiveSubmission):
		return http.StatusConflict, "no_active_submission"
	case errors.Is(err, earningserrors.ErrCampaignNotActive),
		errors.Is(err, earningserrors.ErrInvalidStateTransition):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, earningserrors.ErrEarningsConflict),
		errors.Is(err, earningserrors.ErrLockNotAcquired):
		return http.StatusConflict, "concurrent_update"
	case errors.Is(err, earningserrors.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, earningserrors.ErrInvalidPlatform):
		return http.StatusBadRequest, "invalid_platform"
	case errors.Is(err, earningserrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, earningserrors.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, earningserrors.ErrScrapeFailed):
		return http.StatusBadGateway, "scrape_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status, code := domainStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"event", "http_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writeError(w, status, code, "internal server error")
		return
	}
	response := earningshttp.ErrorResponse{Code: code, Message: err.Error()}
	var balanceErr *earningserrors.BalanceError
	if errors.As(err, &balanceErr) {
		response.Available = balanceErr.Available
	}
	writeJSON(w, status, response)
}

func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, earningshttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
