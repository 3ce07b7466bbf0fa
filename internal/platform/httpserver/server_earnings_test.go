package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	earnings "clipledger/contexts/finance-core/earnings-reconciliation"
	"clipledger/contexts/finance-core/earnings-reconciliation/adapters/memory"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"
	earningshttp "clipledger/contexts/finance-core/earnings-reconciliation/transport/http"

	"github.com/shopspring/decimal"
)

type fixedViews struct {
	views int64
}

func (f fixedViews) FetchViewCount(context.Context, string, entities.Platform) (ports.FetchResult, error) {
	return ports.FetchResult{Views: f.views, Success: true}, nil
}

func testSeed(budget string, views int64) memory.Seed {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	approvedAt := now.Add(-time.Hour)
	return memory.Seed{
		Campaigns: []entities.Campaign{{
			CampaignID: "campaign-1",
			Title:      "Launch week",
			Budget:     decimal.RequireFromString(budget),
			Spent:      decimal.Zero,
			PayoutRate: decimal.NewFromInt(10),
			Status:     entities.CampaignStatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}},
		Clips: []entities.Clip{{
			ClipID:    "clip-1",
			UserID:    "user-1",
			URL:       "https://www.tiktok.com/@creator/video/1",
			Platform:  entities.PlatformTikTok,
			Status:    entities.ClipStatusTracking,
			Views:     views,
			CreatedAt: now,
			UpdatedAt: now,
		}},
		Submissions: []entities.ClipSubmission{{
			SubmissionID: "submission-1",
			CampaignID:   "campaign-1",
			UserID:       "user-1",
			ClipID:       "clip-1",
			ClipURL:      "https://www.tiktok.com/@creator/video/1",
			Platform:     entities.PlatformTikTok,
			Status:       entities.SubmissionStatusApproved,
			CreatedAt:    now,
			UpdatedAt:    now,
			ApprovedAt:   &approvedAt,
		}},
	}
}

func newTestServer() *Server {
	return newTestServerWith(testSeed("100", 5000), fixedViews{views: 5000})
}

func newTestServerWith(seed memory.Seed, fetcher ports.ViewCountFetcher) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	module := earnings.NewInMemoryModule(seed, fetcher, nil, earnings.Policy{}, logger)
	return New(module, logger, ":0")
}

func doJSON(t *testing.T, server *Server, method string, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

var adminHeaders = map[string]string{"X-Admin-Id": "admin-1"}

func TestAdminRoutesRequireAdminHeader(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/admin/sync-spend", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCalculateEarningsThenSyncSpend(t *testing.T) {
	server := newTestServer()

	rr := doJSON(t, server, http.MethodPost, "/admin/clips/clip-1/earnings", "", adminHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var calc earningshttp.EarningsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &calc); err != nil {
		t.Fatalf("decode earnings: %v", err)
	}
	if calc.Earnings != "50.00" || calc.ViewsGained != 5000 {
		t.Fatalf("unexpected earnings response: %+v", calc)
	}

	rr = doJSON(t, server, http.MethodPost, "/admin/sync-spend", `{"campaign_id":"campaign-1"}`, adminHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var synced earningshttp.SyncSpendResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &synced); err != nil {
		t.Fatalf("decode sync: %v", err)
	}
	if len(synced.Campaigns) != 1 || synced.Campaigns[0].NewSpent != "50.00" {
		t.Fatalf("unexpected sync response: %+v", synced)
	}

	rr = doJSON(t, server, http.MethodGet, "/admin/sync-spend", "", adminHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var status earningshttp.SyncStatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.NeedingSync != 0 {
		t.Fatalf("expected nothing to need sync after a sync, got %+v", status)
	}
}

func TestCalculateEarningsUnknownClipReturns404(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodPost, "/admin/clips/missing/earnings", "", adminHeaders)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPipelineRunCompletesExhaustedCampaign(t *testing.T) {
	server := newTestServerWith(testSeed("50", 0), fixedViews{views: 5000})

	rr := doJSON(t, server, http.MethodPost, "/admin/earnings-pipeline/run", "", adminHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var run earningshttp.PipelineRunResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.Tracking.Successful != 1 || run.EarningsCalculated != 1 || run.CampaignsCompleted != 1 {
		t.Fatalf("unexpected pipeline run: %+v", run)
	}

	rr = doJSON(t, server, http.MethodPost, "/admin/campaigns/complete", `{"campaign_id":"campaign-1"}`, adminHeaders)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for already completed campaign, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestManualCompletionItemizesClips(t *testing.T) {
	server := newTestServer()
	if rr := doJSON(t, server, http.MethodPost, "/admin/clips/clip-1/earnings", "", adminHeaders); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr := doJSON(t, server, http.MethodPost, "/admin/campaigns/complete", `{"campaign_id":"campaign-1","completion_reason":"brand ended campaign"}`, adminHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp earningshttp.CompleteCampaignResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode completion: %v", err)
	}
	if resp.Status != string(entities.CampaignStatusCompleted) || resp.CompletedAt == "" {
		t.Fatalf("unexpected completion: %+v", resp)
	}
	if resp.Spent != "50.00" || resp.Remaining != "50.00" || len(resp.Clips) != 1 {
		t.Fatalf("unexpected completion totals: %+v", resp)
	}
}

func TestPayoutRequestOverBalanceReportsAvailable(t *testing.T) {
	server := newTestServer()
	if rr := doJSON(t, server, http.MethodPost, "/admin/clips/clip-1/earnings", "", adminHeaders); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	userHeaders := map[string]string{"X-User-Id": "user-1"}
	rr := doJSON(t, server, http.MethodPost, "/v1/payout-requests", `{"amount":"60.00","payment_method":"paypal"}`, userHeaders)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	var failure earningshttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &failure); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if failure.Code != "insufficient_balance" || failure.Available != "50.00" {
		t.Fatalf("unexpected error body: %+v", failure)
	}

	rr = doJSON(t, server, http.MethodPost, "/v1/payout-requests", `{"amount":"50.00","payment_method":"paypal"}`, userHeaders)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/v1/earnings/me", "", userHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var mine earningshttp.UserEarningsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &mine); err != nil {
		t.Fatalf("decode earnings: %v", err)
	}
	if mine.Balance.Available != "0.00" || mine.Balance.PendingRequests != "50.00" {
		t.Fatalf("unexpected balance: %+v", mine.Balance)
	}
}

func TestPaymentsListAndMarkPaid(t *testing.T) {
	server := newTestServer()
	if rr := doJSON(t, server, http.MethodPost, "/admin/clips/clip-1/earnings", "", adminHeaders); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr := doJSON(t, server, http.MethodGet, "/admin/payments?status=pending", "", adminHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var pending earningshttp.PendingPaymentsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode pending: %v", err)
	}
	if len(pending.Users) != 1 || pending.Users[0].Payable != "50.00" {
		t.Fatalf("unexpected pending payments: %+v", pending)
	}

	rr = doJSON(t, server, http.MethodPost, "/admin/payments", `{"user_ids":["user-1"],"payment_method":"paypal"}`, adminHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var paid earningshttp.MarkPaymentsPaidResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &paid); err != nil {
		t.Fatalf("decode paid: %v", err)
	}
	if paid.SubmissionsPaid != 1 || paid.TotalAmount != "50.00" {
		t.Fatalf("unexpected mark paid response: %+v", paid)
	}

	rr = doJSON(t, server, http.MethodGet, "/admin/payments?status=processed", "", adminHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"total_paid":"50.00"`) {
		t.Fatalf("expected processed payment for user-1, body=%s", rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/admin/payments?status=bogus", "", adminHeaders)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMarkPaidRequiresPaymentMethod(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodPost, "/admin/payments", `{"user_ids":["user-1"]}`, adminHeaders)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestViewHistoryRejectsBadLimit(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/admin/clips/clip-1/views?limit=abc", "", adminHeaders)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}
