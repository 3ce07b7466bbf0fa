package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/commands"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/queries"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/workers"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
	httptransport "clipledger/contexts/finance-core/earnings-reconciliation/transport/http"

	"github.com/shopspring/decimal"
)

type Handler struct {
	TrackViews        commands.TrackViewsUseCase
	CalculateEarnings commands.CalculateEarningsUseCase
	SyncSpend         commands.SyncSpendUseCase
	CompleteCampaign  commands.CompleteCampaignUseCase
	MarkPaymentsPaid  commands.MarkPaymentsPaidUseCase
	RequestPayout     commands.RequestPayoutUseCase
	ProcessPayout     commands.ProcessPayoutRequestUseCase
	ReviewSubmission  commands.ReviewSubmissionUseCase
	SyncStatus        queries.SyncStatusQuery
	PendingPayments   queries.PendingPaymentsQuery
	ProcessedPayments queries.ProcessedPaymentsQuery
	ViewHistory       queries.ViewHistoryQuery
	UserEarnings      queries.UserEarningsQuery
	Pipeline          workers.EarningsPipelineJob
	Logger            *slog.Logger
}

func (h Handler) SyncSpendHandler(ctx context.Context, req httptransport.SyncSpendRequest) (httptransport.SyncSpendResponse, error) {
	campaignID := strings.TrimSpace(req.CampaignID)
	if campaignID != "" {
		result, err := h.SyncSpend.SyncCampaign(ctx, campaignID)
		if err != nil {
			return httptransport.SyncSpendResponse{}, err
		}
		corrected := 0
		if !result.Difference.IsZero() {
			corrected = 1
		}
		return httptransport.SyncSpendResponse{
			Campaigns:       []httptransport.CampaignSyncDTO{mapCampaignSync(result)},
			TotalCampaigns:  1,
			Corrected:       corrected,
			TotalDifference: money(result.Difference),
		}, nil
	}

	result, err := h.SyncSpend.SyncAllCampaigns(ctx)
	if err != nil {
		return httptransport.SyncSpendResponse{}, err
	}
	items := make([]httptransport.CampaignSyncDTO, 0, len(result.Campaigns))
	for _, item := range result.Campaigns {
		items = append(items, mapCampaignSync(item))
	}
	return httptransport.SyncSpendResponse{
		Campaigns:       items,
		TotalCampaigns:  result.TotalCampaigns,
		Corrected:       result.Corrected,
		Failed:          result.Failed,
		TotalDifference: money(result.TotalDifference),
	}, nil
}

func (h Handler) SyncStatusHandler(ctx context.Context) (httptransport.SyncStatusResponse, error) {
	result, err := h.SyncStatus.Execute(ctx)
	if err != nil {
		return httptransport.SyncStatusResponse{}, err
	}
	items := make([]httptransport.CampaignSyncStatusDTO, 0, len(result.Campaigns))
	for _, item := range result.Campaigns {
		items = append(items, httptransport.CampaignSyncStatusDTO{
			CampaignID:         item.CampaignID,
			Title:              item.Title,
			Status:             string(item.Status),
			Budget:             money(item.Budget),
			StoredSpent:        money(item.StoredSpent),
			ActualSpent:        money(item.ActualSpent),
			Difference:         money(item.Difference),
			ApprovedClipsCount: item.ApprovedClipsCount,
			NeedsSync:          item.NeedsSync,
			OverBudget:         item.OverBudget,
		})
	}
	return httptransport.SyncStatusResponse{
		Campaigns:      items,
		TotalCampaigns: result.TotalCampaigns,
		NeedingSync:    result.NeedingSync,
	}, nil
}

func (h Handler) CompleteCampaignHandler(
	ctx context.Context,
	actorID string,
	req httptransport.CompleteCampaignRequest,
) (httptransport.CompleteCampaignResponse, error) {
	result, err := h.CompleteCampaign.Complete(ctx, commands.CompleteCampaignCommand{
		CampaignID: req.CampaignID,
		Reason:     req.CompletionReason,
		ActorID:    actorID,
	})
	if err != nil {
		return httptransport.CompleteCampaignResponse{}, err
	}
	clips := make([]httptransport.ClipEarningsDTO, 0, len(result.Clips))
	for _, line := range result.Clips {
		clips = append(clips, httptransport.ClipEarningsDTO{
			ClipID:       line.ClipID,
			SubmissionID: line.SubmissionID,
			UserID:       line.UserID,
			ClipURL:      line.ClipURL,
			Platform:     string(line.Platform),
			Status:       string(line.Status),
			Views:        line.Views,
			InitialViews: line.InitialViews,
			ViewsGained:  services.ViewsGained(line.Views, line.InitialViews),
			Earnings:     money(line.Earnings),
		})
	}
	return httptransport.CompleteCampaignResponse{
		CampaignID:       result.CampaignID,
		Title:            result.Title,
		Status:           string(result.Status),
		CompletionReason: result.CompletionReason,
		CompletedAt:      formatTime(result.CompletedAt),
		Budget:           money(result.Budget),
		Spent:            money(result.Spent),
		Remaining:        money(result.Remaining),
		Utilization:      result.Utilization.StringFixed(2),
		Clips:            clips,
	}, nil
}

func (h Handler) PendingPaymentsHandler(ctx context.Context) (httptransport.PendingPaymentsResponse, error) {
	result, err := h.PendingPayments.Execute(ctx)
	if err != nil {
		return httptransport.PendingPaymentsResponse{}, err
	}
	users := make([]httptransport.UserBalanceDTO, 0, len(result.Users))
	for _, item := range result.Users {
		users = append(users, mapBalance(item))
	}
	return httptransport.PendingPaymentsResponse{
		Status:             "pending",
		Users:              users,
		TotalPendingAmount: money(result.TotalPendingAmount),
		MinimumPayout:      money(result.MinimumPayout),
	}, nil
}

func (h Handler) ProcessedPaymentsHandler(ctx context.Context) (httptransport.ProcessedPaymentsResponse, error) {
	result, err := h.ProcessedPayments.Execute(ctx)
	if err != nil {
		return httptransport.ProcessedPaymentsResponse{}, err
	}
	users := make([]httptransport.ProcessedPaymentDTO, 0, len(result.Users))
	for _, item := range result.Users {
		users = append(users, httptransport.ProcessedPaymentDTO{
			UserID:         item.UserID,
			Submissions:    item.Submissions,
			TotalPaid:      money(item.TotalPaid),
			PaymentMethods: append([]string{}, item.PaymentMethods...),
			LastPaidAt:     formatTime(item.LastPaidAt),
		})
	}
	return httptransport.ProcessedPaymentsResponse{
		Status:       "processed",
		Users:        users,
		TotalPaidOut: money(result.TotalPaidOut),
	}, nil
}

func (h Handler) MarkPaymentsPaidHandler(
	ctx context.Context,
	req httptransport.MarkPaymentsPaidRequest,
) (httptransport.MarkPaymentsPaidResponse, error) {
	result, err := h.MarkPaymentsPaid.Execute(ctx, commands.MarkPaymentsPaidCommand{
		UserIDs:       append([]string(nil), req.UserIDs...),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		return httptransport.MarkPaymentsPaidResponse{}, err
	}
	users := make([]httptransport.UserPaymentDTO, 0, len(result.Users))
	for _, item := range result.Users {
		users = append(users, httptransport.UserPaymentDTO{
			UserID:          item.UserID,
			SubmissionsPaid: item.SubmissionsPaid,
			Amount:          money(item.Amount),
		})
	}
	return httptransport.MarkPaymentsPaidResponse{
		Users:           users,
		SubmissionsPaid: result.SubmissionsPaid,
		TotalAmount:     money(result.TotalAmount),
		PaidAt:          result.PaidAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) TrackViewsHandler(ctx context.Context, req httptransport.TrackViewsRequest) (httptransport.TrackViewsResponse, error) {
	result, err := h.TrackViews.Execute(ctx, commands.TrackViewsCommand{BatchSize: req.BatchSize})
	if err != nil {
		return httptransport.TrackViewsResponse{}, err
	}
	return mapTracking(result), nil
}

func (h Handler) RunPipelineHandler(ctx context.Context) (httptransport.PipelineRunResponse, error) {
	run, err := h.Pipeline.Run(ctx)
	if err != nil {
		return httptransport.PipelineRunResponse{}, err
	}
	return httptransport.PipelineRunResponse{
		Tracking:           mapTracking(run.Tracking),
		EarningsCalculated: run.EarningsCalculated,
		EarningsFailed:     run.EarningsFailed,
		CampaignsSynced:    run.CampaignsSynced,
		CampaignsCompleted: run.CampaignsCompleted,
	}, nil
}

// CalculateEarningsHandler returns the structured result even on domain
// failures; err is set only so the server can pick a status code.
func (h Handler) CalculateEarningsHandler(ctx context.Context, clipID string) (httptransport.EarningsResponse, error) {
	result, err := h.CalculateEarnings.Execute(ctx, clipID)
	return httptransport.EarningsResponse{
		ClipID:          result.ClipID,
		SubmissionID:    result.SubmissionID,
		CampaignID:      result.CampaignID,
		Success:         result.Success,
		Skipped:         result.Skipped,
		Earnings:        money(result.Earnings),
		Delta:           money(result.Delta),
		ViewsGained:     result.ViewsGained,
		RawEarnings:     money(result.RawEarnings),
		RemainingBudget: money(result.RemainingBudget),
		Capped:          result.Capped,
		Error:           result.Error,
	}, err
}

func (h Handler) ViewHistoryHandler(ctx context.Context, clipID string, limit int) (httptransport.ViewHistoryResponse, error) {
	history, err := h.ViewHistory.Execute(ctx, clipID, limit)
	if err != nil {
		return httptransport.ViewHistoryResponse{}, err
	}
	samples := make([]httptransport.ViewSampleDTO, 0, len(history.Samples))
	for _, sample := range history.Samples {
		samples = append(samples, httptransport.ViewSampleDTO{
			Views:     sample.Views,
			ScrapedAt: sample.ScrapedAt.UTC().Format(time.RFC3339),
			Success:   sample.Success,
			Flag:      string(sample.Flag),
			Detail:    sample.Detail,
		})
	}
	return httptransport.ViewHistoryResponse{
		ClipID:   history.Clip.ClipID,
		Platform: string(history.Clip.Platform),
		Views:    history.Clip.Views,
		Samples:  samples,
	}, nil
}

func (h Handler) ReviewSubmissionHandler(
	ctx context.Context,
	submissionID string,
	req httptransport.ReviewSubmissionRequest,
) (httptransport.SubmissionDTO, error) {
	submission, err := h.ReviewSubmission.Execute(ctx, commands.ReviewSubmissionCommand{
		SubmissionID: submissionID,
		Action:       commands.ReviewAction(strings.ToLower(strings.TrimSpace(req.Action))),
		Reason:       req.Reason,
	})
	if err != nil {
		return httptransport.SubmissionDTO{}, err
	}
	return mapSubmission(submission), nil
}

func (h Handler) RequestPayoutHandler(ctx context.Context, req httptransport.PayoutRequestCreate) (httptransport.PayoutRequestDTO, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return httptransport.PayoutRequestDTO{}, domainerrors.ErrInvalidInput
	}
	request, err := h.RequestPayout.Execute(ctx, commands.RequestPayoutCommand{
		UserID:        req.UserID,
		Amount:        amount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return httptransport.PayoutRequestDTO{}, err
	}
	return mapPayoutRequest(request), nil
}

func (h Handler) ProcessPayoutHandler(
	ctx context.Context,
	requestID string,
	req httptransport.ProcessPayoutRequest,
) (httptransport.PayoutRequestDTO, error) {
	request, err := h.ProcessPayout.Execute(ctx, commands.ProcessPayoutRequestCommand{
		RequestID: requestID,
		Action:    commands.PayoutAction(strings.ToLower(strings.TrimSpace(req.Action))),
	})
	if err != nil {
		return httptransport.PayoutRequestDTO{}, err
	}
	return mapPayoutRequest(request), nil
}

func (h Handler) UserEarningsHandler(ctx context.Context, userID string) (httptransport.UserEarningsResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return httptransport.UserEarningsResponse{}, domainerrors.ErrInvalidInput
	}
	result, err := h.UserEarnings.Execute(ctx, userID)
	if err != nil {
		return httptransport.UserEarningsResponse{}, err
	}
	return httptransport.UserEarningsResponse{
		Balance:       mapBalance(result.Balance),
		TotalViews:    result.Totals.TotalViews,
		TotalEarnings: money(result.Totals.TotalEarnings),
	}, nil
}

func mapCampaignSync(item commands.SyncCampaignResult) httptransport.CampaignSyncDTO {
	return httptransport.CampaignSyncDTO{
		CampaignID:         item.CampaignID,
		Title:              item.Title,
		OldSpent:           money(item.OldSpent),
		NewSpent:           money(item.NewSpent),
		Difference:         money(item.Difference),
		Budget:             money(item.Budget),
		ApprovedClipsCount: item.ApprovedClipsCount,
		OverBudget:         item.OverBudget,
		Error:              item.Error,
	}
}

func mapTracking(result commands.TrackViewsResult) httptransport.TrackViewsResponse {
	errs := make([]httptransport.TrackingErrorDTO, 0, len(result.Errors))
	for _, item := range result.Errors {
		errs = append(errs, httptransport.TrackingErrorDTO{
			ClipID:   item.ClipID,
			ClipURL:  item.ClipURL,
			Platform: string(item.Platform),
			Message:  item.Message,
		})
	}
	return httptransport.TrackViewsResponse{
		Processed:  result.Processed,
		Successful: result.Successful,
		Failed:     result.Failed,
		Anomalies:  result.Anomalies,
		Errors:     errs,
	}
}

func mapBalance(item application.UserBalance) httptransport.UserBalanceDTO {
	return httptransport.UserBalanceDTO{
		UserID:              item.UserID,
		ApprovedSubmissions: item.ApprovedSubmissions,
		UnpaidEarnings:      money(item.UnpaidEarnings),
		CoveredByRequests:   money(item.CoveredByRequests),
		PendingRequests:     money(item.PendingRequests),
		Payable:             money(item.Payable),
		Available:           money(item.Available),
	}
}

func mapSubmission(item entities.ClipSubmission) httptransport.SubmissionDTO {
	dto := httptransport.SubmissionDTO{
		SubmissionID: item.SubmissionID,
		CampaignID:   item.CampaignID,
		UserID:       item.UserID,
		ClipID:       item.ClipID,
		Status:       string(item.Status),
		InitialViews: item.InitialViews,
	}
	if item.Payout != nil {
		dto.Payout = money(*item.Payout)
	}
	return dto
}

func mapPayoutRequest(item entities.PayoutRequest) httptransport.PayoutRequestDTO {
	return httptransport.PayoutRequestDTO{
		RequestID:     item.RequestID,
		UserID:        item.UserID,
		Amount:        money(item.Amount),
		Status:        string(item.Status),
		PaymentMethod: item.PaymentMethod,
		RequestedAt:   item.RequestedAt.UTC().Format(time.RFC3339),
		ProcessedAt:   formatTime(item.ProcessedAt),
	}
}

func money(value decimal.Decimal) string {
	return value.StringFixed(services.MoneyPlaces)
}

func formatTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
