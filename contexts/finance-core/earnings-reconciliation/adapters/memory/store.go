package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seed is the initial state of a Store.
type Seed struct {
	Campaigns      []entities.Campaign
	Clips          []entities.Clip
	Submissions    []entities.ClipSubmission
	Samples        []entities.ViewSample
	PayoutRequests []entities.PayoutRequest
}

type outboxRow struct {
	message     ports.OutboxMessage
	publishedAt *time.Time
}

type Store struct {
	mu sync.RWMutex

	campaigns   map[string]entities.Campaign
	clips       map[string]entities.Clip
	submissions map[string]entities.ClipSubmission
	samples     map[string][]entities.ViewSample
	requests    map[string]entities.PayoutRequest
	userTotals  map[string]entities.UserTotals
	stateLog    []entities.StateHistory
	outbox      []outboxRow

	now func() time.Time
}

func NewStore(seed Seed) *Store {
	store := &Store{
		campaigns:   make(map[string]entities.Campaign, len(seed.Campaigns)),
		clips:       make(map[string]entities.Clip, len(seed.Clips)),
		submissions: make(map[string]entities.ClipSubmission, len(seed.Submissions)),
		samples:     make(map[string][]entities.ViewSample),
		requests:    make(map[string]entities.PayoutRequest, len(seed.PayoutRequests)),
		userTotals:  make(map[string]entities.UserTotals),
		stateLog:    make([]entities.StateHistory, 0),
		outbox:      make([]outboxRow, 0),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, item := range seed.Campaigns {
		store.campaigns[item.CampaignID] = item
	}
	for _, item := range seed.Clips {
		store.clips[item.ClipID] = item
	}
	for _, item := range seed.Submissions {
		store.submissions[item.SubmissionID] = item
	}
	for _, item := range seed.Samples {
		store.samples[item.ClipID] = append(store.samples[item.ClipID], item)
	}
	for clipID := range store.samples {
		sortSamples(store.samples[clipID])
	}
	for _, item := range seed.PayoutRequests {
		store.requests[item.RequestID] = item
	}
	return store
}

// SetNow pins the store clock.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	now := s.now
	s.mu.RUnlock()
	return now()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) PutCampaign(campaign entities.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[campaign.CampaignID] = campaign
}

func (s *Store) PutClip(clip entities.Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[clip.ClipID] = clip
}

func (s *Store) PutSubmission(submission entities.ClipSubmission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[submission.SubmissionID] = submission
}

func (s *Store) GetCampaign(_ context.Context, campaignID string) (entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.campaigns[strings.TrimSpace(campaignID)]
	if !exists {
		return entities.Campaign{}, domainerrors.ErrCampaignNotFound
	}
	return item, nil
}

func (s *Store) ListCampaigns(_ context.Context, filter ports.CampaignFilter) ([]entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Campaign, 0, len(s.campaigns))
	for _, campaign := range s.campaigns {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, campaign.Status) {
			continue
		}
		items = append(items, campaign)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CampaignID < items[j].CampaignID
	})
	return items, nil
}

func (s *Store) UpdateCampaignStatus(_ context.Context, campaign entities.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.campaigns[campaign.CampaignID]
	if !exists {
		return domainerrors.ErrCampaignNotFound
	}
	current.Status = campaign.Status
	current.CompletedAt = campaign.CompletedAt
	current.CompletionReason = campaign.CompletionReason
	current.UpdatedAt = campaign.UpdatedAt
	s.campaigns[campaign.CampaignID] = current
	return nil
}

func (s *Store) OverwriteSpent(_ context.Context, campaignID string, spent decimal.Decimal, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.campaigns[campaignID]
	if !exists {
		return domainerrors.ErrCampaignNotFound
	}
	current.Spent = spent
	current.UpdatedAt = updatedAt
	s.campaigns[campaignID] = current
	return nil
}

func (s *Store) AppendState(_ context.Context, item entities.StateHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateLog = append(s.stateLog, item)
	return nil
}

func (s *Store) StateHistory(campaignID string) []entities.StateHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.StateHistory, 0)
	for _, item := range s.stateLog {
		if item.CampaignID == campaignID {
			items = append(items, item)
		}
	}
	return items
}

func (s *Store) GetClip(_ context.Context, clipID string) (entities.Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.clips[strings.TrimSpace(clipID)]
	if !exists {
		return entities.Clip{}, domainerrors.ErrClipNotFound
	}
	return item, nil
}

func (s *Store) RecordTrustedViews(_ context.Context, clipID string, views int64, scrapedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, exists := s.clips[clipID]
	if !exists {
		return domainerrors.ErrClipNotFound
	}
	if clip.Views != views {
		clip.EarningsPending = true
	}
	clip.Views = views
	clip.LastScrapedAt = &scrapedAt
	clip.UpdatedAt = scrapedAt
	s.clips[clipID] = clip
	return nil
}

func (s *Store) TouchScraped(_ context.Context, clipID string, scrapedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, exists := s.clips[clipID]
	if !exists {
		return domainerrors.ErrClipNotFound
	}
	clip.LastScrapedAt = &scrapedAt
	s.clips[clipID] = clip
	return nil
}

func (s *Store) ListEarningsPending(_ context.Context, limit int) ([]entities.Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Clip, 0)
	for _, clip := range s.clips {
		if clip.EarningsPending {
			items = append(items, clip)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.Before(items[j].UpdatedAt)
		}
		return items[i].ClipID < items[j].ClipID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ClearEarningsPending(_ context.Context, clipID string, views int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, exists := s.clips[clipID]
	if !exists {
		return domainerrors.ErrClipNotFound
	}
	if clip.Views == views {
		clip.EarningsPending = false
		s.clips[clipID] = clip
	}
	return nil
}

func (s *Store) SumCampaignEarnings(_ context.Context, campaignID string, excludeClipID string) (decimal.Decimal, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.campaigns[campaignID]; !exists {
		return decimal.Zero, 0, domainerrors.ErrCampaignNotFound
	}
	total, count := s.sumCampaignLocked(campaignID, excludeClipID)
	return total, count, nil
}

func (s *Store) sumCampaignLocked(campaignID string, excludeClipID string) (decimal.Decimal, int) {
	total := decimal.Zero
	seen := make(map[string]struct{})
	for _, submission := range s.submissions {
		if submission.CampaignID != campaignID || !submission.CountsTowardSpend() {
			continue
		}
		if submission.ClipID == excludeClipID {
			continue
		}
		if _, dup := seen[submission.ClipID]; dup {
			continue
		}
		clip, exists := s.clips[submission.ClipID]
		if !exists {
			continue
		}
		seen[submission.ClipID] = struct{}{}
		total = total.Add(clip.Earnings)
	}
	return total, len(seen)
}

func (s *Store) SaveClipEarnings(_ context.Context, write ports.ClipEarningsWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, exists := s.clips[write.ClipID]
	if !exists {
		return domainerrors.ErrClipNotFound
	}
	if len(write.Budgets) == 0 {
		return domainerrors.ErrInvalidInput
	}
	if !clip.Earnings.Equal(write.Previous) {
		return domainerrors.ErrEarningsConflict
	}
	for _, limit := range write.Budgets {
		if _, exists := s.campaigns[limit.CampaignID]; !exists {
			return domainerrors.ErrCampaignNotFound
		}
		others, _ := s.sumCampaignLocked(limit.CampaignID, write.ClipID)
		if !services.WithinBudget(limit.Budget, others, write.Earnings) {
			return domainerrors.ErrEarningsConflict
		}
	}
	updatedAt := write.UpdatedAt
	clip.Earnings = write.Earnings
	clip.EarningsCalculated = true
	clip.EarningsUpdatedAt = &updatedAt
	clip.UpdatedAt = updatedAt
	s.clips[write.ClipID] = clip
	return nil
}

func (s *Store) ListCampaignClipEarnings(_ context.Context, campaignID string) ([]ports.ClipEarningsLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]ports.ClipEarningsLine, 0)
	seen := make(map[string]struct{})
	for _, submission := range s.sortedSubmissionsLocked() {
		if submission.CampaignID != campaignID || !submission.CountsTowardSpend() {
			continue
		}
		if _, dup := seen[submission.ClipID]; dup {
			continue
		}
		clip, exists := s.clips[submission.ClipID]
		if !exists {
			continue
		}
		seen[submission.ClipID] = struct{}{}
		lines = append(lines, ports.ClipEarningsLine{
			ClipID:       clip.ClipID,
			SubmissionID: submission.SubmissionID,
			UserID:       submission.UserID,
			ClipURL:      clip.URL,
			Platform:     clip.Platform,
			Status:       submission.Status,
			Views:        clip.Views,
			InitialViews: submission.InitialViews,
			Earnings:     clip.Earnings,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].Earnings.Equal(lines[j].Earnings) {
			return lines[i].Earnings.GreaterThan(lines[j].Earnings)
		}
		return lines[i].ClipID < lines[j].ClipID
	})
	return lines, nil
}

func (s *Store) GetSubmission(_ context.Context, submissionID string) (entities.ClipSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.submissions[strings.TrimSpace(submissionID)]
	if !exists {
		return entities.ClipSubmission{}, domainerrors.ErrSubmissionNotFound
	}
	return item, nil
}

func (s *Store) ListSubmissions(_ context.Context, filter ports.SubmissionFilter) ([]entities.ClipSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[string]struct{}, len(filter.UserIDs))
	for _, userID := range filter.UserIDs {
		users[userID] = struct{}{}
	}
	items := make([]entities.ClipSubmission, 0)
	for _, submission := range s.sortedSubmissionsLocked() {
		if filter.CampaignID != "" && submission.CampaignID != filter.CampaignID {
			continue
		}
		if filter.ClipID != "" && submission.ClipID != filter.ClipID {
			continue
		}
		if len(users) > 0 {
			if _, ok := users[submission.UserID]; !ok {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsSubmissionStatus(filter.Statuses, submission.Status) {
			continue
		}
		items = append(items, submission)
	}
	return items, nil
}

func (s *Store) UpdateSubmission(_ context.Context, submission entities.ClipSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.submissions[submission.SubmissionID]; !exists {
		return domainerrors.ErrSubmissionNotFound
	}
	s.submissions[submission.SubmissionID] = submission
	return nil
}

func (s *Store) ListTrackingCandidates(_ context.Context, statuses []entities.SubmissionStatus, limit int) ([]ports.TrackingCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaignsByClip := make(map[string][]string)
	for _, submission := range s.sortedSubmissionsLocked() {
		if !submission.HasClip() || !containsSubmissionStatus(statuses, submission.Status) {
			continue
		}
		campaign, exists := s.campaigns[submission.CampaignID]
		if !exists || campaign.Status != entities.CampaignStatusActive {
			continue
		}
		clip, exists := s.clips[submission.ClipID]
		if !exists || !clip.Tracked() {
			continue
		}
		if !containsString(campaignsByClip[clip.ClipID], campaign.CampaignID) {
			campaignsByClip[clip.ClipID] = append(campaignsByClip[clip.ClipID], campaign.CampaignID)
		}
	}

	items := make([]ports.TrackingCandidate, 0, len(campaignsByClip))
	for clipID, campaignIDs := range campaignsByClip {
		items = append(items, ports.TrackingCandidate{Clip: s.clips[clipID], CampaignIDs: campaignIDs})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Clip.LastScrapedAt, items[j].Clip.LastScrapedAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return items[i].Clip.ClipID < items[j].Clip.ClipID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) AppendViewSample(_ context.Context, sample entities.ViewSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clips[sample.ClipID]; !exists {
		return domainerrors.ErrClipNotFound
	}
	s.samples[sample.ClipID] = append(s.samples[sample.ClipID], sample)
	sortSamples(s.samples[sample.ClipID])
	return nil
}

func (s *Store) LastTrustedSample(_ context.Context, clipID string) (entities.ViewSample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.samples[clipID]
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Success {
			return items[i], true, nil
		}
	}
	return entities.ViewSample{}, false, nil
}

func (s *Store) ListViewSamples(_ context.Context, clipID string, limit int) ([]entities.ViewSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.samples[clipID]
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return append([]entities.ViewSample(nil), items...), nil
}

func (s *Store) SaveUserTotals(_ context.Context, totals entities.UserTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userTotals[totals.UserID] = totals
	return nil
}

func (s *Store) GetUserTotals(_ context.Context, userID string) (entities.UserTotals, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.userTotals[strings.TrimSpace(userID)]
	return item, exists, nil
}

func (s *Store) CreatePayoutRequest(_ context.Context, request entities.PayoutRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[request.RequestID]; exists {
		return domainerrors.ErrInvalidInput
	}
	s.requests[request.RequestID] = request
	return nil
}

func (s *Store) GetPayoutRequest(_ context.Context, requestID string) (entities.PayoutRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.requests[strings.TrimSpace(requestID)]
	if !exists {
		return entities.PayoutRequest{}, domainerrors.ErrPayoutRequestNotFound
	}
	return item, nil
}

func (s *Store) UpdatePayoutRequest(_ context.Context, request entities.PayoutRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[request.RequestID]; !exists {
		return domainerrors.ErrPayoutRequestNotFound
	}
	s.requests[request.RequestID] = request
	return nil
}

func (s *Store) ListPayoutRequests(_ context.Context, filter ports.PayoutRequestFilter) ([]entities.PayoutRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[string]struct{}, len(filter.UserIDs))
	for _, userID := range filter.UserIDs {
		users[userID] = struct{}{}
	}
	items := make([]entities.PayoutRequest, 0)
	for _, request := range s.requests {
		if len(users) > 0 {
			if _, ok := users[request.UserID]; !ok {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsPayoutStatus(filter.Statuses, request.Status) {
			continue
		}
		if filter.Settled != nil && request.Settled != *filter.Settled {
			continue
		}
		items = append(items, request)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].RequestedAt.Equal(items[j].RequestedAt) {
			return items[i].RequestedAt.Before(items[j].RequestedAt)
		}
		return items[i].RequestID < items[j].RequestID
	})
	return items, nil
}

func (s *Store) MarkUserPaid(_ context.Context, userID string, method string, notes string, paidAt time.Time) ([]entities.ClipSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make([]entities.ClipSubmission, 0)
	for _, submission := range s.sortedSubmissionsLocked() {
		if submission.UserID != userID || submission.Status != entities.SubmissionStatusApproved {
			continue
		}
		if clip, exists := s.clips[submission.ClipID]; exists {
			submission.RaisePayout(clip.Earnings)
		}
		stamp := paidAt
		submission.Status = entities.SubmissionStatusPaid
		submission.PaidAt = &stamp
		submission.PaymentMethod = method
		submission.PaymentNotes = notes
		submission.UpdatedAt = paidAt
		s.submissions[submission.SubmissionID] = submission
		changed = append(changed, submission)
	}
	if len(changed) == 0 {
		return changed, nil
	}
	for requestID, request := range s.requests {
		if request.UserID == userID && request.Status == entities.PayoutRequestStatusCompleted && !request.Settled {
			request.Settled = true
			s.requests[requestID] = request
		}
	}
	return changed, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, outboxRow{message: ports.OutboxMessage{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt,
	}})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.publishedAt != nil {
			continue
		}
		items = append(items, row.message)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			stamp := publishedAt
			s.outbox[i].publishedAt = &stamp
			return nil
		}
	}
	return nil
}

// OutboxEventTypes lists every appended event type in order.
func (s *Store) OutboxEventTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]string, 0, len(s.outbox))
	for _, row := range s.outbox {
		items = append(items, row.message.EventType)
	}
	return items
}

func (s *Store) sortedSubmissionsLocked() []entities.ClipSubmission {
	items := make([]entities.ClipSubmission, 0, len(s.submissions))
	for _, item := range s.submissions {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].SubmissionID < items[j].SubmissionID
	})
	return items
}

func sortSamples(items []entities.ViewSample) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ScrapedAt.Before(items[j].ScrapedAt)
	})
}

func containsStatus(items []entities.CampaignStatus, value entities.CampaignStatus) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}

func containsSubmissionStatus(items []entities.SubmissionStatus, value entities.SubmissionStatus) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}

func containsPayoutStatus(items []entities.PayoutRequestStatus, value entities.PayoutRequestStatus) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}

func containsString(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
