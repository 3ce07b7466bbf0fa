package commands_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/application/commands"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
)

func TestEvaluateCompletesExhaustedCampaign(t *testing.T) {
	clip, sub := approvedClip("c1", "clip-a", "user-a", 5000, 0)
	store := newStore([]entities.Campaign{campaign("c1", "50", "10")}, []entities.Clip{clip}, []entities.ClipSubmission{sub})
	if _, err := calculator(store, nil).Execute(context.Background(), "clip-a"); err != nil {
		t.Fatalf("calculate: %v", err)
	}

	result, err := completer(store).Evaluate(context.Background(), "c1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !result.Completed || result.Trigger != services.CompletionTriggerBudgetExhausted {
		t.Fatalf("expected budget completion, got %+v", result)
	}

	stored, _ := store.GetCampaign(context.Background(), "c1")
	if stored.Status != entities.CampaignStatusCompleted || stored.CompletedAt == nil {
		t.Fatalf("expected completed campaign with timestamp, got %+v", stored)
	}
	if !strings.Contains(stored.CompletionReason, "100.00%") {
		t.Fatalf("expected utilization in reason, got %q", stored.CompletionReason)
	}
	if stored.Spent.StringFixed(2) != "50.00" {
		t.Fatalf("expected reconciled spend 50.00, got %s", stored.Spent)
	}

	history := store.StateHistory("c1")
	if len(history) != 1 || history[0].FromState != entities.CampaignStatusActive || history[0].ChangedBy != "system" {
		t.Fatalf("unexpected state history: %+v", history)
	}
	if len(result.Clips) != 1 || result.Clips[0].ClipID != "clip-a" {
		t.Fatalf("expected itemized clip, got %+v", result.Clips)
	}
}

func TestEvaluateLeavesCampaignBelowThresholdActive(t *testing.T) {
	clip, sub := approvedClip("c1", "clip-a", "user-a", 1000, 0)
	store := newStore([]entities.Campaign{campaign("c1", "50", "10")}, []entities.Clip{clip}, []entities.ClipSubmission{sub})
	if _, err := calculator(store, nil).Execute(context.Background(), "clip-a"); err != nil {
		t.Fatalf("calculate: %v", err)
	}

	result, err := completer(store).Evaluate(context.Background(), "c1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Completed {
		t.Fatalf("campaign at 20%% must stay active: %+v", result)
	}
}

func TestEvaluateCompletesOnDeadline(t *testing.T) {
	c := campaign("c1", "100", "10")
	deadline := fixedNow.Add(-time.Hour)
	c.Deadline = &deadline
	store := newStore([]entities.Campaign{c}, nil, nil)

	result, err := completer(store).Evaluate(context.Background(), "c1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Trigger != services.CompletionTriggerDeadline || !strings.HasPrefix(result.CompletionReason, "Deadline reached") {
		t.Fatalf("expected deadline completion, got %+v", result)
	}
}

func TestManualCompletionRules(t *testing.T) {
	paused := campaign("c1", "100", "10")
	paused.Status = entities.CampaignStatusPaused
	done := campaign("c2", "100", "10")
	done.Status = entities.CampaignStatusCompleted
	store := newStore([]entities.Campaign{paused, done}, nil, nil)
	uc := completer(store)

	result, err := uc.Complete(context.Background(), commands.CompleteCampaignCommand{CampaignID: "c1", Reason: "brand request"})
	if err != nil {
		t.Fatalf("complete paused: %v", err)
	}
	if !strings.HasPrefix(result.CompletionReason, "brand request: ") {
		t.Fatalf("unexpected reason %q", result.CompletionReason)
	}
	if history := store.StateHistory("c1"); len(history) != 1 || history[0].ChangedBy != "admin" {
		t.Fatalf("expected admin state change, got %+v", history)
	}

	if _, err := uc.Complete(context.Background(), commands.CompleteCampaignCommand{CampaignID: "c2"}); !errors.Is(err, domainerrors.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	if _, err := uc.Complete(context.Background(), commands.CompleteCampaignCommand{}); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestActivateScheduledCampaigns(t *testing.T) {
	due := campaign("c1", "100", "10")
	due.Status = entities.CampaignStatusScheduled
	start := fixedNow.Add(-time.Minute)
	due.StartDate = &start
	later := campaign("c2", "100", "10")
	later.Status = entities.CampaignStatusScheduled
	future := fixedNow.Add(time.Hour)
	later.StartDate = &future
	store := newStore([]entities.Campaign{due, later}, nil, nil)

	activated, err := completer(store).ActivateScheduled(context.Background())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if len(activated) != 1 || activated[0] != "c1" {
		t.Fatalf("expected only c1 activated, got %v", activated)
	}
	stored, _ := store.GetCampaign(context.Background(), "c2")
	if stored.Status != entities.CampaignStatusScheduled {
		t.Fatalf("c2 must stay scheduled, got %s", stored.Status)
	}
}
