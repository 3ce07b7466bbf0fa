package main

import "testing"

const earningsRoot = "clipledger/contexts/finance-core/earnings-reconciliation"

func TestCheckImportsAllowsLayeredImports(t *testing.T) {
	got := checkImports("contexts/finance-core/earnings-reconciliation/application/commands/x.go", "application", earningsRoot, []importLine{
		{Path: "context", Line: 3},
		{Path: earningsRoot + "/ports", Line: 4},
		{Path: "github.com/shopspring/decimal", Line: 5},
		{Path: "clipledger/internal/shared/events", Line: 6},
	})
	if len(got) != 0 {
		t.Fatalf("expected no violations, got %+v", got)
	}
}

func TestCheckImportsFlagsDomainInfrastructure(t *testing.T) {
	got := checkImports("contexts/finance-core/earnings-reconciliation/domain/services/x.go", "domain", earningsRoot, []importLine{
		{Path: "gorm.io/gorm", Line: 3},
		{Path: earningsRoot + "/adapters/postgres", Line: 4},
		{Path: "clipledger/contexts/other/service/ports", Line: 5},
	})
	if len(got) != 4 {
		t.Fatalf("expected 4 violations, got %d: %+v", len(got), got)
	}
}

func TestCheckImportsIgnoresAdapterLayer(t *testing.T) {
	got := checkImports("contexts/finance-core/earnings-reconciliation/adapters/postgres/x.go", "adapters", earningsRoot, []importLine{
		{Path: "gorm.io/gorm", Line: 3},
	})
	if len(got) != 0 {
		t.Fatalf("expected no violations, got %+v", got)
	}
}
