// Package earningsreconciliation contains the budget-capped view-to-earnings
// pipeline: view tracking, earnings calculation, campaign spend reconciliation,
// campaign completion and payout aggregation.
//
// The module keeps domain/application logic decoupled from runtime/platform
// concerns through ports and adapter composition.
package earningsreconciliation
