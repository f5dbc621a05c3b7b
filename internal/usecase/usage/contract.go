package usage

import domusage "github.com/kailas-cloud/contractdex/internal/domain/usage"

// BudgetReader provides read-only access to one token budget scope.
type BudgetReader interface {
	Scope() string
	Daily() domusage.Snapshot
	Monthly() domusage.Snapshot
}
