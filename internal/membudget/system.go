package membudget

import (
	"github.com/shirou/gopsutil/v3/mem"
)

// defaultBudgetFraction is how much of available system memory the engine
// claims when the manifest does not set an explicit budget.
const defaultBudgetFraction = 0.25

// fallbackBudgetBytes is used when the platform memory probe fails.
const fallbackBudgetBytes = 256 << 20

// DefaultBudget derives a budget from available system memory. The probe is
// advisory like the rest of this package; on error it returns a conservative
// fixed budget rather than failing startup.
func DefaultBudget() int64 {
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Available == 0 {
		return fallbackBudgetBytes
	}
	return int64(float64(vm.Available) * defaultBudgetFraction)
}
