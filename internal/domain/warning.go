package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ThresholdWarning is returned instead of inserting a transaction that would
// push total spending past the alert threshold. Callers resolve it by asking
// the user and retrying with confirmation.
type ThresholdWarning struct {
	Threshold      decimal.Decimal
	ProjectedSpent decimal.Decimal
	ValueInBase    decimal.Decimal
}

func (w *ThresholdWarning) Error() string {
	return fmt.Sprintf("projected spending %s exceeds alert threshold %s", w.ProjectedSpent, w.Threshold)
}

func (w *ThresholdWarning) Unwrap() error {
	return ErrConfirmationRequired
}
