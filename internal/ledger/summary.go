package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusUnset     Status = "unset"
	StatusOK        Status = "ok"
	StatusAlert     Status = "alert"
	StatusOverdrawn Status = "overdrawn"
)

// Status reports the balance state: overdrawn wins over alert.
func (l *Ledger) Status() Status {
	if !l.budget.IsPositive() {
		return StatusUnset
	}

	spent := l.TotalSpent()
	if !l.budget.Sub(spent).IsPositive() {
		return StatusOverdrawn
	}
	if l.threshold.IsPositive() && spent.GreaterThan(l.threshold) {
		return StatusAlert
	}
	return StatusOK
}

// Summary holds base-currency spending for the periods containing a given
// instant.
type Summary struct {
	Today     decimal.Decimal `json:"today"`
	ThisWeek  decimal.Decimal `json:"this_week"`
	ThisMonth decimal.Decimal `json:"this_month"`
}

// Summary totals spending for the day, week (Sunday through Saturday) and
// calendar month of now, evaluated in now's location. Entries dated after the
// current week count toward the month only.
func (l *Ledger) Summary(now time.Time) Summary {
	loc := now.Location()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 7)

	s := Summary{Today: decimal.Zero, ThisWeek: decimal.Zero, ThisMonth: decimal.Zero}
	for _, t := range l.transactions {
		d := t.Date.In(loc)
		if d.Year() == now.Year() && d.Month() == now.Month() {
			s.ThisMonth = s.ThisMonth.Add(t.ValueInBase)
		}
		if !d.Before(weekStart) && d.Before(weekEnd) {
			s.ThisWeek = s.ThisWeek.Add(t.ValueInBase)
		}
		if d.Year() == now.Year() && d.YearDay() == now.YearDay() {
			s.Today = s.Today.Add(t.ValueInBase)
		}
	}
	return s
}
