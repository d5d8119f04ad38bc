package cli

import (
	"fmt"
	"slices"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/client"
	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

func money(d decimal.Decimal, c domain.Currency) string {
	return fmt.Sprintf("%s %s", d.StringFixed(2), c)
}

func statusLabel(status string) string {
	switch status {
	case "overdrawn":
		return pterm.Red("overdrawn")
	case "alert":
		return pterm.Yellow("alert")
	case "ok":
		return pterm.Green("ok")
	default:
		return pterm.Gray("no budget")
	}
}

func renderBalance(l *client.Ledger) error {
	pterm.DefaultSection.Println("Balance")

	threshold := "off"
	if l.AlertThreshold.IsPositive() {
		threshold = money(l.AlertThreshold, domain.BaseCurrency)
	}

	data := pterm.TableData{
		{pterm.Blue("Budget"), money(l.Budget, domain.BaseCurrency)},
		{pterm.Blue("Alert at"), threshold},
		{pterm.Blue("Spent"), money(l.TotalSpent, domain.BaseCurrency)},
		{pterm.Blue("Remaining"), money(l.Remaining, domain.BaseCurrency)},
		{pterm.Blue("Status"), statusLabel(l.Status)},
		{pterm.Blue("Today"), money(l.Summary.Today, domain.BaseCurrency)},
		{pterm.Blue("This week"), money(l.Summary.ThisWeek, domain.BaseCurrency)},
		{pterm.Blue("This month"), money(l.Summary.ThisMonth, domain.BaseCurrency)},
	}
	if err := pterm.DefaultTable.WithData(data).Render(); err != nil {
		return err
	}

	if l.Sync.State == "failed" {
		pterm.Warning.Printf("Last save failed: %s\n", l.Sync.LastError)
	}
	return nil
}

// renderTransactions lists the newest entries first.
func renderTransactions(txs []domain.Transaction, limit int) error {
	if len(txs) == 0 {
		pterm.Info.Println("No expenses recorded yet")
		return nil
	}

	ordered := slices.Clone(txs)
	slices.Reverse(ordered)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}

	data := pterm.TableData{{"ID", "Date", "Description", "Amount", "In VES", "Balance after"}}
	for _, t := range ordered {
		after := "-"
		if t.BalanceAfter != nil {
			after = t.BalanceAfter.StringFixed(2)
		}
		data = append(data, []string{
			fmt.Sprint(t.ID),
			t.Date.Local().Format("2006-01-02 15:04"),
			t.Description,
			money(t.OriginalAmount, t.OriginalCurrency),
			t.ValueInBase.StringFixed(2),
			after,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderRates(r *client.Rates) error {
	data := pterm.TableData{{"Currency", "VES per unit"}}
	for _, c := range domain.SupportedCurrencies {
		if c.IsBase() {
			continue
		}
		rate, ok := r.Rates[c]
		value := "-"
		if ok {
			value = rate.StringFixed(2)
		}
		data = append(data, []string{string(c), value})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	switch {
	case r.Fallback:
		pterm.Warning.Println("Using default rates, the rate source has not answered yet")
	case r.UpdatedAt != nil:
		pterm.Info.Printf("Updated %s\n", r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if r.LastError != "" {
		pterm.Warning.Printf("Last refresh failed: %s\n", r.LastError)
	}
	return nil
}

func renderUser(u *client.User) error {
	name := u.FullName
	if name == "" {
		name = "-"
	}
	return pterm.DefaultTable.WithData(pterm.TableData{
		{pterm.Blue("Username"), u.Username},
		{pterm.Blue("Email"), u.Email},
		{pterm.Blue("Name"), name},
	}).Render()
}
