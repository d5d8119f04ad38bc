package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Reymilan15/milos-cuentas/internal/client"
	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

func newBalanceCmd(app *App) *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:     "balance",
		Aliases: []string{"b"},
		Short:   "Show budget, spending and what is left",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.client()
			l, err := c.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderBalance(l); err != nil {
				return err
			}

			if currency == "" {
				return nil
			}
			display, err := domain.ParseCurrency(currency)
			if err != nil {
				return fmt.Errorf("currency must be one of %s", strings.Join(currencyNames(), ", "))
			}
			r, err := c.Remaining(cmd.Context(), display)
			if err != nil {
				return err
			}
			pterm.Info.Printf("Remaining in %s: %s\n", r.Currency, r.Remaining.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "also show the remaining budget in VES, USD or EUR")
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded expenses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.client().Ledger(cmd.Context())
			if err != nil {
				return err
			}
			return renderTransactions(l.Transactions, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of expenses to show, 0 for all")
	return cmd
}

type addFlags struct {
	Amount   string
	Currency string
	Yes      bool
}

type addRunner struct {
	app   *App
	flags *addFlags
	cmd   *cobra.Command
}

func newAddCmd(app *App) *cobra.Command {
	flags := &addFlags{}

	cmd := &cobra.Command{
		Use:   "add [description]",
		Short: "Record an expense",
		Long: `Record an expense against your budget.

Amounts in USD or EUR are converted to VES at the current rate. When the
expense would take your spending past the alert threshold you are asked to
confirm it.

Examples:
  milcuentas add "Harina PAN" --amount 45
  milcuentas add "Libro" --amount 10 --currency USD`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := &addRunner{app: app, flags: flags, cmd: cmd}
			return r.Run(args)
		},
	}

	cmd.Flags().StringVarP(&flags.Amount, "amount", "a", "", "amount in the chosen currency")
	cmd.Flags().StringVar(&flags.Currency, "currency", "", "VES, USD or EUR (default VES)")
	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "accept crossing the alert threshold without asking")
	return cmd
}

func (r *addRunner) Run(args []string) error {
	expense, err := r.collect(args)
	if err != nil {
		return err
	}
	expense.Confirm = r.flags.Yes

	c := r.app.client()
	key := uuid.NewString()

	tx, err := c.AddExpense(r.cmd.Context(), expense, key)
	if details, ok := client.ConfirmationRequired(err); ok {
		if details != nil {
			pterm.Warning.Printf("This expense (%s) takes spending to %s, past your alert of %s\n",
				money(details.ValueInBase, domain.BaseCurrency),
				money(details.ProjectedSpent, domain.BaseCurrency),
				money(details.Threshold, domain.BaseCurrency))
		}
		proceed, perr := r.app.prompts.Confirm("Record it anyway?", false)
		if perr != nil {
			return perr
		}
		if !proceed {
			pterm.Info.Println("Expense not recorded")
			return nil
		}
		expense.Confirm = true
		tx, err = c.AddExpense(r.cmd.Context(), expense, key)
	}
	if err != nil {
		return err
	}

	pterm.Success.Printf("Recorded #%d %s (%s)\n", tx.ID, tx.Description, money(tx.ValueInBase, domain.BaseCurrency))
	if tx.BalanceAfter != nil {
		pterm.Info.Printf("Remaining: %s\n", money(*tx.BalanceAfter, domain.BaseCurrency))
	}
	return nil
}

func (r *addRunner) collect(args []string) (client.Expense, error) {
	var e client.Expense
	var err error

	if len(args) == 1 {
		e.Description = args[0]
	}
	if strings.TrimSpace(e.Description) == "" {
		if e.Description, err = r.app.prompts.Input("Description", "", requiredText); err != nil {
			return e, err
		}
	}

	currency := r.flags.Currency
	amount := r.flags.Amount
	if amount == "" {
		if currency == "" {
			if currency, err = r.app.prompts.Select("Currency", currencyNames(), string(domain.BaseCurrency)); err != nil {
				return e, err
			}
		}
		if amount, err = r.app.prompts.Input("Amount", "", positiveAmount); err != nil {
			return e, err
		}
	}

	if err := positiveAmount(amount); err != nil {
		return e, fmt.Errorf("amount %w", err)
	}
	e.Amount = decimal.RequireFromString(strings.TrimSpace(amount))

	if currency != "" {
		c, err := domain.ParseCurrency(currency)
		if err != nil {
			return e, fmt.Errorf("currency must be one of %s", strings.Join(currencyNames(), ", "))
		}
		e.Currency = c
	}
	return e, nil
}

func newDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid expense id: %s", args[0])
			}

			if !yes {
				ok, err := app.prompts.Confirm(fmt.Sprintf("Delete expense #%d?", id), false)
				if err != nil {
					return err
				}
				if !ok {
					pterm.Info.Println("Deletion cancelled")
					return nil
				}
			}

			if err := app.client().DeleteExpense(cmd.Context(), id); err != nil {
				return err
			}
			pterm.Success.Printf("Expense #%d deleted\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func newBudgetCmd(app *App) *cobra.Command {
	var alert string

	cmd := &cobra.Command{
		Use:   "budget <amount>",
		Short: "Set the budget ceiling and the spending alert, both in VES",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ceiling, err := decimal.NewFromString(strings.TrimSpace(args[0]))
			if err != nil || ceiling.IsNegative() {
				return fmt.Errorf("budget must be a number of zero or more")
			}

			threshold := decimal.Zero
			if alert != "" {
				threshold, err = decimal.NewFromString(strings.TrimSpace(alert))
				if err != nil || threshold.IsNegative() {
					return fmt.Errorf("alert must be a number of zero or more")
				}
			}

			l, err := app.client().SetBudget(cmd.Context(), ceiling, threshold)
			if err != nil {
				return err
			}
			pterm.Success.Println("Budget updated")
			return renderBalance(l)
		},
	}

	cmd.Flags().StringVar(&alert, "alert", "", "ask for confirmation once spending passes this amount, 0 disables")
	return cmd
}

func newResetCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the budget, the alert and every expense",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				pterm.Warning.Println("This action cannot be undone!")
				ok, err := app.prompts.Confirm("Clear your whole ledger?", false)
				if err != nil {
					return err
				}
				if !ok {
					pterm.Info.Println("Reset cancelled")
					return nil
				}
			}

			if err := app.client().Reset(cmd.Context()); err != nil {
				return err
			}
			pterm.Success.Println("Ledger cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}
