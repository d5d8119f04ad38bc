package cli

import (
	"github.com/spf13/cobra"
)

func newRatesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Show the exchange rates used for new expenses",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.client().Rates(cmd.Context())
			if err != nil {
				return err
			}
			return renderRates(r)
		},
	}
}
