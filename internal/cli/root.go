// Package cli implements the milcuentas command line client.
package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"unicode"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Reymilan15/milos-cuentas/internal/client"
	"github.com/Reymilan15/milos-cuentas/internal/logging"
)

// App is the state shared by every command.
type App struct {
	v       *viper.Viper
	prompts Prompter
	stderr  io.Writer

	cfgFile string
	verbose bool
	logger  *slog.Logger
}

func NewApp(prompts Prompter) *App {
	return &App{
		v:       viper.New(),
		prompts: prompts,
		stderr:  os.Stderr,
	}
}

func (a *App) client() *client.Client {
	return client.New(a.v.GetString(keyServer), a.v.GetString(keyToken), a.logger)
}

func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "milcuentas",
		Short:         "Track a monthly budget across VES, USD and EUR",
		Long:          `milcuentas is the command line client for the Mil Cuentas budget tracker.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if app.verbose {
				level = "debug"
			}
			app.logger = logging.New(app.stderr, level, "development")
			return app.initConfig()
		},
	}

	root.PersistentFlags().StringVarP(&app.cfgFile, "config", "c", "", "config file (default $XDG_CONFIG_HOME/milcuentas/config.yaml)")
	root.PersistentFlags().String("server", defaultServer, "API base URL")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "log API calls to stderr")
	_ = app.v.BindPFlag(keyServer, root.PersistentFlags().Lookup("server"))

	root.AddCommand(
		newLoginCmd(app),
		newRegisterCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newProfileCmd(app),
		newBalanceCmd(app),
		newListCmd(app),
		newAddCmd(app),
		newDeleteCmd(app),
		newBudgetCmd(app),
		newResetCmd(app),
		newRatesCmd(app),
	)
	return root
}

func Execute() {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	if err := NewRootCmd(NewApp(terminalPrompter{})).Execute(); err != nil {
		switch {
		case errors.Is(err, client.ErrNotLoggedIn):
			pterm.Error.Println(capitalize(client.ErrNotLoggedIn.Error()))
		case client.Unauthorized(err):
			pterm.Error.Println("Session expired, run 'milcuentas login' again")
		default:
			pterm.Error.Println(capitalize(err.Error()))
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.RequestID != "" {
				pterm.Info.Println("Request id: " + apiErr.RequestID)
			}
		}
		os.Exit(1)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
