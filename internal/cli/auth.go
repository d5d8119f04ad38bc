package cli

import (
	"errors"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Reymilan15/milos-cuentas/internal/client"
)

type loginFlags struct {
	Password string
}

func newLoginCmd(app *App) *cobra.Command {
	flags := &loginFlags{}

	cmd := &cobra.Command{
		Use:   "login [username-or-email]",
		Short: "Sign in and open your ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := ""
			if len(args) == 1 {
				identifier = args[0]
			}
			if identifier == "" {
				var err error
				identifier, err = app.prompts.Input("Username or email", app.v.GetString(keyUsername), requiredText)
				if err != nil {
					return err
				}
			}

			password := flags.Password
			if password == "" {
				var err error
				if password, err = app.prompts.Password("Password"); err != nil {
					return err
				}
			}

			c := app.client()
			res, err := c.Login(cmd.Context(), strings.TrimSpace(identifier), password)
			if err != nil {
				return err
			}
			if err := app.saveSession(res.Token, res.User.Username); err != nil {
				return err
			}

			pterm.Success.Printf("Signed in as %s\n", res.User.Username)
			if res.Ledger != nil {
				return renderBalance(res.Ledger)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.Password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

type registerFlags struct {
	Username string
	Email    string
	Password string
	Name     string
	Lastname string
}

func newRegisterCmd(app *App) *cobra.Command {
	flags := &registerFlags{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if flags.Username == "" {
				if flags.Username, err = app.prompts.Input("Username", "", requiredText); err != nil {
					return err
				}
			}
			if flags.Email == "" {
				if flags.Email, err = app.prompts.Input("Email", "", requiredText); err != nil {
					return err
				}
			}
			if flags.Password == "" {
				if flags.Password, err = app.prompts.Password("Password (at least 6 characters)"); err != nil {
					return err
				}
			}

			user, err := app.client().Register(cmd.Context(), client.RegisterRequest{
				Username: strings.TrimSpace(flags.Username),
				Email:    strings.TrimSpace(flags.Email),
				Password: flags.Password,
				Name:     flags.Name,
				Lastname: flags.Lastname,
			})
			if err != nil {
				return err
			}

			pterm.Success.Printf("Account %s created, run 'milcuentas login' to start\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&flags.Email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&flags.Password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&flags.Name, "name", "", "first name")
	cmd.Flags().StringVar(&flags.Lastname, "lastname", "", "last name")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Close your session and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.client().Logout(cmd.Context())
			if err != nil && !errors.Is(err, client.ErrNotLoggedIn) && !client.Unauthorized(err) {
				return err
			}
			if err := app.clearSession(); err != nil {
				return err
			}
			pterm.Success.Println("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := app.client().Me(cmd.Context())
			if err != nil {
				return err
			}
			return renderUser(u)
		},
	}
}

type profileFlags struct {
	Name     string
	Lastname string
}

func newProfileCmd(app *App) *cobra.Command {
	flags := &profileFlags{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit your name and last name",
		Long:  "Edit your name and last name. Without flags you are prompted with the current values; a blank answer keeps them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.client()
			update := client.ProfileUpdate{
				Name:     strings.TrimSpace(flags.Name),
				Lastname: strings.TrimSpace(flags.Lastname),
			}

			if update.Name == "" && update.Lastname == "" {
				current, err := c.Me(cmd.Context())
				if err != nil {
					return err
				}
				name, err := app.prompts.Input("Name", current.Name, nil)
				if err != nil {
					return err
				}
				lastname, err := app.prompts.Input("Lastname", current.Lastname, nil)
				if err != nil {
					return err
				}
				if v := strings.TrimSpace(name); v != current.Name {
					update.Name = v
				}
				if v := strings.TrimSpace(lastname); v != current.Lastname {
					update.Lastname = v
				}
				if update.Name == "" && update.Lastname == "" {
					pterm.Info.Println("Nothing to change")
					return nil
				}
			}

			u, err := c.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}
			pterm.Success.Println("Profile updated")
			return renderUser(u)
		},
	}

	cmd.Flags().StringVar(&flags.Name, "name", "", "first name")
	cmd.Flags().StringVar(&flags.Lastname, "lastname", "", "last name")
	return cmd
}
