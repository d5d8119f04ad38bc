package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

// Prompter asks the user for input. Commands only prompt for values that
// were not given as flags or arguments.
type Prompter interface {
	Confirm(message string, def bool) (bool, error)
	Input(title, placeholder string, validate func(string) error) (string, error)
	Password(title string) (string, error)
	Select(title string, options []string, def string) (string, error)
}

var surveyOpts = []survey.AskOpt{
	survey.WithIcons(func(icons *survey.IconSet) {
		icons.Question.Text = "-"
	}),
}

type terminalPrompter struct{}

func (terminalPrompter) Confirm(message string, def bool) (bool, error) {
	ok := def
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &ok, surveyOpts...); err != nil {
		return false, err
	}
	return ok, nil
}

func (terminalPrompter) Input(title, placeholder string, validate func(string) error) (string, error) {
	var s string
	input := huh.NewInput().Title(title).Value(&s)
	if placeholder != "" {
		input.Placeholder(placeholder)
	}
	if validate != nil {
		input.Validate(validate)
	}
	if err := input.Run(); err != nil {
		return "", err
	}
	if s == "" {
		return placeholder, nil
	}
	return strings.TrimSpace(s), nil
}

func (terminalPrompter) Password(title string) (string, error) {
	var s string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&s).
		Run()
	return s, err
}

func (terminalPrompter) Select(title string, options []string, def string) (string, error) {
	selected := def
	err := huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(options...)...).
		Value(&selected).
		Run()
	return selected, err
}

func requiredText(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func positiveAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func currencyNames() []string {
	names := make([]string, 0, len(domain.SupportedCurrencies))
	for _, c := range domain.SupportedCurrencies {
		names = append(names, string(c))
	}
	return names
}
