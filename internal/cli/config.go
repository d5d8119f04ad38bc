package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	keyServer   = "server"
	keyToken    = "token"
	keyUsername = "username"

	defaultServer = "http://localhost:8080"
)

func (a *App) initConfig() error {
	path := a.cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	a.v.SetConfigFile(path)
	a.v.SetConfigType("yaml")
	a.v.SetDefault(keyServer, defaultServer)

	a.v.SetEnvPrefix("MILCUENTAS")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// saveSession persists the token so later invocations stay signed in.
func (a *App) saveSession(token, username string) error {
	a.v.Set(keyToken, token)
	a.v.Set(keyUsername, username)
	return a.writeConfig()
}

func (a *App) clearSession() error {
	a.v.Set(keyToken, "")
	a.v.Set(keyUsername, "")
	return a.writeConfig()
}

func (a *App) writeConfig() error {
	path := a.v.ConfigFileUsed()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := a.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return os.Chmod(path, 0o600)
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to determine user home directory: %w", err)
		}
		return filepath.Join(home, ".milcuentas"), nil
	}
	return filepath.Join(dir, "milcuentas"), nil
}
