package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/pimalab/pimadash/internal/config"
	"github.com/pimalab/pimadash/internal/dataset"
)

// Persistent flag values shared by every command.
var (
	flagPort           string
	flagDatabaseURL    string
	flagDBHost         string
	flagDBPort         int
	flagDBUser         string
	flagDBPassword     string
	flagDBName         string
	flagDBTable        string
	flagPasswordPrompt bool
)

// Seams for tests.
var (
	readPasswordFunc = readPassword
	stdinIsTerminal  = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	loadTable        = func(ctx context.Context, cfg config.Database) *dataset.Table {
		return dataset.NewLoader(cfg).Load(ctx)
	}
)

// loadConfig merges the command flags over the file and environment settings.
func loadConfig() (*config.Config, error) {
	overrides := config.Overrides{
		Port:        flagPort,
		DBHost:      flagDBHost,
		DBPort:      flagDBPort,
		DBUser:      flagDBUser,
		DBPassword:  flagDBPassword,
		DBName:      flagDBName,
		DBTable:     flagDBTable,
		DatabaseURL: flagDatabaseURL,
	}

	if flagPasswordPrompt && overrides.DBPassword == "" {
		if !stdinIsTerminal() {
			return nil, errors.New("--password-prompt needs an interactive terminal")
		}
		password, err := readPasswordFunc("Database password: ")
		if err != nil {
			return nil, err
		}
		overrides.DBPassword = password
	}

	cfg, err := config.LoadWithOverrides(overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// readPassword reads a password from stdin without echoing
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(bytePassword)), nil
}
