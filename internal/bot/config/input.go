package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// ErrNoTerminal is returned when a password is needed but stdin is not a
// terminal.
var ErrNoTerminal = errors.New("password not configured and stdin is not a terminal")

// PromptPassword fills cfg.Password from the terminal when no other source
// provided it.
func PromptPassword(cfg *Config, w io.Writer) error {
	if cfg.Password != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return ErrNoTerminal
	}
	if _, err := fmt.Fprintf(w, "Password for %s: ", cfg.Account); err != nil {
		return err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return err
	}
	cfg.Password = string(pw)
	return nil
}
