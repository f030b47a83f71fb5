// cmd/bloomctl/password.go
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bloomcycle/bloom/internal/app/system/authutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newHashPasswordCmd() *cobra.Command {
	var loginID string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for the users.password_hash field",
		Long: `Reads a password twice (masked on a terminal, one line each when piped),
checks it against the sign-up password rules and prints the bcrypt hash.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			read := lineReader(cmd.InOrStdin())
			if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				read = terminalReader(f, cmd.ErrOrStderr())
			}

			hash, err := hashPassword(read, loginID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&loginID, "login-id", "", "Login ID the password must not resemble")
	return cmd
}

// readFunc returns the next secret shown with prompt.
type readFunc func(prompt string) (string, error)

// terminalReader reads without echo.
func terminalReader(f *os.File, prompts io.Writer) readFunc {
	return func(prompt string) (string, error) {
		fmt.Fprint(prompts, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompts)
		return string(b), err
	}
}

// lineReader reads one line per call and ignores the prompt.
func lineReader(r io.Reader) readFunc {
	br := bufio.NewReader(r)
	return func(string) (string, error) {
		line, err := br.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

func hashPassword(read readFunc, loginID string) (string, error) {
	password, err := read("Password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := read("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	if err := authutil.ValidatePassword(password, loginID); err != nil {
		return "", err
	}
	return authutil.HashPassword(password)
}
