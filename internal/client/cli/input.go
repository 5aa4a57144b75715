package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"user-management-api/internal/client/api"
)

// test seams
var (
	newAPIClient = func(baseURL string) *api.Client { return api.NewClient(baseURL) }
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// readLine returns the next trimmed line. A final line without newline counts.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo from a terminal, or a plain
// line when input is piped.
func (a *App) promptPassword(cmd *cobra.Command) (string, error) {
	w := cmd.ErrOrStderr()
	fmt.Fprint(w, "Password: ")

	if f, ok := cmd.InOrStdin().(*os.File); ok && isTerminal(int(f.Fd())) {
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}

	pw, err := readLine(a.in)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}

// passwordFlag returns the --password value or prompts for it.
func (a *App) passwordFlag(cmd *cobra.Command, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	return a.promptPassword(cmd)
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func (a *App) confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	answer, err := readLine(a.in)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
