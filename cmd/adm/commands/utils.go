package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	contextutils "devlense/internal/utils"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readSecret prompts for a value without echo on a terminal. Piped input is
// read line by line so scripts and tests can feed passwords.
func readSecret(cmd *cobra.Command, lines *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
		}
		return string(b), nil
	}

	line, err := lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return strings.TrimRight(line, "\r\n"), nil
}

// readNewPassword asks for a password twice and checks both entries match
func readNewPassword(cmd *cobra.Command) (string, error) {
	lines := bufio.NewReader(cmd.InOrStdin())

	password, err := readSecret(cmd, lines, "Enter new password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", contextutils.ErrorWithContextf("password cannot be empty")
	}

	confirm, err := readSecret(cmd, lines, "Confirm new password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", contextutils.ErrorWithContextf("passwords do not match")
	}
	return password, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// cell renders a scanned column value for the terminal
func cell(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	r := []rune(strings.ReplaceAll(fmt.Sprint(v), "\n", " "))
	if len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return string(r)
}
