package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/me/journal/internal/view"
)

// interactive reports whether stdin is a terminal. Tests swap it out.
var interactive = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// confirmer answers confirmation prompts: --yes accepts everything, a
// terminal asks, and anything else declines.
func confirmer(cmd *cobra.Command) view.Confirmer {
	if flagYes {
		return view.Yes
	}
	if !interactive() {
		return view.ConfirmFunc(func(prompt string) bool {
			logger.Debug("declining prompt without a terminal", "prompt", prompt)
			return false
		})
	}
	in := bufio.NewReader(cmd.InOrStdin())
	return view.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}

// promptValue returns value, or asks for it when empty and a terminal is
// attached.
func promptValue(cmd *cobra.Command, in *bufio.Reader, label, value string) (string, error) {
	if value != "" || !interactive() {
		return value, nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}
