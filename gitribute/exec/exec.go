// Package exec runs the user's editor, attached to the terminal, for an
// edit session.
package exec

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

const defaultEditor = "vi"

// Interactive runs the named command with the
// process's standard streams, for programs that need
// the terminal.
func Interactive(
	ctx context.Context,
	name string,
	arg ...string,
) error {
	const errCtx = "running interactive command"

	slog.Info(
		"running",
		"cmd", name,
		"args", strings.Join(arg, " "),
	)

	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf(
			"%s: %s: %w", errCtx, name, err,
		)
	}

	return nil
}

// Editor returns the user's editor command line:
// $VISUAL, then $EDITOR, then vi. Values holding
// flags ("code --wait") are split into fields.
func Editor() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if f := strings.Fields(os.Getenv(env)); len(f) > 0 {
			return f
		}
	}

	return []string{defaultEditor}
}

// Edit opens path in the user's editor and waits for
// it to exit.
func Edit(ctx context.Context, path string) error {
	ed := Editor()

	return Interactive(ctx, ed[0], append(ed[1:], path)...)
}
