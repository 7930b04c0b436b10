package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

var errEmptyCommand = errors.New("notify command is empty")

// Command runs a program for every event. The event is passed in the
// LAMPLIGHTER_EVENT, LAMPLIGHTER_WHO, LAMPLIGHTER_QUIET and
// LAMPLIGHTER_CHANGES environment variables.
type Command struct {
	argv []string
}

// NewCommand creates a command notifier. The command line is split on
// whitespace; no shell is involved.
func NewCommand(command string) (*Command, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, errEmptyCommand
	}

	return &Command{argv: argv}, nil
}

// Notify implements Notifier.
func (c *Command) Notify(ctx context.Context, e Event) error {
	//nolint:gosec // The command comes from the settings file.
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Env = append(os.Environ(),
		"LAMPLIGHTER_EVENT="+string(e.Kind),
		"LAMPLIGHTER_WHO="+e.Who,
		"LAMPLIGHTER_QUIET="+strconv.FormatBool(e.Quiet),
		"LAMPLIGHTER_CHANGES="+formatChanges(e),
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run %s: %w: %s", c.argv[0], err, strings.TrimSpace(string(output)))
	}

	return nil
}

// formatChanges renders changes as "alias:from>to" joined by commas.
func formatChanges(e Event) string {
	parts := make([]string, 0, len(e.Changes))
	for _, c := range e.Changes {
		parts = append(parts, fmt.Sprintf("%s:%s>%s", c.Subject, c.From, c.To))
	}

	return strings.Join(parts, ",")
}
