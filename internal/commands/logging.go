package commands

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-freeze/internal/logging"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// DefaultCommandTimeout bounds a single command. A publish of a large site
// renders every route inside one execution, so the bound is generous.
const DefaultCommandTimeout = 5 * time.Minute

// CommandLogger returns the logger for a group of handlers, named
// "freeze.commands.<group>" and tagged with the group.
func CommandLogger(provider interfaces.LoggerProvider, group string) interfaces.Logger {
	group = strings.TrimSpace(group)
	if group == "" {
		group = "site"
	}
	return logging.WithFields(logging.ModuleLogger(provider, "freeze.commands."+group), map[string]any{
		"component":     "command",
		"command_group": group,
	})
}

// EnsureLogger returns logger, or a no-op logger when it is nil.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
