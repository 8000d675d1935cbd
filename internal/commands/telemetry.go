package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-freeze/internal/logging"
	"github.com/goliatone/go-freeze/internal/metrics"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// TelemetryStatus captures the result category for command execution.
type TelemetryStatus string

const (
	// TelemetryStatusSuccess indicates the command completed without errors.
	TelemetryStatusSuccess TelemetryStatus = "success"
	// TelemetryStatusFailed indicates the command execution returned an error.
	TelemetryStatusFailed TelemetryStatus = "failed"
	// TelemetryStatusContextError indicates execution failed due to context cancellation or deadline.
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

func (s TelemetryStatus) outcome() metrics.Outcome {
	switch s {
	case TelemetryStatusSuccess:
		return metrics.OutcomeSuccess
	case TelemetryStatusContextError:
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}

// TelemetryInfo describes a command execution outcome provided to telemetry callbacks.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// Telemetry represents an optional callback invoked after command execution.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry returns a telemetry callback that logs command outcomes with the supplied logger.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	logger = EnsureLogger(logger)
	return func(_ context.Context, _ T, info TelemetryInfo) {
		logTelemetry(logging.WithFields(logger, info.Fields), info)
	}
}

func logTelemetry(entry interfaces.Logger, info TelemetryInfo) {
	args := []any{"duration_ms", info.Duration.Milliseconds()}
	switch info.Status {
	case TelemetryStatusSuccess:
		entry.Info("command.execute.success", args...)
	case TelemetryStatusContextError:
		entry.Error("command.execute.context_error", append(args, "error", info.Error)...)
	default:
		entry.Error("command.execute.failed", append(args, "error", info.Error)...)
	}
}
