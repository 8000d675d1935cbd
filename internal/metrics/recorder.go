// Package metrics exposes publishing and content loading measurements.
//
// Components take a Recorder and default to NoopRecorder so that metrics
// never need nil checks at call sites. The Prometheus implementation is
// switched on by configuration and served by the live server.
package metrics

import "time"

// Outcome labels a render or publish result.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeDryRun  Outcome = "dry_run"
	// OutcomeCanceled marks commands stopped by cancellation or timeout.
	OutcomeCanceled Outcome = "canceled"
)

// Recorder receives measurements from the posts repository, the publisher
// and the command handlers.
type Recorder interface {
	ObserveLoad(collection string, loaded, skipped int, d time.Duration)
	ObserveRender(kind string, outcome Outcome, d time.Duration)
	ObservePublish(outcome Outcome, pages int, d time.Duration)
	ObserveCommand(command string, outcome Outcome, d time.Duration)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveLoad(string, int, int, time.Duration) {}
func (NoopRecorder) ObserveRender(string, Outcome, time.Duration) {}
func (NoopRecorder) ObservePublish(Outcome, int, time.Duration) {}
func (NoopRecorder) ObserveCommand(string, Outcome, time.Duration) {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
