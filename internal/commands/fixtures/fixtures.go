// Package fixtures holds test doubles for wiring the publisher's command
// handlers into a host dispatcher.
package fixtures

import (
	freeze "github.com/goliatone/go-freeze"
)

// Registration is one handler subscribed through a RecordingDispatcher.
type Registration struct {
	Handler  any
	released bool
}

// Unsubscribe satisfies freeze.CommandSubscription.
func (r *Registration) Unsubscribe() {
	r.released = true
}

// Released reports whether the host tore the subscription down.
func (r *Registration) Released() bool {
	return r.released
}

// RecordingDispatcher accepts every handler and remembers it. Setting Err
// makes it refuse registrations instead.
type RecordingDispatcher struct {
	Registrations []*Registration
	Err           error
}

// NewRecordingDispatcher constructs an empty dispatcher recorder.
func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{}
}

// RegisterCommand satisfies freeze.CommandDispatcher.
func (d *RecordingDispatcher) RegisterCommand(handler any) (freeze.CommandSubscription, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	reg := &Registration{Handler: handler}
	d.Registrations = append(d.Registrations, reg)
	return reg, nil
}

// Handlers lists the recorded handlers in registration order.
func (d *RecordingDispatcher) Handlers() []any {
	out := make([]any, 0, len(d.Registrations))
	for _, reg := range d.Registrations {
		out = append(out, reg.Handler)
	}
	return out
}

// Released counts the subscriptions that were torn down.
func (d *RecordingDispatcher) Released() int {
	n := 0
	for _, reg := range d.Registrations {
		if reg.released {
			n++
		}
	}
	return n
}
