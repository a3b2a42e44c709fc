// Package receiver defines the contract of pluggable bridge components and
// the registry mapping their names to constructors.
//
// Receiver packages register themselves from init(), the same way the
// connectors register their transports. A binary selects the receivers it
// ships by importing their packages, and all registration therefore completes
// before main runs and before any name is resolved.
package receiver

import (
	"context"

	"github.com/cuongceg/symbiot/internal/broker"
	"github.com/rs/zerolog"
)

// Receiver is a long-running unit of work driven by the bridge.
type Receiver interface {
	// Run blocks until the receiver decides to stop (nil) or fails. It must
	// return promptly once ctx is cancelled.
	Run(ctx context.Context) error
}

// Options is the receiver's configuration section, passed verbatim.
type Options map[string]any

// Deps is what the bridge hands a receiver besides its options. Conn is
// borrowed: receivers must not close it.
type Deps struct {
	Conn broker.Conn
	Log  zerolog.Logger
}

// Factory builds a receiver. Validating opts is the factory's job.
type Factory func(deps Deps, opts Options) (Receiver, error)

// Func adapts a plain function to Receiver.
type Func func(ctx context.Context) error

func (f Func) Run(ctx context.Context) error { return f(ctx) }
