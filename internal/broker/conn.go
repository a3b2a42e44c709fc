// Package broker defines the shared Connection Handle handed to every
// receiver, and the registry of wire transports able to open one.
//
// A Conn is owned by whoever dialed it. Receivers only borrow it: they may
// Publish and Subscribe concurrently but must never Close it.
package broker

import (
	"context"
	"errors"
)

var (
	ErrClosed              = errors.New("broker connection closed")
	ErrUnsupportedScheme   = errors.New("unsupported broker scheme")
	ErrWildcardUnsupported = errors.New("topic wildcards not supported by transport")
)

// Message is a single delivery from a subscription.
type Message struct {
	Topic   string
	Payload []byte
	Headers map[string]string
}

// Conn is a live session to the broker. Implementations must be safe for
// concurrent use by multiple receivers.
type Conn interface {
	// Publish sends payload to topic. Topics use MQTT syntax ("a/b").
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe streams messages matching topic (MQTT wildcards "+" and "#"
	// where the transport supports them). The channel is closed when ctx is
	// done or the session ends.
	Subscribe(ctx context.Context, topic string) (<-chan Message, error)
	// Done is closed when the session ends, either lost or closed.
	Done() <-chan struct{}
	// Err reports why the session ended. It is nil while the session is
	// alive and after a clean Close.
	Err() error
	// Close ends the session. Calling it more than once is a no-op.
	Close() error
}
