package broker

import (
	"context"
	"sync"
)

// DefaultStreamBuffer is the channel depth used by transports for each
// subscription.
const DefaultStreamBuffer = 256

// Stream is the channel side of a subscription. Transport callbacks Push into
// it while the consumer ranges over C. Close may race with Push; a Push that
// loses the race is dropped.
type Stream struct {
	ch   chan Message
	stop chan struct{}

	once sync.Once
	mu   sync.RWMutex
}

func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &Stream{
		ch:   make(chan Message, buffer),
		stop: make(chan struct{}),
	}
}

// C is the consumer side of the stream.
func (s *Stream) C() <-chan Message { return s.ch }

// Push delivers m, blocking while the consumer is behind. It returns false
// once the stream is closed.
func (s *Stream) Push(m Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	select {
	case <-s.stop:
		return false
	default:
	}
	select {
	case s.ch <- m:
		return true
	case <-s.stop:
		return false
	}
}

// Close stops the stream and closes C. Safe to call more than once.
func (s *Stream) Close() {
	s.once.Do(func() {
		close(s.stop)
		// wait for in-flight pushers before closing the channel
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}

// CloseWhen closes the stream when ctx is done or the session ends, then
// runs cleanup (typically the transport's unsubscribe).
func (s *Stream) CloseWhen(ctx context.Context, session <-chan struct{}, cleanup func()) {
	go func() {
		select {
		case <-ctx.Done():
		case <-session:
		case <-s.stop:
		}
		if cleanup != nil {
			cleanup()
		}
		s.Close()
	}()
}
