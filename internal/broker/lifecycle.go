package broker

import "sync"

// Lifecycle tracks the end of a session. Transports embed it to implement
// Done and Err.
type Lifecycle struct {
	once sync.Once
	done chan struct{}
	mu   sync.Mutex
	err  error
}

func (l *Lifecycle) init() {
	l.once.Do(func() { l.done = make(chan struct{}) })
}

// Done is closed once the session has ended.
func (l *Lifecycle) Done() <-chan struct{} {
	l.init()
	return l.done
}

// Err returns the cause recorded by Lost, if any.
func (l *Lifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Lost marks the session as ended by err. Only the first call has effect.
// It reports whether this call ended the session.
func (l *Lifecycle) Lost(err error) bool {
	return l.end(err)
}

// Ended marks the session as cleanly closed and reports whether this call
// ended it.
func (l *Lifecycle) Ended() bool {
	return l.end(nil)
}

// Closed reports whether the session has ended.
func (l *Lifecycle) Closed() bool {
	select {
	case <-l.Done():
		return true
	default:
		return false
	}
}

func (l *Lifecycle) end(err error) bool {
	l.init()
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.done:
		return false
	default:
	}
	l.err = err
	close(l.done)
	return true
}
