package bridge

import "fmt"

// ConfigurationError reports a missing or malformed configuration section.
type ConfigurationError struct {
	Section string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration section %q: %v", e.Section, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports a failure to open, keep or close the broker
// session.
type ConnectionError struct {
	Op   string // "connect", "session" or "close"
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("broker %s %s: %v", e.Op, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ComponentFailure wraps an error returned by a receiver's Run.
type ComponentFailure struct {
	Name string
	Err  error
}

func (e *ComponentFailure) Error() string {
	return fmt.Sprintf("receiver %q failed: %v", e.Name, e.Err)
}

func (e *ComponentFailure) Unwrap() error { return e.Err }
