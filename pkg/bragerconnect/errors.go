package bragerconnect

import "fmt"

// ConnectionError reports a failed socket dial or handshake.
type ConnectionError struct {
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bragerconnect: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("bragerconnect: %s", e.Reason)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError reports a rejected login.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bragerconnect: login failed (wrong username/password): %v", e.Err)
	}
	return "bragerconnect: login failed (wrong username/password)"
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed handshake or a failed session
// negotiation step, like setting the preferred language.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("bragerconnect: protocol error: %s", e.Reason)
}

// RemoteExecutionError reports an EXCEPTION-typed response to a remote call.
type RemoteExecutionError struct {
	Name string
	ID   int64
}

func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("bragerconnect: remote execution of %s (nr=%d) failed", e.Name, e.ID)
}

// TimeoutError reports that no response arrived within the call timeout.
type TimeoutError struct {
	Name string
	ID   int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("bragerconnect: timed out waiting for response to %s (nr=%d)", e.Name, e.ID)
}

// SyncError reports an empty or inconsistent device roster.
type SyncError struct {
	Reason string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("bragerconnect: sync failed: %s", e.Reason)
}

// DataError reports a malformed or incomplete record during model
// construction.
type DataError struct {
	Reason string
	Err    error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bragerconnect: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("bragerconnect: %s", e.Reason)
}

func (e *DataError) Unwrap() error { return e.Err }
