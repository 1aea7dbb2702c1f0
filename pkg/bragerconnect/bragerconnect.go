// Package bragerconnect implements a client for the BragerConnect
// device-telemetry service: a single authenticated websocket session
// multiplexing request/response exchanges, plus decoding of the raw
// register pools into typed device status.
package bragerconnect

import "time"

const (
	// DefaultHost is the production BragerConnect websocket endpoint.
	DefaultHost = "wss://cloud.bragerconnect.com"

	// DefaultTimeout bounds the handshake and every remote call.
	DefaultTimeout = 10 * time.Second

	// DefaultLanguage is the two-letter language code used for field
	// name and unit lookups when none is configured.
	DefaultLanguage = "en"
)

// Client is the host-facing surface of a BragerConnect session.
type Client interface {
	// Connect opens the socket, performs the READY_SIGNAL handshake,
	// logs in and negotiates the session language. No-op when already
	// connected.
	Connect() error
	// Disconnect tears the session down. Idempotent; disables automatic
	// reconnection.
	Disconnect() error
	Connected() bool
	LoggedIn() bool
	// ActiveDeviceID returns the cached id the server currently scopes
	// pool/task/alarm queries to.
	ActiveDeviceID() string
	// GetUserVariable reads a per-account server-side variable. Missing
	// variables come back as the empty string.
	GetUserVariable(name string) (string, error)
	SetUserVariable(name string, value string) error
	// UpdateAll refreshes every device the account can see and returns
	// the refreshed roster.
	UpdateAll() ([]*Device, error)
	// UpdateDevice refreshes one device, creating it in the roster when
	// unknown. knownInfo may carry an already-fetched info record to
	// avoid re-listing.
	UpdateDevice(id string, knownInfo *Info) (*Device, error)
	// Devices returns the current roster.
	Devices() []*Device
	// Device returns one tracked device by id.
	Device(id string) (*Device, bool)
}
