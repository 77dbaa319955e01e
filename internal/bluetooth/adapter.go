// Package bluetooth owns BLE discovery and connection state for the app:
// the Adapter abstraction over the radio, a Connector that sequences
// discovery and connection attempts, and the store backing the peripheral list.
package bluetooth

import (
	"context"
	"errors"
)

var (
	// ErrConnectInProgress is returned when a connection attempt is requested
	// while another one has not resolved yet.
	ErrConnectInProgress = errors.New("connection already in progress")

	// ErrConnectTimeout is returned when a connection attempt does not resolve
	// within the configured connect timeout.
	ErrConnectTimeout = errors.New("connection attempt timed out")

	// ErrAdapterUnavailable wraps failures to power on the radio.
	ErrAdapterUnavailable = errors.New("bluetooth adapter unavailable")
)

// ScanResult is one advertisement as reported by an Adapter.
type ScanResult struct {
	Address      string
	LocalName    string
	RSSI         int16
	CompanyID    uint16
	HasCompanyID bool
}

// Link is an established connection to a peripheral.
type Link interface {
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE radio so the connector can be tested and demoed
// without hardware.
type Adapter interface {
	// Enable powers on the adapter. Safe to call more than once.
	Enable() error
	// Scan reports advertisements to handler until ctx is cancelled.
	// Cancellation is not an error.
	Scan(ctx context.Context, handler func(ScanResult)) error
	// Connect establishes a connection to the peripheral with the given address.
	Connect(ctx context.Context, address string) (Link, error)
}
