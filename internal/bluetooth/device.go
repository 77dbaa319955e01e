package bluetooth

import (
	"math"
	"time"
)

// PeripheralState tracks where a peripheral is in the connection lifecycle.
type PeripheralState int

const (
	StateDiscovered PeripheralState = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s PeripheralState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "discovered"
	}
}

// Peripheral is a discovered BLE device. Address is the opaque handle the
// adapter understands (a MAC on Linux, a CoreBluetooth UUID on macOS).
type Peripheral struct {
	Address  string
	Name     string // advertised local name, "" if none
	Vendor   string // manufacturer label such as "Apple EE:FF", display only
	RSSI     float64
	Distance float64 // Estimated distance in meters
	State    PeripheralState
	LastSeen time.Time
	History  []float64 // Recent RSSI samples, oldest first
}

// DisplayName returns the device name, falling back to the vendor label and
// then to "[unnamed]".
func (p Peripheral) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Vendor != "":
		return p.Vendor
	}
	return "[unnamed]"
}

// RSSIToDistance estimates distance from RSSI using the log-distance path loss model.
// Formula: d = 10^((measuredPower - rssi) / (10 * n))
func RSSIToDistance(rssi, measuredPower, pathLossExp float64) float64 {
	if rssi >= 0 {
		return 0.1
	}
	d := math.Pow(10, (measuredPower-rssi)/(10*pathLossExp))
	if d < 0.1 {
		return 0.1
	}
	return d
}
