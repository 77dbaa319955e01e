package connectflow

import (
	"time"

	"faceplay.klederson.com/internal/bluetooth"
	"faceplay.klederson.com/internal/ui"
)

// DiscoveredMsg delivers a connector discovery to the flow.
type DiscoveredMsg bluetooth.Discovery

// ScanErrorMsg reports that the search with the given generation ended with an error.
type ScanErrorMsg struct {
	Generation uint64
	Err        error
}

// DisconnectedMsg reports that the connected peripheral went away.
type DisconnectedMsg struct {
	Peripheral bluetooth.Peripheral
}

// ConnectResultMsg carries the outcome of one connection attempt.
type ConnectResultMsg struct {
	Attempt    uint64
	Address    string
	Peripheral bluetooth.Peripheral
	Err        error
}

// EvictMsg triggers removal of peripherals that stopped advertising.
type EvictMsg time.Time

// ToastMsg asks the host to show a transient banner.
type ToastMsg ui.Toast

// FlowClosedMsg tells the host the flow is done and can be dismissed.
// Connected is set when the flow closed because a connection succeeded.
type FlowClosedMsg struct {
	Connected *bluetooth.Peripheral
}
