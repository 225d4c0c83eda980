// Package transport defines the boundary between the session layer and the
// underlying BLE stack. The session layer consumes this interface only; a
// go-ble backed implementation lives in the goble subpackage and fakes live
// in internal/testutils.
package transport

import "fmt"

// AdapterPower represents the power state reported by the BLE adapter.
type AdapterPower int

const (
	PowerUnknown AdapterPower = iota
	PowerPoweredOn
	PowerPoweredOff
	PowerUnauthorized
	PowerUnsupported
	PowerResetting
)

var adapterPowerNames = map[AdapterPower]string{
	PowerUnknown:      "unknown",
	PowerPoweredOn:    "poweredOn",
	PowerPoweredOff:   "poweredOff",
	PowerUnauthorized: "unauthorized",
	PowerUnsupported:  "unsupported",
	PowerResetting:    "resetting",
}

func (p AdapterPower) String() string {
	if name, ok := adapterPowerNames[p]; ok {
		return name
	}
	return "unknown"
}

// EventKind discriminates the closed set of transport event variants.
type EventKind int

const (
	// EventAdapterState reports an adapter power state change.
	EventAdapterState EventKind = iota
	// EventDeviceFound reports a discovered advertising device.
	EventDeviceFound
	// EventConnectResult completes a Connect request.
	EventConnectResult
	// EventDisconnectResult completes a Disconnect request.
	EventDisconnectResult
	// EventCharacteristics completes a DiscoverCharacteristics request.
	EventCharacteristics
	// EventReadResult completes a Read request.
	EventReadResult
	// EventNotifyResult completes a SetNotify request.
	EventNotifyResult
	// EventNotification delivers a characteristic notification payload.
	EventNotification
)

var eventKindNames = map[EventKind]string{
	EventAdapterState:     "adapter_state",
	EventDeviceFound:      "device_found",
	EventConnectResult:    "connect_result",
	EventDisconnectResult: "disconnect_result",
	EventCharacteristics:  "characteristics",
	EventReadResult:       "read_result",
	EventNotifyResult:     "notify_result",
	EventNotification:     "notification",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event_kind_%d", int(k))
}

// Event is a tagged union carrying one asynchronous transport callback.
// Only the fields relevant to its Kind are populated.
type Event struct {
	Kind EventKind

	// Adapter is set for EventAdapterState.
	Adapter AdapterPower

	// DeviceID identifies the device the event concerns. Set for every
	// kind except EventAdapterState.
	DeviceID string

	// Name and RSSI are set for EventDeviceFound.
	Name string
	RSSI int

	// Characteristic is set for EventReadResult, EventNotifyResult and
	// EventNotification; Characteristics for EventCharacteristics.
	Characteristic  string
	Characteristics []string

	// Success is set for EventConnectResult and EventDisconnectResult.
	Success bool

	// Data carries the payload for EventReadResult and EventNotification.
	Data []byte

	// Err carries a transport-level failure for completion events.
	Err error
}

// Handler receives transport events. Implementations may assume events for
// a single device are never delivered concurrently with each other: the
// transport serializes all callbacks onto one logical dispatch context.
type Handler func(Event)

// Transport abstracts the BLE stack. Every method is a non-blocking
// request; results and state changes arrive later as Events on the
// registered Handler. A nil error return means only that the request was
// accepted, not that it succeeded.
type Transport interface {
	// Initialize powers up the adapter and registers the event handler.
	// The adapter's resulting power state is reported asynchronously as
	// an EventAdapterState.
	Initialize(handler Handler) error

	// Scan starts advertising discovery filtered to devices advertising
	// the given service UUID. Discovered devices are reported as
	// EventDeviceFound events until StopScan is called.
	Scan(serviceUUID string) error

	// StopScan stops an active scan.
	StopScan() error

	// Connect requests a link-layer connection to the device. Completion
	// arrives as an EventConnectResult.
	Connect(deviceID string) error

	// Disconnect requests link teardown. Completion arrives as an
	// EventDisconnectResult.
	Disconnect(deviceID string) error

	// DiscoverCharacteristics requests GATT characteristic discovery for
	// one service on a connected device. The resolved characteristic
	// UUIDs arrive as an EventCharacteristics.
	DiscoverCharacteristics(deviceID, serviceUUID string) error

	// Read requests the value of a characteristic. The payload or error
	// arrives as an EventReadResult.
	Read(deviceID, characteristicUUID string) error

	// SetNotify enables or disables notifications for a characteristic.
	// Completion arrives as an EventNotifyResult; subsequent payloads as
	// EventNotification events.
	SetNotify(deviceID, characteristicUUID string, enabled bool) error

	// Close releases adapter resources and stops event delivery.
	Close() error
}
