package erg

import "github.com/rowkit/ergble/internal/telemetry"

// Observer receives session lifecycle and telemetry events. A single
// observer is registered per manager; sessions created by the manager
// share it. Callbacks are invoked from the transport's dispatch context
// and must not block.
type Observer interface {
	// DeviceDiscovered is called exactly once per device identifier, when
	// its session is first registered.
	DeviceDiscovered(s *Session)

	// SessionStateChanged is called for every accepted state transition
	// with the previous and new state. Rejected operations never notify.
	SessionStateChanged(deviceID string, previous, current SessionState)

	// TelemetryReceived delivers one decoded telemetry record.
	TelemetryReceived(deviceID string, record telemetry.Record)

	// Diagnostic reports a non-fatal problem: an invalid operation, a
	// decode failure or a transport error. The session keeps running.
	Diagnostic(deviceID string, message string)
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil
// fields are no-ops.
type ObserverFuncs struct {
	OnDiscovered  func(s *Session)
	OnStateChange func(deviceID string, previous, current SessionState)
	OnTelemetry   func(deviceID string, record telemetry.Record)
	OnDiagnostic  func(deviceID string, message string)
}

func (o *ObserverFuncs) DeviceDiscovered(s *Session) {
	if o.OnDiscovered != nil {
		o.OnDiscovered(s)
	}
}

func (o *ObserverFuncs) SessionStateChanged(deviceID string, previous, current SessionState) {
	if o.OnStateChange != nil {
		o.OnStateChange(deviceID, previous, current)
	}
}

func (o *ObserverFuncs) TelemetryReceived(deviceID string, record telemetry.Record) {
	if o.OnTelemetry != nil {
		o.OnTelemetry(deviceID, record)
	}
}

func (o *ObserverFuncs) Diagnostic(deviceID string, message string) {
	if o.OnDiagnostic != nil {
		o.OnDiagnostic(deviceID, message)
	}
}
