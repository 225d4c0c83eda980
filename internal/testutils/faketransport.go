// Package testutils provides test doubles for the transport boundary and
// the observer contract.
package testutils

import (
	"sync"

	"github.com/rowkit/ergble/internal/erg"
	"github.com/rowkit/ergble/internal/telemetry"
	"github.com/rowkit/ergble/internal/transport"
)

// TransportCall records one request made against the fake transport.
type TransportCall struct {
	Op       string // "initialize", "scan", "stop_scan", "connect", "disconnect", "discover", "read", "set_notify", "close"
	DeviceID string
	Arg      string // service or characteristic UUID, where applicable
	Enabled  bool   // set_notify only
}

// FakeTransport implements transport.Transport by recording every request
// and letting the test emit completion events synchronously through the
// registered handler, which mimics the single-threaded dispatch context of
// the real transport.
type FakeTransport struct {
	mu      sync.Mutex
	handler transport.Handler
	calls   []TransportCall

	// Errors to return from the corresponding request, nil for success.
	InitializeErr error
	ScanErr       error
	StopScanErr   error
	ConnectErr    error
	DisconnectErr error
	DiscoverErr   error
	ReadErr       error
	SetNotifyErr  error
}

// NewFakeTransport creates an empty fake.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

func (f *FakeTransport) record(call TransportCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *FakeTransport) Initialize(handler transport.Handler) error {
	f.record(TransportCall{Op: "initialize"})
	if f.InitializeErr != nil {
		return f.InitializeErr
	}
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return nil
}

func (f *FakeTransport) Scan(serviceUUID string) error {
	f.record(TransportCall{Op: "scan", Arg: serviceUUID})
	return f.ScanErr
}

func (f *FakeTransport) StopScan() error {
	f.record(TransportCall{Op: "stop_scan"})
	return f.StopScanErr
}

func (f *FakeTransport) Connect(deviceID string) error {
	f.record(TransportCall{Op: "connect", DeviceID: deviceID})
	return f.ConnectErr
}

func (f *FakeTransport) Disconnect(deviceID string) error {
	f.record(TransportCall{Op: "disconnect", DeviceID: deviceID})
	return f.DisconnectErr
}

func (f *FakeTransport) DiscoverCharacteristics(deviceID, serviceUUID string) error {
	f.record(TransportCall{Op: "discover", DeviceID: deviceID, Arg: serviceUUID})
	return f.DiscoverErr
}

func (f *FakeTransport) Read(deviceID, characteristicUUID string) error {
	f.record(TransportCall{Op: "read", DeviceID: deviceID, Arg: characteristicUUID})
	return f.ReadErr
}

func (f *FakeTransport) SetNotify(deviceID, characteristicUUID string, enabled bool) error {
	f.record(TransportCall{Op: "set_notify", DeviceID: deviceID, Arg: characteristicUUID, Enabled: enabled})
	return f.SetNotifyErr
}

func (f *FakeTransport) Close() error {
	f.record(TransportCall{Op: "close"})
	return nil
}

// Emit delivers an event to the registered handler synchronously, the way
// the real transport's dispatch goroutine would.
func (f *FakeTransport) Emit(ev transport.Event) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

// Calls returns a snapshot of the recorded requests.
func (f *FakeTransport) Calls() []TransportCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TransportCall(nil), f.calls...)
}

// CallsTo returns the recorded requests with the given op.
func (f *FakeTransport) CallsTo(op string) []TransportCall {
	var result []TransportCall
	for _, call := range f.Calls() {
		if call.Op == op {
			result = append(result, call)
		}
	}
	return result
}

// ResetCalls clears the recorded requests.
func (f *FakeTransport) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// StateChange records one observed session state transition.
type StateChange struct {
	DeviceID string
	Previous erg.SessionState
	Current  erg.SessionState
}

// TelemetryEvent records one observed telemetry record.
type TelemetryEvent struct {
	DeviceID string
	Record   telemetry.Record
}

// DiagnosticEvent records one observed diagnostic message.
type DiagnosticEvent struct {
	DeviceID string
	Message  string
}

// RecordingObserver implements erg.Observer by recording every callback.
type RecordingObserver struct {
	mu           sync.Mutex
	Discovered   []*erg.Session
	StateChanges []StateChange
	Telemetry    []TelemetryEvent
	Diagnostics  []DiagnosticEvent
}

// NewRecordingObserver creates an empty recording observer.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (o *RecordingObserver) DeviceDiscovered(s *erg.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Discovered = append(o.Discovered, s)
}

func (o *RecordingObserver) SessionStateChanged(deviceID string, previous, current erg.SessionState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.StateChanges = append(o.StateChanges, StateChange{DeviceID: deviceID, Previous: previous, Current: current})
}

func (o *RecordingObserver) TelemetryReceived(deviceID string, record telemetry.Record) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Telemetry = append(o.Telemetry, TelemetryEvent{DeviceID: deviceID, Record: record})
}

func (o *RecordingObserver) Diagnostic(deviceID string, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Diagnostics = append(o.Diagnostics, DiagnosticEvent{DeviceID: deviceID, Message: message})
}

// LastStateChange returns the most recent transition, if any.
func (o *RecordingObserver) LastStateChange() (StateChange, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.StateChanges) == 0 {
		return StateChange{}, false
	}
	return o.StateChanges[len(o.StateChanges)-1], true
}

// Reset clears everything recorded so far.
func (o *RecordingObserver) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Discovered = nil
	o.StateChanges = nil
	o.Telemetry = nil
	o.Diagnostics = nil
}
