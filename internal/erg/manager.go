package erg

import (
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rowkit/ergble/internal/transport"
)

// AdapterState represents the manager's view of the BLE adapter.
type AdapterState int

const (
	// AdapterInitialized is the state before Startup is called.
	AdapterInitialized AdapterState = iota
	// AdapterStartingUp means the transport is being brought up and the
	// power-on report is awaited.
	AdapterStartingUp
	// AdapterIdle means the adapter is powered and not scanning.
	AdapterIdle
	// AdapterScanning means device discovery is active.
	AdapterScanning
)

var adapterStateNames = map[AdapterState]string{
	AdapterInitialized: "initialized",
	AdapterStartingUp:  "startingUp",
	AdapterIdle:        "idle",
	AdapterScanning:    "scanning",
}

func (s AdapterState) String() string {
	if name, ok := adapterStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Manager owns the adapter state machine and the registry of device
// sessions. It receives every transport event, consumes the adapter and
// discovery events itself and routes the rest to the session they concern.
//
// The registry must tolerate arbitrary interleaving of discovery callbacks
// across devices, so it is a concurrent map; entries are never removed in
// normal operation. The separate ordered map preserves discovery order for
// listing.
type Manager struct {
	transport transport.Transport
	profile   *Profile
	observer  Observer
	logger    *logrus.Logger

	adapterMu sync.Mutex
	adapter   AdapterState

	sessions *hashmap.Map[string, *Session]

	orderMu sync.Mutex
	order   *orderedmap.OrderedMap[string, *Session]
}

// NewManager creates a manager in AdapterInitialized. A nil observer is
// replaced with a no-op one, a nil profile with DefaultProfile.
func NewManager(t transport.Transport, profile *Profile, observer Observer, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	if observer == nil {
		observer = &ObserverFuncs{}
	}
	if profile == nil {
		profile = DefaultProfile()
	}
	return &Manager{
		transport: t,
		profile:   profile,
		observer:  observer,
		logger:    logger,
		adapter:   AdapterInitialized,
		sessions:  hashmap.New[string, *Session](),
		order:     orderedmap.New[string, *Session](),
	}
}

// AdapterState returns the current adapter state.
func (m *Manager) AdapterState() AdapterState {
	m.adapterMu.Lock()
	defer m.adapterMu.Unlock()
	return m.adapter
}

// setAdapterState transitions the adapter if it currently is in from.
// Adapter transitions are logged, not observed: the observer contract
// covers session lifecycle only.
func (m *Manager) setAdapterState(next, from AdapterState) bool {
	m.adapterMu.Lock()
	if m.adapter != from {
		m.adapterMu.Unlock()
		return false
	}
	m.adapter = next
	m.adapterMu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"previous": from,
		"state":    next,
	}).Info("Adapter state changed")
	return true
}

// Startup brings up the transport. Valid only once, from
// AdapterInitialized; the adapter stays in AdapterStartingUp until the
// transport reports power-on.
func (m *Manager) Startup() error {
	if !m.setAdapterState(AdapterStartingUp, AdapterInitialized) {
		err := invalidTransition("startup is not valid in adapter state %s", m.AdapterState())
		m.observer.Diagnostic("", err.Error())
		return err
	}

	if err := m.transport.Initialize(m.HandleEvent); err != nil {
		m.setAdapterState(AdapterInitialized, AdapterStartingUp)
		return &Error{Kind: TransportFailure, Msg: err.Error()}
	}
	return nil
}

// StartScan begins discovery filtered to the ergometer's advertised
// service. Valid only while idle; a second call while scanning is dropped
// with a diagnostic and performs no transport request.
func (m *Manager) StartScan() error {
	if !m.setAdapterState(AdapterScanning, AdapterIdle) {
		err := invalidTransition("start scan is not valid in adapter state %s", m.AdapterState())
		m.observer.Diagnostic("", err.Error())
		return err
	}

	if err := m.transport.Scan(m.profile.AdvertisedService); err != nil {
		m.setAdapterState(AdapterIdle, AdapterScanning)
		return &Error{Kind: TransportFailure, Msg: err.Error()}
	}
	return nil
}

// StopScan stops discovery. Valid only while scanning.
func (m *Manager) StopScan() error {
	if !m.setAdapterState(AdapterIdle, AdapterScanning) {
		err := invalidTransition("stop scan is not valid in adapter state %s", m.AdapterState())
		m.observer.Diagnostic("", err.Error())
		return err
	}

	if err := m.transport.StopScan(); err != nil {
		return &Error{Kind: TransportFailure, Msg: err.Error()}
	}
	return nil
}

// Connect routes a connect request to the session registered for the
// identifier.
func (m *Manager) Connect(deviceID string) error {
	s, ok := m.Session(deviceID)
	if !ok {
		return &Error{Kind: UnknownDevice, Msg: deviceID}
	}
	return s.Connect()
}

// Disconnect routes a disconnect request to the session registered for
// the identifier.
func (m *Manager) Disconnect(deviceID string) error {
	s, ok := m.Session(deviceID)
	if !ok {
		return &Error{Kind: UnknownDevice, Msg: deviceID}
	}
	return s.Disconnect()
}

// Session returns the session registered for an identifier.
func (m *Manager) Session(deviceID string) (*Session, bool) {
	return m.sessions.Get(deviceID)
}

// Sessions returns all registered sessions in discovery order.
func (m *Manager) Sessions() []*Session {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	result := make([]*Session, 0, m.order.Len())
	for pair := m.order.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// HandleEvent is the single entry point for transport events. Adapter and
// discovery events are consumed here; everything else is routed to the
// session for the event's device.
func (m *Manager) HandleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventAdapterState:
		m.handleAdapterState(ev)
	case transport.EventDeviceFound:
		m.handleDiscovery(ev)
	default:
		s, ok := m.Session(ev.DeviceID)
		if !ok {
			m.logger.WithFields(logrus.Fields{
				"device": ev.DeviceID,
				"kind":   ev.Kind,
			}).Debug("Transport event for unregistered device dropped")
			return
		}
		s.HandleEvent(ev)
	}
}

// handleAdapterState reacts to adapter power reports. Only power-on while
// starting up causes a transition; every other report is logged and
// otherwise ignored so that scanning is never enabled implicitly.
func (m *Manager) handleAdapterState(ev transport.Event) {
	if ev.Adapter == transport.PowerPoweredOn {
		if m.setAdapterState(AdapterIdle, AdapterStartingUp) {
			return
		}
	}
	m.logger.WithFields(logrus.Fields{
		"report":  ev.Adapter,
		"adapter": m.AdapterState(),
	}).Info("Adapter state report ignored")
}

// handleDiscovery registers a session for a newly discovered device.
// Discovery is idempotent per identifier: repeats refresh the advertised
// name and RSSI but register nothing and notify nobody.
func (m *Manager) handleDiscovery(ev transport.Event) {
	candidate := NewSession(Identity{
		ID:   ev.DeviceID,
		Name: ev.Name,
		RSSI: ev.RSSI,
	}, m.profile, m.transport, m.observer, m.logger)

	existing, loaded := m.sessions.GetOrInsert(ev.DeviceID, candidate)
	if loaded {
		existing.updateAdvertisement(ev.Name, ev.RSSI)
		return
	}

	m.orderMu.Lock()
	m.order.Set(ev.DeviceID, candidate)
	m.orderMu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"device": candidate.Identity().DisplayName(),
		"id":     ev.DeviceID,
		"rssi":   ev.RSSI,
	}).Info("Discovered new device")
	m.observer.DeviceDiscovered(candidate)
}

// Close tears down the transport. Registered sessions are kept; they are
// destroyed only with the manager itself.
func (m *Manager) Close() error {
	return m.transport.Close()
}
