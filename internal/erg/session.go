// Package erg implements the ergometer driver core: per-device session
// state machines, the adapter-level session manager and the GATT profile
// registry that binds characteristic UUIDs to roles.
package erg

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rowkit/ergble/internal/telemetry"
	"github.com/rowkit/ergble/internal/transport"
)

// SessionState represents where a device session is in its lifecycle.
type SessionState int

const (
	// StateDiscovered means the identity is known but no link exists.
	StateDiscovered SessionState = iota
	// StateConnecting means the transport accepted the connect request.
	StateConnecting
	// StateQuerying means the link is up and characteristic and identity
	// discovery is in flight.
	StateQuerying
	// StateReady means every mandatory identity characteristic has
	// reported a value; telemetry subscriptions are accepted.
	StateReady
	// StateDisconnecting means link teardown was requested.
	StateDisconnecting
	// StateDisconnected means the link was torn down. Equivalent to
	// StateDiscovered for the purpose of reconnecting.
	StateDisconnected
)

var sessionStateNames = map[SessionState]string{
	StateDiscovered:    "discovered",
	StateConnecting:    "connecting",
	StateQuerying:      "querying",
	StateReady:         "ready",
	StateDisconnecting: "disconnecting",
	StateDisconnected:  "disconnected",
}

func (s SessionState) String() string {
	if name, ok := sessionStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state_%d", int(s))
}

// Session owns one device's connection lifecycle: it turns transport
// callbacks into state transitions, resolves characteristic roles during
// discovery, reads the identity characteristics and decodes telemetry
// notifications for subscribed streams.
//
// Transport events for one device are never delivered concurrently with
// each other, but external calls (Connect, Subscribe) may race against
// the dispatch context; the session serializes everything behind one
// mutex and invokes observer callbacks outside it.
type Session struct {
	profile   *Profile
	transport transport.Transport
	observer  Observer
	logger    *logrus.Logger

	mu         sync.Mutex
	state      SessionState
	identity   Identity
	chars      map[CharacteristicRole]string // discovered characteristic UUID per role
	resolved   map[CharacteristicRole]bool   // mandatory reads that reported a value
	subscribed map[telemetry.Stream]bool
}

// NewSession creates a session in StateDiscovered for a freshly discovered
// device. The profile is the immutable identifier registry the session
// resolves characteristics against.
func NewSession(identity Identity, profile *Profile, t transport.Transport, observer Observer, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	return &Session{
		profile:    profile,
		transport:  t,
		observer:   observer,
		logger:     logger,
		state:      StateDiscovered,
		identity:   identity,
		chars:      make(map[CharacteristicRole]string),
		resolved:   make(map[CharacteristicRole]bool),
		subscribed: make(map[telemetry.Stream]bool),
	}
}

// ID returns the stable device identifier.
func (s *Session) ID() string {
	return s.identity.ID
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns a snapshot of the device identity.
func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// transition moves the session to next if the current state is one of
// valid, then notifies the observer with (previous, next). It returns
// false, with no side effects and no notification, otherwise.
func (s *Session) transition(next SessionState, valid ...SessionState) bool {
	s.mu.Lock()
	previous := s.state
	ok := false
	for _, v := range valid {
		if previous == v {
			ok = true
			break
		}
	}
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"device":   s.identity.ID,
		"previous": previous,
		"state":    next,
	}).Info("Session state changed")
	s.observer.SessionStateChanged(s.identity.ID, previous, next)
	return true
}

// diagnostic reports a non-fatal problem to the observer.
func (s *Session) diagnostic(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.logger.WithField("device", s.identity.ID).Warn(msg)
	s.observer.Diagnostic(s.identity.ID, msg)
}

// Connect requests a transport connection. Valid only while discovered or
// disconnected; elsewhere the request is dropped with a diagnostic. The
// session stays in its current state until the transport reports the
// connect as accepted.
func (s *Session) Connect() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state != StateDiscovered && state != StateDisconnected {
		err := invalidTransition("connect is not valid in state %s", state)
		s.diagnostic("%s", err)
		return err
	}

	if err := s.transport.Connect(s.identity.ID); err != nil {
		s.diagnostic("connect request failed: %v", err)
		return &Error{Kind: TransportFailure, Msg: err.Error()}
	}
	return nil
}

// Disconnect requests link teardown. Valid only while ready.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state != StateReady {
		err := invalidTransition("disconnect is not valid in state %s", state)
		s.diagnostic("%s", err)
		return err
	}

	if err := s.transport.Disconnect(s.identity.ID); err != nil {
		s.diagnostic("disconnect request failed: %v", err)
		return &Error{Kind: TransportFailure, Msg: err.Error()}
	}
	s.transition(StateDisconnecting, StateReady)
	return nil
}

// Subscribe enables notifications for one telemetry stream. Valid only
// while ready; elsewhere the request is dropped with a diagnostic and no
// transport call is made.
func (s *Session) Subscribe(stream telemetry.Stream) error {
	return s.setNotify(stream, true)
}

// Unsubscribe disables notifications for one telemetry stream. Valid only
// while ready.
func (s *Session) Unsubscribe(stream telemetry.Stream) error {
	return s.setNotify(stream, false)
}

func (s *Session) setNotify(stream telemetry.Stream, enabled bool) error {
	verb := "subscribe"
	if !enabled {
		verb = "unsubscribe"
	}

	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		err := invalidTransition("%s is not valid in state %s", verb, state)
		s.diagnostic("%s", err)
		return err
	}
	role := StreamRole(stream)
	uuid, ok := s.chars[role]
	if !ok {
		s.mu.Unlock()
		s.diagnostic("%s: characteristic for stream %s was not discovered on this device", verb, stream)
		return &Error{Kind: TransportFailure, Msg: fmt.Sprintf("stream %s has no characteristic", stream)}
	}
	s.mu.Unlock()

	if err := s.transport.SetNotify(s.identity.ID, uuid, enabled); err != nil {
		s.diagnostic("%s request for stream %s failed: %v", verb, stream, err)
		return &Error{Kind: TransportFailure, Msg: err.Error()}
	}

	// Recorded only once the transport accepted the request, so a failed
	// subscribe leaves the stream unsubscribed.
	s.mu.Lock()
	s.subscribed[stream] = enabled
	s.mu.Unlock()
	return nil
}

// HandleEvent feeds one transport event into the session state machine.
// Called by the owning manager from the transport dispatch context.
func (s *Session) HandleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventConnectResult:
		s.handleConnectResult(ev)
	case transport.EventDisconnectResult:
		s.handleDisconnectResult(ev)
	case transport.EventCharacteristics:
		s.handleCharacteristics(ev)
	case transport.EventReadResult:
		s.handleReadResult(ev)
	case transport.EventNotifyResult:
		if ev.Err != nil {
			s.diagnostic("notify change for %s failed: %v", ShortenUUID(ev.Characteristic), ev.Err)
		}
	case transport.EventNotification:
		s.handleNotification(ev)
	default:
		s.logger.WithFields(logrus.Fields{
			"device": s.identity.ID,
			"kind":   ev.Kind,
		}).Debug("Ignoring transport event")
	}
}

// handleConnectResult processes the completion of a connect request. On
// acceptance the session passes through StateConnecting straight into
// StateQuerying and issues characteristic discovery for both services.
func (s *Session) handleConnectResult(ev transport.Event) {
	if !ev.Success {
		s.diagnostic("transport rejected connect: %v", ev.Err)
		return
	}

	if !s.transition(StateConnecting, StateDiscovered, StateDisconnected) {
		s.diagnostic("unexpected connect confirmation in state %s", s.State())
		return
	}

	s.mu.Lock()
	// Fresh characterization on every connection: role bindings and
	// resolution bookkeeping from a previous link are stale.
	s.chars = make(map[CharacteristicRole]string)
	s.resolved = make(map[CharacteristicRole]bool)
	s.subscribed = make(map[telemetry.Stream]bool)
	s.mu.Unlock()

	s.transition(StateQuerying, StateConnecting)

	for _, svc := range []string{s.profile.InformationService, s.profile.RowingService} {
		if err := s.transport.DiscoverCharacteristics(s.identity.ID, svc); err != nil {
			s.diagnostic("characteristic discovery request for service %s failed: %v", ShortenUUID(svc), err)
		}
	}
}

// handleDisconnectResult completes teardown. Error-versus-clean is logged,
// not branched on: the session ends up disconnected either way.
func (s *Session) handleDisconnectResult(ev transport.Event) {
	if ev.Err != nil {
		s.logger.WithFields(logrus.Fields{
			"device": s.identity.ID,
			"error":  ev.Err,
		}).Warn("Transport reported disconnect with errors")
	}
	if !s.transition(StateDisconnected, StateDisconnecting) {
		s.diagnostic("unsolicited disconnect report in state %s", s.State())
	}
}

// handleCharacteristics records the roles resolved for the discovered
// characteristics and issues reads for every mandatory identity
// characteristic found.
func (s *Session) handleCharacteristics(ev transport.Event) {
	if ev.Err != nil {
		s.diagnostic("characteristic discovery failed: %v", ev.Err)
		return
	}

	s.mu.Lock()
	if s.state != StateQuerying {
		state := s.state
		s.mu.Unlock()
		s.diagnostic("characteristic discovery result in state %s dropped", state)
		return
	}

	var reads []string
	mandatory := make(map[CharacteristicRole]bool, len(s.profile.MandatoryReads()))
	for _, role := range s.profile.MandatoryReads() {
		mandatory[role] = true
	}

	for _, raw := range ev.Characteristics {
		uuid := NormalizeUUID(raw)
		role := s.profile.Role(uuid)
		if role == RoleUnknown {
			s.logger.WithFields(logrus.Fields{
				"device": s.identity.ID,
				"char":   ShortenUUID(uuid),
			}).Debug("Characteristic has no role in profile")
			continue
		}
		s.chars[role] = uuid
		if mandatory[role] {
			reads = append(reads, uuid)
		}
	}
	s.mu.Unlock()

	for _, uuid := range reads {
		if err := s.transport.Read(s.identity.ID, uuid); err != nil {
			// A failed read request blocks only this characteristic;
			// the rest of the handshake continues.
			s.diagnostic("read request for %s failed: %v", ShortenUUID(uuid), err)
		}
	}
}

// handleReadResult stores one identity field. Fields are written at most
// once; once every mandatory characteristic has reported a value the
// session becomes ready.
func (s *Session) handleReadResult(ev transport.Event) {
	role := s.profile.Role(ev.Characteristic)
	if role == RoleUnknown {
		s.logger.WithFields(logrus.Fields{
			"device": s.identity.ID,
			"char":   ShortenUUID(ev.Characteristic),
		}).Debug("Read result for characteristic outside the profile")
		return
	}

	if ev.Err != nil {
		// Partial failure: this characteristic stays unresolved, the
		// others proceed. The session remains querying until every
		// mandatory read reports; no timeout is imposed here.
		s.diagnostic("read of %s failed: %v", role, ev.Err)
		return
	}

	value, err := s.decodeIdentityValue(role, ev.Data)
	if err != nil {
		// Malformed identity payloads are substituted with empty text so
		// one corrupt field cannot wedge characterization.
		s.diagnostic("decoding %s: %v", role, err)
	}

	s.mu.Lock()
	s.setIdentityFieldLocked(role, value)
	s.resolved[role] = true

	ready := s.state == StateQuerying
	if ready {
		for _, r := range s.profile.MandatoryReads() {
			if !s.resolved[r] {
				ready = false
				break
			}
		}
	}
	s.mu.Unlock()

	if ready {
		s.transition(StateReady, StateQuerying)
	}
}

// decodeIdentityValue decodes a device-information payload for its role.
func (s *Session) decodeIdentityValue(role CharacteristicRole, data []byte) (string, error) {
	if role == RoleMachineType {
		if len(data) == 0 {
			return "", &telemetry.DecodeError{Kind: telemetry.TruncatedPayload, Msg: "machine type payload is empty"}
		}
		machine, err := telemetry.MachineTypeFromCode(data[0])
		if err != nil {
			return "", err
		}
		return machine.String(), nil
	}
	return telemetry.DecodeIdentityString(data)
}

// setIdentityFieldLocked writes an identity field at most once. Callers
// must hold s.mu.
func (s *Session) setIdentityFieldLocked(role CharacteristicRole, value string) {
	var field *string
	switch role {
	case RoleModelNumber:
		field = &s.identity.ModelNumber
	case RoleSerialNumber:
		field = &s.identity.SerialNumber
	case RoleHardwareRevision:
		field = &s.identity.HardwareRevision
	case RoleFirmwareRevision:
		field = &s.identity.FirmwareRevision
	case RoleManufacturer:
		field = &s.identity.Manufacturer
	case RoleMachineType:
		field = &s.identity.DeviceType
	default:
		return
	}
	if *field != "" {
		s.logger.WithFields(logrus.Fields{
			"device": s.identity.ID,
			"field":  role,
		}).Debug("Identity field already populated, keeping first value")
		return
	}
	*field = value
}

// handleNotification decodes a telemetry payload for a subscribed stream.
// Decode failures drop the single record and report a diagnostic; the
// session stays ready.
func (s *Session) handleNotification(ev transport.Event) {
	role := s.profile.Role(ev.Characteristic)
	stream, ok := RoleStream(role)
	if !ok {
		s.logger.WithFields(logrus.Fields{
			"device": s.identity.ID,
			"char":   ShortenUUID(ev.Characteristic),
		}).Debug("Notification for characteristic outside the telemetry profile")
		return
	}

	s.mu.Lock()
	deliverable := s.state == StateReady && s.subscribed[stream]
	s.mu.Unlock()

	if !deliverable {
		// Early or duplicate delivery before the session is ready is
		// dropped, never buffered.
		s.diagnostic("dropping %s notification received while not streaming", stream)
		return
	}

	record, err := telemetry.Decode(stream, ev.Data)
	if err != nil {
		s.diagnostic("decoding %s notification: %v", stream, err)
		return
	}
	s.observer.TelemetryReceived(s.identity.ID, record)
}

// updateAdvertisement refreshes the discovery-time fields from a repeated
// advertisement. Identity fields populated during querying are untouched.
func (s *Session) updateAdvertisement(name string, rssi int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.identity.Name = name
	}
	s.identity.RSSI = rssi
}
