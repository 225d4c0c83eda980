package erg_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rowkit/ergble/internal/erg"
	"github.com/rowkit/ergble/internal/telemetry"
	"github.com/rowkit/ergble/internal/testutils"
	"github.com/rowkit/ergble/internal/transport"
)

const testDeviceID = "AA:BB:CC:DD:EE:FF"

// identityReads maps every mandatory characteristic to a plausible
// device-information payload.
var identityReads = map[string][]byte{
	erg.CharModelNumberUUID:      []byte("Model D"),
	erg.CharSerialNumberUUID:     []byte("430001234"),
	erg.CharHardwareRevisionUUID: []byte("633"),
	erg.CharFirmwareRevisionUUID: []byte("207"),
	erg.CharManufacturerUUID:     []byte("ErgWorks"),
	erg.CharMachineTypeUUID:      {0}, // staticD
}

// allCharacteristics is the discovery result of a fully featured device.
var allCharacteristics = []string{
	erg.CharModelNumberUUID,
	erg.CharSerialNumberUUID,
	erg.CharHardwareRevisionUUID,
	erg.CharFirmwareRevisionUUID,
	erg.CharManufacturerUUID,
	erg.CharMachineTypeUUID,
	erg.CharGeneralStatusUUID,
	erg.CharAdditionalStatusUUID,
	erg.CharEndOfWorkoutUUID,
}

var generalStatusFrame = []byte{
	100, 0, 0, 50, 0, 0, 1, 0, 1, 1, 2, 50, 0, 0, 100, 0, 0, 0, 130,
}

type SessionTestSuite struct {
	suite.Suite

	transport *testutils.FakeTransport
	observer  *testutils.RecordingObserver
	session   *erg.Session
}

func (suite *SessionTestSuite) SetupTest() {
	suite.transport = testutils.NewFakeTransport()
	suite.observer = testutils.NewRecordingObserver()
	suite.session = erg.NewSession(
		erg.Identity{ID: testDeviceID, Name: "PM Row", RSSI: -52},
		erg.DefaultProfile(),
		suite.transport,
		suite.observer,
		testutils.NewTestLogger(),
	)
}

// acceptConnect drives the session from discovered into querying.
func (suite *SessionTestSuite) acceptConnect() {
	suite.Require().NoError(suite.session.Connect())
	suite.session.HandleEvent(transport.Event{
		Kind:     transport.EventConnectResult,
		DeviceID: testDeviceID,
		Success:  true,
	})
}

// characterize drives the session from querying into ready.
func (suite *SessionTestSuite) characterize() {
	suite.session.HandleEvent(transport.Event{
		Kind:            transport.EventCharacteristics,
		DeviceID:        testDeviceID,
		Characteristics: allCharacteristics,
	})
	for uuid, data := range identityReads {
		suite.session.HandleEvent(transport.Event{
			Kind:           transport.EventReadResult,
			DeviceID:       testDeviceID,
			Characteristic: uuid,
			Data:           data,
		})
	}
}

func (suite *SessionTestSuite) makeReady() {
	suite.acceptConnect()
	suite.characterize()
	suite.Require().Equal(erg.StateReady, suite.session.State())
	suite.observer.Reset()
	suite.transport.ResetCalls()
}

func (suite *SessionTestSuite) TestConnectLifecycle() {
	suite.Run("connect requests transport but does not transition", func() {
		suite.Require().NoError(suite.session.Connect())

		suite.Len(suite.transport.CallsTo("connect"), 1)
		suite.Equal(erg.StateDiscovered, suite.session.State())
		suite.Empty(suite.observer.StateChanges)
	})

	suite.Run("accepted connect passes through connecting into querying", func() {
		suite.session.HandleEvent(transport.Event{
			Kind:     transport.EventConnectResult,
			DeviceID: testDeviceID,
			Success:  true,
		})

		suite.Equal(erg.StateQuerying, suite.session.State())
		suite.Require().Len(suite.observer.StateChanges, 2)
		suite.Equal(erg.StateDiscovered, suite.observer.StateChanges[0].Previous)
		suite.Equal(erg.StateConnecting, suite.observer.StateChanges[0].Current)
		suite.Equal(erg.StateConnecting, suite.observer.StateChanges[1].Previous)
		suite.Equal(erg.StateQuerying, suite.observer.StateChanges[1].Current)

		discoveries := suite.transport.CallsTo("discover")
		suite.Require().Len(discoveries, 2)
		suite.Equal(erg.InformationServiceUUID, discoveries[0].Arg)
		suite.Equal(erg.RowingServiceUUID, discoveries[1].Arg)
	})

	suite.Run("connect while querying is dropped with one diagnostic", func() {
		err := suite.session.Connect()

		suite.True(errors.Is(err, erg.ErrInvalidStateTransition))
		suite.Equal(erg.StateQuerying, suite.session.State())
		suite.Len(suite.transport.CallsTo("connect"), 1) // no new request
		suite.Len(suite.observer.Diagnostics, 1)
		suite.Len(suite.observer.StateChanges, 2) // unchanged
	})
}

func (suite *SessionTestSuite) TestRejectedConnect() {
	suite.Require().NoError(suite.session.Connect())
	suite.session.HandleEvent(transport.Event{
		Kind:     transport.EventConnectResult,
		DeviceID: testDeviceID,
		Success:  false,
		Err:      errors.New("link layer timeout"),
	})

	suite.Equal(erg.StateDiscovered, suite.session.State())
	suite.Empty(suite.observer.StateChanges)
	suite.Len(suite.observer.Diagnostics, 1)
}

func (suite *SessionTestSuite) TestCharacterization() {
	suite.acceptConnect()
	suite.observer.Reset()
	suite.transport.ResetCalls()

	suite.Run("discovery issues a read per mandatory characteristic", func() {
		suite.session.HandleEvent(transport.Event{
			Kind:            transport.EventCharacteristics,
			DeviceID:        testDeviceID,
			Characteristics: allCharacteristics,
		})

		suite.Len(suite.transport.CallsTo("read"), len(identityReads))
		suite.Equal(erg.StateQuerying, suite.session.State())
	})

	suite.Run("session is ready once every mandatory read reports", func() {
		for uuid, data := range identityReads {
			suite.session.HandleEvent(transport.Event{
				Kind:           transport.EventReadResult,
				DeviceID:       testDeviceID,
				Characteristic: uuid,
				Data:           data,
			})
		}

		suite.Equal(erg.StateReady, suite.session.State())
		change, ok := suite.observer.LastStateChange()
		suite.Require().True(ok)
		suite.Equal(erg.StateQuerying, change.Previous)
		suite.Equal(erg.StateReady, change.Current)

		identity := suite.session.Identity()
		suite.Equal("Model D", identity.ModelNumber)
		suite.Equal("430001234", identity.SerialNumber)
		suite.Equal("633", identity.HardwareRevision)
		suite.Equal("207", identity.FirmwareRevision)
		suite.Equal("ErgWorks", identity.Manufacturer)
		suite.Equal("staticD", identity.DeviceType)
	})

	suite.Run("identity fields are written at most once", func() {
		suite.session.HandleEvent(transport.Event{
			Kind:           transport.EventReadResult,
			DeviceID:       testDeviceID,
			Characteristic: erg.CharModelNumberUUID,
			Data:           []byte("Model E"),
		})

		suite.Equal("Model D", suite.session.Identity().ModelNumber)
	})
}

func (suite *SessionTestSuite) TestPartialReadFailure() {
	suite.acceptConnect()
	suite.session.HandleEvent(transport.Event{
		Kind:            transport.EventCharacteristics,
		DeviceID:        testDeviceID,
		Characteristics: allCharacteristics,
	})

	// Every read but the serial number succeeds.
	for uuid, data := range identityReads {
		if uuid == erg.CharSerialNumberUUID {
			continue
		}
		suite.session.HandleEvent(transport.Event{
			Kind:           transport.EventReadResult,
			DeviceID:       testDeviceID,
			Characteristic: uuid,
			Data:           data,
		})
	}
	suite.session.HandleEvent(transport.Event{
		Kind:           transport.EventReadResult,
		DeviceID:       testDeviceID,
		Characteristic: erg.CharSerialNumberUUID,
		Err:            errors.New("att timeout"),
	})

	// A single failed read blocks readiness but nothing else.
	suite.Equal(erg.StateQuerying, suite.session.State())
	suite.NotEmpty(suite.observer.Diagnostics)
	suite.Equal("Model D", suite.session.Identity().ModelNumber)

	// A later retry that reports a value completes the handshake.
	suite.session.HandleEvent(transport.Event{
		Kind:           transport.EventReadResult,
		DeviceID:       testDeviceID,
		Characteristic: erg.CharSerialNumberUUID,
		Data:           identityReads[erg.CharSerialNumberUUID],
	})
	suite.Equal(erg.StateReady, suite.session.State())
}

func (suite *SessionTestSuite) TestFailedCharacteristicDiscovery() {
	suite.acceptConnect()
	suite.observer.Reset()
	suite.transport.ResetCalls()

	suite.session.HandleEvent(transport.Event{
		Kind:     transport.EventCharacteristics,
		DeviceID: testDeviceID,
		Err:      errors.New("profile discovery failed"),
	})

	suite.Len(suite.observer.Diagnostics, 1)
	suite.Empty(suite.transport.CallsTo("read"))
	suite.Equal(erg.StateQuerying, suite.session.State())
	suite.Empty(suite.observer.StateChanges)
}

func (suite *SessionTestSuite) TestMissingMandatoryCharacteristic() {
	suite.acceptConnect()

	// The device never exposes the machine type characteristic.
	var partial []string
	for _, uuid := range allCharacteristics {
		if uuid != erg.CharMachineTypeUUID {
			partial = append(partial, uuid)
		}
	}
	suite.session.HandleEvent(transport.Event{
		Kind:            transport.EventCharacteristics,
		DeviceID:        testDeviceID,
		Characteristics: partial,
	})
	for uuid, data := range identityReads {
		if uuid == erg.CharMachineTypeUUID {
			continue
		}
		suite.session.HandleEvent(transport.Event{
			Kind:           transport.EventReadResult,
			DeviceID:       testDeviceID,
			Characteristic: uuid,
			Data:           data,
		})
	}

	// No timeout: the session stays querying until the read reports.
	suite.Equal(erg.StateQuerying, suite.session.State())
}

func (suite *SessionTestSuite) TestSubscribeOutsideReady() {
	err := suite.session.Subscribe(telemetry.StreamGeneralStatus)

	suite.True(errors.Is(err, erg.ErrInvalidStateTransition))
	suite.Empty(suite.transport.CallsTo("set_notify"))
	suite.Empty(suite.observer.StateChanges)
	suite.Len(suite.observer.Diagnostics, 1)
}

func (suite *SessionTestSuite) TestSubscribeAndStream() {
	suite.makeReady()

	suite.Run("subscribe forwards a notify enable", func() {
		suite.Require().NoError(suite.session.Subscribe(telemetry.StreamGeneralStatus))

		calls := suite.transport.CallsTo("set_notify")
		suite.Require().Len(calls, 1)
		suite.Equal(erg.NormalizeUUID(erg.CharGeneralStatusUUID), calls[0].Arg)
		suite.True(calls[0].Enabled)
	})

	suite.Run("notifications decode into telemetry records", func() {
		suite.session.HandleEvent(transport.Event{
			Kind:           transport.EventNotification,
			DeviceID:       testDeviceID,
			Characteristic: erg.CharGeneralStatusUUID,
			Data:           generalStatusFrame,
		})

		suite.Require().Len(suite.observer.Telemetry, 1)
		record, ok := suite.observer.Telemetry[0].Record.(telemetry.GeneralStatus)
		suite.Require().True(ok)
		suite.InDelta(1.0, record.ElapsedTime, 1e-9)
		suite.InDelta(5.0, record.Distance, 1e-9)
		suite.Equal(130, record.DragFactor)
	})

	suite.Run("a decode failure drops the record, session stays ready", func() {
		suite.observer.Reset()
		suite.session.HandleEvent(transport.Event{
			Kind:           transport.EventNotification,
			DeviceID:       testDeviceID,
			Characteristic: erg.CharGeneralStatusUUID,
			Data:           generalStatusFrame[:18],
		})

		suite.Empty(suite.observer.Telemetry)
		suite.Len(suite.observer.Diagnostics, 1)
		suite.Equal(erg.StateReady, suite.session.State())
	})

	suite.Run("notifications for unsubscribed streams are dropped", func() {
		suite.observer.Reset()
		suite.session.HandleEvent(transport.Event{
			Kind:           transport.EventNotification,
			DeviceID:       testDeviceID,
			Characteristic: erg.CharAdditionalStatusUUID,
			Data:           make([]byte, 16),
		})

		suite.Empty(suite.observer.Telemetry)
		suite.Len(suite.observer.Diagnostics, 1)
	})

	suite.Run("unsubscribe forwards a notify disable", func() {
		suite.transport.ResetCalls()
		suite.Require().NoError(suite.session.Unsubscribe(telemetry.StreamGeneralStatus))

		calls := suite.transport.CallsTo("set_notify")
		suite.Require().Len(calls, 1)
		suite.False(calls[0].Enabled)
	})
}

func (suite *SessionTestSuite) TestSubscribeTransportFailure() {
	suite.makeReady()
	suite.transport.SetNotifyErr = errors.New("att write failed")

	err := suite.session.Subscribe(telemetry.StreamGeneralStatus)

	suite.True(errors.Is(err, erg.ErrTransportFailure))
	suite.Len(suite.observer.Diagnostics, 1)

	// The rejected subscribe must not count: a notification arriving
	// afterwards is dropped, not delivered.
	suite.observer.Reset()
	suite.session.HandleEvent(transport.Event{
		Kind:           transport.EventNotification,
		DeviceID:       testDeviceID,
		Characteristic: erg.CharGeneralStatusUUID,
		Data:           generalStatusFrame,
	})

	suite.Empty(suite.observer.Telemetry)
	suite.Len(suite.observer.Diagnostics, 1)
}

func (suite *SessionTestSuite) TestDisconnect() {
	suite.makeReady()

	suite.Run("disconnect transitions to disconnecting", func() {
		suite.Require().NoError(suite.session.Disconnect())

		suite.Len(suite.transport.CallsTo("disconnect"), 1)
		suite.Equal(erg.StateDisconnecting, suite.session.State())
	})

	suite.Run("an errored teardown still ends disconnected", func() {
		suite.session.HandleEvent(transport.Event{
			Kind:     transport.EventDisconnectResult,
			DeviceID: testDeviceID,
			Success:  false,
			Err:      errors.New("link dropped"),
		})

		suite.Equal(erg.StateDisconnected, suite.session.State())
	})

	suite.Run("a disconnected session may reconnect", func() {
		suite.Require().NoError(suite.session.Connect())
		suite.session.HandleEvent(transport.Event{
			Kind:     transport.EventConnectResult,
			DeviceID: testDeviceID,
			Success:  true,
		})

		suite.Equal(erg.StateQuerying, suite.session.State())
	})
}

func (suite *SessionTestSuite) TestDisconnectOutsideReady() {
	suite.acceptConnect()
	suite.observer.Reset()
	suite.transport.ResetCalls()

	err := suite.session.Disconnect()

	suite.True(errors.Is(err, erg.ErrInvalidStateTransition))
	suite.Equal(erg.StateQuerying, suite.session.State())
	suite.Empty(suite.transport.CallsTo("disconnect"))
	suite.Len(suite.observer.Diagnostics, 1)
	suite.Empty(suite.observer.StateChanges)
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
