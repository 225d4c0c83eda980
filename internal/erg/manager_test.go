package erg_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rowkit/ergble/internal/erg"
	"github.com/rowkit/ergble/internal/testutils"
	"github.com/rowkit/ergble/internal/transport"
)

type ManagerTestSuite struct {
	suite.Suite

	transport *testutils.FakeTransport
	observer  *testutils.RecordingObserver
	manager   *erg.Manager
}

func (suite *ManagerTestSuite) SetupTest() {
	suite.transport = testutils.NewFakeTransport()
	suite.observer = testutils.NewRecordingObserver()
	suite.manager = erg.NewManager(suite.transport, erg.DefaultProfile(), suite.observer, testutils.NewTestLogger())
}

// idle drives the adapter through startup to idle.
func (suite *ManagerTestSuite) idle() {
	suite.Require().NoError(suite.manager.Startup())
	suite.transport.Emit(transport.Event{
		Kind:    transport.EventAdapterState,
		Adapter: transport.PowerPoweredOn,
	})
	suite.Require().Equal(erg.AdapterIdle, suite.manager.AdapterState())
}

func (suite *ManagerTestSuite) discover(id, name string, rssi int) {
	suite.transport.Emit(transport.Event{
		Kind:     transport.EventDeviceFound,
		DeviceID: id,
		Name:     name,
		RSSI:     rssi,
	})
}

func (suite *ManagerTestSuite) TestStartup() {
	suite.Run("startup initializes the transport", func() {
		suite.Require().NoError(suite.manager.Startup())

		suite.Equal(erg.AdapterStartingUp, suite.manager.AdapterState())
		suite.Len(suite.transport.CallsTo("initialize"), 1)
	})

	suite.Run("a second startup is rejected without a transport call", func() {
		err := suite.manager.Startup()

		suite.True(errors.Is(err, erg.ErrInvalidStateTransition))
		suite.Len(suite.transport.CallsTo("initialize"), 1)
		suite.Len(suite.observer.Diagnostics, 1)
	})
}

func (suite *ManagerTestSuite) TestStartupTransportFailure() {
	suite.transport.InitializeErr = errors.New("hci device missing")

	err := suite.manager.Startup()

	suite.True(errors.Is(err, erg.ErrTransportFailure))
	suite.Equal(erg.AdapterInitialized, suite.manager.AdapterState())
}

func (suite *ManagerTestSuite) TestAdapterPowerReports() {
	suite.Require().NoError(suite.manager.Startup())

	suite.Run("power-on while starting up reaches idle", func() {
		suite.transport.Emit(transport.Event{
			Kind:    transport.EventAdapterState,
			Adapter: transport.PowerPoweredOn,
		})

		suite.Equal(erg.AdapterIdle, suite.manager.AdapterState())
	})

	suite.Run("power-off report while idle does not transition", func() {
		suite.transport.Emit(transport.Event{
			Kind:    transport.EventAdapterState,
			Adapter: transport.PowerPoweredOff,
		})

		suite.Equal(erg.AdapterIdle, suite.manager.AdapterState())
		suite.Empty(suite.observer.StateChanges)
	})

	suite.Run("repeated power-on while idle does not transition", func() {
		suite.transport.Emit(transport.Event{
			Kind:    transport.EventAdapterState,
			Adapter: transport.PowerPoweredOn,
		})

		suite.Equal(erg.AdapterIdle, suite.manager.AdapterState())
	})
}

func (suite *ManagerTestSuite) TestScanLifecycle() {
	suite.Run("scan before the adapter is idle is rejected", func() {
		err := suite.manager.StartScan()

		suite.True(errors.Is(err, erg.ErrInvalidStateTransition))
		suite.Empty(suite.transport.CallsTo("scan"))
	})

	suite.idle()

	suite.Run("scan filters on the advertised service", func() {
		suite.Require().NoError(suite.manager.StartScan())

		suite.Equal(erg.AdapterScanning, suite.manager.AdapterState())
		calls := suite.transport.CallsTo("scan")
		suite.Require().Len(calls, 1)
		suite.Equal(erg.AdvertisedServiceUUID, calls[0].Arg)
	})

	suite.Run("a scan request while scanning is dropped", func() {
		err := suite.manager.StartScan()

		suite.True(errors.Is(err, erg.ErrInvalidStateTransition))
		suite.Len(suite.transport.CallsTo("scan"), 1)
	})

	suite.Run("stop scan returns to idle", func() {
		suite.Require().NoError(suite.manager.StopScan())

		suite.Equal(erg.AdapterIdle, suite.manager.AdapterState())
		suite.Len(suite.transport.CallsTo("stop_scan"), 1)
	})

	suite.Run("stop scan while idle is rejected", func() {
		err := suite.manager.StopScan()

		suite.True(errors.Is(err, erg.ErrInvalidStateTransition))
		suite.Len(suite.transport.CallsTo("stop_scan"), 1)
	})
}

func (suite *ManagerTestSuite) TestScanTransportFailure() {
	suite.idle()
	suite.transport.ScanErr = errors.New("adapter busy")

	err := suite.manager.StartScan()

	suite.True(errors.Is(err, erg.ErrTransportFailure))
	suite.Equal(erg.AdapterIdle, suite.manager.AdapterState())
}

func (suite *ManagerTestSuite) TestDiscoveryIsIdempotent() {
	suite.idle()

	suite.discover(testDeviceID, "PM Row", -52)
	suite.discover(testDeviceID, "PM Row", -48)

	suite.Require().Len(suite.observer.Discovered, 1)
	suite.Len(suite.manager.Sessions(), 1)

	s, ok := suite.manager.Session(testDeviceID)
	suite.Require().True(ok)
	suite.Equal(erg.StateDiscovered, s.State())
	suite.Equal(-48, s.Identity().RSSI) // refreshed by the repeat
}

func (suite *ManagerTestSuite) TestSessionsKeepDiscoveryOrder() {
	suite.idle()

	suite.discover("11:11:11:11:11:11", "first", -40)
	suite.discover("22:22:22:22:22:22", "second", -60)
	suite.discover("11:11:11:11:11:11", "first", -42)

	sessions := suite.manager.Sessions()
	suite.Require().Len(sessions, 2)
	suite.Equal("11:11:11:11:11:11", sessions[0].ID())
	suite.Equal("22:22:22:22:22:22", sessions[1].ID())
}

func (suite *ManagerTestSuite) TestEventRouting() {
	suite.idle()
	suite.discover(testDeviceID, "PM Row", -52)

	suite.Run("connect routes to the registered session", func() {
		suite.Require().NoError(suite.manager.Connect(testDeviceID))

		calls := suite.transport.CallsTo("connect")
		suite.Require().Len(calls, 1)
		suite.Equal(testDeviceID, calls[0].DeviceID)
	})

	suite.Run("transport completions reach the session", func() {
		suite.transport.Emit(transport.Event{
			Kind:     transport.EventConnectResult,
			DeviceID: testDeviceID,
			Success:  true,
		})

		s, ok := suite.manager.Session(testDeviceID)
		suite.Require().True(ok)
		suite.Equal(erg.StateQuerying, s.State())
		change, hasChange := suite.observer.LastStateChange()
		suite.Require().True(hasChange)
		suite.Equal(testDeviceID, change.DeviceID)
	})

	suite.Run("events for unregistered devices are dropped", func() {
		suite.transport.Emit(transport.Event{
			Kind:     transport.EventConnectResult,
			DeviceID: "99:99:99:99:99:99",
			Success:  true,
		})

		suite.Len(suite.manager.Sessions(), 1)
	})

	suite.Run("requests for unknown devices fail", func() {
		suite.True(errors.Is(suite.manager.Connect("99:99:99:99:99:99"), erg.ErrUnknownDevice))
		suite.True(errors.Is(suite.manager.Disconnect("99:99:99:99:99:99"), erg.ErrUnknownDevice))
	})
}

func (suite *ManagerTestSuite) TestClose() {
	suite.idle()

	suite.Require().NoError(suite.manager.Close())
	suite.Len(suite.transport.CallsTo("close"), 1)
}

func TestManagerTestSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}
