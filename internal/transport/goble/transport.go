// Package goble implements the transport boundary on top of the go-ble
// BLE stack. All hardware callbacks are funneled through one bounded
// queue and delivered to the registered handler by a single dispatch
// goroutine, which gives the session layer its serial delivery guarantee.
package goble

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
	"github.com/sirupsen/logrus"

	"github.com/rowkit/ergble/internal/groutine"
	"github.com/rowkit/ergble/internal/transport"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests)
var DeviceFactory = func() (ble.Device, error) {
	dev, err := darwin.NewDevice()
	if err != nil {
		// Wrap Bluetooth state errors with clearer messages
		if strings.Contains(err.Error(), "central manager has invalid state") {
			if strings.Contains(err.Error(), "have=4") { // StatePoweredOff
				return nil, fmt.Errorf("Bluetooth is turned off - please enable Bluetooth and retry")
			}
			return nil, fmt.Errorf("Bluetooth is not ready - %w", err)
		}
		return nil, err
	}
	return dev, nil
}

const eventQueueCapacity = 256

// Transport is the go-ble backed transport.Transport implementation.
type Transport struct {
	logger *logrus.Logger
	queue  *transport.EventQueue

	mu         sync.Mutex
	device     ble.Device
	scanCancel context.CancelFunc
	clients    map[string]ble.Client
	profiles   map[string]*ble.Profile
}

// New creates an uninitialized transport.
func New(logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{
		logger:   logger,
		queue:    transport.NewEventQueue(eventQueueCapacity),
		clients:  make(map[string]ble.Client),
		profiles: make(map[string]*ble.Profile),
	}
}

// Initialize powers up the adapter, registers the handler and starts the
// dispatch goroutine. The power-on report is delivered asynchronously like
// every other event.
func (t *Transport) Initialize(handler transport.Handler) error {
	dev, err := DeviceFactory()
	if err != nil {
		return fmt.Errorf("failed to create BLE device: %w", err)
	}
	ble.SetDefaultDevice(dev)

	t.mu.Lock()
	t.device = dev
	t.mu.Unlock()

	groutine.Go(nil, "ble-dispatch", func(_ context.Context) {
		for ev := range t.queue.C() {
			handler(ev)
		}
	})

	// darwin.NewDevice succeeds only once the central is powered on.
	t.queue.Push(transport.Event{
		Kind:    transport.EventAdapterState,
		Adapter: transport.PowerPoweredOn,
	})
	t.logger.Info("BLE adapter initialized")
	return nil
}

// Scan starts advertising discovery filtered to the given service UUID.
func (t *Transport) Scan(serviceUUID string) error {
	required, err := ble.Parse(serviceUUID)
	if err != nil {
		return fmt.Errorf("invalid service filter %q: %w", serviceUUID, err)
	}

	t.mu.Lock()
	if t.scanCancel != nil {
		t.mu.Unlock()
		return fmt.Errorf("scan is already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.scanCancel = cancel
	t.mu.Unlock()

	filter := func(adv ble.Advertisement) bool {
		for _, advUUID := range adv.Services() {
			if required.Equal(advUUID) {
				return true
			}
		}
		return false
	}

	handler := func(adv ble.Advertisement) {
		t.queue.Push(transport.Event{
			Kind:     transport.EventDeviceFound,
			DeviceID: adv.Addr().String(),
			Name:     adv.LocalName(),
			RSSI:     adv.RSSI(),
		})
	}

	groutine.Go(ctx, "ble-scan", func(ctx context.Context) {
		t.logger.WithField("service", serviceUUID).Info("Starting BLE scan...")
		err := ble.Scan(ctx, false, handler, filter)
		if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
			t.logger.WithField("error", err).Warn("BLE scan ended with error")
		}
		t.mu.Lock()
		t.scanCancel = nil
		t.mu.Unlock()
	})
	return nil
}

// StopScan stops an active scan.
func (t *Transport) StopScan() error {
	t.mu.Lock()
	cancel := t.scanCancel
	t.scanCancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("scan is not running")
	}
	cancel()
	t.logger.Info("BLE scan stopped")
	return nil
}

// Connect dials the device in the background. Completion is reported as an
// EventConnectResult; the later link teardown, requested or not, as an
// EventDisconnectResult.
func (t *Transport) Connect(deviceID string) error {
	groutine.Go(nil, "ble-dial:"+deviceID, func(ctx context.Context) {
		client, err := ble.Dial(ctx, ble.NewAddr(deviceID))
		if err != nil {
			t.queue.Push(transport.Event{
				Kind:     transport.EventConnectResult,
				DeviceID: deviceID,
				Success:  false,
				Err:      err,
			})
			return
		}

		t.mu.Lock()
		t.clients[deviceID] = client
		t.mu.Unlock()

		// Watch the link: go-ble closes this channel on teardown
		// whether we requested it or the device dropped the link.
		groutine.Go(nil, "ble-link:"+deviceID, func(_ context.Context) {
			<-client.Disconnected()
			t.mu.Lock()
			delete(t.clients, deviceID)
			delete(t.profiles, deviceID)
			t.mu.Unlock()
			t.queue.Push(transport.Event{
				Kind:     transport.EventDisconnectResult,
				DeviceID: deviceID,
				Success:  true,
			})
		})

		t.queue.Push(transport.Event{
			Kind:     transport.EventConnectResult,
			DeviceID: deviceID,
			Success:  true,
		})
	})
	return nil
}

// Disconnect requests link teardown. The completion event is produced by
// the link watcher started in Connect.
func (t *Transport) Disconnect(deviceID string) error {
	t.mu.Lock()
	client, ok := t.clients[deviceID]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("device %s is not connected", deviceID)
	}

	groutine.Go(nil, "ble-teardown:"+deviceID, func(_ context.Context) {
		if err := client.CancelConnection(); err != nil {
			t.queue.Push(transport.Event{
				Kind:     transport.EventDisconnectResult,
				DeviceID: deviceID,
				Success:  false,
				Err:      err,
			})
		}
	})
	return nil
}

// profileFor discovers the device's GATT profile once and caches it.
func (t *Transport) profileFor(deviceID string, client ble.Client) (*ble.Profile, error) {
	t.mu.Lock()
	profile, ok := t.profiles[deviceID]
	t.mu.Unlock()
	if ok {
		return profile, nil
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		return nil, fmt.Errorf("failed to discover profile: %w", err)
	}

	t.mu.Lock()
	t.profiles[deviceID] = profile
	t.mu.Unlock()
	return profile, nil
}

// DiscoverCharacteristics resolves the characteristics of one service and
// reports their UUIDs.
func (t *Transport) DiscoverCharacteristics(deviceID, serviceUUID string) error {
	client, err := t.client(deviceID)
	if err != nil {
		return err
	}
	target, err := ble.Parse(serviceUUID)
	if err != nil {
		return fmt.Errorf("invalid service %q: %w", serviceUUID, err)
	}

	groutine.Go(nil, "ble-discover:"+deviceID, func(_ context.Context) {
		profile, err := t.profileFor(deviceID, client)
		if err != nil {
			t.queue.Push(transport.Event{
				Kind:     transport.EventCharacteristics,
				DeviceID: deviceID,
				Err:      err,
			})
			return
		}

		var uuids []string
		for _, svc := range profile.Services {
			if !svc.UUID.Equal(target) {
				continue
			}
			for _, char := range svc.Characteristics {
				uuids = append(uuids, char.UUID.String())
			}
		}
		t.queue.Push(transport.Event{
			Kind:            transport.EventCharacteristics,
			DeviceID:        deviceID,
			Characteristics: uuids,
		})
	})
	return nil
}

// Read reads a characteristic value in the background.
func (t *Transport) Read(deviceID, characteristicUUID string) error {
	client, err := t.client(deviceID)
	if err != nil {
		return err
	}

	groutine.Go(nil, "ble-read:"+deviceID, func(_ context.Context) {
		char, err := t.findCharacteristic(deviceID, client, characteristicUUID)
		if err == nil {
			var data []byte
			data, err = client.ReadCharacteristic(char)
			if err == nil {
				t.queue.Push(transport.Event{
					Kind:           transport.EventReadResult,
					DeviceID:       deviceID,
					Characteristic: characteristicUUID,
					Data:           data,
				})
				return
			}
		}
		t.queue.Push(transport.Event{
			Kind:           transport.EventReadResult,
			DeviceID:       deviceID,
			Characteristic: characteristicUUID,
			Err:            err,
		})
	})
	return nil
}

// SetNotify enables or disables characteristic notifications.
func (t *Transport) SetNotify(deviceID, characteristicUUID string, enabled bool) error {
	client, err := t.client(deviceID)
	if err != nil {
		return err
	}

	groutine.Go(nil, "ble-notify:"+deviceID, func(_ context.Context) {
		char, err := t.findCharacteristic(deviceID, client, characteristicUUID)
		if err == nil {
			if enabled {
				err = client.Subscribe(char, false, func(data []byte) {
					t.queue.Push(transport.Event{
						Kind:           transport.EventNotification,
						DeviceID:       deviceID,
						Characteristic: characteristicUUID,
						Data:           data,
					})
				})
			} else {
				err = client.Unsubscribe(char, false)
			}
		}
		t.queue.Push(transport.Event{
			Kind:           transport.EventNotifyResult,
			DeviceID:       deviceID,
			Characteristic: characteristicUUID,
			Err:            err,
		})
	})
	return nil
}

// Close cancels scans, tears down every link and stops event delivery.
func (t *Transport) Close() error {
	t.mu.Lock()
	cancel := t.scanCancel
	t.scanCancel = nil
	clients := make([]ble.Client, 0, len(t.clients))
	for _, c := range t.clients {
		clients = append(clients, c)
	}
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var firstErr error
	for _, c := range clients {
		if err := c.CancelConnection(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.queue.Close()
	return firstErr
}

func (t *Transport) client(deviceID string) (ble.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	client, ok := t.clients[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s is not connected", deviceID)
	}
	return client, nil
}

// findCharacteristic locates the live characteristic handle by UUID,
// insensitive to dash formatting.
func (t *Transport) findCharacteristic(deviceID string, client ble.Client, uuid string) (*ble.Characteristic, error) {
	profile, err := t.profileFor(deviceID, client)
	if err != nil {
		return nil, err
	}

	target := normalizeUUID(uuid)
	for _, svc := range profile.Services {
		for _, char := range svc.Characteristics {
			if normalizeUUID(char.UUID.String()) == target {
				return char, nil
			}
		}
	}
	return nil, fmt.Errorf("characteristic %q not found", uuid)
}

// normalizeUUID converts a UUID string to the internal BLE library format
// (lowercase, no dashes).
func normalizeUUID(uuid string) string {
	return strings.ToLower(strings.ReplaceAll(uuid, "-", ""))
}
