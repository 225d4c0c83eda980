package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rowkit/ergble/internal/erg"
	"github.com/rowkit/ergble/internal/transport/goble"
	"github.com/rowkit/ergble/pkg/config"
)

// app bundles the wiring every command needs: config, logger, a go-ble
// transport and a session manager.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	mgr    *erg.Manager
}

// newApp builds and starts the manager with the given observer.
func newApp(cmd *cobra.Command, observer erg.Observer) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger()

	mgr := erg.NewManager(goble.New(logger), erg.DefaultProfile(), observer, logger)
	if err := mgr.Startup(); err != nil {
		return nil, fmt.Errorf("failed to start BLE adapter: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, mgr: mgr}
	if err := a.waitAdapterIdle(cmd.Context()); err != nil {
		_ = mgr.Close()
		return nil, err
	}
	return a, nil
}

// waitAdapterIdle blocks until the adapter reports power-on. The core
// imposes no timeout of its own, so the watchdog lives here.
func (a *app) waitAdapterIdle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout.Std())
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if a.mgr.AdapterState() == erg.AdapterIdle {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("BLE adapter did not power on: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// waitSessionState blocks until the session reaches want, bounded by the
// configured connect timeout. The core imposes no deadline of its own.
func (a *app) waitSessionState(ctx context.Context, s *erg.Session, want erg.SessionState) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout.Std())
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.State() == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("device did not reach %s state: %w", want, ctx.Err())
		case <-ticker.C:
		}
	}
}

// findDevice scans until a device matching id is discovered, or until the
// scan timeout when id is empty, in which case the first discovery wins.
func (a *app) findDevice(ctx context.Context, id string) (*erg.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ScanTimeout.Std())
	defer cancel()

	if err := a.mgr.StartScan(); err != nil {
		return nil, err
	}
	defer func() {
		if err := a.mgr.StopScan(); err != nil {
			a.logger.WithField("error", err).Warn("Failed to stop scan")
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		for _, s := range a.mgr.Sessions() {
			if id == "" || s.ID() == id {
				return s, nil
			}
		}
		select {
		case <-ctx.Done():
			if id == "" {
				return nil, fmt.Errorf("no ergometer found")
			}
			return nil, fmt.Errorf("device %s not found", id)
		case <-ticker.C:
		}
	}
}

func (a *app) close() {
	if err := a.mgr.Close(); err != nil {
		a.logger.WithField("error", err).Warn("Transport close reported errors")
	}
}
