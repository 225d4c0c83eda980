package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rowkit/ergble/internal/erg"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Read an ergometer's identity",
	Long: `Connect to an ergometer and read its device-information
characteristics: model number, serial number, hardware and firmware
revisions, manufacturer and machine type.`,
	RunE: runInfo,
}

var (
	infoDevice string
	infoFormat string
)

func init() {
	infoCmd.Flags().StringVarP(&infoDevice, "device", "D", "", "Device identifier (first discovered when omitted)")
	infoCmd.Flags().StringVarP(&infoFormat, "format", "f", "", "Output format (table, json)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.close()
	cmd.SilenceUsage = true

	s, err := a.findDevice(cmd.Context(), infoDevice)
	if err != nil {
		return err
	}

	if err := s.Connect(); err != nil {
		return err
	}
	if err := a.waitSessionState(cmd.Context(), s, erg.StateReady); err != nil {
		return err
	}

	identity := s.Identity()
	if err := s.Disconnect(); err != nil {
		a.logger.WithField("error", err).Warn("Disconnect failed")
	} else {
		_ = a.waitSessionState(cmd.Context(), s, erg.StateDisconnected)
	}

	format := a.cfg.OutputFormat
	if infoFormat != "" {
		format = infoFormat
	}
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(identity)
	}

	label := color.New(color.Bold)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	rows := []struct{ k, v string }{
		{"Name", identity.DisplayName()},
		{"ID", identity.ID},
		{"Model", identity.ModelNumber},
		{"Serial", identity.SerialNumber},
		{"Hardware", identity.HardwareRevision},
		{"Firmware", identity.FirmwareRevision},
		{"Manufacturer", identity.Manufacturer},
		{"Machine type", identity.DeviceType},
	}
	for _, row := range rows {
		_, _ = label.Fprintf(w, "%s:\t", row.k)
		fmt.Fprintf(w, "%s\n", row.v)
	}
	return w.Flush()
}
