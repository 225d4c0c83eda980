package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rowkit/ergble/internal/erg"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for rowing ergometers",
	Long: `Scan for Bluetooth Low Energy rowing ergometers in the vicinity.

Discovery is filtered to devices advertising the ergometer service, so
only compatible machines are listed.`,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanFormat   string
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "", "Output format (table, json)")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.close()

	format := a.cfg.OutputFormat
	if scanFormat != "" {
		format = scanFormat
	}
	if format != "table" && format != "json" {
		return fmt.Errorf("invalid format '%s': must be table or json", format)
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	if err := a.mgr.StartScan(); err != nil {
		return err
	}
	select {
	case <-time.After(scanDuration):
	case <-cmd.Context().Done():
	}
	if err := a.mgr.StopScan(); err != nil {
		return err
	}

	sessions := a.mgr.Sessions()
	if format == "json" {
		return printSessionsJSON(sessions)
	}
	printSessionsTable(sessions)
	return nil
}

func printSessionsTable(sessions []*erg.Session) {
	if len(sessions) == 0 {
		fmt.Println("No ergometers found.")
		return
	}

	header := color.New(color.Bold)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = header.Fprintln(w, "NAME\tID\tRSSI")
	for _, s := range sessions {
		id := s.Identity()
		fmt.Fprintf(w, "%s\t%s\t%d\n", id.DisplayName(), id.ID, id.RSSI)
	}
	_ = w.Flush()
}

func printSessionsJSON(sessions []*erg.Session) error {
	type entry struct {
		ID   string `json:"id"`
		Name string `json:"name,omitempty"`
		RSSI int    `json:"rssi"`
	}
	entries := make([]entry, 0, len(sessions))
	for _, s := range sessions {
		id := s.Identity()
		entries = append(entries, entry{ID: id.ID, Name: id.Name, RSSI: id.RSSI})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
