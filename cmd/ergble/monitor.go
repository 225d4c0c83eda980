package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rowkit/ergble/internal/erg"
	"github.com/rowkit/ergble/internal/telemetry"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream decoded workout telemetry",
	Long: `Connect to an ergometer, subscribe to its telemetry notifications and
print each decoded record until interrupted.

Streams:
  general     workout context (state, distance, drag factor, ...)
  additional  pace, speed, stroke rate and heart rate
  end         end-of-workout summary`,
	RunE: runMonitor,
}

var (
	monitorDevice  string
	monitorStreams []string
	monitorFormat  string
)

func init() {
	monitorCmd.Flags().StringVarP(&monitorDevice, "device", "D", "", "Device identifier (first discovered when omitted)")
	monitorCmd.Flags().StringSliceVarP(&monitorStreams, "streams", "s", []string{"general", "additional", "end"}, "Streams to subscribe to")
	monitorCmd.Flags().StringVarP(&monitorFormat, "format", "f", "", "Output format (text, json)")
}

func parseStreams(names []string) ([]telemetry.Stream, error) {
	var streams []telemetry.Stream
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "general":
			streams = append(streams, telemetry.StreamGeneralStatus)
		case "additional":
			streams = append(streams, telemetry.StreamAdditionalStatus)
		case "end":
			streams = append(streams, telemetry.StreamEndOfWorkout)
		default:
			return nil, fmt.Errorf("unknown stream %q (must be general, additional or end)", name)
		}
	}
	return streams, nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	streams, err := parseStreams(monitorStreams)
	if err != nil {
		return err
	}

	jsonOut := monitorFormat == "json"
	if monitorFormat != "" && monitorFormat != "text" && !jsonOut {
		return fmt.Errorf("invalid format '%s': must be text or json", monitorFormat)
	}

	records := make(chan telemetry.Record, 64)
	warn := color.New(color.FgYellow)
	observer := &erg.ObserverFuncs{
		OnTelemetry: func(deviceID string, record telemetry.Record) {
			select {
			case records <- record:
			default: // slow terminal, drop rather than stall dispatch
			}
		},
		OnDiagnostic: func(deviceID string, message string) {
			_, _ = warn.Fprintf(os.Stderr, "diagnostic: %s\n", message)
		},
	}

	a, err := newApp(cmd, observer)
	if err != nil {
		return err
	}
	defer a.close()
	cmd.SilenceUsage = true

	s, err := a.findDevice(cmd.Context(), monitorDevice)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Connecting to %s...\n", s.Identity().DisplayName())
	if err := s.Connect(); err != nil {
		return err
	}
	if err := a.waitSessionState(cmd.Context(), s, erg.StateReady); err != nil {
		return err
	}
	for _, stream := range streams {
		if err := s.Subscribe(stream); err != nil {
			return err
		}
	}
	fmt.Fprintln(os.Stderr, "Streaming. Press Ctrl+C to stop.")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case record := <-records:
			if jsonOut {
				_ = enc.Encode(recordEnvelope(record))
			} else {
				fmt.Println(formatRecord(record))
			}
		case <-interrupt:
			if err := s.Disconnect(); err == nil {
				_ = a.waitSessionState(cmd.Context(), s, erg.StateDisconnected)
			}
			return nil
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
	}
}

// recordEnvelope tags a record with its stream for JSON output.
func recordEnvelope(record telemetry.Record) map[string]interface{} {
	return map[string]interface{}{
		"stream": record.Stream().String(),
		"data":   record,
	}
}

func formatRecord(record telemetry.Record) string {
	switch r := record.(type) {
	case telemetry.GeneralStatus:
		return fmt.Sprintf("[general] t=%.2fs d=%.1fm workout=%s interval=%s state=%s rowing=%s stroke=%s drag=%d",
			r.ElapsedTime, r.Distance, r.WorkoutType, r.IntervalType, r.WorkoutState, r.RowingState, r.StrokeState, r.DragFactor)
	case telemetry.AdditionalStatus:
		return fmt.Sprintf("[additional] t=%.2fs speed=%.3fm/s spm=%d hr=%d pace=%.2fs avg=%.2fs",
			r.ElapsedTime, r.Speed, r.StrokeRate, r.HeartRate, r.CurrentPace, r.AveragePace)
	case telemetry.EndOfWorkoutStatus:
		return fmt.Sprintf("[end] average stroke rate=%d", r.AverageStrokeRate)
	default:
		return fmt.Sprintf("[%s] %+v", record.Stream(), record)
	}
}
