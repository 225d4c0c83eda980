package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowkit/ergble/internal/telemetry"
)

func TestParseStreams(t *testing.T) {
	streams, err := parseStreams([]string{"general", " Additional", "END"})

	require.NoError(t, err)
	assert.Equal(t, []telemetry.Stream{
		telemetry.StreamGeneralStatus,
		telemetry.StreamAdditionalStatus,
		telemetry.StreamEndOfWorkout,
	}, streams)
}

func TestParseStreamsRejectsUnknownName(t *testing.T) {
	_, err := parseStreams([]string{"general", "cadence"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cadence")
}

func TestFormatRecord(t *testing.T) {
	general := telemetry.GeneralStatus{
		ElapsedTime:  1.0,
		Distance:     5.0,
		WorkoutType:  telemetry.WorkoutJustRowSplits,
		IntervalType: telemetry.IntervalNone,
		WorkoutState: telemetry.WorkoutStateWorkoutRow,
		RowingState:  telemetry.RowingActive,
		StrokeState:  telemetry.StrokeDriving,
		DragFactor:   130,
	}
	out := formatRecord(general)
	assert.Contains(t, out, "[general]")
	assert.Contains(t, out, "t=1.00s")
	assert.Contains(t, out, "drag=130")

	additional := telemetry.AdditionalStatus{ElapsedTime: 1.0, Speed: 1.0, StrokeRate: 24, HeartRate: 140}
	out = formatRecord(additional)
	assert.Contains(t, out, "[additional]")
	assert.Contains(t, out, "spm=24")

	out = formatRecord(telemetry.EndOfWorkoutStatus{AverageStrokeRate: 26})
	assert.Contains(t, out, "[end]")
	assert.Contains(t, out, "26")
}

func TestRecordEnvelope(t *testing.T) {
	envelope := recordEnvelope(telemetry.EndOfWorkoutStatus{AverageStrokeRate: 26})

	assert.Equal(t, "end_of_workout", envelope["stream"])
	assert.Equal(t, telemetry.EndOfWorkoutStatus{AverageStrokeRate: 26}, envelope["data"])
}
