// Package telemetry decodes the ergometer's fixed-layout binary
// notification payloads into typed records.
//
// The byte layouts, offsets and scale factors below are the manufacturer's
// wire contract and must be preserved bit-for-bit for interoperability with
// the machine's firmware. All decode functions are pure: identical input
// always yields an identical record or an identical error, and no function
// reads past the declared minimum length.
package telemetry

import "unicode/utf8"

// Minimum payload lengths for the three notification streams.
const (
	generalStatusMinLen    = 19
	additionalStatusMinLen = 16
	endOfWorkoutMinLen     = 11
)

// uint24 assembles a 24-bit unsigned integer from three little-endian
// bytes (low, mid, high). Equivalent to high*65536 + mid*256 + low.
func uint24(low, mid, high byte) uint32 {
	return uint32(high)<<16 | uint32(mid)<<8 | uint32(low)
}

// uint16le assembles a 16-bit unsigned integer from two little-endian
// bytes (low, high). Equivalent to high*256 + low.
func uint16le(low, high byte) uint16 {
	return uint16(high)<<8 | uint16(low)
}

// DecodeGeneralStatus decodes a rowing general-status notification.
//
// Layout (19 bytes minimum):
//
//	0-2   elapsed time, uint24 LE, 0.01 s
//	3-5   distance, uint24 LE, 0.1 m
//	6     workout type
//	7     interval type
//	8     workout state
//	9     rowing state
//	10    stroke state
//	11-13 total work distance, uint24 LE, 0.1 m
//	14-16 workout duration, uint24 LE, 0.01 s
//	17    workout duration type
//	18    drag factor
func DecodeGeneralStatus(data []byte) (GeneralStatus, error) {
	if len(data) < generalStatusMinLen {
		return GeneralStatus{}, truncated("general status", generalStatusMinLen, len(data))
	}

	workoutType, err := WorkoutTypeFromCode(data[6])
	if err != nil {
		return GeneralStatus{}, err
	}
	intervalType, err := IntervalTypeFromCode(data[7])
	if err != nil {
		return GeneralStatus{}, err
	}
	workoutState, err := WorkoutStateFromCode(data[8])
	if err != nil {
		return GeneralStatus{}, err
	}
	rowingState, err := RowingStateFromCode(data[9])
	if err != nil {
		return GeneralStatus{}, err
	}
	strokeState, err := StrokeStateFromCode(data[10])
	if err != nil {
		return GeneralStatus{}, err
	}
	durationType, err := WorkoutDurationTypeFromCode(data[17])
	if err != nil {
		return GeneralStatus{}, err
	}

	return GeneralStatus{
		ElapsedTime:         float64(uint24(data[0], data[1], data[2])) * 0.01,
		Distance:            float64(uint24(data[3], data[4], data[5])) * 0.1,
		WorkoutType:         workoutType,
		IntervalType:        intervalType,
		WorkoutState:        workoutState,
		RowingState:         rowingState,
		StrokeState:         strokeState,
		TotalWorkDistance:   float64(uint24(data[11], data[12], data[13])) * 0.1,
		WorkoutDuration:     float64(uint24(data[14], data[15], data[16])) * 0.01,
		WorkoutDurationType: durationType,
		DragFactor:          int(data[18]),
	}, nil
}

// DecodeAdditionalStatus decodes a rowing additional-status notification.
//
// Layout (16 bytes minimum):
//
//	0-2   elapsed time, uint24 LE, 0.01 s
//	3-4   speed, uint16 LE, 0.001 m/s
//	5     stroke rate, strokes/min
//	6     heart rate, bpm
//	7-8   current pace, uint16 LE, 0.01 s
//	9-10  average pace, uint16 LE, 0.01 s
//	11-12 rest distance, uint16 LE, raw meters
//	13-15 rest time, uint24 LE, 0.01 s
func DecodeAdditionalStatus(data []byte) (AdditionalStatus, error) {
	if len(data) < additionalStatusMinLen {
		return AdditionalStatus{}, truncated("additional status", additionalStatusMinLen, len(data))
	}

	return AdditionalStatus{
		ElapsedTime:  float64(uint24(data[0], data[1], data[2])) * 0.01,
		Speed:        float64(uint16le(data[3], data[4])) * 0.001,
		StrokeRate:   int(data[5]),
		HeartRate:    int(data[6]),
		CurrentPace:  float64(uint16le(data[7], data[8])) * 0.01,
		AveragePace:  float64(uint16le(data[9], data[10])) * 0.01,
		RestDistance: int(uint16le(data[11], data[12])),
		RestTime:     float64(uint24(data[13], data[14], data[15])) * 0.01,
	}, nil
}

// DecodeEndOfWorkout decodes an end-of-workout summary notification.
// The average stroke rate is the raw byte at offset 10, unscaled.
func DecodeEndOfWorkout(data []byte) (EndOfWorkoutStatus, error) {
	if len(data) < endOfWorkoutMinLen {
		return EndOfWorkoutStatus{}, truncated("end of workout", endOfWorkoutMinLen, len(data))
	}

	return EndOfWorkoutStatus{
		AverageStrokeRate: int(data[10]),
	}, nil
}

// Decode dispatches a notification payload to the decoder for its stream.
func Decode(stream Stream, data []byte) (Record, error) {
	switch stream {
	case StreamGeneralStatus:
		return DecodeGeneralStatus(data)
	case StreamAdditionalStatus:
		return DecodeAdditionalStatus(data)
	case StreamEndOfWorkout:
		return DecodeEndOfWorkout(data)
	default:
		return nil, &DecodeError{Kind: InvalidEncoding, Msg: "unknown telemetry stream"}
	}
}

// DecodeIdentityString decodes a device-information characteristic value.
// The payload must be valid UTF-8; the caller decides whether a malformed
// value is fatal or should be substituted with empty text.
func DecodeIdentityString(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &DecodeError{Kind: InvalidEncoding, Msg: "identity string is not valid UTF-8"}
	}
	return string(data), nil
}
