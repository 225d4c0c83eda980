package telemetry

// The ergometer firmware reports workout context as single-byte codes drawn
// from fixed, closed sets. Every set below has an exhaustive code-to-value
// mapping; a code outside the set is a decode error, never a silent default.

// MachineType identifies the physical machine variant reported by the
// device-information characteristic.
type MachineType byte

const (
	MachineStaticD       MachineType = 0
	MachineStaticC       MachineType = 1
	MachineStaticA       MachineType = 2
	MachineStaticB       MachineType = 3
	MachineStaticE       MachineType = 5
	MachineStaticDynamic MachineType = 8
	MachineSlidesA       MachineType = 16
	MachineSlidesB       MachineType = 17
	MachineSlidesC       MachineType = 18
	MachineSlidesE       MachineType = 20
	MachineSlidesDynamic MachineType = 32
	MachineStaticDyno    MachineType = 64
	MachineStaticSki     MachineType = 128
	MachineBike          MachineType = 192
	MachineBikeArms      MachineType = 193
	MachineBikeNoArms    MachineType = 194
	MachineMultiErgRow   MachineType = 224
	MachineMultiErgSki   MachineType = 225
	MachineMultiErgBike  MachineType = 226
)

var machineTypeNames = map[MachineType]string{
	MachineStaticD:       "staticD",
	MachineStaticC:       "staticC",
	MachineStaticA:       "staticA",
	MachineStaticB:       "staticB",
	MachineStaticE:       "staticE",
	MachineStaticDynamic: "staticDynamic",
	MachineSlidesA:       "slidesA",
	MachineSlidesB:       "slidesB",
	MachineSlidesC:       "slidesC",
	MachineSlidesE:       "slidesE",
	MachineSlidesDynamic: "slidesDynamic",
	MachineStaticDyno:    "staticDyno",
	MachineStaticSki:     "staticSki",
	MachineBike:          "bike",
	MachineBikeArms:      "bikeArms",
	MachineBikeNoArms:    "bikeNoArms",
	MachineMultiErgRow:   "multiErgRow",
	MachineMultiErgSki:   "multiErgSki",
	MachineMultiErgBike:  "multiErgBike",
}

func (m MachineType) String() string { return machineTypeNames[m] }

// MachineTypeFromCode maps a raw code to a MachineType
func MachineTypeFromCode(code byte) (MachineType, error) {
	m := MachineType(code)
	if _, ok := machineTypeNames[m]; !ok {
		return 0, unknownEnum("machine type", code)
	}
	return m, nil
}

// WorkoutType identifies the programmed workout shape.
type WorkoutType byte

const (
	WorkoutJustRowNoSplits          WorkoutType = 0
	WorkoutJustRowSplits            WorkoutType = 1
	WorkoutFixedDistanceNoSplits    WorkoutType = 2
	WorkoutFixedDistanceSplits      WorkoutType = 3
	WorkoutFixedTimeNoSplits        WorkoutType = 4
	WorkoutFixedTimeSplits          WorkoutType = 5
	WorkoutFixedTimeInterval        WorkoutType = 6
	WorkoutFixedDistanceInterval    WorkoutType = 7
	WorkoutVariableInterval         WorkoutType = 8
	WorkoutVariableUndefinedRest    WorkoutType = 9
	WorkoutFixedCalorie             WorkoutType = 10
	WorkoutFixedWattMinutes         WorkoutType = 11
	WorkoutFixedCalorieInterval     WorkoutType = 12
	WorkoutFixedWattMinutesInterval WorkoutType = 13
)

var workoutTypeNames = map[WorkoutType]string{
	WorkoutJustRowNoSplits:          "justRowNoSplits",
	WorkoutJustRowSplits:            "justRowSplits",
	WorkoutFixedDistanceNoSplits:    "fixedDistNoSplits",
	WorkoutFixedDistanceSplits:      "fixedDistSplits",
	WorkoutFixedTimeNoSplits:        "fixedTimeNoSplits",
	WorkoutFixedTimeSplits:          "fixedTimeSplits",
	WorkoutFixedTimeInterval:        "fixedTimeInterval",
	WorkoutFixedDistanceInterval:    "fixedDistInterval",
	WorkoutVariableInterval:         "variableInterval",
	WorkoutVariableUndefinedRest:    "variableUndefinedRestInterval",
	WorkoutFixedCalorie:             "fixedCalorie",
	WorkoutFixedWattMinutes:         "fixedWattMinutes",
	WorkoutFixedCalorieInterval:     "fixedCalsInterval",
	WorkoutFixedWattMinutesInterval: "fixedWattMinutesInterval",
}

func (w WorkoutType) String() string { return workoutTypeNames[w] }

// WorkoutTypeFromCode maps a raw code to a WorkoutType
func WorkoutTypeFromCode(code byte) (WorkoutType, error) {
	w := WorkoutType(code)
	if _, ok := workoutTypeNames[w]; !ok {
		return 0, unknownEnum("workout type", code)
	}
	return w, nil
}

// IntervalType identifies the interval segment kind within a workout.
type IntervalType byte

const (
	IntervalTime                  IntervalType = 0
	IntervalDistance              IntervalType = 1
	IntervalRest                  IntervalType = 2
	IntervalTimeRestUndefined     IntervalType = 3
	IntervalDistanceRestUndefined IntervalType = 4
	IntervalRestUndefined         IntervalType = 5
	IntervalCalorie               IntervalType = 6
	IntervalCalorieRestUndefined  IntervalType = 7
	IntervalWattMinute            IntervalType = 8
	IntervalWattMinuteRestUndef   IntervalType = 9
	IntervalNone                  IntervalType = 255
)

var intervalTypeNames = map[IntervalType]string{
	IntervalTime:                  "time",
	IntervalDistance:              "dist",
	IntervalRest:                  "rest",
	IntervalTimeRestUndefined:     "timeRestUndefined",
	IntervalDistanceRestUndefined: "distanceRestUndefined",
	IntervalRestUndefined:         "restUndefined",
	IntervalCalorie:               "calorie",
	IntervalCalorieRestUndefined:  "calorieRestUndefined",
	IntervalWattMinute:            "wattMinute",
	IntervalWattMinuteRestUndef:   "wattMinuteRestUndefined",
	IntervalNone:                  "none",
}

func (i IntervalType) String() string { return intervalTypeNames[i] }

// IntervalTypeFromCode maps a raw code to an IntervalType
func IntervalTypeFromCode(code byte) (IntervalType, error) {
	i := IntervalType(code)
	if _, ok := intervalTypeNames[i]; !ok {
		return 0, unknownEnum("interval type", code)
	}
	return i, nil
}

// WorkoutState identifies where the monitor is in the workout lifecycle.
type WorkoutState byte

const (
	WorkoutStateWaitToBegin            WorkoutState = 0
	WorkoutStateWorkoutRow             WorkoutState = 1
	WorkoutStateCountdownPause         WorkoutState = 2
	WorkoutStateIntervalRest           WorkoutState = 3
	WorkoutStateIntervalWorkTime       WorkoutState = 4
	WorkoutStateIntervalWorkDistance   WorkoutState = 5
	WorkoutStateIntervalRestEndToTime  WorkoutState = 6
	WorkoutStateIntervalRestEndToDist  WorkoutState = 7
	WorkoutStateIntervalWorkTimeToRest WorkoutState = 8
	WorkoutStateIntervalWorkDistToRest WorkoutState = 9
	WorkoutStateWorkoutEnd             WorkoutState = 10
	WorkoutStateTerminate              WorkoutState = 11
	WorkoutStateWorkoutLogged          WorkoutState = 12
	WorkoutStateRearm                  WorkoutState = 13
)

var workoutStateNames = map[WorkoutState]string{
	WorkoutStateWaitToBegin:            "waitToBegin",
	WorkoutStateWorkoutRow:             "workOutRow",
	WorkoutStateCountdownPause:         "countDownPause",
	WorkoutStateIntervalRest:           "intervalRest",
	WorkoutStateIntervalWorkTime:       "intervalWorkTime",
	WorkoutStateIntervalWorkDistance:   "intervalWorkDistance",
	WorkoutStateIntervalRestEndToTime:  "intervalRestEndToWorkTime",
	WorkoutStateIntervalRestEndToDist:  "intervalRestEndToWorkDistance",
	WorkoutStateIntervalWorkTimeToRest: "intervalWorkTimeToRest",
	WorkoutStateIntervalWorkDistToRest: "intervalWorkDistanceToRest",
	WorkoutStateWorkoutEnd:             "workoutEnd",
	WorkoutStateTerminate:              "terminate",
	WorkoutStateWorkoutLogged:          "workoutLogged",
	WorkoutStateRearm:                  "rearm",
}

func (w WorkoutState) String() string { return workoutStateNames[w] }

// WorkoutStateFromCode maps a raw code to a WorkoutState
func WorkoutStateFromCode(code byte) (WorkoutState, error) {
	w := WorkoutState(code)
	if _, ok := workoutStateNames[w]; !ok {
		return 0, unknownEnum("workout state", code)
	}
	return w, nil
}

// RowingState distinguishes an idle flywheel from active rowing.
type RowingState byte

const (
	RowingInactive RowingState = 0
	RowingActive   RowingState = 1
)

var rowingStateNames = map[RowingState]string{
	RowingInactive: "inactive",
	RowingActive:   "active",
}

func (r RowingState) String() string { return rowingStateNames[r] }

// RowingStateFromCode maps a raw code to a RowingState
func RowingStateFromCode(code byte) (RowingState, error) {
	r := RowingState(code)
	if _, ok := rowingStateNames[r]; !ok {
		return 0, unknownEnum("rowing state", code)
	}
	return r, nil
}

// StrokeState identifies the phase of the current stroke.
type StrokeState byte

const (
	StrokeWaitingForWheelToReachMinSpeed StrokeState = 0
	StrokeWaitingForWheelToAccelerate    StrokeState = 1
	StrokeDriving                        StrokeState = 2
	StrokeDwellingAfterDrive             StrokeState = 3
	StrokeRecovery                       StrokeState = 4
)

var strokeStateNames = map[StrokeState]string{
	StrokeWaitingForWheelToReachMinSpeed: "waitingForWheelToReachMinSpeedState",
	StrokeWaitingForWheelToAccelerate:    "waitingForWheelToAccelerateState",
	StrokeDriving:                        "drivingState",
	StrokeDwellingAfterDrive:             "dwellingAfterDriveState",
	StrokeRecovery:                       "recoveryState",
}

func (s StrokeState) String() string { return strokeStateNames[s] }

// StrokeStateFromCode maps a raw code to a StrokeState
func StrokeStateFromCode(code byte) (StrokeState, error) {
	s := StrokeState(code)
	if _, ok := strokeStateNames[s]; !ok {
		return 0, unknownEnum("stroke state", code)
	}
	return s, nil
}

// WorkoutDurationType identifies the unit in which the programmed workout
// duration is expressed.
type WorkoutDurationType byte

const (
	DurationTime     WorkoutDurationType = 0x00
	DurationCalories WorkoutDurationType = 0x40
	DurationDistance WorkoutDurationType = 0x80
	DurationWatts    WorkoutDurationType = 0xC0
)

var workoutDurationTypeNames = map[WorkoutDurationType]string{
	DurationTime:     "time",
	DurationCalories: "calories",
	DurationDistance: "distance",
	DurationWatts:    "watts",
}

func (d WorkoutDurationType) String() string { return workoutDurationTypeNames[d] }

// WorkoutDurationTypeFromCode maps a raw code to a WorkoutDurationType
func WorkoutDurationTypeFromCode(code byte) (WorkoutDurationType, error) {
	d := WorkoutDurationType(code)
	if _, ok := workoutDurationTypeNames[d]; !ok {
		return 0, unknownEnum("workout duration type", code)
	}
	return d, nil
}
