package telemetry

// Stream identifies one of the ergometer's telemetry notification streams.
type Stream int

const (
	StreamGeneralStatus Stream = iota
	StreamAdditionalStatus
	StreamEndOfWorkout
)

var streamNames = map[Stream]string{
	StreamGeneralStatus:    "general_status",
	StreamAdditionalStatus: "additional_status",
	StreamEndOfWorkout:     "end_of_workout",
}

func (s Stream) String() string {
	if name, ok := streamNames[s]; ok {
		return name
	}
	return "unknown_stream"
}

// Record is one decoded telemetry notification. Exactly three variants
// exist: GeneralStatus, AdditionalStatus and EndOfWorkoutStatus. Records
// are immutable values handed to the caller; they hold no references back
// into the session that produced them.
type Record interface {
	Stream() Stream
}

// GeneralStatus is the per-notification workout context snapshot.
type GeneralStatus struct {
	ElapsedTime         float64 // seconds
	Distance            float64 // meters
	WorkoutType         WorkoutType
	IntervalType        IntervalType
	WorkoutState        WorkoutState
	RowingState         RowingState
	StrokeState         StrokeState
	TotalWorkDistance   float64 // meters
	WorkoutDuration     float64 // seconds
	WorkoutDurationType WorkoutDurationType
	DragFactor          int
}

func (GeneralStatus) Stream() Stream { return StreamGeneralStatus }

// AdditionalStatus carries pace and physiological data.
type AdditionalStatus struct {
	ElapsedTime  float64 // seconds
	Speed        float64 // m/s
	StrokeRate   int     // strokes/min
	HeartRate    int     // bpm, 255 when no monitor is paired
	CurrentPace  float64 // seconds per 500m
	AveragePace  float64 // seconds per 500m
	RestDistance int     // meters, raw
	RestTime     float64 // seconds
}

func (AdditionalStatus) Stream() Stream { return StreamAdditionalStatus }

// EndOfWorkoutStatus is the summary emitted once when a workout completes.
type EndOfWorkoutStatus struct {
	AverageStrokeRate int // strokes/min
}

func (EndOfWorkoutStatus) Stream() Stream { return StreamEndOfWorkout }
