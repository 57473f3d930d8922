// Package constants provides named constants used throughout the dataset generator.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Sampling constants
const (
	// PathfinderMaxTries is the number of attempts the pathfinder makes per draw
	// before it gives up and reports an invalid point.
	PathfinderMaxTries = 1000

	// ProximityRadiusFactor scales the move actuation amount into the radius of
	// the disk used when sampling a goal near the previous one.
	ProximityRadiusFactor = 1000.0

	// ObstacleClearanceFactor multiplies the agent radius to get the minimum
	// clearance a sampled point must have.
	ObstacleClearanceFactor = 2.0
)

// Lighting constants
const (
	// AttenuationCoefficient scales colors of lights with a negative intensity.
	AttenuationCoefficient = 0.1

	// BoostCoefficient scales colors of lights with a non-negative intensity.
	BoostCoefficient = 10.0

	// LightSetupPrefix prefixes the life index in generated light setup names.
	LightSetupPrefix = "lights_setup_"
)

// Output constants
const (
	// StepIndexWidth is the zero-padded width of step indices in file names and log lines.
	StepIndexWidth = 6

	// JPEGQuality is the encoder quality for color frames.
	JPEGQuality = 95

	// TrajectoryFile is the name of the append-only pose file.
	TrajectoryFile = "traj.txt"

	// LogFile is the name of the free-text step log.
	LogFile = "log.txt"

	// EventsFile is the name of the JSONL event log.
	EventsFile = "events.jsonl"

	// ResultsDir holds per-step image artifacts.
	ResultsDir = "results"

	// CatalogFile is the SQLite run catalog at the output root.
	CatalogFile = "catalog.db"
)

// Scenario defaults
const (
	DefaultAgentRadius         = 0.1
	DefaultGoalRadius          = 0.2
	DefaultMoveActuationAmount = 0.05
	DefaultTurnActuationAmount = 1.0
	DefaultMoveFreqMultiplier  = 5
	DefaultTurnFreqMultiplier  = 2
	DefaultNavPointsNumber     = 10
	DefaultDepthScale          = 1000.0
	DefaultSeed                = 1

	DefaultWidth        = 640
	DefaultHeight       = 480
	DefaultHFOV         = 90.0
	DefaultSensorHeight = 1.5
	DefaultZFar         = 1000.0

	// DefaultMaxStepsPerGoal bounds how many planner actions the built-in
	// follower emits for one goal before reporting an error action.
	DefaultMaxStepsPerGoal = 1500
)

// Grid backend constants
const (
	// GridCellSize is the edge length of one grid cell in meters.
	GridCellSize = 0.5

	// GridWallHeight is the height of walls and obstacles in meters.
	GridWallHeight = 2.5

	// GridProceduralCols and GridProceduralRows size the generated floor plan.
	GridProceduralCols = 24
	GridProceduralRows = 18
)
