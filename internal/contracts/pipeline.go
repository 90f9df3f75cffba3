package contracts

// Pipeline stages (SSOT)
// Every log line and persisted run row uses these constants.
//
//   S0 → S1 → S2 → S3 → S4 → S5
//   Data  Estimate  Optimize  Allocate  Project  Execute

// Stage represents a pipeline stage
type Stage string

const (
	// StageData S0: price series fetched per asset and assembled into a matrix
	// Location: internal/marketdata/, internal/estimator/matrix.go
	StageData Stage = "S0_DATA"

	// StageEstimate S1: annualised expected returns and covariance
	// Location: internal/estimator/
	StageEstimate Stage = "S1_ESTIMATE"

	// StageOptimize S2: long-only mean-variance weights and performance
	// Location: internal/frontier/
	StageOptimize Stage = "S2_OPTIMIZE"

	// StageAllocate S3: whole-share allocation within the budget
	// Location: internal/allocation/
	StageAllocate Stage = "S3_ALLOCATE"

	// StageProject S4: Monte Carlo projection of portfolio value
	// Location: internal/risk/
	StageProject Stage = "S4_PROJECT"

	// StageExecute S5: buy orders handed to the broker (collaborator, optional)
	// Location: internal/execution/
	StageExecute Stage = "S5_EXECUTE"
)

// AllStages returns the core stages in execution order
func AllStages() []Stage {
	return []Stage{
		StageData,
		StageEstimate,
		StageOptimize,
		StageAllocate,
		StageProject,
		StageExecute,
	}
}

// String returns the stage identifier
func (s Stage) String() string {
	return string(s)
}
