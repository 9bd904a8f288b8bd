package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "Perceptron".
	ModelNameKey = "model.name"

	// ClassKey is the class identifier a one-vs-rest sub-model is bound to.
	ClassKey = "model.class"

	// OperationKey is the operation being performed: "fit", "predict", "score".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase, e.g. "training" or "validation".
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	PathKey     = "data.path"
)

// Training and evaluation.
const (
	DurationMsKey = "perf.duration_ms"
	WorkersKey    = "perf.workers"
	AccuracyKey   = "metrics.accuracy"
	MistakesKey   = "metrics.mistakes"
	EpochKey      = "training.epoch"
	MaxIterKey    = "training.max_iter"
	ConvergedKey  = "training.converged"
)

// Error context.
const (
	ErrorKey      = "error"
	StacktraceKey = "error.stacktrace"
	ErrorCodeKey  = "error.code"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationLoad    = "load"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhasePreprocessing = "preprocessing"

	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
)
