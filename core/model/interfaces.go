package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is an iterative learner trained for at most maxIter epochs.
type Fitter interface {
	Fit(X mat.Matrix, y []int, maxIter int) error
}

// Scorer reports the fraction of samples in X whose prediction matches y.
type Scorer interface {
	Score(X mat.Matrix, y []int) (float64, error)
}

// Fitted is implemented by anything with a fitted state.
type Fitted interface {
	IsFitted() bool
}

// BinaryClassifier predicts a {0, 1} label together with its raw score.
type BinaryClassifier interface {
	Fitter
	Scorer
	Fitted

	Predict(x []float64) (label int, score float64, err error)
	NFeatures() int
}

// MulticlassClassifier predicts one of a fixed set of class identifiers.
type MulticlassClassifier interface {
	Fitter
	Scorer
	Fitted

	Predict(x []float64) (int, error)
	Classes() []int
}

// ParameterGetter is implemented by models that expose their hyperparameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
