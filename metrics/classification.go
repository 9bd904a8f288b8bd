// Package metrics scores classifier predictions.
package metrics

import (
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/perceptron/pkg/errors"
)

// AccuracyScore returns the fraction of positions where yPred equals yTrue.
//
// Accuracy over zero samples is undefined: the result is 0.0 and an
// UndefinedMetricWarning is emitted through errors.Warn.
func AccuracyScore(yTrue, yPred []int) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, errors.NewDimensionError("AccuracyScore", len(yTrue), len(yPred), 0)
	}
	if len(yTrue) == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("accuracy", "no samples", 0))
		return 0, nil
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return errors.SafeDivide(float64(correct), float64(len(yTrue))), nil
}

// ConfusionMatrix counts predictions per (true class, predicted class) pair.
// Rows and columns follow the order of classes. Pairs involving a label that
// is not in classes are not counted.
func ConfusionMatrix(yTrue, yPred []int, classes []int) (*mat.Dense, error) {
	if len(yTrue) != len(yPred) {
		return nil, errors.NewDimensionError("ConfusionMatrix", len(yTrue), len(yPred), 0)
	}
	if len(classes) == 0 {
		return nil, errors.NewValidationError("classes", "must not be empty", classes)
	}
	if dups := lo.FindDuplicates(classes); len(dups) > 0 {
		return nil, errors.NewValidationError("classes", "must be distinct", dups)
	}

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	cm := mat.NewDense(len(classes), len(classes), nil)
	for i := range yTrue {
		ti, ok := index[yTrue[i]]
		if !ok {
			continue
		}
		pi, ok := index[yPred[i]]
		if !ok {
			continue
		}
		cm.Set(ti, pi, cm.At(ti, pi)+1)
	}
	return cm, nil
}
