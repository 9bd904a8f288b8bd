// Package preprocessing rescales feature matrices and derives binary targets
// before they reach an estimator.
package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/perceptron/core/model"
	"github.com/YuminosukeSato/perceptron/core/parallel"
	"github.com/YuminosukeSato/perceptron/pkg/errors"
)

// parallelRowThreshold is the row count above which Transform fans out.
const parallelRowThreshold = 1024

// GlobalMinMaxScaler maps every entry of a matrix into [0, 1] using a single
// minimum and maximum taken over all entries, not one pair per feature.
//
// A matrix whose entries are all equal transforms to zeros. Transforming data
// other than the data passed to Fit can produce values outside [0, 1].
type GlobalMinMaxScaler struct {
	state *model.StateManager

	// DataMin is the smallest entry seen by Fit.
	DataMin float64

	// DataMax is the largest entry seen by Fit.
	DataMax float64
}

// NewGlobalMinMaxScaler creates an unfitted GlobalMinMaxScaler.
//
// Example:
//
//	scaler := preprocessing.NewGlobalMinMaxScaler()
//	XScaled, err := scaler.FitTransform(X)
func NewGlobalMinMaxScaler() *GlobalMinMaxScaler {
	return &GlobalMinMaxScaler{state: model.NewStateManager()}
}

// Fit records the global minimum and maximum of X. An empty X is accepted and
// leaves both at zero.
func (s *GlobalMinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	s.DataMin, s.DataMax = 0, 0

	if r > 0 && c > 0 {
		if err := errors.CheckMatrix("GlobalMinMaxScaler.Fit", X, r, c, 0); err != nil {
			return err
		}
		s.DataMin = mat.Min(X)
		s.DataMax = mat.Max(X)
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform rescales X with the range recorded by Fit and returns a new
// matrix. X itself is never modified.
func (s *GlobalMinMaxScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("GlobalMinMaxScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return &mat.Dense{}, nil
	}
	if nFeatures, _ := s.state.GetDimensions(); nFeatures > 0 && nFeatures != c {
		return nil, errors.NewDimensionError("GlobalMinMaxScaler.Transform", nFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	span := s.DataMax - s.DataMin
	if span == 0 {
		return out, nil
	}

	lowest := s.DataMin
	parallel.ParallelizeWithThreshold(r, parallelRowThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := out.RawRowView(i)
			for j := range row {
				row[j] = (X.At(i, j) - lowest) / span
			}
		}
	})
	return out, nil
}

// FitTransform fits the scaler to X and returns X rescaled.
func (s *GlobalMinMaxScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// IsFitted reports whether Fit has been called.
func (s *GlobalMinMaxScaler) IsFitted() bool {
	return s.state.IsFitted()
}

// GetParams returns the fitted range.
func (s *GlobalMinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"data_min": s.DataMin,
		"data_max": s.DataMax,
	}
}

func (s *GlobalMinMaxScaler) String() string {
	if !s.state.IsFitted() {
		return "GlobalMinMaxScaler()"
	}
	return fmt.Sprintf("GlobalMinMaxScaler(data_min=%g, data_max=%g)", s.DataMin, s.DataMax)
}

// Normalize rescales X into [0, 1] using the global minimum and maximum of its
// own entries. An empty X yields an empty matrix and a constant X yields zeros.
//
// Example:
//
//	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
//	Xn, _ := preprocessing.Normalize(X) // [[0, 1/3], [2/3, 1]]
func Normalize(X mat.Matrix) (*mat.Dense, error) {
	return NewGlobalMinMaxScaler().FitTransform(X)
}
