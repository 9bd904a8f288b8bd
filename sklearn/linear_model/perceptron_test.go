package linear_model

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/perceptron/pkg/errors"
	"github.com/YuminosukeSato/perceptron/pkg/log"
)

// captureWarnings swaps the warning handler for the duration of the test.
func captureWarnings(t *testing.T) func() []error {
	t.Helper()
	var (
		mu       sync.Mutex
		warnings []error
	)
	prev := errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(prev) })
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), warnings...)
	}
}

func quietLogger() log.Logger {
	logger, _ := log.NewTestLogger(log.LevelError)
	return logger
}

func TestPerceptron_NewIsZeroed(t *testing.T) {
	p := NewPerceptron(3, WithPerceptronLogger(quietLogger()))

	assert.Equal(t, []float64{0, 0, 0}, p.Coef())
	assert.Equal(t, 0.0, p.Intercept())
	assert.Equal(t, 3, p.NFeatures())
	assert.False(t, p.IsFitted())
	assert.Equal(t, "Perceptron(n_features=3)", p.String())
	assert.Equal(t, map[string]interface{}{"n_features": 3, "bias": 0.0}, p.GetParams())
}

func TestPerceptron_SeparableData(t *testing.T) {
	getWarnings := captureWarnings(t)

	X := mat.NewDense(2, 2, []float64{
		0, 0,
		1, 1,
	})
	y := []int{0, 1}

	p := NewPerceptron(2, WithPerceptronLogger(quietLogger()))
	require.NoError(t, p.Fit(X, y, 10))

	assert.True(t, p.IsFitted())
	assert.True(t, p.Converged())
	assert.Equal(t, 2, p.NIterations())
	assert.Equal(t, []int{1, 0}, p.MistakeHistory())
	assert.Equal(t, []float64{1, 1}, p.Coef())
	assert.Empty(t, getWarnings())

	acc, err := p.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	label, score, err := p.Predict([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.Equal(t, 2.0, score)

	label, score, err = p.Predict([]float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, label, "a zero score is negative")
	assert.Equal(t, 0.0, score)
}

func TestPerceptron_ConvergesInOneEpoch(t *testing.T) {
	// the zero vector already classifies every repeated negative sample
	X := mat.NewDense(4, 2, []float64{
		0, 1,
		0, 1,
		0, 1,
		1, 0,
	})
	y := []int{0, 0, 0, 0}

	p := NewPerceptron(2, WithPerceptronLogger(quietLogger()))
	require.NoError(t, p.Fit(X, y, 50))

	assert.Equal(t, 1, p.NIterations())
	assert.True(t, p.Converged())
	assert.Equal(t, []int{0}, p.MistakeHistory())
	assert.Equal(t, []float64{0, 0}, p.Coef())
}

func TestPerceptron_RepeatedPositiveSample(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		0, 1,
		0, 1,
		0, 1,
	})
	y := []int{1, 1, 1}

	p := NewPerceptron(2, WithPerceptronLogger(quietLogger()))
	require.NoError(t, p.Fit(X, y, 50))

	// one update during the first epoch, then a clean second epoch
	assert.Equal(t, 2, p.NIterations())
	assert.Equal(t, []int{1, 0}, p.MistakeHistory())
	assert.Equal(t, []float64{0, 1}, p.Coef())
}

func TestPerceptron_EpochCap(t *testing.T) {
	getWarnings := captureWarnings(t)

	// not separable through the origin
	X := mat.NewDense(3, 2, []float64{
		0, 2,
		1, 1,
		2, 0,
	})
	y := []int{0, 1, 0}

	for _, maxIter := range []int{1, 5} {
		p := NewPerceptron(2, WithPerceptronLogger(quietLogger()))
		require.NoError(t, p.Fit(X, y, maxIter))

		assert.Equal(t, maxIter, p.NIterations())
		assert.False(t, p.Converged())
		assert.Len(t, p.MistakeHistory(), maxIter)
		assert.InDeltaSlice(t, []float64{-0.5, 0.5}, p.Coef(), 1e-12)
	}

	warnings := getWarnings()
	require.Len(t, warnings, 2)
	var convWarn *errors.ConvergenceWarning
	require.True(t, errors.As(warnings[1], &convWarn))
	assert.Equal(t, "Perceptron", convWarn.Algorithm)
	assert.Equal(t, 5, convWarn.Iterations)
}

func TestPerceptron_ConstantMatrix(t *testing.T) {
	// every row normalizes to zeros, so updates never move the weights
	X := mat.NewDense(2, 3, []float64{5, 5, 5, 5, 5, 5})
	y := []int{1, 0}

	p := NewPerceptron(3, WithPerceptronLogger(quietLogger()))
	require.NoError(t, p.Fit(X, y, 10))

	assert.True(t, p.Converged())
	assert.Equal(t, 1, p.NIterations())
	assert.Equal(t, []int{1}, p.MistakeHistory())
	assert.Equal(t, []float64{0, 0, 0}, p.Coef())
}

func TestPerceptron_FitContinuesUntilReset(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 1, 1})
	y := []int{0, 1}

	p := NewPerceptron(2, WithPerceptronLogger(quietLogger()))
	require.NoError(t, p.Fit(X, y, 10))
	require.Equal(t, []float64{1, 1}, p.Coef())

	// already at a fixed point
	require.NoError(t, p.Fit(X, y, 10))
	assert.Equal(t, 1, p.NIterations())
	assert.Equal(t, []float64{1, 1}, p.Coef())

	p.Reset()
	assert.False(t, p.IsFitted())
	assert.Equal(t, []float64{0, 0}, p.Coef())
	assert.Zero(t, p.NIterations())
	assert.Empty(t, p.MistakeHistory())
}

func TestPerceptron_EmptyData(t *testing.T) {
	getWarnings := captureWarnings(t)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	p := NewPerceptron(2, WithPerceptronLogger(logger))
	require.NoError(t, p.Fit(&mat.Dense{}, nil, 5))

	assert.True(t, p.IsFitted())
	assert.Zero(t, p.NIterations())
	assert.Equal(t, []float64{0, 0}, p.Coef())
	assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorEmptyData))

	acc, err := p.Score(&mat.Dense{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc)

	warnings := getWarnings()
	require.Len(t, warnings, 1)
	var undefined *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warnings[0], &undefined))
}

func TestPerceptron_UnfittedPredictsWithZeroWeights(t *testing.T) {
	getWarnings := captureWarnings(t)
	p := NewPerceptron(2, WithPerceptronLogger(quietLogger()))

	label, score, err := p.Predict([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	assert.Equal(t, 0.0, score)

	acc, err := p.Score(mat.NewDense(2, 2, []float64{1, 2, 3, 4}), []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.5, acc)

	acc, err = p.Score(&mat.Dense{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc)
	require.Len(t, getWarnings(), 1)

	_, _, err = p.Predict([]float64{1})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
	assert.False(t, p.IsFitted())
}

func TestPerceptron_ZeroMaxIter(t *testing.T) {
	getWarnings := captureWarnings(t)
	X := mat.NewDense(2, 2, []float64{
		0, 0,
		1, 1,
	})
	y := []int{0, 1}

	p := NewPerceptron(2, WithPerceptronLogger(quietLogger()))
	require.NoError(t, p.Fit(X, y, 0))
	assert.Equal(t, []float64{0, 0}, p.Coef())
	assert.Equal(t, 0, p.NIterations())
	assert.Empty(t, p.MistakeHistory())
	assert.True(t, p.IsFitted())

	require.NoError(t, p.Fit(X, y, 10))
	require.NoError(t, p.Fit(X, y, 0))
	assert.Equal(t, []float64{1, 1}, p.Coef())
	assert.Empty(t, getWarnings())
}

func TestPerceptron_Validation(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 1, 1})

	tests := []struct {
		name      string
		nFeatures int
		X         mat.Matrix
		y         []int
		maxIter   int
		check     func(t *testing.T, err error)
	}{
		{
			name: "zero features", nFeatures: 0, X: X, y: []int{0, 1}, maxIter: 1,
			check: func(t *testing.T, err error) {
				var valErr *errors.ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, "n_features", valErr.ParamName)
			},
		},
		{
			name: "negative max_iter", nFeatures: 2, X: X, y: []int{0, 1}, maxIter: -1,
			check: func(t *testing.T, err error) {
				var valErr *errors.ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, "max_iter", valErr.ParamName)
			},
		},
		{
			name: "label count mismatch", nFeatures: 2, X: X, y: []int{0}, maxIter: 1,
			check: func(t *testing.T, err error) {
				var dimErr *errors.DimensionError
				require.True(t, errors.As(err, &dimErr))
				assert.Equal(t, 0, dimErr.Axis)
				assert.Equal(t, 2, dimErr.Expected)
				assert.Equal(t, 1, dimErr.Got)
			},
		},
		{
			name: "feature count mismatch", nFeatures: 3, X: X, y: []int{0, 1}, maxIter: 1,
			check: func(t *testing.T, err error) {
				var dimErr *errors.DimensionError
				require.True(t, errors.As(err, &dimErr))
				assert.Equal(t, 1, dimErr.Axis)
				assert.Equal(t, 3, dimErr.Expected)
				assert.Equal(t, 2, dimErr.Got)
			},
		},
		{
			name: "non-binary labels", nFeatures: 2, X: X, y: []int{0, 7}, maxIter: 1,
			check: func(t *testing.T, err error) {
				var valErr *errors.ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, 7, valErr.Value)
			},
		},
		{
			name: "NaN input", nFeatures: 2, X: mat.NewDense(1, 2, []float64{math.NaN(), 1}), y: []int{1}, maxIter: 1,
			check: func(t *testing.T, err error) {
				var numErr *errors.NumericalInstabilityError
				require.True(t, errors.As(err, &numErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPerceptron(tt.nFeatures, WithPerceptronLogger(quietLogger()))
			err := p.Fit(tt.X, tt.y, tt.maxIter)
			require.Error(t, err)
			tt.check(t, err)
			assert.False(t, p.IsFitted())
		})
	}
}

func TestPerceptron_PredictAndScoreDimensions(t *testing.T) {
	p := NewPerceptron(2, WithPerceptronLogger(quietLogger()))
	require.NoError(t, p.Fit(mat.NewDense(2, 2, []float64{0, 0, 1, 1}), []int{0, 1}, 5))

	_, _, err := p.Predict([]float64{1, 2, 3})
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 1, dimErr.Axis)

	_, err = p.Score(mat.NewDense(1, 3, []float64{1, 2, 3}), []int{1})
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 1, dimErr.Axis)

	_, err = p.Score(mat.NewDense(1, 2, []float64{1, 2}), []int{1, 0})
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 0, dimErr.Axis)
}

func TestPerceptron_ScoreLargeMatchesPredict(t *testing.T) {
	rows := scoreRowThreshold + 11
	data := make([]float64, rows*2)
	y := make([]int, rows)
	for i := 0; i < rows; i++ {
		data[2*i] = float64(i % 17)
		data[2*i+1] = float64((i * 5) % 13)
		if data[2*i] > data[2*i+1] {
			y[i] = 1
		}
	}
	X := mat.NewDense(rows, 2, data)

	p := NewPerceptron(2, WithPerceptronLogger(quietLogger()))
	captureWarnings(t)
	require.NoError(t, p.Fit(X, y, 3))

	acc, err := p.Score(X, y)
	require.NoError(t, err)

	lo, hi := mat.Min(X), mat.Max(X)
	correct := 0
	for i := 0; i < rows; i++ {
		x := []float64{(X.At(i, 0) - lo) / (hi - lo), (X.At(i, 1) - lo) / (hi - lo)}
		label, _, err := p.Predict(x)
		require.NoError(t, err)
		if label == y[i] {
			correct++
		}
	}
	assert.InDelta(t, float64(correct)/float64(rows), acc, 1e-12)
	assert.GreaterOrEqual(t, acc, 0.0)
	assert.LessOrEqual(t, acc, 1.0)
}

func TestPerceptron_LogsTraining(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	p := NewPerceptron(2, WithPerceptronLogger(logger))
	require.NoError(t, p.Fit(mat.NewDense(2, 2, []float64{0, 0, 1, 1}), []int{0, 1}, 10))

	assert.True(t, logger.ContainsMessage("Training completed"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "Perceptron"))
	assert.True(t, logger.ContainsField(log.ConvergedKey, true))
	assert.True(t, logger.ContainsField(log.EpochKey, 2.0))
	assert.Equal(t, "Perceptron(n_features=2, n_iter=2, converged=true)", p.String())
}
