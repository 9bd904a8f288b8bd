// Package linear_model implements the binary perceptron.
package linear_model

import (
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/perceptron/core/model"
	"github.com/YuminosukeSato/perceptron/core/parallel"
	"github.com/YuminosukeSato/perceptron/metrics"
	"github.com/YuminosukeSato/perceptron/pkg/errors"
	"github.com/YuminosukeSato/perceptron/pkg/log"
	"github.com/YuminosukeSato/perceptron/preprocessing"
)

// scoreRowThreshold is the row count above which Score predicts in parallel.
const scoreRowThreshold = 2048

// Perceptron is a binary linear classifier trained with the online
// mistake-driven update rule: a positive sample scored <= 0 adds its feature
// vector to the weights, a negative sample scored > 0 subtracts it.
//
// The bias is fixed at zero. It takes part in every score but is never
// updated, so the decision boundary always passes through the origin of the
// normalized feature space.
type Perceptron struct {
	state *model.StateManager
	mu    sync.RWMutex

	nFeatures int
	weights   []float64
	bias      float64

	nIter     int
	converged bool
	mistakes  []int

	logger log.Logger
}

var (
	_ model.BinaryClassifier = (*Perceptron)(nil)
	_ model.ParameterGetter  = (*Perceptron)(nil)
)

// PerceptronOption configures a Perceptron.
type PerceptronOption func(*Perceptron)

// WithPerceptronLogger overrides the logger, which defaults to the global one.
func WithPerceptronLogger(logger log.Logger) PerceptronOption {
	return func(p *Perceptron) {
		p.logger = logger
	}
}

// NewPerceptron creates a Perceptron for nFeatures inputs with all weights
// set to zero. nFeatures is validated by Fit.
//
// Example:
//
//	clf := linear_model.NewPerceptron(784)
//	if err := clf.Fit(X, y, 10); err != nil {
//		return err
//	}
//	acc, err := clf.Score(XTest, yTest)
func NewPerceptron(nFeatures int, opts ...PerceptronOption) *Perceptron {
	p := &Perceptron{
		state:     model.NewStateManager(),
		nFeatures: nFeatures,
		weights:   make([]float64, max(nFeatures, 0)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLogger()
	}
	p.logger = p.logger.With(log.ModelNameKey, "Perceptron")
	return p
}

// Fit trains on X and y for at most maxIter epochs. Labels must be 0 or 1.
//
// X is normalized into [0, 1] with preprocessing.Normalize first, then rows
// are visited in order and every mistake updates the weights immediately.
// Training stops early after an epoch that leaves the weights unchanged.
// Running out of epochs first emits a ConvergenceWarning. A maxIter of 0 runs
// no epochs and leaves the weights as they are.
//
// Fit continues from the current weights. Call Reset to start from zero.
// An X with no rows leaves the weights untouched and still marks the model
// fitted.
func (p *Perceptron) Fit(X mat.Matrix, y []int, maxIter int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nFeatures < 1 {
		return errors.NewValidationError("n_features", "must be at least 1", p.nFeatures)
	}
	if maxIter < 0 {
		return errors.NewValidationError("max_iter", "must not be negative", maxIter)
	}

	rows, cols := X.Dims()
	if len(y) != rows {
		return errors.NewDimensionError("Perceptron.Fit", rows, len(y), 0)
	}
	if rows == 0 {
		p.logger.Warn("Fit called with no samples; weights left unchanged",
			log.OperationKey, log.OperationFit,
			log.ErrorCodeKey, log.ErrorEmptyData,
		)
		p.nIter = 0
		p.converged = false
		p.mistakes = nil
		p.state.SetDimensions(p.nFeatures, 0)
		p.state.SetFitted()
		return nil
	}
	if cols != p.nFeatures {
		return errors.NewDimensionError("Perceptron.Fit", p.nFeatures, cols, 1)
	}
	if bad := lo.Filter(y, func(label int, _ int) bool { return label != 0 && label != 1 }); len(bad) > 0 {
		return errors.NewValidationError("y", "binary labels must be 0 or 1", bad[0])
	}

	Xn, err := preprocessing.Normalize(X)
	if err != nil {
		return errors.Wrap(err, "Perceptron.Fit")
	}

	start := time.Now()
	p.nIter = 0
	p.converged = false
	p.mistakes = make([]int, 0, maxIter)
	snapshot := make([]float64, p.nFeatures)

	for epoch := 0; epoch < maxIter; epoch++ {
		copy(snapshot, p.weights)
		mistakes := p.epoch(Xn, y)

		p.nIter = epoch + 1
		p.mistakes = append(p.mistakes, mistakes)
		p.logger.Debug("Epoch finished",
			log.EpochKey, p.nIter,
			log.MistakesKey, mistakes,
		)

		if floats.Equal(snapshot, p.weights) {
			p.converged = true
			break
		}
	}

	if err := errors.CheckNumericalStability("Perceptron.Fit", p.weights, p.nIter); err != nil {
		return err
	}
	if !p.converged && maxIter > 0 {
		errors.Warn(errors.NewConvergenceWarning("Perceptron", p.nIter, ""))
	}

	p.state.SetDimensions(p.nFeatures, rows)
	p.state.SetFitted()

	p.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, p.nFeatures,
		log.MaxIterKey, maxIter,
		log.EpochKey, p.nIter,
		log.ConvergedKey, p.converged,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// epoch runs one pass over the rows of Xn and returns the number of
// misclassified samples. Updates use each row in place.
func (p *Perceptron) epoch(Xn *mat.Dense, y []int) int {
	mistakes := 0
	for i, label := range y {
		x := Xn.RawRowView(i)
		predicted, _ := p.decide(x)
		switch {
		case label == 1 && predicted == 0:
			floats.Add(p.weights, x)
			mistakes++
		case label == 0 && predicted == 1:
			floats.Sub(p.weights, x)
			mistakes++
		}
	}
	return mistakes
}

func (p *Perceptron) decide(x []float64) (int, float64) {
	score := floats.Dot(p.weights, x) + p.bias
	if score > 0 {
		return 1, score
	}
	return 0, score
}

// Predict returns 1 when dot(w, x) + bias > 0 and 0 otherwise, along with the
// score itself. x is expected in the normalized feature space. A model that
// has never been fitted predicts with zero weights, so every row gets label 0.
func (p *Perceptron) Predict(x []float64) (int, float64, error) {
	if len(x) != p.nFeatures {
		return 0, 0, errors.NewDimensionError("Perceptron.Predict", p.nFeatures, len(x), 1)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	label, score := p.decide(x)
	return label, score, nil
}

// Score normalizes X, predicts every row and returns the fraction of
// predictions equal to y. Accuracy over zero rows is 0.
func (p *Perceptron) Score(X mat.Matrix, y []int) (float64, error) {
	rows, cols := X.Dims()
	if len(y) != rows {
		return 0, errors.NewDimensionError("Perceptron.Score", rows, len(y), 0)
	}
	if rows == 0 {
		return metrics.AccuracyScore(nil, nil)
	}
	if cols != p.nFeatures {
		return 0, errors.NewDimensionError("Perceptron.Score", p.nFeatures, cols, 1)
	}

	Xn, err := preprocessing.Normalize(X)
	if err != nil {
		return 0, errors.Wrap(err, "Perceptron.Score")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	predictions := make([]int, rows)
	parallel.ParallelizeWithThreshold(rows, scoreRowThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			predictions[i], _ = p.decide(Xn.RawRowView(i))
		}
	})

	accuracy, err := metrics.AccuracyScore(y, predictions)
	if err != nil {
		return 0, err
	}
	p.logger.Debug("Scored",
		log.OperationKey, log.OperationScore,
		log.SamplesKey, rows,
		log.AccuracyKey, accuracy,
	)
	return accuracy, nil
}

// Coef returns a copy of the weight vector.
func (p *Perceptron) Coef() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]float64(nil), p.weights...)
}

// Intercept returns the bias, which is always zero.
func (p *Perceptron) Intercept() float64 {
	return p.bias
}

// NFeatures returns the number of inputs the model expects.
func (p *Perceptron) NFeatures() int {
	return p.nFeatures
}

// NIterations returns the number of epochs run by the last Fit.
func (p *Perceptron) NIterations() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nIter
}

// Converged reports whether the last Fit stopped at a fixed point.
func (p *Perceptron) Converged() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.converged
}

// MistakeHistory returns the number of misclassified samples in each epoch of
// the last Fit.
func (p *Perceptron) MistakeHistory() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]int(nil), p.mistakes...)
}

// IsFitted reports whether Fit has completed at least once since
// construction or the last Reset.
func (p *Perceptron) IsFitted() bool {
	return p.state.IsFitted()
}

// Reset zeroes the weights and forgets the training history.
func (p *Perceptron) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.weights {
		p.weights[i] = 0
	}
	p.nIter = 0
	p.converged = false
	p.mistakes = nil
	p.state.Reset()
}

// GetParams returns the model's hyperparameters.
func (p *Perceptron) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_features": p.nFeatures,
		"bias":       p.bias,
	}
}

func (p *Perceptron) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.state.IsFitted() {
		return fmt.Sprintf("Perceptron(n_features=%d)", p.nFeatures)
	}
	return fmt.Sprintf("Perceptron(n_features=%d, n_iter=%d, converged=%t)", p.nFeatures, p.nIter, p.converged)
}
