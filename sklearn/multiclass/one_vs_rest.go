// Package multiclass combines binary perceptrons into multi-class
// classifiers.
package multiclass

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/perceptron/core/model"
	"github.com/YuminosukeSato/perceptron/core/parallel"
	"github.com/YuminosukeSato/perceptron/metrics"
	"github.com/YuminosukeSato/perceptron/pkg/errors"
	"github.com/YuminosukeSato/perceptron/pkg/log"
	"github.com/YuminosukeSato/perceptron/preprocessing"
	"github.com/YuminosukeSato/perceptron/sklearn/linear_model"
)

// predictRowThreshold is the row count above which PredictBatch fans out.
const predictRowThreshold = 1024

// OneVsRestClassifier holds one binary Perceptron per class. The perceptron at
// index i is trained to separate classes[i] from every other class.
//
// At prediction time each perceptron votes with its label and score. The
// class with the highest score among the positive votes wins, ties going to
// the class listed first. When no perceptron votes positive the class with
// the lowest score wins, or the highest with WithLeastNegativeFallback.
type OneVsRestClassifier struct {
	classes    []int
	estimators []*linear_model.Perceptron
	nFeatures  int

	nJobs                 int
	leastNegativeFallback bool
	fitCallback           func(class int, est *linear_model.Perceptron)

	logger     log.Logger
	baseLogger log.Logger
}

var (
	_ model.MulticlassClassifier = (*OneVsRestClassifier)(nil)
	_ model.ParameterGetter      = (*OneVsRestClassifier)(nil)
)

// OneVsRestOption configures a OneVsRestClassifier.
type OneVsRestOption func(*OneVsRestClassifier)

// WithNJobs sets how many classes are trained at once. The default of 1
// trains them one after another in class order; n <= 0 uses one worker per
// CPU. The learned weights do not depend on n.
func WithNJobs(n int) OneVsRestOption {
	return func(c *OneVsRestClassifier) {
		c.nJobs = n
	}
}

// WithLeastNegativeFallback makes Predict pick the class with the highest
// score, rather than the lowest, when no perceptron votes positive.
func WithLeastNegativeFallback() OneVsRestOption {
	return func(c *OneVsRestClassifier) {
		c.leastNegativeFallback = true
	}
}

// WithFitCallback registers fn to be called after each class finishes
// training. With more than one job fn may be called concurrently.
func WithFitCallback(fn func(class int, est *linear_model.Perceptron)) OneVsRestOption {
	return func(c *OneVsRestClassifier) {
		c.fitCallback = fn
	}
}

// WithOneVsRestLogger overrides the logger, which defaults to the global one.
func WithOneVsRestLogger(logger log.Logger) OneVsRestOption {
	return func(c *OneVsRestClassifier) {
		c.logger = logger
	}
}

// NewOneVsRestClassifier creates one zeroed Perceptron(nFeatures) per class,
// in the order given. Classes must be non-empty and distinct.
//
// Example:
//
//	clf, err := multiclass.NewOneVsRestClassifier([]int{0, 1, 2}, 784,
//		multiclass.WithNJobs(0))
//	if err != nil {
//		return err
//	}
//	err = clf.Fit(X, y, 10)
//	class, err := clf.Predict(row)
func NewOneVsRestClassifier(classes []int, nFeatures int, opts ...OneVsRestOption) (*OneVsRestClassifier, error) {
	if err := validateClasses(classes); err != nil {
		return nil, err
	}
	if nFeatures < 1 {
		return nil, errors.NewValidationError("n_features", "must be at least 1", nFeatures)
	}

	c := newOneVsRest(classes, nFeatures, opts)
	c.estimators = make([]*linear_model.Perceptron, len(c.classes))
	for i, class := range c.classes {
		c.estimators[i] = linear_model.NewPerceptron(nFeatures,
			linear_model.WithPerceptronLogger(c.baseLogger.With(log.ClassKey, class)))
	}
	return c, nil
}

// NewOneVsRestClassifierFromEstimators builds an ensemble from existing
// perceptrons, estimators[i] answering for classes[i]. All estimators must
// expect the same number of features.
func NewOneVsRestClassifierFromEstimators(classes []int, estimators []*linear_model.Perceptron, opts ...OneVsRestOption) (*OneVsRestClassifier, error) {
	if err := validateClasses(classes); err != nil {
		return nil, err
	}
	if len(estimators) != len(classes) {
		return nil, errors.NewValidationError("estimators",
			fmt.Sprintf("need one estimator per class (%d classes)", len(classes)), len(estimators))
	}
	if lo.Contains(estimators, nil) {
		return nil, errors.NewValidationError("estimators", "must not contain nil", estimators)
	}
	nFeatures := estimators[0].NFeatures()
	if nFeatures < 1 {
		return nil, errors.NewValidationError("n_features", "must be at least 1", nFeatures)
	}
	counts := lo.Uniq(lo.Map(estimators, func(est *linear_model.Perceptron, _ int) int { return est.NFeatures() }))
	if len(counts) > 1 {
		return nil, errors.NewValidationError("estimators", "must all expect the same number of features", counts)
	}

	c := newOneVsRest(classes, nFeatures, opts)
	c.estimators = append([]*linear_model.Perceptron(nil), estimators...)
	return c, nil
}

func newOneVsRest(classes []int, nFeatures int, opts []OneVsRestOption) *OneVsRestClassifier {
	c := &OneVsRestClassifier{
		classes:   append([]int(nil), classes...),
		nFeatures: nFeatures,
		nJobs:     1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLogger()
	}
	c.baseLogger = c.logger
	c.logger = c.logger.With(log.ModelNameKey, "OneVsRestClassifier")
	return c
}

func validateClasses(classes []int) error {
	if len(classes) == 0 {
		return errors.NewValidationError("classes", "must not be empty", classes)
	}
	if dups := lo.FindDuplicates(classes); len(dups) > 0 {
		return errors.NewValidationError("classes", "must be distinct", dups)
	}
	return nil
}

// Fit trains every perceptron for at most maxIter epochs against its own
// relabeled copy of y: 1 where y equals its class, 0 elsewhere.
func (c *OneVsRestClassifier) Fit(X mat.Matrix, y []int, maxIter int) error {
	rows, cols := X.Dims()
	if len(y) != rows {
		return errors.NewDimensionError("OneVsRestClassifier.Fit", rows, len(y), 0)
	}
	if rows > 0 && cols != c.nFeatures {
		return errors.NewDimensionError("OneVsRestClassifier.Fit", c.nFeatures, cols, 1)
	}

	start := time.Now()
	workers := parallel.Workers(c.nJobs, len(c.classes))
	c.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.ClassesKey, len(c.classes),
		log.WorkersKey, workers,
	)

	err := parallel.ForEach(len(c.classes), c.nJobs, "OneVsRestClassifier.Fit", func(i int) error {
		class := c.classes[i]
		est := c.estimators[i]
		if err := est.Fit(X, preprocessing.BinarizeLabels(y, class), maxIter); err != nil {
			return errors.NewModelError("OneVsRestClassifier.Fit", fmt.Sprintf("class %d", class), err)
		}
		if c.fitCallback != nil {
			c.fitCallback(class, est)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("Training failed", err, log.OperationKey, log.OperationFit)
		return err
	}

	c.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.ClassesKey, len(c.classes),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// vote is one perceptron's answer for a single sample.
type vote struct {
	class int
	label int
	score float64
}

// Predict returns the class chosen for x. x is expected in the normalized
// feature space. An untrained ensemble scores every class 0 and returns the
// first class.
func (c *OneVsRestClassifier) Predict(x []float64) (int, error) {
	if len(x) != c.nFeatures {
		return 0, errors.NewDimensionError("OneVsRestClassifier.Predict", c.nFeatures, len(x), 1)
	}

	votes := make([]vote, len(c.estimators))
	for i, est := range c.estimators {
		label, score, err := est.Predict(x)
		if err != nil {
			return 0, errors.Wrapf(err, "class %d", c.classes[i])
		}
		votes[i] = vote{class: c.classes[i], label: label, score: score}
	}
	return c.aggregate(votes), nil
}

func (c *OneVsRestClassifier) aggregate(votes []vote) int {
	higher := func(a, b vote) bool { return a.score > b.score }
	lower := func(a, b vote) bool { return a.score < b.score }

	positives := lo.Filter(votes, func(v vote, _ int) bool { return v.label == 1 })
	if len(positives) > 0 {
		return lo.MaxBy(positives, higher).class
	}
	if c.leastNegativeFallback {
		return lo.MaxBy(votes, higher).class
	}
	return lo.MinBy(votes, lower).class
}

// PredictBatch normalizes X and predicts every row.
func (c *OneVsRestClassifier) PredictBatch(X mat.Matrix) ([]int, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return []int{}, nil
	}
	if cols != c.nFeatures {
		return nil, errors.NewDimensionError("OneVsRestClassifier.PredictBatch", c.nFeatures, cols, 1)
	}

	Xn, err := preprocessing.Normalize(X)
	if err != nil {
		return nil, errors.Wrap(err, "OneVsRestClassifier.PredictBatch")
	}

	predictions := make([]int, rows)
	errs := make([]error, rows)
	parallel.ParallelizeWithThreshold(rows, predictRowThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			predictions[i], errs[i] = c.Predict(Xn.RawRowView(i))
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return predictions, nil
}

// Score returns the fraction of rows of X whose predicted class equals y.
// Accuracy over zero rows is 0.
func (c *OneVsRestClassifier) Score(X mat.Matrix, y []int) (float64, error) {
	rows, _ := X.Dims()
	if len(y) != rows {
		return 0, errors.NewDimensionError("OneVsRestClassifier.Score", rows, len(y), 0)
	}

	predictions, err := c.PredictBatch(X)
	if err != nil {
		return 0, err
	}
	accuracy, err := metrics.AccuracyScore(y, predictions)
	if err != nil {
		return 0, err
	}
	c.logger.Debug("Scored",
		log.OperationKey, log.OperationScore,
		log.SamplesKey, rows,
		log.AccuracyKey, accuracy,
	)
	return accuracy, nil
}

// ScoreClass scores the perceptron at classIndex alone on the binary problem
// "classes[classIndex] versus the rest".
func (c *OneVsRestClassifier) ScoreClass(classIndex int, X mat.Matrix, y []int) (float64, error) {
	est, err := c.Estimator(classIndex)
	if err != nil {
		return 0, err
	}
	return est.Score(X, preprocessing.BinarizeLabels(y, c.classes[classIndex]))
}

// Classes returns a copy of the class identifiers in estimator order.
func (c *OneVsRestClassifier) Classes() []int {
	return append([]int(nil), c.classes...)
}

// Estimators returns the perceptrons in class order. The slice is a copy; the
// perceptrons are shared.
func (c *OneVsRestClassifier) Estimators() []*linear_model.Perceptron {
	return append([]*linear_model.Perceptron(nil), c.estimators...)
}

// Estimator returns the perceptron for classes[classIndex].
func (c *OneVsRestClassifier) Estimator(classIndex int) (*linear_model.Perceptron, error) {
	if classIndex < 0 || classIndex >= len(c.estimators) {
		return nil, errors.NewValueError("OneVsRestClassifier.Estimator",
			fmt.Sprintf("class index %d out of range [0, %d)", classIndex, len(c.estimators)))
	}
	return c.estimators[classIndex], nil
}

// NFeatures returns the number of inputs every perceptron expects.
func (c *OneVsRestClassifier) NFeatures() int {
	return c.nFeatures
}

// IsFitted reports whether every perceptron has been fitted.
func (c *OneVsRestClassifier) IsFitted() bool {
	return lo.EveryBy(c.estimators, func(est *linear_model.Perceptron) bool { return est.IsFitted() })
}

// GetParams returns the ensemble's hyperparameters.
func (c *OneVsRestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"classes":                 c.Classes(),
		"n_features":              c.nFeatures,
		"n_jobs":                  c.nJobs,
		"least_negative_fallback": c.leastNegativeFallback,
	}
}

func (c *OneVsRestClassifier) String() string {
	return fmt.Sprintf("OneVsRestClassifier(classes=%v, n_features=%d, n_jobs=%d)", c.classes, c.nFeatures, c.nJobs)
}
