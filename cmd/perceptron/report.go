package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/perceptron/datasets"
	"github.com/YuminosukeSato/perceptron/metrics"
	"github.com/YuminosukeSato/perceptron/sklearn/multiclass"
)

// classRow summarizes one class's perceptron.
type classRow struct {
	Class     int
	TrainAcc  float64
	TestAcc   float64
	Epochs    int
	Converged bool
	Mistakes  int
}

// trainReport is what the train command prints.
type trainReport struct {
	Classes   []int
	Rows      []classRow
	TrainAcc  float64
	TestAcc   float64
	HasTest   bool
	Confusion *mat.Dense
}

func buildReport(clf *multiclass.OneVsRestClassifier, trainSet, testSet *datasets.Dataset) (*trainReport, error) {
	report := &trainReport{
		Classes: clf.Classes(),
		HasTest: testSet != nil,
	}

	for i, est := range clf.Estimators() {
		row := classRow{
			Class:     report.Classes[i],
			Epochs:    est.NIterations(),
			Converged: est.Converged(),
		}
		if history := est.MistakeHistory(); len(history) > 0 {
			row.Mistakes = history[len(history)-1]
		}

		var err error
		if row.TrainAcc, err = clf.ScoreClass(i, trainSet.Images, trainSet.Labels); err != nil {
			return nil, err
		}
		if testSet != nil {
			if row.TestAcc, err = clf.ScoreClass(i, testSet.Images, testSet.Labels); err != nil {
				return nil, err
			}
		}
		report.Rows = append(report.Rows, row)
	}

	var err error
	if report.TrainAcc, err = clf.Score(trainSet.Images, trainSet.Labels); err != nil {
		return nil, err
	}
	if testSet != nil {
		predictions, err := clf.PredictBatch(testSet.Images)
		if err != nil {
			return nil, err
		}
		if report.TestAcc, err = metrics.AccuracyScore(testSet.Labels, predictions); err != nil {
			return nil, err
		}
		if report.Confusion, err = metrics.ConfusionMatrix(testSet.Labels, predictions, report.Classes); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", 100*v)
}

// Render writes the per-class table and, with a test set, the confusion
// matrix.
func (r *trainReport) Render(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	header := []string{"Class", "Epochs", "Converged", "Last epoch mistakes", "Train acc"}
	if r.HasTest {
		header = append(header, "Test acc")
	}
	table.Header(header)

	for _, row := range r.Rows {
		line := []string{
			fmt.Sprint(row.Class),
			fmt.Sprint(row.Epochs),
			fmt.Sprint(row.Converged),
			fmt.Sprint(row.Mistakes),
			percent(row.TrainAcc),
		}
		if r.HasTest {
			line = append(line, percent(row.TestAcc))
		}
		if err := table.Append(line); err != nil {
			return err
		}
	}

	footer := []string{"overall", "", "", "", percent(r.TrainAcc)}
	if r.HasTest {
		footer = append(footer, percent(r.TestAcc))
	}
	table.Footer(footer)
	if err := table.Render(); err != nil {
		return err
	}

	if r.Confusion == nil {
		return nil
	}

	if _, err := fmt.Fprintln(w, "\nConfusion matrix (rows: true class, columns: predicted class)"); err != nil {
		return err
	}
	confusion := tablewriter.NewWriter(w)
	header = []string{""}
	for _, c := range r.Classes {
		header = append(header, fmt.Sprint(c))
	}
	confusion.Header(header)
	for i, c := range r.Classes {
		line := []string{fmt.Sprint(c)}
		for j := range r.Classes {
			line = append(line, fmt.Sprint(int(r.Confusion.At(i, j))))
		}
		if err := confusion.Append(line); err != nil {
			return err
		}
	}
	return confusion.Render()
}
