package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/perceptron/pkg/errors"
	"github.com/YuminosukeSato/perceptron/sklearn/multiclass"
)

// plotMistakes draws one line per class of misclassified samples per epoch
// and saves it to path. The image format follows the file extension.
func plotMistakes(clf *multiclass.OneVsRestClassifier, path string) error {
	p := plot.New()
	p.Title.Text = "Mistakes per epoch"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Misclassified samples"
	p.Legend.Top = true

	classes := clf.Classes()
	for i, est := range clf.Estimators() {
		history := est.MistakeHistory()
		points := make(plotter.XYs, len(history))
		for j, m := range history {
			points[j].X = float64(j + 1)
			points[j].Y = float64(m)
		}

		line, err := plotter.NewLine(points)
		if err != nil {
			return errors.Wrapf(err, "plotting class %d", classes[i])
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i / len(plotutil.DefaultColors))
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("class %d", classes[i]), line)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot to %s", path)
	}
	return nil
}
