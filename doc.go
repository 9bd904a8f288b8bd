// Package perceptron is a small linear classification toolkit: a binary
// perceptron trained with the online mistake-driven update rule and a
// one-vs-rest ensemble that turns K perceptrons into a K-class classifier.
//
// # Packages
//
//   - preprocessing: global min/max normalization into [0, 1] and one-vs-rest
//     label binarization
//   - sklearn/linear_model: the binary Perceptron
//   - sklearn/multiclass: OneVsRestClassifier
//   - metrics: accuracy and confusion matrix
//   - datasets: IDX (MNIST) image and label decoding, plain or gzipped
//   - config: viper-backed settings for the command line tool
//   - pkg/errors, pkg/log: typed errors, warnings and zerolog logging
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/perceptron/datasets"
//	    "github.com/YuminosukeSato/perceptron/sklearn/multiclass"
//	)
//
//	func main() {
//	    train, err := datasets.Load("train-images-idx3-ubyte.gz", "train-labels-idx1-ubyte.gz", 0)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    clf, err := multiclass.NewOneVsRestClassifier(train.Classes(), train.NFeatures())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := clf.Fit(train.Images, train.Labels, 10); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    acc, err := clf.Score(train.Images, train.Labels)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("training accuracy: %.4f\n", acc)
//	}
//
// # Training
//
// Perceptron.Fit normalizes its input, then visits the rows in order for at
// most maxIter epochs. A positive sample scored <= 0 adds its features to the
// weights and a negative sample scored > 0 subtracts them. Training stops at
// the first epoch that leaves the weights unchanged; running out of epochs
// instead emits a ConvergenceWarning through pkg/errors.
//
// OneVsRestClassifier.Fit trains each class's perceptron independently. With
// WithNJobs the classes are trained concurrently and the result is the same
// as training them one after another.
//
// # Command line
//
// cmd/perceptron wraps the library:
//
//	perceptron train --train-images ... --train-labels ... --max-iter 10 --jobs 0
package perceptron
